// Package ledger is the value accounting for an exchange: what the deposited
// items are worth, whether the trade can complete, and exactly which slots to
// consume. Evaluation and planning are pure; applying a plan to a surface and
// to the player is the plugin's job.
package ledger

import (
	"fmt"
	"strings"

	"spawnerx.gg/internal/exchange/item"
	"spawnerx.gg/internal/exchange/rates"
)

// SlotReader is the view of a surface the ledger needs.
type SlotReader interface {
	Size() int
	Item(slot int) (item.Item, bool)
}

// QuantityFunc resolves the effective quantity of a slot's item.
type QuantityFunc func(item.Item) int

// Match is one depositable slot classified as holding spawners of a known mob.
type Match struct {
	Slot  int
	Mob   string
	Rate  int
	Units int
}

func (m Match) Worth() int { return m.Units * m.Rate }

// Evaluation is a single pass over the surface. It is never cached; every
// mutation event triggers a fresh pass so Provided cannot go stale.
type Evaluation struct {
	Provided int
	Matches  []Match
}

// Evaluate recomputes provided points from surface contents alone. Locked
// structural items are skipped; unmatched items contribute nothing but are
// left in place. Matches come back in ascending slot order.
func Evaluate(s SlotReader, tbl *rates.Table, quantity QuantityFunc) Evaluation {
	var ev Evaluation
	for slot := 0; slot < s.Size(); slot++ {
		it, ok := s.Item(slot)
		if !ok || it.Locked() {
			continue
		}
		mob, ok := MatchMob(it, tbl)
		if !ok {
			continue
		}
		rate, _ := tbl.Lookup(mob)
		units := quantity(it)
		if units <= 0 {
			continue
		}
		ev.Matches = append(ev.Matches, Match{Slot: slot, Mob: mob, Rate: rate, Units: units})
		ev.Provided += units * rate
	}
	return ev
}

// MatchMob classifies an item as holding spawners of a table mob: it must be
// of the spawner item kind and its label must contain the mob identifier,
// case-insensitively. Table iteration order makes the winner deterministic
// when several keys are substrings of the label.
func MatchMob(it item.Item, tbl *rates.Table) (string, bool) {
	if it.Kind != item.KindSpawner || it.Name == "" {
		return "", false
	}
	label := strings.ToUpper(it.Name)
	for _, mob := range tbl.Keys() {
		if strings.Contains(label, mob) {
			return mob, true
		}
	}
	return "", false
}

// ConfirmEnabled gates the confirm control: exact equality only. Overshoot
// keeps the control disabled; the player removes or swaps stacks instead.
func ConfirmEnabled(provided, required int) bool {
	return provided == required
}

// ShortfallError reports a completion attempt with too little value on the
// surface. Nothing is touched when it is returned.
type ShortfallError struct {
	Required int
	Provided int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("short %d points: required %d, provided %d", e.Gap(), e.Required, e.Provided)
}

func (e *ShortfallError) Gap() int { return e.Required - e.Provided }

// Action consumes one matched slot whole. MintBack is the unit count handed
// back to the player when the slot overshot the remaining need; partial units
// cannot be split, so the consumed value may exceed the need by up to rate-1.
type Action struct {
	Slot     int
	Mob      string
	MintBack int
}

// Plan is a staged consumption: computed in full before anything is removed,
// so a completion either applies entirely or not at all.
type Plan struct {
	Actions  []Action
	Consumed int
}

// PlanConsumption walks matches in ascending slot order, consuming whole
// slots until required points are covered. The overshooting slot consumes
// ceil(needed/rate) units and mints the remainder back. Conservation holds:
// Consumed plus the value of every MintBack equals the worth of all consumed
// slots, and Consumed >= required.
func PlanConsumption(matches []Match, required int) (Plan, error) {
	provided := 0
	for _, m := range matches {
		provided += m.Worth()
	}
	if provided < required {
		return Plan{}, &ShortfallError{Required: required, Provided: provided}
	}

	var plan Plan
	needed := required
	for _, m := range matches {
		if needed <= 0 {
			break
		}
		worth := m.Worth()
		if worth <= needed {
			plan.Actions = append(plan.Actions, Action{Slot: m.Slot, Mob: m.Mob})
			plan.Consumed += worth
			needed -= worth
			continue
		}
		unitsToConsume := (needed + m.Rate - 1) / m.Rate
		plan.Actions = append(plan.Actions, Action{
			Slot:     m.Slot,
			Mob:      m.Mob,
			MintBack: m.Units - unitsToConsume,
		})
		plan.Consumed += unitsToConsume * m.Rate
		needed -= unitsToConsume * m.Rate
	}
	return plan, nil
}
