// Package rates holds the exchange rate table: how many matched deposit units
// one target spawner of a given mob costs.
package rates

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RawEntry is one raw config entry under the mobs section. Two forms are
// accepted and resolved once at decode time:
//
//	ZOMBIE: 3
//	ZOMBIE: {allow: true, rate: 3}
//
// The structured form also accepts "value" as an alias for "rate".
type RawEntry struct {
	scalar *int
	allow  *bool
	rate   *int
	value  *int
}

func (e *RawEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var n int
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("mob entry: %w", err)
		}
		e.scalar = &n
		return nil
	}
	var p struct {
		Allow *bool `yaml:"allow"`
		Rate  *int  `yaml:"rate"`
		Value *int  `yaml:"value"`
	}
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("mob entry: %w", err)
	}
	e.allow = p.Allow
	e.rate = p.Rate
	e.value = p.Value
	return nil
}

// MarshalYAML writes the entry back in its original form so seeding missing
// mobs does not rewrite hand-edited structured entries.
func (e RawEntry) MarshalYAML() (any, error) {
	if e.scalar != nil {
		return *e.scalar, nil
	}
	out := map[string]any{}
	if e.allow != nil {
		out["allow"] = *e.allow
	}
	if e.rate != nil {
		out["rate"] = *e.rate
	}
	if e.value != nil {
		out["value"] = *e.value
	}
	return out, nil
}

// Scalar builds the simple-form entry.
func Scalar(rate int) RawEntry { return RawEntry{scalar: &rate} }

// Structured builds the structured-form entry.
func Structured(allow bool, rate int) RawEntry {
	return RawEntry{allow: &allow, rate: &rate}
}

// resolve flattens the variant: rate falls back through rate -> value -> 1 and
// is clamped to a minimum of 1; allow defaults to true.
func (e RawEntry) resolve() (rate int, allow bool) {
	rate = 1
	allow = true
	switch {
	case e.scalar != nil:
		rate = *e.scalar
	default:
		if e.rate != nil {
			rate = *e.rate
		} else if e.value != nil {
			rate = *e.value
		}
		if e.allow != nil {
			allow = *e.allow
		}
	}
	if rate < 1 {
		rate = 1
	}
	return rate, allow
}

// Table is an immutable rate snapshot. Keys are upper-normalized and iterate
// in case-insensitive lexical order so UI listings are deterministic.
type Table struct {
	rates map[string]int
	keys  []string
}

// Build normalizes raw entries into a table. Disallowed entries are dropped;
// when raw keys collide after normalization, the lexically greatest raw key
// wins, so repeated loads of the same document agree.
func Build(entries map[string]RawEntry) *Table {
	raw := make([]string, 0, len(entries))
	for key := range entries {
		raw = append(raw, key)
	}
	sort.Strings(raw)

	t := &Table{rates: make(map[string]int, len(entries))}
	for _, key := range raw {
		rate, allow := entries[key].resolve()
		if !allow {
			continue
		}
		t.rates[Normalize(key)] = rate
	}
	t.keys = make([]string, 0, len(t.rates))
	for k := range t.rates {
		t.keys = append(t.keys, k)
	}
	sort.Strings(t.keys)
	return t
}

// Normalize maps a mob identifier to its canonical table key.
func Normalize(mob string) string {
	return strings.ToUpper(strings.TrimSpace(mob))
}

func (t *Table) Lookup(mob string) (int, bool) {
	rate, ok := t.rates[Normalize(mob)]
	return rate, ok
}

func (t *Table) Has(mob string) bool {
	_, ok := t.rates[Normalize(mob)]
	return ok
}

// Keys returns the mob identifiers in iteration order. The slice is a copy.
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

func (t *Table) Len() int { return len(t.rates) }
