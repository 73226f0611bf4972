// Package ui builds the two surfaces: the paginated mob selection grid and
// the deposit surface. Structural items carry tags so click handling and
// protection work by tag, never by position or display text.
package ui

import (
	"fmt"
	"strconv"

	"spawnerx.gg/internal/exchange/config"
	"spawnerx.gg/internal/exchange/item"
	"spawnerx.gg/internal/exchange/layout"
	"spawnerx.gg/internal/exchange/rates"
	"spawnerx.gg/internal/exchange/surface"
)

// Button tag values.
const (
	ButtonCancel          = "cancel"
	ButtonConfirmEnabled  = "confirm_enabled"
	ButtonConfirmDisabled = "confirm_disabled"
	ButtonPrevPage        = "prev_page"
	ButtonNextPage        = "next_page"
)

// MarkerSlot is the marker's first-choice position; lookup still scans by tag
// if something else occupies it.
const MarkerSlot = 4

const (
	SelectionTitle = "Select Spawner"
	selectionRows  = 6
	perPage        = 28
)

// The selection window: the inner 7x4 block of a 6-row grid.
var selectionContentSlots = []int{
	10, 11, 12, 13, 14, 15, 16,
	19, 20, 21, 22, 23, 24, 25,
	28, 29, 30, 31, 32, 33, 34,
	37, 38, 39, 40, 41, 42, 43,
}

func locked(it item.Item) item.Item { return it.WithTag(item.TagLocked, "true") }

func filler(spec config.ItemSpec) item.Item {
	return locked(item.New(spec.Kind, spec.Name, 1))
}

// PageCount reports how many selection pages a table needs; always at least 1.
func PageCount(tbl *rates.Table) int {
	n := (tbl.Len() + perPage - 1) / perPage
	if n < 1 {
		n = 1
	}
	return n
}

// SelectionPage builds one page of the mob picker: alphabetical entries in
// the content window, locked filler elsewhere, nav arrows tagged with their
// target page.
func SelectionPage(tbl *rates.Table, page int) *surface.Grid {
	total := PageCount(tbl)
	if page < 0 {
		page = 0
	}
	if page > total-1 {
		page = total - 1
	}

	title := fmt.Sprintf("%s (%d/%d)", SelectionTitle, page+1, total)
	g := surface.New(title, selectionRows)
	fill := filler(config.ItemSpec{Kind: "GRAY_STAINED_GLASS_PANE", Name: " "})
	for i := 0; i < g.Size(); i++ {
		g.SetItem(i, fill)
	}

	keys := tbl.Keys()
	start := page * perPage
	for i, slot := range selectionContentSlots {
		idx := start + i
		if idx >= len(keys) {
			break
		}
		mob := keys[idx]
		rate, _ := tbl.Lookup(mob)
		entry := item.New(mob+"_SPAWN_EGG", mob, 1)
		entry.Lore = []string{fmt.Sprintf("Rate: %d", rate)}
		entry = locked(entry).WithTag(item.TagMob, mob)
		g.SetItem(slot, entry)
	}

	prev := locked(item.New("ARROW", "Previous Page", 1)).
		WithTag(item.TagButton, ButtonPrevPage).
		WithTag(item.TagPage, strconv.Itoa(maxInt(0, page-1)))
	next := locked(item.New("ARROW", "Next Page", 1)).
		WithTag(item.TagButton, ButtonNextPage).
		WithTag(item.TagPage, strconv.Itoa(minInt(total-1, page+1)))
	g.SetItem(45, prev)
	g.SetItem(53, next)
	return g
}

func ExchangeTitle(gui config.GUI, mob string) string {
	return gui.Title + " - " + mob
}

// BuildExchange constructs the deposit surface: locked filler everywhere,
// planner-chosen deposit slots cleared, cancel and (disabled) confirm
// controls, and the marker carrying the session terms. Returns the open
// deposit slots for callers that want them.
func BuildExchange(gui config.GUI, mob string, required int) (*surface.Grid, []int) {
	rows := layout.Rows(gui.Rows, required)
	g := surface.New(ExchangeTitle(gui, mob), rows)

	fill := filler(gui.Filler)
	for i := 0; i < g.Size(); i++ {
		g.SetItem(i, fill)
	}

	deposits := layout.DepositSlots(rows, required, required%2 == 1,
		gui.CancelSlot, gui.ConfirmSlot, MarkerSlot)
	if len(deposits) == 0 {
		for _, slot := range gui.InputSlotCandidates {
			if slot >= 0 && slot < g.Size() && slot != gui.CancelSlot &&
				slot != gui.ConfirmSlot && slot != MarkerSlot {
				deposits = append(deposits, slot)
			}
		}
	}
	for _, slot := range deposits {
		g.Clear(slot)
	}

	cancel := locked(item.New(gui.Items.Cancel.Kind, gui.Items.Cancel.Name, 1)).
		WithTag(item.TagButton, ButtonCancel)
	g.SetItem(gui.CancelSlot, cancel)
	g.SetItem(gui.ConfirmSlot, ConfirmButton(gui, false))

	if g.Size() > MarkerSlot {
		marker := locked(item.New("PAPER", fmt.Sprintf("%s: %d needed", mob, required), 1)).
			WithTag(item.TagMarker, fmt.Sprintf("%s:%d", mob, required))
		marker.Lore = []string{
			fmt.Sprintf("Required: %d", required),
			"Provided: 0",
		}
		g.SetItem(MarkerSlot, marker)
	}
	return g, deposits
}

// ConfirmButton builds the confirm control in either state.
func ConfirmButton(gui config.GUI, enabled bool) item.Item {
	spec := gui.Items.ConfirmDisabled
	tag := ButtonConfirmDisabled
	if enabled {
		spec = gui.Items.ConfirmEnabled
		tag = ButtonConfirmEnabled
	}
	return locked(item.New(spec.Kind, spec.Name, 1)).WithTag(item.TagButton, tag)
}

// UpdateMarker rewrites the marker's live required/provided display.
func UpdateMarker(g *surface.Grid, required, provided int) {
	slot := g.MarkerSlot(MarkerSlot)
	if slot < 0 {
		return
	}
	marker, ok := g.Item(slot)
	if !ok {
		return
	}
	marker.Lore = []string{
		fmt.Sprintf("Required: %d", required),
		fmt.Sprintf("Provided: %d", provided),
	}
	g.SetItem(slot, marker)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
