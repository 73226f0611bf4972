// Package surface models the bounded slot grid a player deposits into. The
// grid is plain state; all rules about what a slot may hold live in the plugin
// and ledger layers.
package surface

import "spawnerx.gg/internal/exchange/item"

const Columns = 9

type Grid struct {
	title string
	slots []*item.Item
}

func New(title string, rows int) *Grid {
	if rows < 1 {
		rows = 1
	}
	return &Grid{title: title, slots: make([]*item.Item, rows*Columns)}
}

func (g *Grid) Title() string { return g.title }
func (g *Grid) Size() int     { return len(g.slots) }
func (g *Grid) Rows() int     { return len(g.slots) / Columns }

// Item returns a copy of the slot's content; ok is false for empty slots.
func (g *Grid) Item(slot int) (item.Item, bool) {
	if slot < 0 || slot >= len(g.slots) || g.slots[slot] == nil {
		return item.Item{}, false
	}
	return g.slots[slot].Clone(), true
}

func (g *Grid) SetItem(slot int, it item.Item) {
	if slot < 0 || slot >= len(g.slots) {
		return
	}
	c := it.Clone()
	g.slots[slot] = &c
}

func (g *Grid) Clear(slot int) {
	if slot < 0 || slot >= len(g.slots) {
		return
	}
	g.slots[slot] = nil
}

func (g *Grid) Empty(slot int) bool {
	return slot < 0 || slot >= len(g.slots) || g.slots[slot] == nil
}

// MarkerSlot locates the marker by tag. fastPath is tried first so the common
// layout avoids a full scan; any tagged slot anywhere still wins.
func (g *Grid) MarkerSlot(fastPath int) int {
	if it, ok := g.Item(fastPath); ok && it.IsMarker() {
		return fastPath
	}
	for i := range g.slots {
		if g.slots[i] != nil && g.slots[i].IsMarker() {
			return i
		}
	}
	return -1
}
