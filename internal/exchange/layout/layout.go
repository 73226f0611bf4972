// Package layout plans which slots of an exchange surface open for deposits.
// Everything here is pure: same inputs, same slot sequence.
package layout

import "spawnerx.gg/internal/exchange/surface"

const (
	minRows = 2
	maxRows = 6
)

// Rows sizes the surface: at least the configured row count, grown to fit
// required deposit items one per slot, plus the control row. Floored at two
// rows so there is always a content row, capped at the surface maximum.
func Rows(configured, required int) int {
	needed := (required + surface.Columns - 1) / surface.Columns
	if needed < 1 {
		needed = 1
	}
	rows := 1 + needed
	if rows > maxRows {
		rows = maxRows
	}
	if configured > rows {
		rows = configured
	}
	if rows < minRows {
		rows = minRows
	}
	if rows > maxRows {
		rows = maxRows
	}
	return rows
}

// Column visit orders, horizontal-center first. The even order leaves the
// center column last so even required totals fill symmetrically around it.
var (
	colOrderOdd  = [surface.Columns]int{4, 3, 5, 2, 6, 1, 7, 0, 8}
	colOrderEven = [surface.Columns]int{3, 5, 2, 6, 1, 7, 0, 8, 4}
)

// Candidates returns every openable slot in priority order. Row 0 is the
// control row and never a candidate; content rows are visited center-out so
// deposits cluster near the visual middle. Slots holding the cancel button,
// confirm button, or marker are skipped.
func Candidates(rows int, oddParity bool, cancelSlot, confirmSlot, markerSlot int) []int {
	out := make([]int, 0, (rows-1)*surface.Columns)
	first, last := 1, rows-1
	if last < first {
		return out
	}

	mid := first + (last-first)/2
	rowOrder := []int{mid}
	for offset := 1; ; offset++ {
		added := false
		if up := mid - offset; up >= first {
			rowOrder = append(rowOrder, up)
			added = true
		}
		if down := mid + offset; down <= last {
			rowOrder = append(rowOrder, down)
			added = true
		}
		if !added {
			break
		}
	}

	colOrder := colOrderEven
	if oddParity {
		colOrder = colOrderOdd
	}
	for _, r := range rowOrder {
		for _, c := range colOrder {
			idx := r*surface.Columns + c
			if idx == cancelSlot || idx == confirmSlot || idx == markerSlot {
				continue
			}
			out = append(out, idx)
		}
	}
	return out
}

// DepositSlots takes the first required candidates. When required exceeds the
// candidate count every candidate opens; the trade is then unsatisfiable by
// construction, which is a configuration sizing problem rather than an error.
func DepositSlots(rows, required int, oddParity bool, cancelSlot, confirmSlot, markerSlot int) []int {
	cands := Candidates(rows, oddParity, cancelSlot, confirmSlot, markerSlot)
	if required < 0 {
		required = 0
	}
	if required < len(cands) {
		cands = cands[:required]
	}
	return cands
}
