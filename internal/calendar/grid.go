// Package calendar generates the month grid for the diary view: full
// Sunday-first weeks covering the cursor month, including the leading
// and trailing days borrowed from adjacent months.
package calendar

import (
	"time"

	"sweetdiary/internal/core"
)

// Cell is one grid position. Cells outside the cursor month keep their
// date but render as blank placeholders (InMonth false).
type Cell struct {
	Day     core.Day
	InMonth bool
	Today   bool
}

// Grid returns the ordered cells for the month, always a whole number
// of 7-day weeks (usually 35 or 42 cells). today marks at most one cell
// and is passed in rather than read from the wall clock so callers
// control it.
func Grid(m core.Month, today core.Day) []Cell {
	start, end := span(m)
	cells := make([]Cell, 0, 42)
	for d := start; !d.After(end); d = d.Next() {
		cells = append(cells, Cell{
			Day:     d,
			InMonth: m.Contains(d),
			Today:   !today.IsZero() && d.Equal(today.Time),
		})
	}
	return cells
}

// Rows returns how many week rows the month needs (5 or 6). Recomputed
// whenever the cursor changes; the page layout depends on it.
func Rows(m core.Month) int {
	start, end := span(m)
	days := int(end.Sub(start.Time).Hours()/24) + 1
	return days / 7
}

// Weeks groups grid cells into rows of seven for template rendering.
func Weeks(cells []Cell) [][]Cell {
	weeks := make([][]Cell, 0, len(cells)/7)
	for i := 0; i+7 <= len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}
	return weeks
}

// span returns the Sunday on or before the 1st and the Saturday on or
// after the last day of the month.
func span(m core.Month) (core.Day, core.Day) {
	first := m.First()
	last := m.Last()
	start := core.Day{Time: first.AddDate(0, 0, -int(first.Weekday()))}
	end := core.Day{Time: last.AddDate(0, 0, int(time.Saturday-last.Weekday()))}
	return start, end
}
