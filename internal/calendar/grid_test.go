package calendar

import (
	"testing"
	"time"

	"sweetdiary/internal/core"
)

func TestGridShape(t *testing.T) {
	cases := []struct {
		month core.Month
		cells int
	}{
		// Feb 2024 starts on a Thursday and has 29 days: 5 weeks.
		{core.Month{Year: 2024, Month: time.February}, 35},
		// Jun 2024 starts on a Saturday and has 30 days: 6 weeks.
		{core.Month{Year: 2024, Month: time.June}, 42},
		// Feb 2026 starts on a Sunday and has 28 days: exactly 4 weeks.
		{core.Month{Year: 2026, Month: time.February}, 28},
		// Mar 2024 starts on a Friday and has 31 days: 6 weeks.
		{core.Month{Year: 2024, Month: time.March}, 42},
	}
	for _, tc := range cases {
		cells := Grid(tc.month, core.Day{})
		if len(cells) != tc.cells {
			t.Errorf("%s: %d cells, want %d", tc.month, len(cells), tc.cells)
		}
		if len(cells)%7 != 0 {
			t.Errorf("%s: length %d not a multiple of 7", tc.month, len(cells))
		}
		if got := Rows(tc.month); got != tc.cells/7 {
			t.Errorf("%s: Rows = %d, want %d", tc.month, got, tc.cells/7)
		}
		if cells[0].Day.Weekday() != time.Sunday {
			t.Errorf("%s: grid starts on %s, want Sunday", tc.month, cells[0].Day.Weekday())
		}
		if last := cells[len(cells)-1]; last.Day.Weekday() != time.Saturday {
			t.Errorf("%s: grid ends on %s, want Saturday", tc.month, last.Day.Weekday())
		}
	}
}

func TestGridCoversMonthExactlyOnce(t *testing.T) {
	m := core.Month{Year: 2024, Month: time.February}
	cells := Grid(m, core.Day{})

	inMonth := 0
	seen := make(map[string]bool)
	for _, c := range cells {
		if seen[c.Day.Key()] {
			t.Fatalf("duplicate cell %s", c.Day.Key())
		}
		seen[c.Day.Key()] = true
		if c.InMonth != m.Contains(c.Day) {
			t.Errorf("%s: InMonth=%v disagrees with month", c.Day.Key(), c.InMonth)
		}
		if c.InMonth {
			inMonth++
		}
	}
	if inMonth != m.Days() {
		t.Errorf("in-month cells = %d, want %d", inMonth, m.Days())
	}
}

func TestGridContinuity(t *testing.T) {
	cells := Grid(core.Month{Year: 2024, Month: time.June}, core.Day{})
	for i := 1; i < len(cells); i++ {
		if got := cells[i-1].Day.Next(); !got.Equal(cells[i].Day.Time) {
			t.Fatalf("gap between %s and %s", cells[i-1].Day.Key(), cells[i].Day.Key())
		}
	}
}

func TestGridTodayMarker(t *testing.T) {
	m := core.Month{Year: 2024, Month: time.February}

	today := core.NewDay(2024, time.February, 14)
	marked := 0
	for _, c := range Grid(m, today) {
		if c.Today {
			marked++
			if c.Day.Key() != "2024-02-14" {
				t.Errorf("today marker on %s", c.Day.Key())
			}
		}
	}
	if marked != 1 {
		t.Errorf("today marked %d times, want 1", marked)
	}

	// Today outside the grid marks nothing; so does the zero Day.
	for _, today := range []core.Day{core.NewDay(2024, time.August, 1), {}} {
		for _, c := range Grid(m, today) {
			if c.Today {
				t.Errorf("unexpected today marker on %s", c.Day.Key())
			}
		}
	}
}

func TestWeeks(t *testing.T) {
	cells := Grid(core.Month{Year: 2024, Month: time.February}, core.Day{})
	weeks := Weeks(cells)
	if len(weeks) != 5 {
		t.Fatalf("weeks = %d, want 5", len(weeks))
	}
	for i, w := range weeks {
		if len(w) != 7 {
			t.Errorf("week %d has %d cells", i, len(w))
		}
	}
	if weeks[0][0].Day != cells[0].Day {
		t.Error("weeks lost ordering")
	}
}
