package core

import (
	"errors"
	"fmt"
	"time"
)

// Month is the calendar view's cursor: the (year, month) whose data is
// currently displayed. It only ever changes through Next and Prev.
type Month struct {
	Year  int
	Month time.Month
}

var ErrInvalidMonth = errors.New("invalid month")

// MonthOf returns the month containing the given instant. Used for the
// initial cursor ("today's month") and for the edit-lock comparison.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" document key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// Key returns the document key for the month, "YYYY-MM".
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) String() string {
	return m.Key()
}

func (m Month) Validate() error {
	if m.Year < 1 || m.Month < time.January || m.Month > time.December {
		return ErrInvalidMonth
	}
	return nil
}

// Next returns the following month, rolling the year over after December.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Prev returns the preceding month, rolling the year back before January.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// First returns the first day of the month.
func (m Month) First() Day {
	return NewDay(m.Year, m.Month, 1)
}

// Last returns the last day of the month. Day zero of the next month is
// the standard time-package trick for month length.
func (m Month) Last() Day {
	return Day{Time: time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC)}
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.Last().Day()
}

// Contains reports whether the day falls inside the month.
func (m Month) Contains(d Day) bool {
	return d.Year() == m.Year && d.Month() == m.Month
}
