package core

import (
	"errors"
	"strings"
	"time"
)

const (
	IconSweet Icon = "Sweet"
	IconHot   Icon = "Hot"
	IconSour  Icon = "Sour"
	IconSalty Icon = "Salty"
	IconCat   Icon = "Cat"
)

type (
	// Icon is the snack category recorded for a day. An empty Icon means
	// the user did not pick one.
	Icon string

	// UserID identifies a signed-in user. Values come from the auth
	// provider and are opaque to the rest of the application.
	UserID string

	// Yen is an amount of money in whole yen.
	Yen int64

	// Day is a single calendar date. The time-of-day portion is always
	// midnight UTC.
	Day struct {
		time.Time
	}

	// Entry is one day's logged snack: what it cost, how many calories,
	// and which category icon the user picked. At most one Entry exists
	// per (user, day); saving again overwrites.
	Entry struct {
		Day      Day
		Price    Yen
		Calories int64
		Icon     Icon
	}

	// Goal holds a user's self-set targets for one calendar month.
	// Either target may be absent. LastEdited is set on every successful
	// save and drives the once-per-month edit policy.
	Goal struct {
		Month       Month
		PriceGoal   *Yen
		CalorieGoal *int64
		LastEdited  *time.Time
	}
)

var (
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidIcon   = errors.New("invalid icon")
	ErrNegativePrice = errors.New("price cannot be negative")
	ErrNegativeCal   = errors.New("calories cannot be negative")
	ErrNegativeGoal  = errors.New("goal cannot be negative")
	ErrEmptyUser     = errors.New("empty user id")
)

// Icons lists the valid icons in display order. The order matters: the
// history radar chart labels its axes in this sequence.
func Icons() []Icon {
	return []Icon{IconSweet, IconHot, IconSour, IconSalty, IconCat}
}

func (ic Icon) Valid() bool {
	switch ic {
	case IconSweet, IconHot, IconSour, IconSalty, IconCat:
		return true
	default:
		return false
	}
}

func (u UserID) Validate() error {
	if strings.TrimSpace(string(u)) == "" {
		return ErrEmptyUser
	}
	return nil
}

// NewDay creates a Day from year, month, day.
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates an instant to its calendar date.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses a "YYYY-MM-DD" document key.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, ErrInvalidDay
	}
	return Day{Time: t}, nil
}

// Key returns the document key for the day, "YYYY-MM-DD".
func (d Day) Key() string {
	return d.Format("2006-01-02")
}

func (d Day) Validate() error {
	if d.IsZero() {
		return ErrInvalidDay
	}
	return nil
}

// Next returns the following calendar date.
func (d Day) Next() Day {
	return Day{Time: d.AddDate(0, 0, 1)}
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other.
func (d Day) After(other Day) bool {
	return d.Time.After(other.Time)
}

func (e Entry) Validate() error {
	if err := e.Day.Validate(); err != nil {
		return err
	}
	if e.Price < 0 {
		return ErrNegativePrice
	}
	if e.Calories < 0 {
		return ErrNegativeCal
	}
	if e.Icon != "" && !e.Icon.Valid() {
		return ErrInvalidIcon
	}
	return nil
}

func (g Goal) Validate() error {
	if g.PriceGoal != nil && *g.PriceGoal < 0 {
		return ErrNegativeGoal
	}
	if g.CalorieGoal != nil && *g.CalorieGoal < 0 {
		return ErrNegativeGoal
	}
	return nil
}

// EditedIn reports whether the goal's last edit happened inside the
// given month. A goal that has never been edited reports false.
func (g Goal) EditedIn(m Month) bool {
	if g.LastEdited == nil {
		return false
	}
	return g.LastEdited.Year() == m.Year && g.LastEdited.Month() == m.Month
}
