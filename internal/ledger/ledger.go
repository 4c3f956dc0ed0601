// Package ledger is the monthly aggregation core: it loads a month's
// entries and goal, computes totals and the goal-edit lock, and writes
// entries and goals back through the store ports.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"sweetdiary/internal/core"
	"sweetdiary/internal/store"
)

var (
	// ErrEditLocked means the goal was already edited within the current
	// real-world month and stays read-only until the month rolls over.
	ErrEditLocked = errors.New("goal already edited this month")
)

// EventPublisher receives a notification after an entry save so the
// history summary can be rebuilt asynchronously. Publishing is
// best-effort; a failure never fails the save.
type EventPublisher interface {
	PublishEntrySaved(ctx context.Context, user core.UserID, day core.Day) error
}

// Store is the full set of ports the ledger needs from a backend.
type Store interface {
	store.EntryWriter
	store.EntryReader
	store.GoalReader
	store.GoalWriter
	store.IconCounter
}

// MonthView is everything the calendar and its side panel show for one
// month: the raw entries for the grid cells plus the derived summary.
type MonthView struct {
	Month        core.Month
	Entries      []core.Entry
	Summary      core.MonthSummary
	Goal         core.Goal
	HasGoal      bool
	CanEdit      bool
	OverPrice    bool
	OverCalories bool
}

// Entry returns the view's entry for a day, if the day has one.
func (v MonthView) Entry(d core.Day) (core.Entry, bool) {
	for _, e := range v.Entries {
		if e.Day.Equal(d.Time) {
			return e, true
		}
	}
	return core.Entry{}, false
}

// Ledger coordinates month loads and goal edits for one backend. The
// clock is injectable so tests can pin "now"; everything else is a pure
// function of the fetched records.
type Ledger struct {
	store  Store
	events EventPublisher
	now    func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the wall clock. Tests use this to fix the current
// date; the edit-lock policy and the grid's today marker depend on it.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithEvents attaches an entry-saved publisher.
func WithEvents(p EventPublisher) Option {
	return func(l *Ledger) { l.events = p }
}

func New(s Store, opts ...Option) *Ledger {
	l := &Ledger{store: s, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger's current instant.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// Today returns the current calendar date for the grid's today marker.
func (l *Ledger) Today() core.Day {
	return core.DayOf(l.now())
}

// CurrentMonth returns the real-world month, the edit-lock reference.
func (l *Ledger) CurrentMonth() core.Month {
	return core.MonthOf(l.now())
}

// LoadMonth fetches the month's entries and goal concurrently and
// derives the view. The entry query and the goal fetch have no ordering
// dependency, so they run in parallel. On any fetch failure the caller
// keeps its previous view; nothing here mutates shared state.
func (l *Ledger) LoadMonth(ctx context.Context, user core.UserID, m core.Month) (MonthView, error) {
	if err := user.Validate(); err != nil {
		return MonthView{}, err
	}
	if err := m.Validate(); err != nil {
		return MonthView{}, err
	}

	var (
		entries []core.Entry
		goal    core.Goal
		hasGoal bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = l.store.ListEntries(gctx, user, m.First(), m.Last())
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		goal, hasGoal, err = l.store.GetGoal(gctx, user, m)
		if err != nil {
			return fmt.Errorf("get goal: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return MonthView{}, fmt.Errorf("load month %s: %w", m.Key(), err)
	}

	summary := core.Summarize(m, entries)
	view := MonthView{
		Month:        m,
		Entries:      entries,
		Summary:      summary,
		Goal:         goal,
		HasGoal:      hasGoal,
		CanEdit:      l.canEdit(goal),
		OverPrice:    summary.ExceedsPrice(goal),
		OverCalories: summary.ExceedsCalories(goal),
	}
	slog.DebugContext(ctx, "Month loaded",
		"user", user,
		"month", m.Key(),
		"entries", summary.EntryCount,
		"total_price", int64(summary.TotalPrice),
		"total_calories", summary.TotalCalories,
		"can_edit", view.CanEdit)
	return view, nil
}

// canEdit applies the once-per-month policy. The comparison is against
// the real current month, not the cursor's displayed month: browsing
// February does not unlock a goal that was edited this month.
func (l *Ledger) canEdit(g core.Goal) bool {
	return !g.EditedIn(l.CurrentMonth())
}

// SaveEntry upserts the day's entry and notifies the history pipeline.
func (l *Ledger) SaveEntry(ctx context.Context, user core.UserID, e core.Entry) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := l.store.PutEntry(ctx, user, e); err != nil {
		return fmt.Errorf("save entry %s: %w", e.Day.Key(), err)
	}
	if l.events != nil {
		if err := l.events.PublishEntrySaved(ctx, user, e.Day); err != nil {
			slog.WarnContext(ctx, "Entry saved but event publish failed",
				"user", user, "day", e.Day.Key(), "error", err)
		}
	}
	return nil
}

// SaveGoal upserts both goal fields plus the edit timestamp, or nothing.
// The edit lock is re-validated against fresh store state here, not a
// cached view, to close the race left open by a second tab that loaded
// before the first tab saved.
func (l *Ledger) SaveGoal(ctx context.Context, user core.UserID, m core.Month, priceGoal *core.Yen, calorieGoal *int64) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}

	current, _, err := l.store.GetGoal(ctx, user, m)
	if err != nil {
		return fmt.Errorf("check goal %s: %w", m.Key(), err)
	}
	if !l.canEdit(current) {
		return ErrEditLocked
	}

	now := l.now()
	goal := core.Goal{
		Month:       m,
		PriceGoal:   priceGoal,
		CalorieGoal: calorieGoal,
		LastEdited:  &now,
	}
	if err := goal.Validate(); err != nil {
		return err
	}
	if err := l.store.PutGoal(ctx, user, goal); err != nil {
		return fmt.Errorf("save goal %s: %w", m.Key(), err)
	}
	slog.InfoContext(ctx, "Goal saved",
		"user", user,
		"month", m.Key(),
		"has_price_goal", priceGoal != nil,
		"has_calorie_goal", calorieGoal != nil)
	return nil
}

// History returns the all-time icon distribution for the radar chart.
func (l *Ledger) History(ctx context.Context, user core.UserID) (core.IconCounts, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	counts, err := l.store.IconCounts(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("icon counts: %w", err)
	}
	return counts, nil
}
