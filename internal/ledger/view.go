package ledger

import (
	"context"
	"sync"

	"sweetdiary/internal/core"
)

// View tracks one user's month navigation. It remembers the last view
// that loaded successfully, so a fetch failure leaves the display on
// stale-but-consistent data, and it discards responses that resolve
// after the cursor has already moved on.
type View struct {
	ledger *Ledger
	user   core.UserID

	mu      sync.Mutex
	cursor  core.Month
	gen     uint64 // bumped on every navigation; loads tagged older are stale
	current MonthView
	loaded  bool
}

// NewView starts a view at the given cursor, typically the real current
// month.
func NewView(l *Ledger, user core.UserID, start core.Month) *View {
	return &View{ledger: l, user: user, cursor: start}
}

// Cursor returns the month the view is currently pointed at.
func (v *View) Cursor() core.Month {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

// Current returns the last successfully loaded view, if any.
func (v *View) Current() (MonthView, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.loaded
}

// Next advances the cursor one month and loads it.
func (v *View) Next(ctx context.Context) (MonthView, error) {
	return v.navigate(ctx, func(m core.Month) core.Month { return m.Next() })
}

// Prev moves the cursor back one month and loads it.
func (v *View) Prev(ctx context.Context) (MonthView, error) {
	return v.navigate(ctx, func(m core.Month) core.Month { return m.Prev() })
}

// Goto jumps the cursor to an arbitrary month and loads it.
func (v *View) Goto(ctx context.Context, m core.Month) (MonthView, error) {
	return v.navigate(ctx, func(core.Month) core.Month { return m })
}

// Reload fetches the cursor month again without moving it.
func (v *View) Reload(ctx context.Context) (MonthView, error) {
	v.mu.Lock()
	m, gen := v.cursor, v.gen
	v.mu.Unlock()
	return v.load(ctx, m, gen)
}

func (v *View) navigate(ctx context.Context, step func(core.Month) core.Month) (MonthView, error) {
	v.mu.Lock()
	v.cursor = step(v.cursor)
	v.gen++
	m, gen := v.cursor, v.gen
	v.mu.Unlock()
	return v.load(ctx, m, gen)
}

// load runs the fetch outside the lock, then applies the result only if
// no navigation happened in the meantime. A stale result is dropped and
// the caller gets whatever the display already shows.
func (v *View) load(ctx context.Context, m core.Month, gen uint64) (MonthView, error) {
	mv, err := v.ledger.LoadMonth(ctx, v.user, m)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		// A later navigation superseded this load; its outcome, success
		// or failure, belongs to a month no longer displayed.
		return v.current, nil
	}
	if err != nil {
		// Last-good state stays on screen.
		return v.current, err
	}
	v.current = mv
	v.loaded = true
	return mv, nil
}
