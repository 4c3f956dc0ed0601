package ledger

import (
	"context"
	"errors"
	"sync"

	"sweetdiary/internal/core"
)

// EditState is the goal editor's lifecycle state.
type EditState int

const (
	// StateLocked: the goal was edited this real-world month. The only
	// way out is month rollover; there is no manual unlock.
	StateLocked EditState = iota
	// StateEditable: no edit recorded for the current real-world month.
	StateEditable
	// StateSaving: a save is in flight.
	StateSaving
)

func (s EditState) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateEditable:
		return "editable"
	case StateSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// GoalEditor drives the edit form for one (user, month) goal. On a
// failed save it returns to editable with the attempted values kept in
// the draft, so the user can retry without retyping.
type GoalEditor struct {
	ledger *Ledger
	user   core.UserID
	month  core.Month

	mu           sync.Mutex
	state        EditState
	draftPrice   *core.Yen
	draftCalorie *int64
}

func NewGoalEditor(l *Ledger, user core.UserID, m core.Month) *GoalEditor {
	return &GoalEditor{ledger: l, user: user, month: m, state: StateLocked}
}

// State returns the editor's current state.
func (e *GoalEditor) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Draft returns the pending values, set either by SetDraft or preserved
// from a failed save.
func (e *GoalEditor) Draft() (*core.Yen, *int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draftPrice, e.draftCalorie
}

// Refresh re-derives locked/editable from fresh store state. A saving
// editor is left alone.
func (e *GoalEditor) Refresh(ctx context.Context) error {
	goal, _, err := e.ledger.store.GetGoal(ctx, e.user, e.month)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateSaving {
		return nil
	}
	if e.ledger.canEdit(goal) {
		e.state = StateEditable
	} else {
		e.state = StateLocked
	}
	return nil
}

// SetDraft records the values the user typed. Ignored while locked.
func (e *GoalEditor) SetDraft(price *core.Yen, calories *int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEditable {
		return
	}
	e.draftPrice = price
	e.draftCalorie = calories
}

// Save submits the draft. Editable moves to saving for the duration of
// the write; success locks the editor immediately, failure returns it
// to editable with the draft intact.
func (e *GoalEditor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateEditable {
		e.mu.Unlock()
		return ErrEditLocked
	}
	e.state = StateSaving
	price, calories := e.draftPrice, e.draftCalorie
	e.mu.Unlock()

	err := e.ledger.SaveGoal(ctx, e.user, e.month, price, calories)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		if errors.Is(err, ErrEditLocked) {
			// A concurrent session won the race; the lock is real.
			e.state = StateLocked
		} else {
			e.state = StateEditable
		}
		return err
	}
	e.state = StateLocked
	e.draftPrice = nil
	e.draftCalorie = nil
	return nil
}
