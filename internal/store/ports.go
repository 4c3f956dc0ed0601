// Package store defines the outbound ports the diary core needs from a
// document store. Backends (memory, sqlite) implement these; callers
// depend only on the slice of behaviour they use.
package store

import (
	"context"

	"sweetdiary/internal/core"
)

type (
	EntryWriter interface {
		// PutEntry creates or overwrites the entry for (user, entry.Day).
		PutEntry(ctx context.Context, user core.UserID, e core.Entry) error
	}

	EntryReader interface {
		// GetEntry returns the entry for the exact day. ok is false when
		// none exists; that is not an error.
		GetEntry(ctx context.Context, user core.UserID, day core.Day) (e core.Entry, ok bool, err error)

		// ListEntries returns all entries with from <= day <= to,
		// mirroring the range query over day-keyed documents.
		ListEntries(ctx context.Context, user core.UserID, from, to core.Day) ([]core.Entry, error)
	}

	GoalReader interface {
		// GetGoal fetches the goal document for the exact month key.
		// Absent is a valid "no goal set yet" state, not an error.
		GetGoal(ctx context.Context, user core.UserID, m core.Month) (g core.Goal, ok bool, err error)
	}

	GoalWriter interface {
		// PutGoal upserts the goal document. Both target fields and the
		// LastEdited timestamp land atomically or not at all.
		PutGoal(ctx context.Context, user core.UserID, g core.Goal) error
	}

	// IconCounter provides the all-time icon distribution for the
	// history radar chart.
	IconCounter interface {
		IconCounts(ctx context.Context, user core.UserID) (core.IconCounts, error)
	}
)
