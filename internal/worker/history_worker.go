// Package worker maintains the per-user icon-count summary that backs
// the history radar chart. It reacts to entry-saved events and also
// reconciles periodically in case events were lost.
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"sweetdiary/internal/amqp"
	applog "sweetdiary/internal/log"
	"sweetdiary/internal/storage"
)

// HistoryWorker rebuilds icon counts in SQLite.
type HistoryWorker struct {
	storage *storage.Repository
	log     *applog.Logger
}

func NewHistoryWorker(repo *storage.Repository) *HistoryWorker {
	return &HistoryWorker{
		storage: repo,
		log:     applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker),
	}
}

// HandleEntrySaved processes one event by rebuilding that user's
// summary. Rebuilding the whole user is cheap (one grouped scan) and
// makes the handler idempotent, so redelivered messages are harmless.
func (w *HistoryWorker) HandleEntrySaved(ctx context.Context, msg *amqp.EntrySavedMessage) error {
	user := msg.UserID()
	if err := user.Validate(); err != nil {
		return fmt.Errorf("event user: %w", err)
	}

	if err := w.storage.RebuildIconCounts(ctx, user); err != nil {
		return fmt.Errorf("rebuild icon counts: %w", err)
	}

	w.log.InfoContext(ctx, "History summary rebuilt",
		applog.FieldUser, msg.User,
		applog.FieldDay, msg.Day)
	return nil
}

// ReconcileAll rebuilds every known user's summary. Run at startup and
// on a timer as a backup for missed events.
func (w *HistoryWorker) ReconcileAll(ctx context.Context) error {
	users, err := w.storage.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if len(users) == 0 {
		w.log.InfoContext(ctx, "No users to reconcile")
		return nil
	}

	rebuilt := 0
	for _, user := range users {
		if err := w.storage.RebuildIconCounts(ctx, user); err != nil {
			w.log.ErrorContext(ctx, "Failed to rebuild icon counts",
				applog.FieldUser, user, applog.FieldError, err)
			continue
		}
		rebuilt++
	}

	w.log.InfoContext(ctx, "History reconciliation completed",
		"users", len(users),
		"rebuilt", rebuilt)
	return nil
}

// Run supervises the event consumer and the reconciliation ticker until
// the context ends.
func (w *HistoryWorker) Run(ctx context.Context, client *amqp.Client, interval time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeEntrySaved(gctx, w.HandleEntrySaved)
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := w.ReconcileAll(gctx); err != nil {
					w.log.ErrorContext(gctx, "Periodic reconciliation failed", applog.FieldError, err)
				}
			}
		}
	})

	return g.Wait()
}
