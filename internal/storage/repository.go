// Package storage is the SQLite backend. It implements every store
// port plus the summary maintenance the history worker drives.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sweetdiary/internal/core"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// PutEntry implements store.EntryWriter with upsert semantics: saving a
// day again overwrites the previous record.
func (r *Repository) PutEntry(ctx context.Context, user core.UserID, e core.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (user_id, day, price, calories, icon, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, day) DO UPDATE SET
			price = excluded.price,
			calories = excluded.calories,
			icon = excluded.icon,
			updated_at = CURRENT_TIMESTAMP`,
		string(user), e.Day.Key(), int64(e.Price), e.Calories, string(e.Icon))
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}

	slog.DebugContext(ctx, "Entry saved",
		"user", user,
		"day", e.Day.Key(),
		"price", int64(e.Price),
		"calories", e.Calories,
		"icon", string(e.Icon))
	return nil
}

// GetEntry implements store.EntryReader.
func (r *Repository) GetEntry(ctx context.Context, user core.UserID, day core.Day) (core.Entry, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT day, price, calories, icon FROM entries
		WHERE user_id = ? AND day = ?`,
		string(user), day.Key())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, false, nil
	}
	if err != nil {
		return core.Entry{}, false, fmt.Errorf("get entry: %w", err)
	}
	return e, true, nil
}

// ListEntries returns entries with from <= day <= to. The day column is
// an ISO date string, so lexicographic BETWEEN is date order.
func (r *Repository) ListEntries(ctx context.Context, user core.UserID, from, to core.Day) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, price, calories, icon FROM entries
		WHERE user_id = ? AND day BETWEEN ? AND ?
		ORDER BY day`,
		string(user), from.Key(), to.Key())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

// GetGoal implements store.GoalReader. Absent is (zero, false, nil).
func (r *Repository) GetGoal(ctx context.Context, user core.UserID, m core.Month) (core.Goal, bool, error) {
	var (
		priceGoal   sql.NullInt64
		calorieGoal sql.NullInt64
		lastEdited  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT price_goal, calorie_goal, last_edited FROM goals
		WHERE user_id = ? AND month = ?`,
		string(user), m.Key()).Scan(&priceGoal, &calorieGoal, &lastEdited)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, false, nil
	}
	if err != nil {
		return core.Goal{}, false, fmt.Errorf("get goal: %w", err)
	}

	g := core.Goal{Month: m}
	if priceGoal.Valid {
		v := core.Yen(priceGoal.Int64)
		g.PriceGoal = &v
	}
	if calorieGoal.Valid {
		g.CalorieGoal = &calorieGoal.Int64
	}
	if lastEdited.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastEdited.String)
		if err != nil {
			return core.Goal{}, false, fmt.Errorf("parse last_edited: %w", err)
		}
		g.LastEdited = &t
	}
	return g, true, nil
}

// PutGoal upserts both target fields and the edit timestamp in a single
// statement, so a failed save changes nothing.
func (r *Repository) PutGoal(ctx context.Context, user core.UserID, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	var (
		priceGoal   sql.NullInt64
		calorieGoal sql.NullInt64
		lastEdited  sql.NullString
	)
	if g.PriceGoal != nil {
		priceGoal = sql.NullInt64{Int64: int64(*g.PriceGoal), Valid: true}
	}
	if g.CalorieGoal != nil {
		calorieGoal = sql.NullInt64{Int64: *g.CalorieGoal, Valid: true}
	}
	if g.LastEdited != nil {
		lastEdited = sql.NullString{String: g.LastEdited.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (user_id, month, price_goal, calorie_goal, last_edited)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, month) DO UPDATE SET
			price_goal = excluded.price_goal,
			calorie_goal = excluded.calorie_goal,
			last_edited = excluded.last_edited`,
		string(user), g.Month.Key(), priceGoal, calorieGoal, lastEdited)
	if err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved to SQLite", "user", user, "month", g.Month.Key())
	return nil
}

// IconCounts implements store.IconCounter. It prefers the summary table
// the worker maintains and falls back to a live recount when the
// summary has not been built yet.
func (r *Repository) IconCounts(ctx context.Context, user core.UserID) (core.IconCounts, error) {
	counts, err := r.readIconCounts(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(counts) > 0 {
		return counts, nil
	}
	return r.CountIcons(ctx, user)
}

func (r *Repository) readIconCounts(ctx context.Context, user core.UserID) (core.IconCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT icon, count FROM icon_counts WHERE user_id = ?`,
		string(user))
	if err != nil {
		return nil, fmt.Errorf("read icon counts: %w", err)
	}
	defer rows.Close()

	counts := make(core.IconCounts)
	for rows.Next() {
		var icon string
		var count int64
		if err := rows.Scan(&icon, &count); err != nil {
			return nil, fmt.Errorf("scan icon count: %w", err)
		}
		counts[core.Icon(icon)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read icon counts: %w", err)
	}
	return counts, nil
}

// CountIcons recounts icons straight from the entries table.
func (r *Repository) CountIcons(ctx context.Context, user core.UserID) (core.IconCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT icon, COUNT(*) FROM entries
		WHERE user_id = ? AND icon != ''
		GROUP BY icon`,
		string(user))
	if err != nil {
		return nil, fmt.Errorf("count icons: %w", err)
	}
	defer rows.Close()

	counts := make(core.IconCounts)
	for rows.Next() {
		var icon string
		var count int64
		if err := rows.Scan(&icon, &count); err != nil {
			return nil, fmt.Errorf("scan icon count: %w", err)
		}
		counts[core.Icon(icon)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count icons: %w", err)
	}
	return counts, nil
}

// RebuildIconCounts recomputes one user's summary from the entries
// table inside a transaction. The worker calls this for every
// entry-saved event and during periodic reconciliation.
func (r *Repository) RebuildIconCounts(ctx context.Context, user core.UserID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM icon_counts WHERE user_id = ?`, string(user)); err != nil {
		return fmt.Errorf("clear icon counts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO icon_counts (user_id, icon, count)
		SELECT user_id, icon, COUNT(*) FROM entries
		WHERE user_id = ? AND icon != ''
		GROUP BY icon`,
		string(user)); err != nil {
		return fmt.Errorf("rebuild icon counts: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}

	slog.DebugContext(ctx, "Icon counts rebuilt", "user", user)
	return nil
}

// ListUsers returns every user with at least one entry, for the
// worker's startup reconciliation.
func (r *Repository) ListUsers(ctx context.Context) ([]core.UserID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM entries ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.UserID
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, core.UserID(u))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var (
		day      string
		price    int64
		calories int64
		icon     string
	)
	if err := row.Scan(&day, &price, &calories, &icon); err != nil {
		return core.Entry{}, err
	}
	d, err := core.ParseDay(day)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse day %q: %w", day, err)
	}
	return core.Entry{
		Day:      d,
		Price:    core.Yen(price),
		Calories: calories,
		Icon:     core.Icon(icon),
	}, nil
}
