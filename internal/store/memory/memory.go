// Package memory holds diary data in process memory. It is the default
// backend for local development and the fake of choice in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"sweetdiary/internal/core"
)

type Store struct {
	mu      sync.Mutex
	entries map[core.UserID]map[string]core.Entry // keyed by Day.Key()
	goals   map[core.UserID]map[string]core.Goal  // keyed by Month.Key()
}

func New() *Store {
	return &Store{
		entries: make(map[core.UserID]map[string]core.Entry),
		goals:   make(map[core.UserID]map[string]core.Goal),
	}
}

// PutEntry creates or overwrites the entry for the entry's day.
func (s *Store) PutEntry(_ context.Context, user core.UserID, e core.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[user] == nil {
		s.entries[user] = make(map[string]core.Entry)
	}
	s.entries[user][e.Day.Key()] = e
	return nil
}

func (s *Store) GetEntry(_ context.Context, user core.UserID, day core.Day) (core.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[user][day.Key()]
	return e, ok, nil
}

// ListEntries returns entries with from <= day <= to, ordered by day.
func (s *Store) ListEntries(_ context.Context, user core.UserID, from, to core.Day) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Entry
	for _, e := range s.entries[user] {
		if e.Day.Before(from) || e.Day.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (s *Store) GetGoal(_ context.Context, user core.UserID, m core.Month) (core.Goal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[user][m.Key()]
	return g, ok, nil
}

func (s *Store) PutGoal(_ context.Context, user core.UserID, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.goals[user] == nil {
		s.goals[user] = make(map[string]core.Goal)
	}
	s.goals[user][g.Month.Key()] = g
	return nil
}

// IconCounts recounts on every call; the in-memory dataset is small
// enough not to need the summary table the sqlite backend keeps.
func (s *Store) IconCounts(_ context.Context, user core.UserID) (core.IconCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]core.Entry, 0, len(s.entries[user]))
	for _, e := range s.entries[user] {
		all = append(all, e)
	}
	return core.CountIcons(all), nil
}
