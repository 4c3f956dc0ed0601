// Package backend selects and wires a diary store implementation from
// configuration.
package backend

import (
	"sweetdiary/internal/store"
)

// Backend is the full store surface the application needs.
type Backend interface {
	store.EntryWriter
	store.EntryReader
	store.GoalReader
	store.GoalWriter
	store.IconCounter
}

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// Result bundles a ready backend with its optional cleanup.
type Result struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Type names a backend implementation.
type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
)

func (t Type) String() string {
	return string(t)
}

// IsValid reports whether the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
