package backend

import (
	"fmt"
	"log/slog"

	"sweetdiary/internal/config"
	"sweetdiary/internal/storage"
	"sweetdiary/internal/store/memory"
)

// Create builds the backend named by the config.
func Create(cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	t := Type(cfg.DataBackend)
	switch t {
	case SQLiteBackend:
		repo, err := storage.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite repository: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Backend: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		logger.Info("Initialized memory backend")
		return &Result{Backend: memory.New()}, nil

	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}
}
