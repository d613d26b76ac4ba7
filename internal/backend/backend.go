// Package backend selects and builds the storage backend named in the
// configuration.
package backend

import (
	"fmt"

	"cantina/internal/config"
	"cantina/internal/storage"
	"cantina/internal/storage/memory"
)

// Type identifies a storage backend.
type Type string

const (
	// SQLite is the production backend: a single database file, created
	// and migrated on first open.
	SQLite Type = "sqlite"
	// Memory keeps everything in process memory. Useful for demos and
	// tests; all data is lost on restart.
	Memory Type = "memory"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	default:
		return false
	}
}

// Open builds the store selected by cfg.DataBackend.
func Open(cfg *config.Config) (storage.Store, error) {
	backendType := Type(cfg.DataBackend)
	switch backendType {
	case SQLite:
		store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return store, nil
	case Memory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}
}
