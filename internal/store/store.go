package store

import (
	"context"
	"fmt"

	"FundingSentinel/internal/model"
)

// Store persists the last observed snapshot. Save replaces the stored snapshot
// wholesale; no history is kept.
type Store interface {
	// Load returns the stored snapshot, or an empty one on first run.
	Load(ctx context.Context) (model.Snapshot, error)
	Save(ctx context.Context, snapshot model.Snapshot) error
	Close() error
}

// Open returns the Store for the configured driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "file":
		return NewFileStore(path), nil
	case "sqlite":
		return NewSQLiteStore(path)
	case "buntdb":
		return NewBuntStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
