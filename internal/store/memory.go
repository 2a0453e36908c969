package store

import (
	"context"
	"encoding/json"
	"sync"

	"FundingSentinel/internal/model"
)

// MemoryStore keeps the snapshot in process memory only. Used when persistence
// is not wanted and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(_ context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return model.Snapshot{}, nil
	}
	return decodeSnapshot(m.data)
}

func (m *MemoryStore) Save(_ context.Context, snapshot model.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Close() error { return nil }

func decodeSnapshot(data []byte) (model.Snapshot, error) {
	snap := model.Snapshot{}
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}
