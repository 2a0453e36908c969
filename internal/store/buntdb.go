package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"FundingSentinel/internal/model"

	"github.com/tidwall/buntdb"
)

const buntKeyPrefix = "status:"

// BuntStore keeps each currency's status under "status:<CUR>" in a BuntDB file.
type BuntStore struct {
	db *buntdb.DB
}

// NewBuntStore opens path; ":memory:" gives a non-persistent database.
func NewBuntStore(path string) (*BuntStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}
	if err := db.SetConfig(buntdb.Config{
		SyncPolicy:           buntdb.Always,
		AutoShrinkPercentage: 100,
		AutoShrinkMinSize:    1 << 20,
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure buntdb: %w", err)
	}
	if err := db.CreateIndex("lending_status", buntKeyPrefix+"*", buntdb.IndexJSON("lending_status")); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &BuntStore{db: db}, nil
}

func (b *BuntStore) Load(_ context.Context) (model.Snapshot, error) {
	snap := model.Snapshot{}
	var decodeErr error
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(buntKeyPrefix+"*", func(key, value string) bool {
			var st model.FundingStatus
			if err := json.Unmarshal([]byte(value), &st); err != nil {
				decodeErr = fmt.Errorf("decode %s: %w", key, err)
				return false
			}
			snap[strings.TrimPrefix(key, buntKeyPrefix)] = st
			return true
		})
	})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// Save replaces all stored statuses in one transaction.
func (b *BuntStore) Save(_ context.Context, snapshot model.Snapshot) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		var stale []string
		if err := tx.AscendKeys(buntKeyPrefix+"*", func(key, _ string) bool {
			stale = append(stale, key)
			return true
		}); err != nil {
			return err
		}
		for _, key := range stale {
			if _, err := tx.Delete(key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		for currency, st := range snapshot {
			content, err := json.Marshal(st)
			if err != nil {
				return fmt.Errorf("failed to marshal %s: %w", currency, err)
			}
			if _, _, err := tx.Set(buntKeyPrefix+currency, string(content), nil); err != nil {
				return fmt.Errorf("failed to store %s: %w", currency, err)
			}
		}
		return nil
	})
}

func (b *BuntStore) Close() error { return b.db.Close() }
