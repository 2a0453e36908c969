package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"FundingSentinel/internal/model"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one row per currency in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("sqlite snapshot store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS funding_status (
			currency       TEXT PRIMARY KEY,
			lending_status TEXT NOT NULL,
			loaned_amount  REAL,
			offered_amount REAL,
			avg_loan_rate  REAL,
			payload        TEXT NOT NULL,
			updated_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_funding_status_status ON funding_status(lending_status)`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT currency, payload FROM funding_status`)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	snap := model.Snapshot{}
	for rows.Next() {
		var (
			currency string
			payload  string
		)
		if err := rows.Scan(&currency, &payload); err != nil {
			return model.Snapshot{}, fmt.Errorf("scan snapshot row: %w", err)
		}
		var st model.FundingStatus
		if err := json.Unmarshal([]byte(payload), &st); err != nil {
			return model.Snapshot{}, fmt.Errorf("decode %s: %w", currency, err)
		}
		snap[currency] = st
	}
	if err := rows.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return snap, nil
}

// Save replaces every row inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snapshot model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM funding_status`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	now := time.Now().Unix()
	for currency, st := range snapshot {
		payload, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode %s: %w", currency, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO funding_status
			(currency, lending_status, loaned_amount, offered_amount, avg_loan_rate, payload, updated_at)
			VALUES (?,?,?,?,?,?,?)`,
			currency, string(st.LendingStatus), st.LoanedAmount, st.OfferedAmount,
			st.AvgLoanRatePercent, string(payload), now,
		); err != nil {
			return fmt.Errorf("insert %s: %w", currency, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	log.Info("closing sqlite snapshot store")
	return s.db.Close()
}
