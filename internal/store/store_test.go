package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"FundingSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() model.Snapshot {
	return model.Snapshot{
		"USD": {
			WalletBalance:      250.5,
			TotalBalance:       1250.5,
			LoanedAmount:       1000,
			NumLoans:           1,
			AvgLoanRatePercent: 12.345678,
			LendingStatus:      model.StatusActive,
			Offers:             []model.FundingOffer{},
			Loans: []model.FundingLoan{{
				ID: "7", Currency: "USD", Amount: 1000, OriginalAmount: 1000,
				RatePercent: 12.345678, PeriodDays: 2, CreatedAtMillis: 1700000000000,
			}},
		},
		"BTC": {
			WalletBalance: 0.5,
			TotalBalance:  0.5,
			LendingStatus: model.StatusInactive,
			Offers:        []model.FundingOffer{},
			Loans:         []model.FundingLoan{},
		},
	}
}

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := NewSQLiteStore(filepath.Join(dir, "snap.db"))
	require.NoError(t, err)
	bunt, err := NewBuntStore(filepath.Join(dir, "snap.bunt"))
	require.NoError(t, err)

	stores := map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "nested", "funding_history.json")),
		"sqlite": sqlite,
		"buntdb": bunt,
		"memory": NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)
			assert.NotNil(t, empty)

			require.NoError(t, s.Save(ctx, fixture()))
			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, fixture(), got)

			// Save replaces wholesale: a vanished currency is gone.
			next := fixture()
			delete(next, "BTC")
			require.NoError(t, s.Save(ctx, next))
			got, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, next, got)
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range []string{"", "file", "sqlite", "buntdb", "memory"} {
		s, err := Open(driver, filepath.Join(dir, "snap-"+driver))
		require.NoError(t, err, driver)
		require.NoError(t, s.Close())
	}
	_, err := Open("redis", "x")
	assert.Error(t, err)
}

func TestFileStore_PrettyAndNoLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "funding_history.json")
	s := NewFileStore(path)

	require.NoError(t, s.Save(context.Background(), fixture()))
	require.NoError(t, s.Save(context.Background(), fixture()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"BTC\": {\n")

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "active", raw["USD"]["lending_status"])
	assert.Contains(t, raw["USD"], "avg_loan_rate")
}

func TestFileStore_SyncsDirectoryAfterRename(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path := filepath.Join(dir, "funding_history.json")

	orig := syncDir
	defer func() { syncDir = orig }()

	var synced []string
	syncDir = func(d string) error {
		_, err := os.Stat(path)
		require.NoError(t, err, "directory synced before the rename")
		synced = append(synced, d)
		return orig(d)
	}

	s := NewFileStore(path)
	require.NoError(t, s.Save(context.Background(), fixture()))
	assert.Equal(t, []string{dir}, synced)

	syncDir = func(string) error { return errors.New("input/output error") }
	assert.ErrorContains(t, s.Save(context.Background(), fixture()), "sync data directory")
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funding_history.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"USD": {"lending_status": `), 0o600))

	snap, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.Empty(t, snap)
}

func TestFileStore_ReadsLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funding_history.json")
	doc := `{
  "USD": {
    "wallet_balance": 100.0,
    "total_balance": 150.0,
    "offered_amount": 0,
    "loaned_amount": 50.0,
    "num_offers": 0,
    "num_loans": 1,
    "avg_offer_rate": 0,
    "avg_loan_rate": 10.95,
    "lending_status": "active",
    "offers": [],
    "loans": [{"id": "1", "currency": "USD", "amount": 50.0, "original_amount": 50.0,
               "rate": 10.95, "period": 2, "created_at": 1, "updated_at": 2}]
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	snap, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, snap, "USD")
	assert.Equal(t, model.StatusActive, snap["USD"].LendingStatus)
	assert.Equal(t, 2, snap["USD"].Loans[0].PeriodDays)
}

func TestMemoryStore_Saves(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Save(context.Background(), fixture()))
	assert.Equal(t, 1, m.Saves())
}
