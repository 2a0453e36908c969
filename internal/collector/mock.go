package collector

import (
	"context"
	"fmt"
	"sync/atomic"

	"FundingSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Balances model.WalletBalances
	Offers   model.OffersByCurrency
	Loans    model.OffersByCurrency
	Tickers  map[model.CurrencyCode]model.Ticker
	Err      error

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls reports how many fetch methods have been invoked.
func (m *MockFetcher) Calls() int64 { return m.calls.Load() }

func (m *MockFetcher) FetchWalletBalances(_ context.Context) (model.WalletBalances, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return model.WalletBalances{}, m.Err
	}
	return m.Balances, nil
}

func (m *MockFetcher) FetchOpenOffers(_ context.Context) (model.OffersByCurrency, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return model.OffersByCurrency{}, m.Err
	}
	return m.Offers, nil
}

func (m *MockFetcher) FetchOpenLoans(_ context.Context) (model.OffersByCurrency, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return model.OffersByCurrency{}, m.Err
	}
	return m.Loans, nil
}

func (m *MockFetcher) FetchTicker(_ context.Context, currency model.CurrencyCode) (model.Ticker, error) {
	m.calls.Add(1)
	t, ok := m.Tickers[currency]
	if !ok {
		return model.Ticker{}, fmt.Errorf("no ticker for %s", currency)
	}
	return t, nil
}
