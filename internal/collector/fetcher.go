package collector

import (
	"context"

	"FundingSentinel/internal/model"
)

// Fetcher defines the interface for reading funding data from the exchange.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	FetchWalletBalances(ctx context.Context) (model.WalletBalances, error)
	FetchOpenOffers(ctx context.Context) (model.OffersByCurrency, error)
	FetchOpenLoans(ctx context.Context) (model.OffersByCurrency, error)
	FetchTicker(ctx context.Context, currency model.CurrencyCode) (model.Ticker, error)
	Name() string
}
