package collector

import (
	"context"
	"errors"
	"sync"

	"FundingSentinel/internal/calculator"
	"FundingSentinel/internal/model"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const maxParallelTickers = 4

// Collector fetches the raw funding records and aggregates them into a snapshot.
type Collector struct {
	Fetcher    Fetcher
	Currencies []model.CurrencyCode // empty means every currency
}

// NewCollector creates a new Collector. currencies restricts the snapshot to the
// given codes; pass nil to keep everything.
func NewCollector(fetcher Fetcher, currencies []model.CurrencyCode) *Collector {
	return &Collector{Fetcher: fetcher, Currencies: currencies}
}

// Collect reads wallets, offers and loans and computes the funding status.
// A failing call degrades to an empty input; an error is returned only when every
// call failed, in which case the snapshot carries no information.
func (c *Collector) Collect(ctx context.Context) (model.Snapshot, error) {
	balances, errWallets := c.Fetcher.FetchWalletBalances(ctx)
	if errWallets != nil {
		log.WithError(errWallets).Error("fetch funding wallet balances")
		balances = model.WalletBalances{}
	}
	offers, errOffers := c.Fetcher.FetchOpenOffers(ctx)
	if errOffers != nil {
		log.WithError(errOffers).Error("fetch funding offers")
		offers = model.OffersByCurrency{}
	}
	loans, errLoans := c.Fetcher.FetchOpenLoans(ctx)
	if errLoans != nil {
		log.WithError(errLoans).Error("fetch funding loans")
		loans = model.OffersByCurrency{}
	}

	snapshot := c.filter(calculator.ComputeStatus(balances, offers, loans))
	if errWallets != nil && errOffers != nil && errLoans != nil {
		return snapshot, errors.Join(errWallets, errOffers, errLoans)
	}
	return snapshot, nil
}

// MarketRates fetches the funding ticker for each currency concurrently.
// Currencies whose ticker cannot be read are left out of the result.
func (c *Collector) MarketRates(ctx context.Context, currencies []model.CurrencyCode) map[model.CurrencyCode]model.Ticker {
	var (
		mu    sync.Mutex
		rates = make(map[model.CurrencyCode]model.Ticker, len(currencies))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelTickers)
	for _, cur := range lo.Uniq(currencies) {
		cur := cur
		g.Go(func() error {
			ticker, err := c.Fetcher.FetchTicker(gctx, cur)
			if err != nil {
				log.WithError(err).WithField("currency", cur).Warn("fetch market rate")
				return nil
			}
			mu.Lock()
			rates[cur] = ticker
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return rates
}

func (c *Collector) filter(s model.Snapshot) model.Snapshot {
	if len(c.Currencies) == 0 {
		return s
	}
	return lo.PickByKeys(s, c.Currencies)
}
