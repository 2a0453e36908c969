package calculator

import (
	"math"

	"FundingSentinel/internal/model"

	"github.com/samber/lo"
)

// Classify derives the lending status from the offered and loaned totals.
// Loans win over offers; negative or NaN inputs count as zero.
func Classify(offered, loaned float64) model.LendingStatus {
	switch {
	case nonNegative(loaned) > 0:
		return model.StatusActive
	case nonNegative(offered) > 0:
		return model.StatusOffered
	default:
		return model.StatusInactive
	}
}

// ComputeStatus combines wallet balances, open offers and open loans into one
// FundingStatus per currency. The result covers every currency seen in any input.
func ComputeStatus(balances model.WalletBalances, offers, loans model.OffersByCurrency) model.Snapshot {
	currencies := lo.Union(lo.Keys(balances), lo.Keys(offers), lo.Keys(loans))

	snapshot := make(model.Snapshot, len(currencies))
	for _, cur := range currencies {
		curOffers := nonNil(offers[cur])
		curLoans := nonNil(loans[cur])

		wallet := balances[cur]
		offered := sumAmount(curOffers)
		loaned := sumAmount(curLoans)

		snapshot[cur] = model.FundingStatus{
			WalletBalance:       wallet,
			TotalBalance:        wallet + loaned,
			OfferedAmount:       offered,
			LoanedAmount:        loaned,
			NumOffers:           len(curOffers),
			NumLoans:            len(curLoans),
			AvgOfferRatePercent: AverageRate(curOffers),
			AvgLoanRatePercent:  AverageRate(curLoans),
			LendingStatus:       Classify(offered, loaned),
			Offers:              curOffers,
			Loans:               curLoans,
		}
	}
	return snapshot
}

// AverageRate is the unweighted mean rate, 0 for an empty list or a
// non-finite result.
func AverageRate(items []model.FundingOffer) float64 {
	if len(items) == 0 {
		return 0
	}
	return Finite(lo.SumBy(items, func(o model.FundingOffer) float64 { return o.RatePercent }) / float64(len(items)))
}

func sumAmount(items []model.FundingOffer) float64 {
	return Finite(lo.SumBy(items, func(o model.FundingOffer) float64 { return o.Amount }))
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func nonNil(items []model.FundingOffer) []model.FundingOffer {
	if items == nil {
		return []model.FundingOffer{}
	}
	return items
}
