package detector

import (
	"sort"

	"FundingSentinel/internal/calculator"
	"FundingSentinel/internal/model"

	"github.com/shopspring/decimal"
)

var (
	// RateThreshold is the largest move of the average loan rate (percentage
	// points, rounded to 2 decimals) that is still ignored.
	RateThreshold = decimal.RequireFromString("0.01")
	// AmountThreshold is the largest loaned amount move (rounded to 8 decimals)
	// that is still ignored.
	AmountThreshold = decimal.RequireFromString("0.0001")
)

const (
	ratePlaces   = 2
	amountPlaces = 8
)

// DetectChanges compares the current snapshot against the previous one and returns
// the events worth acting on. Currencies are visited in sorted order.
func DetectChanges(previous, current model.Snapshot) []model.ChangeEvent {
	var events []model.ChangeEvent

	for _, cur := range sortedKeys(current) {
		now := current[cur]
		before, seen := previous[cur]
		if !seen || before.LendingStatus == model.StatusUnknown || before.LendingStatus == "" {
			events = append(events, model.ChangeEvent{
				Currency: cur,
				Previous: model.FundingStatus{LendingStatus: model.StatusUnknown},
				Current:  now,
				Kind:     model.ChangeFirstSeen,
			})
			continue
		}

		if before.LendingStatus != now.LendingStatus {
			events = append(events, model.ChangeEvent{
				Currency: cur,
				Previous: before,
				Current:  now,
				Kind:     model.ChangeStatusTransition,
			})
			continue
		}

		if now.LendingStatus != model.StatusActive {
			continue
		}
		rateChanged, amountChanged := parameterDeltas(before, now)
		if rateChanged || amountChanged {
			events = append(events, model.ChangeEvent{
				Currency:      cur,
				Previous:      before,
				Current:       now,
				Kind:          model.ChangeParameter,
				RateChanged:   rateChanged,
				AmountChanged: amountChanged,
			})
		}
	}

	// Funds that were lent or offered and disappeared from every upstream list
	// are reported as returning to inactive.
	for _, cur := range sortedKeys(previous) {
		if _, ok := current[cur]; ok {
			continue
		}
		before := previous[cur]
		if before.LendingStatus != model.StatusActive && before.LendingStatus != model.StatusOffered {
			continue
		}
		events = append(events, model.ChangeEvent{
			Currency: cur,
			Previous: before,
			Current: model.FundingStatus{
				LendingStatus: model.StatusInactive,
				Offers:        []model.FundingOffer{},
				Loans:         []model.FundingLoan{},
			},
			Kind: model.ChangeStatusTransition,
		})
	}

	return events
}

func parameterDeltas(before, now model.FundingStatus) (rateChanged, amountChanged bool) {
	rateDelta := quantize(now.AvgLoanRatePercent, ratePlaces).
		Sub(quantize(before.AvgLoanRatePercent, ratePlaces)).Abs()

	amountDelta := quantize(now.LoanedAmount, amountPlaces).
		Sub(quantize(before.LoanedAmount, amountPlaces)).Abs()

	return rateDelta.GreaterThan(RateThreshold), amountDelta.GreaterThan(AmountThreshold)
}

// quantize rounds v half away from zero. NaN and infinities read as 0.
func quantize(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(calculator.Finite(v)).Round(places)
}

func sortedKeys(s model.Snapshot) []model.CurrencyCode {
	keys := make([]model.CurrencyCode, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
