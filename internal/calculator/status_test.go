package calculator

import (
	"math"
	"testing"

	"FundingSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_AllSignCombinations(t *testing.T) {
	tests := []struct {
		name    string
		offered float64
		loaned  float64
		want    model.LendingStatus
	}{
		{"both zero", 0, 0, model.StatusInactive},
		{"offered only", 10, 0, model.StatusOffered},
		{"loaned only", 0, 5, model.StatusActive},
		{"both positive", 10, 5, model.StatusActive},
		{"negative loaned clamps", 10, -5, model.StatusOffered},
		{"negative offered clamps", -10, 0, model.StatusInactive},
		{"both negative", -1, -1, model.StatusInactive},
		{"nan loaned", 0, math.NaN(), model.StatusInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.offered, tt.loaned))
		})
	}
}

func TestComputeStatus_UnionOfCurrencies(t *testing.T) {
	balances := model.WalletBalances{"USD": 100, "ETH": 2}
	offers := model.OffersByCurrency{
		"BTC": {{ID: "1", Currency: "BTC", Amount: 0.5, RatePercent: 10}},
	}
	loans := model.OffersByCurrency{
		"USD": {
			{ID: "2", Currency: "USD", Amount: 300, RatePercent: 12},
			{ID: "3", Currency: "USD", Amount: 200, RatePercent: 8},
		},
	}

	snap := ComputeStatus(balances, offers, loans)
	require.Len(t, snap, 3)

	usd := snap["USD"]
	assert.Equal(t, model.StatusActive, usd.LendingStatus)
	assert.InDelta(t, 500, usd.LoanedAmount, 1e-9)
	assert.InDelta(t, 600, usd.TotalBalance, 1e-9)
	assert.InDelta(t, 10, usd.AvgLoanRatePercent, 1e-9)
	assert.Equal(t, 2, usd.NumLoans)
	assert.Equal(t, 0, usd.NumOffers)
	assert.Empty(t, usd.Offers)

	btc := snap["BTC"]
	assert.Equal(t, model.StatusOffered, btc.LendingStatus)
	assert.InDelta(t, 0.5, btc.OfferedAmount, 1e-9)
	assert.Zero(t, btc.TotalBalance, "offered funds are not counted in the total")

	eth := snap["ETH"]
	assert.Equal(t, model.StatusInactive, eth.LendingStatus)
	assert.Equal(t, 2.0, eth.TotalBalance)
	assert.Zero(t, eth.AvgOfferRatePercent)
}

func TestComputeStatus_CountsMatchLists(t *testing.T) {
	offers := model.OffersByCurrency{"USD": {{Amount: 1}, {Amount: 2}, {Amount: 3}}}
	snap := ComputeStatus(nil, offers, nil)

	usd := snap["USD"]
	assert.Equal(t, len(usd.Offers), usd.NumOffers)
	assert.Equal(t, len(usd.Loans), usd.NumLoans)
	assert.Equal(t, 6.0, usd.OfferedAmount)
}

func TestComputeStatus_NonFiniteInputs(t *testing.T) {
	loans := model.OffersByCurrency{"USD": {
		{ID: "1", Currency: "USD", Amount: math.MaxFloat64, RatePercent: math.Inf(1)},
		{ID: "2", Currency: "USD", Amount: math.MaxFloat64, RatePercent: 5},
	}}
	st := ComputeStatus(nil, nil, loans)["USD"]
	assert.Zero(t, st.AvgLoanRatePercent)
	assert.Zero(t, st.LoanedAmount)
	assert.Equal(t, 2, st.NumLoans)
}

func TestAnnualPercent(t *testing.T) {
	assert.InDelta(t, 10.95, AnnualPercent(0.0003), 1e-9)
	assert.Equal(t, 10.95, Round(AnnualPercent(0.0003), 2))
	assert.Equal(t, 5.01, Round(5.005, 2))

	assert.Zero(t, AnnualPercent(1e307), "overflow")
	assert.Zero(t, AnnualPercent(math.NaN()))
	assert.NotPanics(t, func() { assert.Zero(t, Round(math.Inf(1), 2)) })
}
