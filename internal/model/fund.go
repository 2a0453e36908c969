package model

// CurrencyCode is an upper-case asset symbol such as "USD" or "BTC".
type CurrencyCode = string

// LendingStatus classifies what a currency's funds are doing.
type LendingStatus string

const (
	StatusActive   LendingStatus = "active"
	StatusOffered  LendingStatus = "offered"
	StatusInactive LendingStatus = "inactive"
	// StatusUnknown marks a currency that has never been observed.
	StatusUnknown LendingStatus = "unknown"
)

// WalletBalances maps a currency to the idle amount in the funding wallet.
type WalletBalances map[CurrencyCode]float64

// FundingOffer is an open, unmatched offer to lend. FundingLoan has the same shape
// but represents matched capital that is earning interest.
type FundingOffer struct {
	ID              string       `json:"id"`
	Currency        CurrencyCode `json:"currency"`
	Amount          float64      `json:"amount"`
	OriginalAmount  float64      `json:"original_amount"`
	RatePercent     float64      `json:"rate"` // annualized
	PeriodDays      int          `json:"period"`
	CreatedAtMillis int64        `json:"created_at"`
	UpdatedAtMillis int64        `json:"updated_at"`
}

type FundingLoan = FundingOffer

// OffersByCurrency groups offers (or loans) per currency.
type OffersByCurrency map[CurrencyCode][]FundingOffer

// FundingStatus is the per-currency aggregate recomputed on every poll.
type FundingStatus struct {
	WalletBalance       float64        `json:"wallet_balance"`
	TotalBalance        float64        `json:"total_balance"`
	OfferedAmount       float64        `json:"offered_amount"`
	LoanedAmount        float64        `json:"loaned_amount"`
	NumOffers           int            `json:"num_offers"`
	NumLoans            int            `json:"num_loans"`
	AvgOfferRatePercent float64        `json:"avg_offer_rate"`
	AvgLoanRatePercent  float64        `json:"avg_loan_rate"`
	LendingStatus       LendingStatus  `json:"lending_status"`
	Offers              []FundingOffer `json:"offers"`
	Loans               []FundingLoan  `json:"loans"`
}

// Snapshot is the full funding state keyed by currency.
type Snapshot map[CurrencyCode]FundingStatus

// Count returns how many currencies are in the given status.
func (s Snapshot) Count(status LendingStatus) int {
	n := 0
	for _, st := range s {
		if st.LendingStatus == status {
			n++
		}
	}
	return n
}
