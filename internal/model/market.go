package model

// Ticker holds funding-market reference rates for one currency, annualized in percent.
type Ticker struct {
	FRRRatePercent  float64 `json:"frr_rate"` // flash return rate
	BidRatePercent  float64 `json:"bid_rate"`
	AskRatePercent  float64 `json:"ask_rate"`
	LastRatePercent float64 `json:"last_rate"`
	HighRatePercent float64 `json:"high_rate"`
	LowRatePercent  float64 `json:"low_rate"`
}
