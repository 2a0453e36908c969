package model

// ChangeKind tells how a currency's status moved between two polls.
type ChangeKind string

const (
	ChangeFirstSeen        ChangeKind = "first_seen"
	ChangeStatusTransition ChangeKind = "status_transition"
	ChangeParameter        ChangeKind = "parameter_change"
)

// ChangeEvent is produced per poll and consumed right away; it is never stored.
type ChangeEvent struct {
	Currency      CurrencyCode
	Previous      FundingStatus
	Current       FundingStatus
	Kind          ChangeKind
	RateChanged   bool
	AmountChanged bool
}
