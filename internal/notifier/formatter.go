package notifier

import (
	"fmt"
	"strconv"
	"strings"

	"FundingSentinel/internal/calculator"
	"FundingSentinel/internal/model"
)

const (
	ratePlaces   = 2
	amountPlaces = 8
)

// RenderMessage turns a change event into a notification. ok is false for events
// that are not worth sending, such as the first sighting of a currency.
func RenderMessage(ev model.ChangeEvent) (title, body string, ok bool) {
	switch ev.Kind {
	case model.ChangeStatusTransition:
		body = transitionBody(ev)
	case model.ChangeParameter:
		body = parameterBody(ev)
	}
	if body == "" {
		return "", "", false
	}
	return Title(ev.Currency), body, true
}

// Title is the headline shared by every message about a currency.
func Title(currency model.CurrencyCode) string {
	return fmt.Sprintf("Bitfinex %s Lending Status Change", currency)
}

func transitionBody(ev model.ChangeEvent) string {
	from, to := ev.Previous.LendingStatus, ev.Current.LendingStatus
	switch {
	case to == model.StatusActive:
		return fmt.Sprintf("%s: Lending activated at %s%% APR", ev.Currency, FormatRate(ev.Current.AvgLoanRatePercent))
	case from == model.StatusInactive && to == model.StatusOffered:
		return fmt.Sprintf("%s funds are now offered for lending", ev.Currency)
	case from == model.StatusActive && to == model.StatusOffered:
		return fmt.Sprintf("%s: Loans returned, funds offered for lending again", ev.Currency)
	case from == model.StatusOffered && to == model.StatusInactive:
		return fmt.Sprintf("%s: Lending cancelled", ev.Currency)
	case from == model.StatusActive && to == model.StatusInactive:
		return fmt.Sprintf("%s: Lending closed, funds returned", ev.Currency)
	}
	return ""
}

func parameterBody(ev model.ChangeEvent) string {
	var lines []string
	if ev.RateChanged {
		lines = append(lines, fmt.Sprintf("%s: Rate changed from %s%% to %s%%", ev.Currency,
			FormatRate(ev.Previous.AvgLoanRatePercent), FormatRate(ev.Current.AvgLoanRatePercent)))
	}
	if ev.AmountChanged {
		lines = append(lines, fmt.Sprintf("%s: Amount changed from %s to %s", ev.Currency,
			FormatAmount(ev.Previous.LoanedAmount), FormatAmount(ev.Current.LoanedAmount)))
	}
	return strings.Join(lines, "\n")
}

// FormatRate rounds to 2 decimals and prints the shortest form, keeping ".0" on
// whole values: 5 -> "5.0", 5.0249 -> "5.02".
func FormatRate(v float64) string {
	return shortFloat(calculator.Round(v, ratePlaces))
}

// FormatAmount rounds to 8 decimals and prints the shortest form.
func FormatAmount(v float64) string {
	return shortFloat(calculator.Round(v, amountPlaces))
}

func shortFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// chatText is the Markdown layout used by chat-style channels.
func chatText(title, body string) string {
	return "*" + title + "*\n" + body
}
