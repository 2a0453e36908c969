package collector

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"FundingSentinel/internal/calculator"
	"FundingSentinel/internal/model"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// ErrMalformedRecord is returned for an upstream record that cannot be decoded at all.
var ErrMalformedRecord = errors.New("malformed record")

const (
	fundingMarker = "f"
	unknownID     = "unknown"

	walletMinFields  = 3
	fundingMinFields = 16
	tickerMinFields  = 10
)

// Positions inside a funding offer/loan record.
const (
	fundingID = iota
	fundingSymbol
	fundingCreated
	fundingUpdated
	fundingAmount
	fundingOriginalAmount
	fundingRate   = 11
	fundingPeriod = 15
)

// Positions inside a funding ticker record.
const (
	tickerFRR  = 0
	tickerBid  = 1
	tickerAsk  = 4
	tickerLast = 9
	tickerHigh = 11
	tickerLow  = 12
)

// MalformedError reports which raw record of a batch could not be decoded.
type MalformedError struct {
	Index  int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedRecord }

type walletRow struct {
	walletType string
	currency   model.CurrencyCode
	balance    float64
}

// NormalizeCurrency strips the funding-market prefix and upper-cases the symbol,
// e.g. "fUSD" -> "USD".
func NormalizeCurrency(symbol string) model.CurrencyCode {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(symbol), fundingMarker))
}

func decodeWallet(index int, rec gjson.Result) (walletRow, error) {
	fields, err := fieldsOf(index, rec, walletMinFields)
	if err != nil {
		return walletRow{}, err
	}
	cur := NormalizeCurrency(fields[1].String())
	if cur == "" {
		return walletRow{}, &MalformedError{Index: index, Reason: "missing currency"}
	}
	return walletRow{
		walletType: fields[0].String(),
		currency:   cur,
		balance:    number(fields[2]),
	}, nil
}

// decodeFunding decodes one offer or loan; both share the same layout.
func decodeFunding(index int, rec gjson.Result) (model.FundingOffer, error) {
	fields, err := fieldsOf(index, rec, fundingMinFields)
	if err != nil {
		return model.FundingOffer{}, err
	}
	cur := NormalizeCurrency(fields[fundingSymbol].String())
	if cur == "" {
		return model.FundingOffer{}, &MalformedError{Index: index, Reason: "missing symbol"}
	}

	id := unknownID
	if f := fields[fundingID]; f.Exists() && f.Type != gjson.Null && f.String() != "" {
		id = f.String()
	}

	return model.FundingOffer{
		ID:              id,
		Currency:        cur,
		Amount:          number(fields[fundingAmount]),
		OriginalAmount:  number(fields[fundingOriginalAmount]),
		RatePercent:     calculator.AnnualPercent(number(fields[fundingRate])),
		PeriodDays:      int(number(fields[fundingPeriod])),
		CreatedAtMillis: int64(number(fields[fundingCreated])),
		UpdatedAtMillis: int64(number(fields[fundingUpdated])),
	}, nil
}

func decodeTicker(rec gjson.Result) (model.Ticker, error) {
	fields, err := fieldsOf(0, rec, tickerMinFields)
	if err != nil {
		return model.Ticker{}, err
	}
	at := func(i int) float64 {
		if i >= len(fields) {
			return 0
		}
		return calculator.AnnualPercent(number(fields[i]))
	}
	return model.Ticker{
		FRRRatePercent:  at(tickerFRR),
		BidRatePercent:  at(tickerBid),
		AskRatePercent:  at(tickerAsk),
		LastRatePercent: at(tickerLast),
		HighRatePercent: at(tickerHigh),
		LowRatePercent:  at(tickerLow),
	}, nil
}

// decodeWallets keeps positive funding-wallet balances.
func decodeWallets(body []byte) model.WalletBalances {
	balances := make(model.WalletBalances)
	eachRecord(body, "wallet", func(i int, rec gjson.Result) {
		row, err := decodeWallet(i, rec)
		if err != nil {
			log.WithError(err).Warn("skipping wallet record")
			return
		}
		if row.walletType != "funding" || row.balance <= 0 {
			return
		}
		balances[row.currency] += row.balance
	})
	return balances
}

func decodeFundingList(body []byte, kind string) model.OffersByCurrency {
	out := make(model.OffersByCurrency)
	eachRecord(body, kind, func(i int, rec gjson.Result) {
		item, err := decodeFunding(i, rec)
		if err != nil {
			log.WithError(err).Warnf("skipping funding %s record", kind)
			return
		}
		out[item.Currency] = append(out[item.Currency], item)
	})
	return out
}

func eachRecord(body []byte, kind string, fn func(i int, rec gjson.Result)) {
	if !gjson.ValidBytes(body) {
		log.Warnf("invalid JSON in %s response", kind)
		return
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		log.Warnf("unexpected %s response: %s", kind, truncate(root.Raw, 200))
		return
	}
	for i, rec := range root.Array() {
		fn(i, rec)
	}
}

func fieldsOf(index int, rec gjson.Result, minFields int) ([]gjson.Result, error) {
	if !rec.IsArray() {
		return nil, &MalformedError{Index: index, Reason: "not an array"}
	}
	fields := rec.Array()
	if len(fields) < minFields {
		return nil, &MalformedError{
			Index:  index,
			Reason: fmt.Sprintf("expected at least %d fields, got %d", minFields, len(fields)),
		}
	}
	return fields, nil
}

// number reads a numeric field; null, missing, wrong-typed and non-finite values
// (1e400 parses to +Inf) read as 0.
func number(f gjson.Result) float64 {
	var v float64
	switch f.Type {
	case gjson.Number:
		v = f.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(f.Str), 64)
		if err != nil {
			return 0
		}
		v = parsed
	default:
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
