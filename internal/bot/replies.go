package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"FundingSentinel/internal/model"

	"github.com/samber/lo"
)

const helpText = "Bitfinex Funding Monitor Bot\n\n" +
	"Available commands:\n" +
	"/status - Show overall funding status\n" +
	"/status [currency] - Show funding status for specific currency\n" +
	"/active - Show active loans\n" +
	"/offered - Show offered funds\n" +
	"/inactive - Show inactive funds\n" +
	"/rates - Show current market lending rates for active currencies\n" +
	"/help - Show this help message"

const noDataReply = "No funding data available."

var defaultRateCurrencies = []model.CurrencyCode{"USD", "UST"}

var statusEmoji = map[model.LendingStatus]string{
	model.StatusActive:   "🟢",
	model.StatusOffered:  "🟡",
	model.StatusInactive: "🔴",
}

func (c *Commands) overallStatus(ctx context.Context) (string, error) {
	snap, err := c.Source.Collect(ctx)
	if err != nil {
		return "", err
	}
	if len(snap) == 0 {
		return noDataReply, nil
	}

	var (
		loans, offers, inactive        int
		total, loaned, offered, wallet float64
	)
	for _, st := range snap {
		loans += len(st.Loans)
		offers += len(st.Offers)
		if st.LendingStatus == model.StatusInactive {
			inactive++
		}
		total += st.TotalBalance
		loaned += st.LoanedAmount
		offered += st.OfferedAmount
		wallet += st.WalletBalance
	}

	var b strings.Builder
	b.WriteString("📊 *Bitfinex Funding Status*\n\n")
	b.WriteString("*Summary:*\n")
	fmt.Fprintf(&b, "Active Loans: %d\n", loans)
	fmt.Fprintf(&b, "Offered: %d\n", offers)
	fmt.Fprintf(&b, "Inactive: %d\n\n", inactive)
	b.WriteString("*Balances:*\n")
	fmt.Fprintf(&b, "Total Funds: %.2f\n", total)
	fmt.Fprintf(&b, "Loaned: %.2f\n", loaned)
	fmt.Fprintf(&b, "Offered: %.2f\n", offered)
	fmt.Fprintf(&b, "In Wallet: %.2f\n\n", wallet)
	b.WriteString("Use /status [currency] for details on specific currency")
	return b.String(), nil
}

func (c *Commands) currencyStatus(ctx context.Context, currency model.CurrencyCode) (string, error) {
	snap, err := c.Source.Collect(ctx)
	if err != nil {
		return "", err
	}
	st, ok := snap[currency]
	if !ok {
		return fmt.Sprintf("No data available for %s", currency), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s Funding Status* %s\n\n", currency, emojiFor(st.LendingStatus))
	fmt.Fprintf(&b, "*Status:* %s\n\n", capitalize(string(st.LendingStatus)))
	b.WriteString("*Balances:*\n")
	fmt.Fprintf(&b, "Total: %.2f %s\n", st.TotalBalance, currency)
	fmt.Fprintf(&b, "In Wallet: %.2f %s\n", st.WalletBalance, currency)
	fmt.Fprintf(&b, "Offered: %.2f %s\n", st.OfferedAmount, currency)
	fmt.Fprintf(&b, "Loaned: %.2f %s\n\n", st.LoanedAmount, currency)

	switch st.LendingStatus {
	case model.StatusActive:
		b.WriteString("*Active Loans:*\n")
		writePositions(&b, st.Loans, "", true, "No individual loan data available\n")
		b.WriteString("\n")
	case model.StatusOffered:
		b.WriteString("*Active Offers:*\n")
		writePositions(&b, st.Offers, "", true, "No individual offer data available\n")
	}
	return b.String(), nil
}

func (c *Commands) filteredStatus(ctx context.Context, status model.LendingStatus) (string, error) {
	snap, err := c.Source.Collect(ctx)
	if err != nil {
		return "", err
	}
	if len(snap) == 0 {
		return noDataReply, nil
	}
	matching := lo.PickBy(snap, func(_ model.CurrencyCode, st model.FundingStatus) bool {
		return st.LendingStatus == status
	})
	if len(matching) == 0 {
		return fmt.Sprintf("No %s funding positions found.", status), nil
	}

	var b strings.Builder
	switch status {
	case model.StatusActive:
		b.WriteString("🟢 *Active Loans*\n\n")
	case model.StatusOffered:
		b.WriteString("🟡 *Offered Funds*\n\n")
	default:
		b.WriteString("🔴 *Inactive Funds*\n\n")
	}

	for _, currency := range sortedCurrencies(matching) {
		st := matching[currency]
		fmt.Fprintf(&b, "*%s*:\n", currency)
		switch status {
		case model.StatusActive:
			writePositions(&b, st.Loans, "  ", false, "  No individual loan data available\n")
		case model.StatusOffered:
			writePositions(&b, st.Offers, "  ", false, "  No individual offer data available\n")
		default:
			fmt.Fprintf(&b, "  %.2f in wallet\n", st.WalletBalance)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// RateStanding says how a user's rate compares with the market.
type RateStanding int

const (
	RateBetter RateStanding = iota
	RateAverage
	RateWorse
)

func (r RateStanding) Emoji() string {
	switch r {
	case RateBetter:
		return "🟢"
	case RateAverage:
		return "⚪"
	default:
		return "🔴"
	}
}

// CompareLoanRate ranks a lent rate: at or above FRR is better, at or above
// the bid is average.
func CompareLoanRate(user float64, t model.Ticker) RateStanding {
	switch {
	case user >= t.FRRRatePercent:
		return RateBetter
	case user >= t.BidRatePercent:
		return RateAverage
	default:
		return RateWorse
	}
}

// CompareOfferRate ranks an asking rate: at or below FRR is better, at or
// below the ask is average.
func CompareOfferRate(user float64, t model.Ticker) RateStanding {
	switch {
	case user <= t.FRRRatePercent:
		return RateBetter
	case user <= t.AskRatePercent:
		return RateAverage
	default:
		return RateWorse
	}
}

func (c *Commands) marketRates(ctx context.Context) (string, error) {
	snap, err := c.Source.Collect(ctx)
	if err != nil {
		return "", err
	}

	active := sortedCurrencies(lo.PickBy(snap, func(_ model.CurrencyCode, st model.FundingStatus) bool {
		return st.LendingStatus == model.StatusActive
	}))
	offered := sortedCurrencies(lo.PickBy(snap, func(_ model.CurrencyCode, st model.FundingStatus) bool {
		return st.OfferedAmount > 0
	}))

	var b strings.Builder
	check := lo.Union(active, offered)
	if len(check) == 0 {
		check = defaultRateCurrencies
		b.WriteString("ℹ️ No active loans or offers found. Showing rates for USD and USDT.\n\n")
	}

	rates := c.Source.MarketRates(ctx, check)
	if len(rates) == 0 {
		return "❌ Failed to retrieve market rates. Please try again later.", nil
	}

	b.WriteString("📊 *Current Lending Rates*\n\n")
	if len(active) > 0 {
		b.WriteString("*Active Loans*\n")
		for _, cur := range active {
			if t, ok := rates[cur]; ok {
				user := snap[cur].AvgLoanRatePercent
				writeRateLine(&b, CompareLoanRate(user, t), cur, user, t)
			}
		}
		b.WriteString("\n")
	}
	if len(offered) > 0 {
		b.WriteString("*Offered Funds*\n")
		for _, cur := range offered {
			if t, ok := rates[cur]; ok {
				user := snap[cur].AvgOfferRatePercent
				writeRateLine(&b, CompareOfferRate(user, t), cur, user, t)
			}
		}
		b.WriteString("\n")
	}

	if len(active) == 0 && len(offered) == 0 {
		b.WriteString("*Market Rates*\n")
		for _, cur := range check {
			if t, ok := rates[cur]; ok {
				fmt.Fprintf(&b, "*%s*: FRR: %.2f%% | Range: %.2f%%-%.2f%% | 24h: %.2f%%-%.2f%%\n",
					cur, t.FRRRatePercent, t.BidRatePercent, t.AskRatePercent, t.LowRatePercent, t.HighRatePercent)
			}
		}
	} else {
		b.WriteString("\n*Rate Indicators*:\n")
		b.WriteString("🟢 - Your rate is better than market\n")
		b.WriteString("⚪ - Your rate is average\n")
		b.WriteString("🔴 - Your rate is below market\n")
	}
	return b.String(), nil
}

func writeRateLine(b *strings.Builder, standing RateStanding, cur model.CurrencyCode, user float64, t model.Ticker) {
	fmt.Fprintf(b, "%s *%s*: Your rate: %.2f%% | Market: %.2f%% | Range: %.2f%%-%.2f%% | 24h: %.2f%%-%.2f%%\n",
		standing.Emoji(), cur, user, t.FRRRatePercent, t.BidRatePercent, t.AskRatePercent, t.LowRatePercent, t.HighRatePercent)
}

func writePositions(b *strings.Builder, items []model.FundingOffer, indent string, withDate bool, empty string) {
	if len(items) == 0 {
		b.WriteString(empty)
		return
	}
	for i, it := range items {
		fmt.Fprintf(b, "%s%d. %.2f @ %.2f%% APR (%s days)", indent, i+1, it.Amount, it.RatePercent, periodDisplay(it.PeriodDays))
		if withDate && it.CreatedAtMillis > 0 {
			fmt.Fprintf(b, " - %s", time.UnixMilli(it.CreatedAtMillis).Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}
}

func periodDisplay(days int) string {
	if days > 0 {
		return fmt.Sprint(days)
	}
	return "Unknown"
}

func emojiFor(s model.LendingStatus) string {
	if e, ok := statusEmoji[s]; ok {
		return e
	}
	return statusEmoji[model.StatusInactive]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sortedCurrencies(m model.Snapshot) []model.CurrencyCode {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
