package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// DaysPerYear is the convention used to annualize daily funding rates.
const DaysPerYear = 365

// AnnualPercent converts a daily fractional rate into an annual percentage.
// Results that overflow read as 0.
func AnnualPercent(dailyFraction float64) float64 {
	return Finite(dailyFraction * DaysPerYear * 100)
}

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Round rounds v half away from zero to the given number of decimal places.
// Non-finite values round to 0.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(Finite(v)).Round(places).Float64()
	return f
}
