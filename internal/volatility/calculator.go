package volatility

import (
	"github.com/shopspring/decimal"

	apperrors "volscan/internal/errors"
)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Result is the outcome of Calculate for one series
type Result struct {
	// Volatility is (max-min)/mid*100; zero when Degenerate
	Volatility float64
	// Degenerate is set when the spread is zero or the midpoint is zero
	Degenerate bool
	Max        decimal.Decimal
	Min        decimal.Decimal
	Mid        decimal.Decimal
}

// Calculate computes the simplified volatility of series.
// A zero midpoint does not fail; the series is reported as degenerate.
func Calculate(series PriceSeries) (Result, error) {
	if len(series) == 0 {
		return Result{}, &apperrors.EmptySeriesError{}
	}

	maxPrice := decimal.Max(series[0], series[1:]...)
	minPrice := decimal.Min(series[0], series[1:]...)
	mid := maxPrice.Add(minPrice).Div(two)

	res := Result{Max: maxPrice, Min: minPrice, Mid: mid}
	if mid.IsZero() {
		res.Degenerate = true
		return res, nil
	}

	spread := maxPrice.Sub(minPrice)
	if spread.IsZero() {
		res.Degenerate = true
		return res, nil
	}

	res.Volatility = spread.Div(mid).Mul(hundred).InexactFloat64()
	return res, nil
}
