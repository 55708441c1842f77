package shared

import "github.com/shopspring/decimal"

// ReconcileTolerance is the largest absolute difference, in currency units,
// at which two balances still count as reconciled (one cent).
const ReconcileTolerance = 0.01

// RoundCents rounds a currency amount to two decimal places.
func RoundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// EqualCents reports whether two amounts are equal once rounded to cents.
// Float arithmetic drift below half a cent never flips the comparison.
func EqualCents(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}

// WithinTolerance reports whether |a-b| < ReconcileTolerance.
func WithinTolerance(a, b float64) bool {
	diff := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs()
	return diff.LessThan(decimal.NewFromFloat(ReconcileTolerance))
}
