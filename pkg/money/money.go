// Package money holds the fixed-point rounding rules used for every amount
// the lending service stores or collects.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept on monetary amounts.
const Scale int32 = 2

// RoundingMode selects how an amount is brought to Scale.
type RoundingMode int

const (
	// HalfUp rounds to the nearest neighbour, ties away from zero.
	HalfUp RoundingMode = iota
	// Up rounds away from zero.
	Up
	// Down rounds toward zero.
	Down
)

// String returns the mode name.
func (m RoundingMode) String() string {
	switch m {
	case HalfUp:
		return "HALF_UP"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return fmt.Sprintf("RoundingMode(%d)", int(m))
	}
}

// Round brings d to Scale fractional digits using the given mode.
func Round(d decimal.Decimal, mode RoundingMode) decimal.Decimal {
	switch mode {
	case Up:
		return d.RoundUp(Scale)
	case Down:
		return d.RoundDown(Scale)
	default:
		return d.Round(Scale)
	}
}

// DivideHalfUp divides d into n parts rounded half-up at Scale. The quotient
// is computed exactly before rounding, so no intermediate precision is lost.
func DivideHalfUp(d decimal.Decimal, n int64) decimal.Decimal {
	return d.DivRound(decimal.NewFromInt(n), Scale)
}

// Sum adds all amounts. An empty call returns zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Parse reads a decimal amount from its string form.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// Format renders d with exactly Scale fractional digits, e.g. "5000.00".
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
