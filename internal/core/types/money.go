// Package types provides shared monetary and quantity types.
// All financial arithmetic uses decimal.Decimal to avoid floating-point
// drift; values are rounded before aggregation, never after.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
type Money = decimal.Decimal

// Quantity represents a physical or ordered quantity.
// Same underlying representation as Money; kept as a separate alias so
// signatures say which one they mean.
type Quantity = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for exact values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred constructor for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns the zero Money value.
func Zero() Money {
	return decimal.Zero
}

// MoneyScale is the rounding scale for line and header amounts.
const MoneyScale = 2

// UnitCostScale is the rounding scale for unit costs, where currency
// convention allows a third decimal.
const UnitCostScale = 3

// RoundMoney rounds an amount to 2 decimal places (half up).
// Every intermediate monetary value is passed through this before it
// participates in further arithmetic, so rounding drift cannot compound
// across lines.
func RoundMoney(d Money) Money {
	return d.Round(MoneyScale)
}

// RoundUnitCost rounds a unit cost to 3 decimal places.
func RoundUnitCost(d Money) Money {
	return d.Round(UnitCostScale)
}

// IsPositive reports whether d > 0. Nil-safe convenience for optional
// attribute pointers.
func IsPositive(d *Money) bool {
	return d != nil && d.IsPositive()
}

// ValueOrZero dereferences an optional amount, treating nil as zero.
func ValueOrZero(d *Money) Money {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// Ptr returns a pointer to d. Convenience for optional attributes.
func Ptr(d Money) *Money {
	return &d
}
