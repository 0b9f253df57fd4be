// Package money represents currency amounts as integer cents.
//
// Decimal parsing and formatting go through shopspring/decimal so that
// amounts never pass through binary floating point on their way in or out.
package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNotFinite     = errors.New("amount must be a finite number")
	ErrOutOfRange    = errors.New("amount out of range")
)

// Cents is an amount of money in hundredths of the currency unit.
type Cents int64

// MaxAbs is the largest magnitude accepted from outside, ten trillion
// currency units. Thousands of such amounts still sum within an int64.
const MaxAbs Cents = 1_000_000_000_000_000

var maxAbs = MaxAbs.Decimal()

// Parse reads a decimal string such as "12.5" or "-3.07".
// Values with more than two decimal places are rounded half away from zero.
// Magnitudes above MaxAbs are rejected.
func Parse(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !inRange(d) {
		return 0, fmt.Errorf("%w: %q exceeds %s", ErrInvalidAmount, s, MaxAbs)
	}
	return FromDecimal(d), nil
}

// FromDecimal rounds d to cents. d must lie within MaxAbs.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Round(2).Shift(2).IntPart())
}

// FromFloat rounds f to cents. NaN, infinities and magnitudes above MaxAbs
// are rejected.
func FromFloat(f float64) (Cents, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotFinite
	}
	d := decimal.NewFromFloat(f)
	if !inRange(d) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, f)
	}
	return FromDecimal(d), nil
}

// InRange reports whether c lies within MaxAbs.
func (c Cents) InRange() bool {
	return c >= -MaxAbs && c <= MaxAbs
}

func inRange(d decimal.Decimal) bool {
	return d.Round(2).Abs().LessThanOrEqual(maxAbs)
}

// Decimal returns c in currency units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float64 returns c in currency units.
func (c Cents) Float64() float64 {
	f, _ := c.Decimal().Float64()
	return f
}

// String formats c with exactly two decimal places.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Abs returns the absolute value of c.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}
