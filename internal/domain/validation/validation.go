// Package validation holds the single input error kind shared by the pricing
// and fulfillment engines.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// NoLine marks an InvalidInputError raised by an order-level parameter such as
// the shipping fee or a tax rate.
const NoLine = -1

// MaxScale bounds the decimal exponent accepted from callers, in both
// directions.
const MaxScale = 18

var (
	hundred      = decimal.NewFromInt(100)
	maxMagnitude = decimal.New(1, 15)
)

// InvalidInputError reports a precondition violation on a single field.
// Computations that return it produce no partial result.
type InvalidInputError struct {
	// Line is the zero-based line index, or NoLine.
	Line   int
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Line == NoLine {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Reason)
}

// New returns an InvalidInputError for the given line and field.
func New(line int, field, reason string) *InvalidInputError {
	return &InvalidInputError{Line: line, Field: field, Reason: reason}
}

// NonNegative rejects values below zero.
func NonNegative(line int, field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return New(line, field, "must not be negative")
	}
	return nil
}

// NonNegativeInt rejects integer values below zero.
func NonNegativeInt(line int, field string, v int) error {
	if v < 0 {
		return New(line, field, "must not be negative")
	}
	return nil
}

// Percent rejects values outside [0, 100].
func Percent(line int, field string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return New(line, field, "must be within [0, 100]")
	}
	return nil
}

// InRange rejects values whose exponent lies outside [-MaxScale, MaxScale] or
// whose magnitude reaches 1e15. The exponent is checked first so no
// arithmetic runs on an oversized value.
func InRange(line int, field string, v decimal.Decimal) error {
	if exp := v.Exponent(); exp < -MaxScale || exp > MaxScale {
		return New(line, field, "out of range")
	}
	if v.Abs().GreaterThanOrEqual(maxMagnitude) {
		return New(line, field, "out of range")
	}
	return nil
}

// ParseDecimal parses a textual number. Empty input, NaN and infinities are
// rejected as non-finite; numbers outside InRange as out of range.
func ParseDecimal(line int, field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, New(line, field, "not a finite number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, New(line, field, "not a finite number")
	}
	if err := InRange(line, field, d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// FromFloat converts a float64 into a decimal, rejecting NaN, infinities and
// values outside InRange.
func FromFloat(line int, field string, f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, New(line, field, "not a finite number")
	}
	d := decimal.NewFromFloat(f)
	if err := InRange(line, field, d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
