// Package profile holds the dosing-profile transforms: the scaling factor,
// the rounding rules for each field type and the JSON documents they operate on.
//
// All arithmetic is done on exact decimals. Every input number is taken at its
// shortest decimal representation (the text in the file, or the shortest form
// of a float64), so 1.0 * 0.8 is exactly 0.8. Rounding is half away from zero.
package profile

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// DefaultFactor is used when no factor is given on the command line.
const DefaultFactor = 0.8

var (
	hundred    = decimal.NewFromInt(100)
	maxPercent = decimal.NewFromInt(math.MaxInt64)
)

// Factor is a validated scaling factor. 1.0 leaves settings unchanged,
// values below 1.0 make the profile more sensitive, above 1.0 less sensitive.
type Factor struct {
	value decimal.Decimal
	raw   float64
}

// NewFactor validates f and returns it as a Factor.
func NewFactor(f float64) (Factor, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Factor{}, fmt.Errorf("factor must be a finite number, got %v", f)
	}
	if f <= 0 {
		return Factor{}, fmt.Errorf("factor must be positive, got %v", f)
	}
	value := decimal.NewFromFloat(f)
	if value.Mul(hundred).Truncate(0).Cmp(maxPercent) > 0 {
		return Factor{}, fmt.Errorf("factor too large, got %v", f)
	}
	return Factor{value: value, raw: f}, nil
}

// ParseFactor parses a factor from its command-line form.
func ParseFactor(s string) (Factor, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Factor{}, fmt.Errorf("not a number: %q", s)
	}
	return NewFactor(f)
}

// MustFactor is NewFactor for constants and tests.
func MustFactor(f float64) Factor {
	factor, err := NewFactor(f)
	if err != nil {
		panic(err)
	}
	return factor
}

// Decimal returns the exact decimal value of the factor.
func (f Factor) Decimal() decimal.Decimal { return f.value }

// Float64 returns the factor as originally given.
func (f Factor) Float64() float64 { return f.raw }

// IsZero reports whether f is the zero Factor, i.e. was never validated.
func (f Factor) IsZero() bool { return f.value.IsZero() }

// Percent returns factor*100 truncated toward zero, the suffix of the output
// directory name. Computed on the decimal so 0.29 yields 29, not 28.
func (f Factor) Percent() int64 {
	return f.value.Mul(hundred).Truncate(0).IntPart()
}

// String formats the factor the way it was given.
func (f Factor) String() string {
	return strconv.FormatFloat(f.raw, 'f', -1, 64)
}
