package profile

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

var twenty = decimal.NewFromInt(20)

// ScaleBasalRate multiplies rate by the factor and rounds to the nearest 0.05 U/h.
func ScaleBasalRate(rate decimal.Decimal, f Factor) decimal.Decimal {
	return rate.Mul(f.Decimal()).Mul(twenty).Round(0).Div(twenty)
}

// ScaleCarbRatio divides ratio by the factor. The second result reports
// whether the quotient was a whole number; if not, it is rounded to one decimal.
func ScaleCarbRatio(ratio decimal.Decimal, f Factor) (decimal.Decimal, bool) {
	q := ratio.Div(f.Decimal())
	if q.IsInteger() {
		return q, true
	}
	return q.Round(1), false
}

// ScaleSensitivity divides sensitivity by the factor. mg/dL values are
// rounded to whole numbers, everything else to one decimal.
func ScaleSensitivity(sensitivity decimal.Decimal, f Factor, mgdl bool) decimal.Decimal {
	q := sensitivity.Div(f.Decimal())
	if mgdl {
		return q.Round(0)
	}
	return q.Round(1)
}

// asDecimal converts a decoded JSON number into a decimal.
func asDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("expected a number, got %T", v)
	}
}

// floatNumber renders d as a float literal: whole values keep one decimal ("1.0").
func floatNumber(d decimal.Decimal) json.Number {
	if d.IsInteger() {
		return json.Number(d.StringFixed(1))
	}
	return json.Number(d.String())
}

func fixedNumber(d decimal.Decimal, places int32) json.Number {
	return json.Number(d.StringFixed(places))
}
