package profile

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrMalformed is returned when a document does not have the shape a transform expects.
var ErrMalformed = errors.New("malformed document")

// UnitsMgDL is the blood glucose unit whose sensitivities are rounded to whole numbers.
const UnitsMgDL = "mg/dL"

// TransformFunc scales one decoded document. Documents are modified in place
// and returned.
type TransformFunc func(doc any, f Factor) (any, error)

// TransformBasal scales every "rate" of a basal schedule and rounds it to 0.05.
func TransformBasal(doc any, f Factor) (any, error) {
	entries, ok := doc.([]any)
	if !ok {
		return nil, malformed("basal profile must be a list, got %s", typeName(doc))
	}
	for i, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			return nil, malformed("basal entry %d must be an object", i)
		}
		rate, err := field(entry, "rate")
		if err != nil {
			return nil, fmt.Errorf("basal entry %d: %w", i, err)
		}
		entry["rate"] = floatNumber(ScaleBasalRate(rate, f))
	}
	return entries, nil
}

// TransformCarbRatios scales every "ratio" in the document's "schedule".
func TransformCarbRatios(doc any, f Factor) (any, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, malformed("carb ratios must be an object, got %s", typeName(doc))
	}
	schedule, err := list(obj, "schedule")
	if err != nil {
		return nil, fmt.Errorf("carb ratios: %w", err)
	}
	for i, e := range schedule {
		entry, ok := e.(map[string]any)
		if !ok {
			return nil, malformed("carb ratio entry %d must be an object", i)
		}
		ratio, err := field(entry, "ratio")
		if err != nil {
			return nil, fmt.Errorf("carb ratio entry %d: %w", i, err)
		}
		scaled, whole := ScaleCarbRatio(ratio, f)
		if whole {
			entry["ratio"] = fixedNumber(scaled, 0)
		} else {
			entry["ratio"] = fixedNumber(scaled, 1)
		}
	}
	return obj, nil
}

// TransformSensitivities scales every "sensitivity" in the document's
// "sensitivities". Precision depends on the document-level "units".
func TransformSensitivities(doc any, f Factor) (any, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, malformed("insulin sensitivities must be an object, got %s", typeName(doc))
	}
	rawUnits, ok := obj["units"]
	if !ok {
		return nil, malformed("insulin sensitivities: missing %q", "units")
	}
	units, _ := rawUnits.(string)
	mgdl := units == UnitsMgDL

	sensitivities, err := list(obj, "sensitivities")
	if err != nil {
		return nil, fmt.Errorf("insulin sensitivities: %w", err)
	}
	for i, e := range sensitivities {
		entry, ok := e.(map[string]any)
		if !ok {
			return nil, malformed("sensitivity entry %d must be an object", i)
		}
		s, err := field(entry, "sensitivity")
		if err != nil {
			return nil, fmt.Errorf("sensitivity entry %d: %w", i, err)
		}
		if mgdl {
			entry["sensitivity"] = fixedNumber(ScaleSensitivity(s, f, true), 0)
		} else {
			entry["sensitivity"] = fixedNumber(ScaleSensitivity(s, f, false), 1)
		}
	}
	return obj, nil
}

// TransformComposite applies the basal, carb ratio and sensitivity transforms
// to the "basalprofile", "carb_ratios" and "isfProfile" parts of a full profile.
func TransformComposite(doc any, f Factor) (any, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, malformed("profile must be an object, got %s", typeName(doc))
	}
	parts := []struct {
		key       string
		transform TransformFunc
	}{
		{"basalprofile", TransformBasal},
		{"carb_ratios", TransformCarbRatios},
		{"isfProfile", TransformSensitivities},
	}
	for _, p := range parts {
		sub, ok := obj[p.key]
		if !ok {
			return nil, malformed("profile: missing %q", p.key)
		}
		out, err := p.transform(sub, f)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.key, err)
		}
		obj[p.key] = out
	}
	return obj, nil
}

func field(entry map[string]any, key string) (decimal.Decimal, error) {
	v, ok := entry[key]
	if !ok {
		return decimal.Decimal{}, malformed("missing %q", key)
	}
	d, err := asDecimal(v)
	if err != nil {
		return decimal.Decimal{}, malformed("%q: %v", key, err)
	}
	return d, nil
}

func list(obj map[string]any, key string) ([]any, error) {
	v, ok := obj[key]
	if !ok {
		return nil, malformed("missing %q", key)
	}
	l, ok := v.([]any)
	if !ok {
		return nil, malformed("%q must be a list, got %s", key, typeName(v))
	}
	return l, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	default:
		return "number"
	}
}
