package profile

import (
	"fmt"
	"strings"
)

// Kind identifies which transform a settings file gets.
type Kind int

const (
	KindBasal Kind = iota
	KindCarbRatios
	KindSensitivities
	KindProfile
)

var kindNames = map[Kind]string{
	KindBasal:         "basal",
	KindCarbRatios:    "carb_ratios",
	KindSensitivities: "isf",
	KindProfile:       "profile",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Transform returns the transform for k.
func (k Kind) Transform() TransformFunc {
	switch k {
	case KindBasal:
		return TransformBasal
	case KindCarbRatios:
		return TransformCarbRatios
	case KindSensitivities:
		return TransformSensitivities
	case KindProfile:
		return TransformComposite
	}
	panic(fmt.Sprintf("profile: no transform for %v", k))
}

// ParseKind accepts the names used in config files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basal", "basal_profile":
		return KindBasal, nil
	case "carb_ratios", "carbs", "carb":
		return KindCarbRatios, nil
	case "isf", "insulin_sensitivities", "sensitivities":
		return KindSensitivities, nil
	case "profile", "composite", "pumpprofile":
		return KindProfile, nil
	}
	return 0, fmt.Errorf("unknown file kind %q (want basal, carb_ratios, isf or profile)", s)
}

// FileRule binds a settings filename to its transform.
type FileRule struct {
	Name string
	Kind Kind
}

// DefaultFiles is the table of files the tool adjusts. Names match exactly
// and are case-sensitive.
func DefaultFiles() []FileRule {
	return []FileRule{
		{Name: "basal_profile.json", Kind: KindBasal},
		{Name: "carb_ratios.json", Kind: KindCarbRatios},
		{Name: "insulin_sensitivities.json", Kind: KindSensitivities},
		{Name: "profile.json", Kind: KindProfile},
		{Name: "pumpprofile.json", Kind: KindProfile},
	}
}
