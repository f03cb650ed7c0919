package profile

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	doc, err := Decode([]byte(s))
	require.NoError(t, err)
	return doc
}

func encode(t *testing.T, doc any) string {
	t.Helper()
	out, err := Encode(doc)
	require.NoError(t, err)
	return string(out)
}

func TestTransformBasal(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		factor float64
		want   string
	}{
		{"already multiple of 0.05", `[{"rate": 1.0}]`, 0.8, `[{"rate": 0.8}]`},
		{"rounds down", `[{"rate": 0.9}]`, 0.8, `[{"rate": 0.7}]`},
		{"rounds to nearest", `[{"rate": 1.35}]`, 0.9, `[{"rate": 1.2}]`},
		{"tie rounds away from zero", `[{"rate": 0.5}]`, 0.25, `[{"rate": 0.15}]`},
		{"whole result keeps a decimal", `[{"rate": 1}]`, 1.0, `[{"rate": 1.0}]`},
		{"zero rate", `[{"rate": 0}]`, 1.2, `[{"rate": 0.0}]`},
		{
			"other fields untouched",
			`[{"i": 0, "start": "00:00:00", "minutes": 0, "rate": 0.85}, {"i": 1, "start": "06:00:00", "minutes": 360, "rate": 1.1}]`,
			1.2,
			`[{"i": 0, "start": "00:00:00", "minutes": 0, "rate": 1.0}, {"i": 1, "start": "06:00:00", "minutes": 360, "rate": 1.3}]`,
		},
		{"empty schedule", `[]`, 0.8, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransformBasal(decode(t, tt.in), MustFactor(tt.factor))
			require.NoError(t, err)
			if diff := cmp.Diff(encode(t, decode(t, tt.want)), encode(t, got)); diff != "" {
				t.Errorf("TransformBasal() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransformBasal_RatesAreMultiplesOfFiveHundredths(t *testing.T) {
	rates := []string{"0.05", "0.1", "0.35", "0.6", "0.85", "1.15", "1.4", "2.25", "3.7"}
	factors := []float64{0.5, 0.7, 0.8, 0.85, 0.9, 1.1, 1.2, 1.33, 1.5}
	step := decimal.NewFromFloat(0.05)

	for _, r := range rates {
		for _, f := range factors {
			doc := decode(t, `[{"rate": `+r+`}]`)
			got, err := TransformBasal(doc, MustFactor(f))
			require.NoError(t, err)

			rate, err := asDecimal(got.([]any)[0].(map[string]any)["rate"])
			require.NoError(t, err)
			assert.True(t, rate.Mod(step).IsZero(), "rate %s * %v = %s is not a multiple of 0.05", r, f, rate)
		}
	}
}

func TestTransformCarbRatios(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		factor float64
		want   string
	}{
		{"non-integer result keeps one decimal", `{"schedule":[{"ratio": 10}]}`, 0.8, `{"schedule":[{"ratio": 12.5}]}`},
		{"whole result stored as integer", `{"schedule":[{"ratio": 12}]}`, 0.8, `{"schedule":[{"ratio": 15}]}`},
		{"whole float stored as integer", `{"schedule":[{"ratio": 15.0}]}`, 1.0, `{"schedule":[{"ratio": 15}]}`},
		{"repeating decimal", `{"schedule":[{"ratio": 10}]}`, 0.3, `{"schedule":[{"ratio": 33.3}]}`},
		{"less sensitive", `{"schedule":[{"ratio": 10}]}`, 1.2, `{"schedule":[{"ratio": 8.3}]}`},
		{"tie rounds away from zero", `{"schedule":[{"ratio": 12.25}]}`, 1.0, `{"schedule":[{"ratio": 12.3}]}`},
		{"rounds to a whole value with one decimal", `{"schedule":[{"ratio": 9.98}]}`, 1.0, `{"schedule":[{"ratio": 10.0}]}`},
		{
			"schedule metadata untouched",
			`{"units": "grams", "schedule":[{"i": 0, "offset": 0, "start": "00:00:00", "ratio": 9}, {"i": 1, "offset": 360, "start": "06:00:00", "ratio": 6}]}`,
			0.9,
			`{"units": "grams", "schedule":[{"i": 0, "offset": 0, "start": "00:00:00", "ratio": 10}, {"i": 1, "offset": 360, "start": "06:00:00", "ratio": 6.7}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransformCarbRatios(decode(t, tt.in), MustFactor(tt.factor))
			require.NoError(t, err)
			if diff := cmp.Diff(encode(t, decode(t, tt.want)), encode(t, got)); diff != "" {
				t.Errorf("TransformCarbRatios() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransformSensitivities(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		factor float64
		want   string
	}{
		{
			"mg/dL rounds half away from zero",
			`{"units":"mg/dL","sensitivities":[{"sensitivity":50}]}`, 0.8,
			`{"units":"mg/dL","sensitivities":[{"sensitivity":63}]}`,
		},
		{
			"mg/dL less sensitive",
			`{"units":"mg/dL","sensitivities":[{"sensitivity":45},{"sensitivity":40}]}`, 1.2,
			`{"units":"mg/dL","sensitivities":[{"sensitivity":38},{"sensitivity":33}]}`,
		},
		{
			"mmol/L keeps one decimal",
			`{"units":"mmol/L","sensitivities":[{"sensitivity":2.8},{"sensitivity":2.5}]}`, 0.9,
			`{"units":"mmol/L","sensitivities":[{"sensitivity":3.1},{"sensitivity":2.8}]}`,
		},
		{
			"mmol/L whole value written with a decimal",
			`{"units":"mmol/L","sensitivities":[{"sensitivity":2.4}]}`, 0.8,
			`{"units":"mmol/L","sensitivities":[{"sensitivity":3.0}]}`,
		},
		{
			"units match is case-sensitive",
			`{"units":"mg/dl","sensitivities":[{"sensitivity":50}]}`, 0.8,
			`{"units":"mg/dl","sensitivities":[{"sensitivity":62.5}]}`,
		},
		{
			"user preferred units untouched",
			`{"units":"mg/dL","user_preferred_units":"mmol/L","sensitivities":[{"i":0,"offset":0,"sensitivity":100,"start":"00:00:00"}],"first":1}`, 1.25,
			`{"units":"mg/dL","user_preferred_units":"mmol/L","sensitivities":[{"i":0,"offset":0,"sensitivity":80,"start":"00:00:00"}],"first":1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransformSensitivities(decode(t, tt.in), MustFactor(tt.factor))
			require.NoError(t, err)
			if diff := cmp.Diff(encode(t, decode(t, tt.want)), encode(t, got)); diff != "" {
				t.Errorf("TransformSensitivities() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

const compositeProfile = `{
  "dia": 6,
  "max_iob": 4,
  "basalprofile": [{"i": 0, "minutes": 0, "rate": 1.0, "start": "00:00:00"}],
  "carb_ratios": {"units": "grams", "schedule": [{"i": 0, "offset": 0, "ratio": 10, "start": "00:00:00"}]},
  "isfProfile": {"units": "mg/dL", "sensitivities": [{"i": 0, "offset": 0, "sensitivity": 50, "start": "00:00:00"}]},
  "current_basal": 1.0
}`

func TestTransformComposite(t *testing.T) {
	got, err := TransformComposite(decode(t, compositeProfile), MustFactor(0.8))
	require.NoError(t, err)

	want := `{
  "dia": 6,
  "max_iob": 4,
  "basalprofile": [{"i": 0, "minutes": 0, "rate": 0.8, "start": "00:00:00"}],
  "carb_ratios": {"units": "grams", "schedule": [{"i": 0, "offset": 0, "ratio": 12.5, "start": "00:00:00"}]},
  "isfProfile": {"units": "mg/dL", "sensitivities": [{"i": 0, "offset": 0, "sensitivity": 63, "start": "00:00:00"}]},
  "current_basal": 1.0
}`
	if diff := cmp.Diff(encode(t, decode(t, want)), encode(t, got)); diff != "" {
		t.Errorf("TransformComposite() mismatch (-want +got):\n%s", diff)
	}
}

func TestTransforms_IdentityAtFactorOne(t *testing.T) {
	docs := []struct {
		name      string
		in        string
		transform TransformFunc
	}{
		{"basal", `[{"rate": 0.85}, {"rate": 1.0}, {"rate": 0.05}]`, TransformBasal},
		{"carb ratios", `{"schedule":[{"ratio": 10}, {"ratio": 12.5}, {"ratio": 7.3}]}`, TransformCarbRatios},
		{"mg/dL sensitivities", `{"units":"mg/dL","sensitivities":[{"sensitivity":45},{"sensitivity":63}]}`, TransformSensitivities},
		{"mmol/L sensitivities", `{"units":"mmol/L","sensitivities":[{"sensitivity":2.5},{"sensitivity":3.0}]}`, TransformSensitivities},
		{"composite", compositeProfile, TransformComposite},
	}
	for _, d := range docs {
		t.Run(d.name, func(t *testing.T) {
			got, err := d.transform(decode(t, d.in), MustFactor(1.0))
			require.NoError(t, err)
			if diff := cmp.Diff(decode(t, d.in), got); diff != "" {
				t.Errorf("factor 1.0 changed the document (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransforms_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		transform TransformFunc
	}{
		{"basal not a list", `{"rate": 1}`, TransformBasal},
		{"basal entry without rate", `[{"start": "00:00:00"}]`, TransformBasal},
		{"basal rate is a string", `[{"rate": "1.0"}]`, TransformBasal},
		{"basal entry not an object", `[1.0]`, TransformBasal},
		{"carb ratios without schedule", `{"units": "grams"}`, TransformCarbRatios},
		{"carb schedule not a list", `{"schedule": {"ratio": 10}}`, TransformCarbRatios},
		{"carb entry without ratio", `{"schedule": [{"start": "00:00:00"}]}`, TransformCarbRatios},
		{"sensitivities without units", `{"sensitivities": [{"sensitivity": 50}]}`, TransformSensitivities},
		{"sensitivities without list", `{"units": "mg/dL"}`, TransformSensitivities},
		{"sensitivity is null", `{"units": "mg/dL", "sensitivities": [{"sensitivity": null}]}`, TransformSensitivities},
		{"composite without isfProfile", `{"basalprofile": [], "carb_ratios": {"schedule": []}}`, TransformComposite},
		{"composite part malformed", `{"basalprofile": [{}], "carb_ratios": {"schedule": []}, "isfProfile": {"units": "mg/dL", "sensitivities": []}}`, TransformComposite},
		{"composite is a list", `[]`, TransformComposite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.transform(decode(t, tt.in), MustFactor(0.8))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEncode_Format(t *testing.T) {
	got, err := TransformBasal(decode(t, `[{"rate": 1.0}]`), MustFactor(0.8))
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"rate\": 0.8\n  }\n]\n", encode(t, got))

	doc := map[string]any{"note": "a<b & c>d", "n": json.Number("1.50")}
	assert.Equal(t, "{\n  \"n\": 1.50,\n  \"note\": \"a<b & c>d\"\n}\n", encode(t, doc))
}

func TestDecode_Errors(t *testing.T) {
	for _, in := range []string{``, `   `, `{"rate": }`, `[1, 2`, `{} {}`, `[] x`} {
		_, err := Decode([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
	_, err := Decode([]byte("[{\"rate\": 1.0, \"name\": \"caf\xe9\"}]"))
	assert.ErrorContains(t, err, "UTF-8")

	_, err = Decode([]byte("  [1]\n\n"))
	assert.NoError(t, err)
}
