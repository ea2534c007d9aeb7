package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
)

func testTemplate() Template {
	return Template{
		{Name: "period", Kind: ParamInt, Default: 14, Min: 2, Max: 100},
		{Name: "multiplier", Kind: ParamFloat, Default: 3.0, Min: 0.5, Max: 10},
		{Name: "enabled", Kind: ParamBool, Default: true},
		{Name: "mode", Kind: ParamEnum, Default: "fast", Values: []string{"fast", "slow"}},
	}
}

// TestTemplate_DefaultsValidate tests that every default passes its own template
func TestTemplate_DefaultsValidate(t *testing.T) {
	tmpl := testTemplate()
	normalized, err := tmpl.Validate(tmpl.Defaults())
	require.NoError(t, err)
	assert.Equal(t, 14, normalized["period"])
	assert.Equal(t, 3.0, normalized["multiplier"])
	assert.Equal(t, true, normalized["enabled"])
	assert.Equal(t, "fast", normalized["mode"])
}

// TestTemplate_FillsMissingWithDefaults tests partial parameter maps
func TestTemplate_FillsMissingWithDefaults(t *testing.T) {
	normalized, err := testTemplate().Validate(map[string]any{"period": 20})
	require.NoError(t, err)
	assert.Equal(t, 20, normalized["period"])
	assert.Equal(t, 3.0, normalized["multiplier"])
}

// TestTemplate_OutOfRangeNamesParameter tests that the error names the bad key
func TestTemplate_OutOfRangeNamesParameter(t *testing.T) {
	_, err := testTemplate().Validate(map[string]any{"period": 500})
	require.Error(t, err)
	assert.Equal(t, enginerr.KindParameterValidation, enginerr.KindOf(err))
	assert.Contains(t, err.Error(), "period")
}

// TestTemplate_CollectsAllProblems tests that every offending field is reported at once
func TestTemplate_CollectsAllProblems(t *testing.T) {
	_, err := testTemplate().Validate(map[string]any{
		"period":     1,
		"multiplier": 99.0,
		"mode":       "turbo",
		"bogus":      5,
	})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "period")
	assert.Contains(t, msg, "multiplier")
	assert.Contains(t, msg, "mode")
	assert.Contains(t, msg, "bogus")
}

// TestTemplate_JSONFloatForInt tests that a whole float64 is accepted for an int param
func TestTemplate_JSONFloatForInt(t *testing.T) {
	normalized, err := testTemplate().Validate(map[string]any{"period": float64(21)})
	require.NoError(t, err)
	assert.Equal(t, 21, normalized["period"])
}

// TestTemplate_FractionalFloatForInt tests rejection of a fractional value for an int param
func TestTemplate_FractionalFloatForInt(t *testing.T) {
	_, err := testTemplate().Validate(map[string]any{"period": 14.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "period")
}

// TestTemplate_WrongType tests type mismatches
func TestTemplate_WrongType(t *testing.T) {
	_, err := testTemplate().Validate(map[string]any{"enabled": "yes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enabled")
}

// TestTemplate_EnumValues tests enum membership checks
func TestTemplate_EnumValues(t *testing.T) {
	normalized, err := testTemplate().Validate(map[string]any{"mode": "slow"})
	require.NoError(t, err)
	assert.Equal(t, "slow", normalized["mode"])

	_, err = testTemplate().Validate(map[string]any{"mode": "medium"})
	require.Error(t, err)
}
