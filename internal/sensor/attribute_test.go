package sensor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-sensorgw/internal/calibration"
)

func mustCompile(t *testing.T, src string) calibration.Func {
	t.Helper()
	fn, err := calibration.Compile(src)
	require.NoError(t, err)
	return fn
}

func TestAttribute_ApplyOrder(t *testing.T) {
	a := NewAttribute("temperature")
	a.AddConverter(ConvertScale, "0.1")
	a.AddConverter(ConvertOffset, "-40")
	a.AddCalibrator(mustCompile(t, "value * 2"))
	a.AddCalibrator(mustCompile(t, "value + 1"))
	a.AddValidator(ValidateRange, "-40,85")

	// ((650 * 0.1) - 40) * 2 + 1
	v, err := a.Apply(650)
	require.NoError(t, err)
	assert.InDelta(t, 51.0, v, 1e-9)
}

func TestAttribute_Converters(t *testing.T) {
	tests := []struct {
		kind, value string
		in, want    float64
	}{
		{ConvertScale, "2", 3, 6},
		{ConvertOffset, "-1.5", 3, 1.5},
		{ConvertDivide, "4", 10, 2.5},
		{ConvertRound, "", 2.5, 3},
		{ConvertRound, "2", 3.14159, 3.14},
		{ConvertAbs, "", -7, 7},
		{ConvertNumber, "", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"_"+tt.value, func(t *testing.T) {
			a := NewAttribute("x")
			a.AddConverter(tt.kind, tt.value)
			got, err := a.Apply(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAttribute_Validators(t *testing.T) {
	tests := []struct {
		kind, value string
		in          float64
		ok          bool
	}{
		{ValidateMin, "0", 0, true},
		{ValidateMin, "0", -0.1, false},
		{ValidateMax, "100", 100, true},
		{ValidateMax, "100", 100.5, false},
		{ValidateRange, "0, 10", 5, true},
		{ValidateRange, "0,10", 11, false},
		{ValidateNotEqual, "-999", -999, false},
		{ValidateNotEqual, "-999", 1, true},
	}

	for _, tt := range tests {
		a := NewAttribute("x")
		a.AddValidator(tt.kind, tt.value)
		_, err := a.Apply(tt.in)
		if tt.ok {
			assert.NoError(t, err, "%s %s %v", tt.kind, tt.value, tt.in)
		} else {
			assert.ErrorIs(t, err, ErrValidation, "%s %s %v", tt.kind, tt.value, tt.in)
		}
	}
}

func TestAttribute_BadSpecsReported(t *testing.T) {
	tests := []struct {
		name  string
		build func(a *Attribute)
		want  error
	}{
		{"unknown converter", func(a *Attribute) { a.AddConverter("log", "") }, ErrUnknownConverter},
		{"bad scale", func(a *Attribute) { a.AddConverter(ConvertScale, "abc") }, ErrBadArgument},
		{"divide by zero", func(a *Attribute) { a.AddConverter(ConvertDivide, "0") }, ErrBadArgument},
		{"unknown validator", func(a *Attribute) { a.AddValidator("regex", ".*") }, ErrUnknownValidator},
		{"bad range", func(a *Attribute) { a.AddValidator(ValidateRange, "5") }, ErrBadArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAttribute("x")
			tt.build(a)
			_, err := a.Apply(1)
			assert.ErrorIs(t, err, tt.want)
			assert.Len(t, a.Describe().Problems, 1)
		})
	}
}

func TestAttribute_RawValues(t *testing.T) {
	tests := []struct {
		raw     any
		want    float64
		wantErr bool
	}{
		{21.5, 21.5, false},
		{float32(1.5), 1.5, false},
		{7, 7, false},
		{int64(8), 8, false},
		{true, 1, false},
		{json.Number("3.25"), 3.25, false},
		{" 12 ", 12, false},
		{"warm", 0, true},
		{nil, 0, true},
		{[]int{1}, 0, true},
	}

	for _, tt := range tests {
		got, err := NewAttribute("x").Apply(tt.raw)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrNotNumeric, "%v", tt.raw)
			continue
		}
		require.NoError(t, err, "%v", tt.raw)
		assert.InDelta(t, tt.want, got, 1e-9)
	}
}

func TestAttribute_NonFiniteRejected(t *testing.T) {
	a := NewAttribute("x")
	a.AddCalibrator(mustCompile(t, "1 / value"))

	_, err := a.Apply(0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAttribute_Describe(t *testing.T) {
	a := NewAttribute("humidity")
	a.AddConverter(ConvertRound, "1")
	a.AddCalibrator(mustCompile(t, "value"))
	a.AddCalibrator(nil)
	a.AddValidator(ValidateRange, "0,100")

	d := a.Describe()
	assert.Equal(t, "humidity", d.Name)
	assert.Equal(t, []Spec{{Kind: "round", Value: "1"}}, d.Converters)
	assert.Equal(t, 1, d.Calibrators)
	assert.Equal(t, []Spec{{Kind: "range", Value: "0,100"}}, d.Validators)
	assert.Empty(t, d.Problems)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"name":"humidity","converters":[{"kind":"round","value":"1"}],"calibrators":1,"validators":[{"kind":"range","value":"0,100"}]}`,
		string(b))
}
