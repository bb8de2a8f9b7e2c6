package sensor

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-sensorgw/internal/metadata"
)

func TestFactory_CreatesAttributes(t *testing.T) {
	var f metadata.AttributeFactory = Factory{}

	attr, ok := f.Create("co2").(*Attribute)
	require.True(t, ok)
	assert.Equal(t, "co2", attr.Name())
}

func TestReading_Process(t *testing.T) {
	received := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewReading("dev-1", map[string]any{
		"temperature": 215.0,
		"humidity":    "140",
		"ignored":     1,
	}, received)

	temp := NewAttribute("temperature")
	temp.AddConverter(ConvertScale, "0.1")
	hum := NewAttribute("humidity")
	hum.AddValidator(ValidateMax, "100")
	co2 := NewAttribute("co2")
	r.SetAttributes([]metadata.SensorAttribute{temp, hum, co2})

	res := r.Process()

	assert.Equal(t, map[string]float64{"temperature": 21.5}, res.Values)
	require.Len(t, res.Rejected, 2)
	assert.True(t, errors.Is(res.Rejected["humidity"], ErrValidation))
	assert.True(t, errors.Is(res.Rejected["co2"], ErrMissingValue))
	assert.Equal(t, received, res.Timestamp)

	assert.Equal(t, map[string]any{
		"temperature":  21.5,
		TimestampField: received.Unix(),
	}, r.Data())
}

func TestReading_PayloadTimestampWins(t *testing.T) {
	r := NewReading("dev-1", map[string]any{"timestamp": 1767225600.5}, time.Now())

	res := r.Process()
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 500_000_000, time.UTC), res.Timestamp)
	assert.Equal(t, int64(1767225600), r.Data()[TimestampField])
}

func TestReading_OutOfRangeTimestampUsesReceiveTime(t *testing.T) {
	received := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  any
	}{
		{"huge", 1e300},
		{"just past the limit", float64(maxTimestamp) * 2},
		{"infinite", math.Inf(1)},
		{"not a number", math.NaN()},
		{"negative", -5.0},
		{"zero", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReading("dev-1", map[string]any{TimestampField: tt.raw}, received)
			res := r.Process()
			assert.Equal(t, received, res.Timestamp)
			assert.Equal(t, received.Unix(), r.Data()[TimestampField])
		})
	}
}

func TestReading_Accessors(t *testing.T) {
	received := time.Now()
	r := NewReading("dev-9", nil, received)

	assert.Equal(t, metadata.DeviceID("dev-9"), r.DeviceID())
	assert.NotNil(t, r.Data())
	assert.Equal(t, received, r.Received())
	assert.Empty(t, r.Attributes())

	attrs := []metadata.SensorAttribute{NewAttribute("a")}
	r.SetAttributes(attrs)
	assert.Equal(t, attrs, r.Attributes())
}
