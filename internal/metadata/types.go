package metadata

import (
	"github.com/nerrad567/gray-logic-sensorgw/internal/calibration"
)

// DeviceID identifies a device in the store (devices.udid).
type DeviceID string

// SensorAttribute is the host's attribute instance. The resolver attaches
// specs to it in store order.
type SensorAttribute interface {
	AddConverter(kind, value string)
	AddCalibrator(fn calibration.Func)
	AddValidator(kind, value string)
}

// AttributeFactory builds attribute instances by name.
type AttributeFactory interface {
	Create(name string) SensorAttribute
}

// DeviceData is the host's per-event device handle.
type DeviceData interface {
	DeviceID() DeviceID
	Data() map[string]any
	SetAttributes(attrs []SensorAttribute)
}

// ConverterSpec is one converters row.
type ConverterSpec struct {
	Kind  string
	Value string
}

// CalibratorSpec is one calibrators row and its compiled form.
type CalibratorSpec struct {
	Expression string
	Func       calibration.Func
}

// ValidatorSpec is one validators row.
type ValidatorSpec struct {
	Kind  string
	Value string
}

// AttributeDefinition is an attribute as read from the store, before it is
// turned into a SensorAttribute.
type AttributeDefinition struct {
	ID          any
	Name        string
	Converters  []ConverterSpec
	Calibrators []CalibratorSpec
	Validators  []ValidatorSpec
}

// Logger is the logging surface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
