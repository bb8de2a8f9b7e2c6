package sensor

import "errors"

var (
	// ErrUnknownConverter is reported for converter kinds this gateway does not implement.
	ErrUnknownConverter = errors.New("sensor: unknown converter")

	// ErrUnknownValidator is reported for validator kinds this gateway does not implement.
	ErrUnknownValidator = errors.New("sensor: unknown validator")

	// ErrBadArgument is reported when a converter or validator value does not parse.
	ErrBadArgument = errors.New("sensor: bad argument")

	// ErrNotNumeric is returned when a raw value cannot be read as a number.
	ErrNotNumeric = errors.New("sensor: value is not numeric")

	// ErrValidation is returned when a processed value fails a validator.
	ErrValidation = errors.New("sensor: validation failed")

	// ErrMissingValue marks attributes absent from the payload.
	ErrMissingValue = errors.New("sensor: value missing from payload")
)
