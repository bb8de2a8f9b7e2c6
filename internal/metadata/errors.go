package metadata

import "errors"

var (
	// ErrNoMetadata is returned when a device resolves to zero attributes.
	ErrNoMetadata = errors.New("metadata: no metadata for device")

	// ErrCompilation is returned when a calibrator expression does not parse.
	ErrCompilation = errors.New("metadata: calibrator compilation failed")
)
