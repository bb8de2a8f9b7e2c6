package calibration

import "errors"

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("calibration: syntax error")
