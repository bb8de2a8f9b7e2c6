package auth

import "errors"

// ErrNoUser is returned when no user matches the presented token.
var ErrNoUser = errors.New("auth: no user for token")
