package store

import "errors"

// ErrQuery wraps every failure raised while executing a statement.
var ErrQuery = errors.New("store: query failed")
