package gateway

import "errors"

var (
	// ErrInvalidTopic indicates a message arrived on a topic that names no device.
	ErrInvalidTopic = errors.New("gateway: invalid ingest topic")

	// ErrInvalidPayload indicates the message body could not be decoded.
	ErrInvalidPayload = errors.New("gateway: invalid payload")

	// ErrOverloaded indicates the event queue was full and the event was dropped.
	ErrOverloaded = errors.New("gateway: ingest queue full")

	// ErrStopped indicates the gateway is no longer accepting events.
	ErrStopped = errors.New("gateway: stopped")
)
