package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// IngestMessage is what a device publishes to sensorgw/ingest/<device>.
type IngestMessage struct {
	// Token is looked up by the authorization query.
	Token string `json:"token"`

	// Auth holds extra credential fields passed to the authorization
	// query alongside the token.
	Auth map[string]string `json:"auth,omitempty"`

	// Data maps attribute names to raw values. An optional "timestamp"
	// key carries the reading time in Unix seconds.
	Data map[string]any `json:"data"`
}

// ProcessedMessage is published to sensorgw/processed/<device>.
type ProcessedMessage struct {
	ID        string             `json:"id"`
	DeviceID  string             `json:"device_id"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
	Rejected  map[string]string  `json:"rejected,omitempty"`
}

// RejectedMessage is published to sensorgw/rejected/<device> when an event
// is dropped.
type RejectedMessage struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Code      string    `json:"code"`
	Reason    string    `json:"reason"`
}

// Rejection codes.
const (
	CodeInvalidPayload = "invalid_payload"
	CodeUnauthorized   = "unauthorized"
	CodeNoMetadata     = "no_metadata"
	CodeMetadataFailed = "metadata_failed"
	CodeStoreFailed    = "store_failed"
)

// decodeIngest parses payload keeping numbers as json.Number so integer
// readings survive unchanged.
func decodeIngest(payload []byte) (IngestMessage, error) {
	var msg IngestMessage
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&msg); err != nil {
		return IngestMessage{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if msg.Data == nil {
		return IngestMessage{}, fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	return msg, nil
}
