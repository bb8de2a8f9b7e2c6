package sensor

import (
	"math"
	"time"

	"github.com/nerrad567/gray-logic-sensorgw/internal/metadata"
)

// TimestampField is the data key holding the reading time in Unix seconds.
const TimestampField = "timestamp"

// maxTimestamp is the largest payload timestamp, in seconds, that still fits
// a nanosecond Unix time. Larger values fall back to the receive time.
const maxTimestamp = math.MaxInt64 / int64(time.Second)

// Factory creates Attributes. It implements metadata.AttributeFactory.
type Factory struct{}

// Create implements metadata.AttributeFactory.
func (Factory) Create(name string) metadata.SensorAttribute {
	return NewAttribute(name)
}

// Reading is one ingest event for one device.
type Reading struct {
	id       metadata.DeviceID
	data     map[string]any
	attrs    []metadata.SensorAttribute
	received time.Time
}

var _ metadata.DeviceData = (*Reading)(nil)

// NewReading wraps a raw payload received at the given time.
func NewReading(id metadata.DeviceID, data map[string]any, received time.Time) *Reading {
	if data == nil {
		data = map[string]any{}
	}
	return &Reading{id: id, data: data, received: received}
}

// DeviceID implements metadata.DeviceData.
func (r *Reading) DeviceID() metadata.DeviceID { return r.id }

// Data implements metadata.DeviceData. Before Process it is the raw
// payload; afterwards it holds the processed values and the timestamp.
func (r *Reading) Data() map[string]any { return r.data }

// SetAttributes implements metadata.DeviceData.
func (r *Reading) SetAttributes(attrs []metadata.SensorAttribute) { r.attrs = attrs }

// Attributes returns the attributes set by the resolver.
func (r *Reading) Attributes() []metadata.SensorAttribute { return r.attrs }

// Received returns the time the payload arrived.
func (r *Reading) Received() time.Time { return r.received }

// Result is the outcome of Process.
type Result struct {
	Values    map[string]float64
	Rejected  map[string]error
	Timestamp time.Time
}

// Process applies every attribute to the payload value under its name.
// Payload keys without an attribute are dropped. Afterwards Data holds the
// accepted values plus TimestampField.
func (r *Reading) Process() Result {
	res := Result{
		Values:    make(map[string]float64, len(r.attrs)),
		Rejected:  make(map[string]error),
		Timestamp: r.timestamp(),
	}

	for _, sa := range r.attrs {
		attr, ok := sa.(*Attribute)
		if !ok {
			continue
		}
		raw, present := r.data[attr.Name()]
		if !present {
			res.Rejected[attr.Name()] = ErrMissingValue
			continue
		}
		v, err := attr.Apply(raw)
		if err != nil {
			res.Rejected[attr.Name()] = err
			continue
		}
		res.Values[attr.Name()] = v
	}

	data := make(map[string]any, len(res.Values)+1)
	for k, v := range res.Values {
		data[k] = v
	}
	data[TimestampField] = res.Timestamp.Unix()
	r.data = data
	return res
}

// timestamp prefers a numeric timestamp in the payload over the receive time.
func (r *Reading) timestamp() time.Time {
	if raw, ok := r.data[TimestampField]; ok {
		if secs, err := toFloat(raw); err == nil && secs > 0 && secs <= float64(maxTimestamp) {
			whole := int64(secs)
			return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC()
		}
	}
	return r.received.UTC()
}
