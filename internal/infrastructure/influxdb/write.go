package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the gateway.
const (
	MeasurementReading   = "sensor_reading"
	MeasurementRejection = "sensor_rejection"
)

// WriteReading records the accepted attribute values of one reading.
// Nothing is written when values is empty or the client is closed.
func (c *Client) WriteReading(deviceID string, values map[string]float64, ts time.Time) {
	if !c.IsConnected() || len(values) == 0 {
		return
	}

	fields := make(map[string]interface{}, len(values))
	for name, v := range values {
		fields[name] = v
	}

	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementReading,
		map[string]string{"device_id": deviceID},
		fields,
		ts,
	))
}

// WriteRejection counts an attribute value that failed validation.
func (c *Client) WriteRejection(deviceID, attribute string, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementRejection,
		map[string]string{
			"device_id": deviceID,
			"attribute": attribute,
		},
		map[string]interface{}{"count": 1},
		ts,
	))
}
