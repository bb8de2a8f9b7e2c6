// Package influxdb mirrors processed sensor readings into InfluxDB.
//
// It wraps the influxdb-client-go v2 non-blocking write API. Every reading
// that survives conversion, calibration and validation becomes one point in
// the sensor_reading measurement, tagged with the device identifier and
// carrying one float field per attribute.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading("dev-42", map[string]float64{"temperature": 21.5}, ts)
//
// Writes are batched and sent asynchronously. Failures are delivered through
// the callback registered with SetOnError; Connect and HealthCheck return
// their errors directly.
package influxdb
