// Package gateway is the ingestion host: it turns raw device payloads
// arriving over MQTT into processed readings.
//
// For every message on sensorgw/ingest/<device> the gateway
//
//  1. decodes {"token": "...", "auth": {...}, "data": {...}}
//  2. authenticates the token when the deployment requires it
//  3. resolves the device's attribute metadata (cached)
//  4. applies converters, calibrators and validators to the data
//  5. persists the processed values, mirrors them to InfluxDB and
//     publishes them on sensorgw/processed/<device>
//
// A failing step drops the event. The failure is logged, counted, written
// to the audit log and announced on sensorgw/rejected/<device>.
package gateway
