// Package storage persists processed device data.
//
// Two Persisters are provided. Unsupported rejects every call with
// ErrNotSupported and is the default for deployments that only forward
// readings. Upserter merges a device's current data mapping into one row per
// device, keyed by the device id.
package storage
