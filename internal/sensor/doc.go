// Package sensor holds the gateway's attribute and reading types.
//
// Attribute and Reading implement the metadata package's SensorAttribute and
// DeviceData contracts. An Attribute turns one raw payload value into a
// number by running its converters, then its calibrators, then checking its
// validators, each chain in the order the store declared it.
package sensor
