// Package metadata resolves the attribute list of a sensor device.
//
// A device's metadata is a sequence of named attributes, each carrying an
// ordered chain of converters, calibrators and validators. The Resolver
// fetches it from the relational store in four sequential stages:
//
//	S1  list the device's attributes
//	S2  converters for every attribute (fanned out, one query each)
//	S3  calibrators for every attribute (fanned out, compiled on arrival)
//	S4  validators for every attribute (fanned out)
//
// and then assembles attribute instances through the host's
// AttributeFactory in S1 order. A device with N attributes costs exactly
// 1 + 3N queries. The first failure in any stage aborts the resolution.
//
// Service sits in front of the Resolver with a per-device TTL cache. A cache
// hit hands the cached instances to the DeviceData handle without touching
// the store. On failure the handle and cache are left as they were.
package metadata
