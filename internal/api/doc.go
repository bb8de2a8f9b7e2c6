// Package api is the gateway's HTTP interface.
//
// It exposes health and Prometheus metrics for operators, lets an
// authenticated caller inspect the attribute metadata resolved for a device
// and drop its cache entry, and lists the audit trail of rejected ingest
// events.
//
//	GET    /api/v1/health
//	GET    /metrics
//	GET    /api/v1/devices/{id}/metadata   (Bearer token)
//	DELETE /api/v1/devices/{id}/metadata   (Bearer token)
//	GET    /api/v1/audit                   (Bearer token)
//
// Tokens are the same user_tokens rows that ingest events authenticate
// with.
package api
