// Package auth checks ingest and API tokens against the user store.
//
// A token is valid when a single templated query joining users and
// user_tokens returns a row. The row is returned as-is so deployments can
// select whatever user columns they need through a template override.
// Tokens are compared verbatim by the query; this package never hashes or
// parses them.
package auth
