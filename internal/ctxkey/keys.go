// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger.
// Used by HTTP middleware to store and retrieve the logger with request_id fields.
type LoggerKey struct{}

// UserKey is the context key type for the authenticated user's claims.
// Set by the auth middleware after validating the bearer token.
type UserKey struct{}

// ClientIPKey is the context key type for the client's resolved IP address.
// Set by the real-IP middleware, consumed by rate-limit identity resolution.
type ClientIPKey struct{}
