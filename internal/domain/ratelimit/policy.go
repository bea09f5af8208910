// Package ratelimit implements sliding-window rate limiting backed by the
// shared key-value store.
package ratelimit

import (
	"fmt"
	"time"
)

// Class is the operation class of a request. Each class has its own window
// and budget; unknown classes fall back to ClassAPI.
type Class string

const (
	ClassAuth     Class = "auth"
	ClassLogin    Class = "login"
	ClassAPI      Class = "api"
	ClassCRUD     Class = "crud"
	ClassIncident Class = "incident"
	ClassLogs     Class = "logs"
	ClassBulk     Class = "bulk"
)

// Policy defines the sliding window for one operation class.
type Policy struct {
	// Window is the length of the sliding window.
	Window time.Duration

	// MaxRequests is the number of attempts permitted inside the window.
	// Rejected attempts occupy a slot too: the limiter caps total attempt
	// volume, not just admitted requests.
	MaxRequests int
}

// policies is the static class -> policy table. Loaded once at process
// start and never mutated, so no synchronization is needed around it.
var policies = map[Class]Policy{
	ClassAuth:     {Window: 15 * time.Minute, MaxRequests: 5},
	ClassLogin:    {Window: 15 * time.Minute, MaxRequests: 3},
	ClassAPI:      {Window: time.Minute, MaxRequests: 100},
	ClassCRUD:     {Window: time.Minute, MaxRequests: 50},
	ClassIncident: {Window: time.Minute, MaxRequests: 10},
	ClassLogs:     {Window: time.Minute, MaxRequests: 200},
	ClassBulk:     {Window: time.Minute, MaxRequests: 5},
}

// PolicyFor returns the policy for the given class.
// Unknown classes map to the default API policy; this is never an error.
func PolicyFor(class Class) Policy {
	if p, ok := policies[class]; ok {
		return p
	}
	return policies[ClassAPI]
}

// keyPrefix is the base prefix for all rate limit keys.
const keyPrefix = "ratelimit"

// FormatKey returns the store key for a (class, identity) pair.
// Format: "ratelimit:{class}:{identity}"
// Example: FormatKey(ClassLogin, "u1") -> "ratelimit:login:u1"
func FormatKey(class Class, identity string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, class, identity)
}

// AnonymousIdentity is the fixed token used when neither an authenticated
// user ID nor a client IP is available.
const AnonymousIdentity = "anonymous"

// ResolveIdentity picks the rate-limit identity for a request: the
// authenticated user's stable ID when present, otherwise the client IP,
// otherwise a fixed anonymous token. Unauthenticated callers behind the
// same address share one budget; that is a known limitation, not a bug.
func ResolveIdentity(userID, ip string) string {
	if userID != "" {
		return userID
	}
	if ip != "" {
		return ip
	}
	return AnonymousIdentity
}
