// Package cache implements the read-through cache and its key space.
package cache

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// TTLs per query shape. Lists turn over faster than details; identity
// lookups are the most stable.
const (
	TTLList     = 300 * time.Second
	TTLDetail   = 600 * time.Second
	TTLIdentity = 3600 * time.Second
)

// ListParams captures every parameter that affects a list query's result.
// Two requests with identical effective parameters hash to the same key;
// any differing parameter produces a different key.
type ListParams struct {
	Page     int
	PageSize int
	Filters  map[string]string
}

// encode renders the params as "k=v" pairs in a stable order.
func (p ListParams) encode() string {
	pairs := make([]string, 0, len(p.Filters)+2)
	pairs = append(pairs,
		fmt.Sprintf("page=%d", p.Page),
		fmt.Sprintf("page_size=%d", p.PageSize),
	)
	for k, v := range p.Filters {
		if v == "" {
			continue
		}
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

// hash returns the xxhash of the encoded params in hex.
func (p ListParams) hash() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(p.encode()))
}

// DetailKey is the cache key for a single resource by ID.
// Format: "<resource>:id:<id>".
func DetailKey(resource, id string) string {
	return resource + ":id:" + id
}

// ListKey is the cache key for a filtered, paginated list query.
// Format: "<resource>:all:<param-hash>".
func ListKey(resource string, params ListParams) string {
	return resource + ":all:" + params.hash()
}

// ListFamily is the invalidation pattern covering every list key of a
// resource. Clearing the whole family over-invalidates rather than tracking
// which filters could have matched a written record.
func ListFamily(resource string) string {
	return resource + ":all:*"
}

// IndexKey is the cache key for a secondary-index list query, e.g. actions
// by incident. Format: "<resource>:<index>:<value>:<param-hash>".
func IndexKey(resource, index, value string, params ListParams) string {
	return fmt.Sprintf("%s:%s:%s:%s", resource, index, value, params.hash())
}

// IndexFamily is the invalidation pattern for one secondary-index value.
func IndexFamily(resource, index, value string) string {
	return fmt.Sprintf("%s:%s:%s:*", resource, index, value)
}

// IdentityKey is the cache key for an authenticated identity lookup.
func IdentityKey(userID string) string {
	return "identity:id:" + userID
}
