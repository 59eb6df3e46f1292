// Package backend provides the interchangeable cache backends the calendar
// summary cache stores its entries in: an in-process LRU map, a redis-backed
// distributed store, and file persistence.
//
// All backends share one contract. Lookups return a miss instead of an
// error: a backend that is down, slow, or holds a corrupt entry must never
// fail the read path, because the authoritative mailbox recompute is always
// available as a fallback. Write and remove failures are logged and
// swallowed for the same reason. Which backend serves which cache kind is a
// deployment-time wiring choice, not a runtime branch.
package backend

import "context"

// Key constrains cache key types: small comparable value structs that can
// name their account (for per-account eviction) and render a stable string
// form (for backends addressing entries by string).
type Key interface {
	comparable
	AccountID() string
	StorageKey() string
}

// Store is the common get/put/remove contract all backends expose.
type Store[K Key, V any] interface {
	// Get returns the cached value for key, or a miss.
	Get(ctx context.Context, key K) (V, bool)
	// GetAll performs a batched lookup; the result holds an entry per hit.
	GetAll(ctx context.Context, keys []K) map[K]V
	// Put stores value under key, replacing any previous entry.
	Put(ctx context.Context, key K, value V)
	// Remove evicts key if present.
	Remove(ctx context.Context, key K)
	// RemoveAll evicts every listed key.
	RemoveAll(ctx context.Context, keys []K)
	// RemoveAccount evicts every entry belonging to the account.
	RemoveAccount(ctx context.Context, accountID string)
}
