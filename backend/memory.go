package backend

import (
	"container/list"
	"context"
	"sync"
)

// Memory is the in-process backend: a map guarded by a single mutex, with
// optional least-recently-used eviction and a secondary accountID → keys
// index so "evict everything for this account" and "which cached entries
// does this account have" stay O(#keys-for-account) instead of O(#entries).
type Memory[K Key, V any] struct {
	mu        sync.Mutex
	capacity  int
	lru       *list.List // front = most recently used; element value is *memEntry[K, V]
	entries   map[K]*list.Element
	byAccount map[string]map[K]struct{}

	hits      int64
	misses    int64
	evictions int64
}

type memEntry[K Key, V any] struct {
	key   K
	value V
}

// NewMemory creates an in-process store. A capacity of zero or less means
// unbounded.
func NewMemory[K Key, V any](capacity int) *Memory[K, V] {
	return &Memory[K, V]{
		capacity:  capacity,
		lru:       list.New(),
		entries:   make(map[K]*list.Element),
		byAccount: make(map[string]map[K]struct{}),
	}
}

// Get implements Store.
func (m *Memory[K, V]) Get(ctx context.Context, key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	elem, ok := m.entries[key]
	if !ok {
		m.misses++
		var zero V
		return zero, false
	}
	m.hits++
	m.lru.MoveToFront(elem)
	return elem.Value.(*memEntry[K, V]).value, true
}

// GetAll implements Store.
func (m *Memory[K, V]) GetAll(ctx context.Context, keys []K) map[K]V {
	out := make(map[K]V, len(keys))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		elem, ok := m.entries[key]
		if !ok {
			m.misses++
			continue
		}
		m.hits++
		m.lru.MoveToFront(elem)
		out[key] = elem.Value.(*memEntry[K, V]).value
	}
	return out
}

// Put implements Store.
func (m *Memory[K, V]) Put(ctx context.Context, key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if elem, ok := m.entries[key]; ok {
		elem.Value.(*memEntry[K, V]).value = value
		m.lru.MoveToFront(elem)
		return
	}
	elem := m.lru.PushFront(&memEntry[K, V]{key: key, value: value})
	m.entries[key] = elem
	acct := key.AccountID()
	if m.byAccount[acct] == nil {
		m.byAccount[acct] = make(map[K]struct{})
	}
	m.byAccount[acct][key] = struct{}{}
	if m.capacity > 0 {
		for len(m.entries) > m.capacity {
			m.evictOldest()
		}
	}
}

// evictOldest removes the back of the LRU list. Caller holds the lock.
func (m *Memory[K, V]) evictOldest() {
	back := m.lru.Back()
	if back == nil {
		return
	}
	m.evictions++
	m.removeLocked(back.Value.(*memEntry[K, V]).key)
}

// Remove implements Store.
func (m *Memory[K, V]) Remove(ctx context.Context, key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key)
}

// RemoveAll implements Store.
func (m *Memory[K, V]) RemoveAll(ctx context.Context, keys []K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		m.removeLocked(key)
	}
}

// RemoveAccount implements Store.
func (m *Memory[K, V]) RemoveAccount(ctx context.Context, accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.byAccount[accountID] {
		m.removeLocked(key)
	}
}

func (m *Memory[K, V]) removeLocked(key K) {
	elem, ok := m.entries[key]
	if !ok {
		return
	}
	m.lru.Remove(elem)
	delete(m.entries, key)
	acct := key.AccountID()
	if keys := m.byAccount[acct]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(m.byAccount, acct)
		}
	}
}

// AccountKeys returns a snapshot of the keys cached for the account, in no
// particular order. The invalidation listeners use it to find which cached
// folder holds a changed item.
func (m *Memory[K, V]) AccountKeys(accountID string) []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]K, 0, len(m.byAccount[accountID]))
	for key := range m.byAccount[accountID] {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of cached entries.
func (m *Memory[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MemoryStats reports counters since creation.
type MemoryStats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Stats returns a snapshot of the store's counters.
func (m *Memory[K, V]) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoryStats{
		Entries:   len(m.entries),
		Hits:      m.hits,
		Misses:    m.misses,
		Evictions: m.evictions,
	}
}
