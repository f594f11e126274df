// Package cache is the in-memory reference-value store used by the
// comparison service. Entries expire after a TTL; the clock is injectable
// so tests can control expiry.
package cache

import (
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Clock abstracts time.Now for tests.
type Clock func() time.Time

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Store is a TTL key-value cache safe for concurrent callers. Lookups take
// a read lock only; at-most-one-recompute-per-key is not enforced, since a
// duplicate concurrent recompute produces the same value anyway.
type Store struct {
	ttl     time.Duration
	clock   Clock
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates a Store with the given TTL. A nil clock defaults to time.Now.
func New(ttl time.Duration, clock Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// Key builds a deterministic cache key from the query dimensions. The parts
// are pipe-joined and FNV-64 hashed to bound key size.
func Key(parts ...string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.Join(parts, "|")))
	return strconv.FormatUint(h.Sum64(), 16)
}

// Get returns the cached value for key, or false on a miss or an expired
// entry. A miss is control flow, not an error.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || s.clock().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the store TTL.
func (s *Store) Set(key string, value interface{}) {
	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: s.clock().Add(s.ttl)}
	s.mu.Unlock()
}

// GetOrCompute returns the cached value for key, computing and caching it
// on a miss. A compute error is returned without caching; a second caller
// racing on the same key may recompute, which is acceptable.
func (s *Store) GetOrCompute(key string, compute func() (interface{}, error)) (interface{}, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}
	s.Set(key, v)
	return v, nil
}

// Purge drops expired entries. Called opportunistically by the scheduler.
func (s *Store) Purge() int {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of live plus expired entries currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
