// Package cache provides a small keyed store whose entries expire.
package cache

import (
	"sync"
	"time"
)

// TTLStore maps keys to values for a fixed lifetime. Expired entries are
// dropped lazily on access or in bulk by Evict.
type TTLStore[K comparable, V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[K]item[V]
}

type item[V any] struct {
	value   V
	expires time.Time
}

// New returns a store with the given lifetime. now may be nil.
func New[K comparable, V any](ttl time.Duration, now func() time.Time) *TTLStore[K, V] {
	if now == nil {
		now = time.Now
	}
	return &TTLStore[K, V]{ttl: ttl, now: now, items: make(map[K]item[V])}
}

func (s *TTLStore[K, V]) Put(k K, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[k] = item[V]{value: v, expires: s.now().Add(s.ttl)}
}

// Get returns the value for k if present and not expired.
func (s *TTLStore[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.lookup(k)
	return it.value, ok
}

// Take is Get followed by Delete, atomically.
func (s *TTLStore[K, V]) Take(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.lookup(k)
	if ok {
		delete(s.items, k)
	}
	return it.value, ok
}

func (s *TTLStore[K, V]) Delete(k K) {
	s.mu.Lock()
	delete(s.items, k)
	s.mu.Unlock()
}

// Evict removes every expired entry and returns how many were dropped.
func (s *TTLStore[K, V]) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, it := range s.items {
		if !now.Before(it.expires) {
			delete(s.items, k)
			n++
		}
	}
	return n
}

// Len counts entries including expired ones not yet evicted.
func (s *TTLStore[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *TTLStore[K, V]) lookup(k K) (item[V], bool) {
	it, ok := s.items[k]
	if !ok {
		return item[V]{}, false
	}
	if !s.now().Before(it.expires) {
		delete(s.items, k)
		return item[V]{}, false
	}
	return it, true
}
