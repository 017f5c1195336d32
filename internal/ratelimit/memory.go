// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count int
	reset time.Time
}

// MemoryStore keeps counters in process memory. It is only correct for a
// single instance; use RedisStore when running more than one.
type MemoryStore struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	counters  map[string]*counter
	lastPrune time.Time
	now       func() time.Time
}

// NewMemoryStore allows limit requests per key and window.
func NewMemoryStore(limit int, window time.Duration) *MemoryStore {
	return &MemoryStore{
		limit:    limit,
		window:   window,
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Allow implements Store.
func (s *MemoryStore) Allow(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)

	c, ok := s.counters[key]
	if !ok || !now.Before(c.reset) {
		c = &counter{reset: now.Add(s.window)}
		s.counters[key] = c
	}
	c.count++
	return c.count <= s.limit, nil
}

// Len returns the number of live counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// prune drops expired counters at most once per window. Callers hold mu.
func (s *MemoryStore) prune(now time.Time) {
	if now.Sub(s.lastPrune) < s.window {
		return
	}
	s.lastPrune = now
	for key, c := range s.counters {
		if !now.Before(c.reset) {
			delete(s.counters, key)
		}
	}
}
