package cache

import (
	"sync"
	"time"
)

// Slot holds at most one value for a bounded time. A newer Set replaces the
// previous value; a Get past the TTL clears the slot.
type Slot[T any] struct {
	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	filled    bool
	ttl       time.Duration
	now       func() time.Time
}

func NewSlot[T any](ttl time.Duration) *Slot[T] {
	return &Slot[T]{ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. Intended for tests.
func (s *Slot[T]) WithClock(now func() time.Time) *Slot[T] {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Slot[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	s.fetchedAt = s.now()
	s.filled = true
	s.mu.Unlock()
}

// Get returns the stored value while now-fetchedAt <= ttl.
func (s *Slot[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if !s.filled {
		return zero, false
	}
	if s.ttl > 0 && s.now().Sub(s.fetchedAt) > s.ttl {
		s.clearLocked()
		return zero, false
	}
	return s.value, true
}

// FetchedAt reports when the current value was stored. Zero when empty.
func (s *Slot[T]) FetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchedAt
}

func (s *Slot[T]) Clear() {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
}

func (s *Slot[T]) TTL() time.Duration {
	return s.ttl
}

func (s *Slot[T]) clearLocked() {
	var zero T
	s.value = zero
	s.fetchedAt = time.Time{}
	s.filled = false
}
