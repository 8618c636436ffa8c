// Package cache provides an in-memory TTL cache used to hold the last good
// price quote between feed calls.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Option configures a TTL cache.
type Option func(*settings)

type settings struct {
	now   func() time.Time
	sweep bool
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithoutSweeper disables the background goroutine that drops expired
// entries. Expired entries are still never returned by Get.
func WithoutSweeper() Option {
	return func(s *settings) { s.sweep = false }
}

// TTL is a thread-safe in-memory cache whose entries expire after a fixed
// duration.
type TTL[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a cache with the given TTL. Unless WithoutSweeper is passed,
// a goroutine evicts expired entries every ttl until Close is called.
func New[T any](ttl time.Duration, opts ...Option) *TTL[T] {
	s := settings{now: time.Now, sweep: true}
	for _, o := range opts {
		o(&s)
	}

	c := &TTL[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		now:   s.now,
		stop:  make(chan struct{}),
	}
	if s.sweep && ttl > 0 {
		go c.sweep()
	}
	return c
}

// Get returns the value for key if present and not expired.
func (c *TTL[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for one TTL.
func (c *TTL[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Delete removes key.
func (c *TTL[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len counts stored entries, expired or not.
func (c *TTL[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Close stops the sweeper. It is safe to call more than once.
func (c *TTL[T]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *TTL[T]) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *TTL[T]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
		}
	}
}
