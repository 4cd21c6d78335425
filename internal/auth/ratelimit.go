package auth

import (
	"context"
	"sync"
	"time"

	"github.com/fairyhunter13/storefront-api/internal/apperr"
)

// CounterStore counts attempts per key. The in-memory implementation is
// process-local; a multi-instance deployment needs a shared one.
type CounterStore interface {
	// Take records an attempt for key unless limit attempts are already
	// inside the window. Refused attempts are not recorded.
	Take(ctx context.Context, key string, limit int) (bool, error)
	Reset(ctx context.Context, key string) error
}

type attempt struct {
	count int
	last  time.Time
}

// MemoryCounter forgets a key once its last recorded attempt is older than
// the window, so a lockout ends one window after the last accepted attempt.
// Expiry is checked lazily on the next Take.
type MemoryCounter struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	m      map[string]attempt
	ops    int
}

const sweepEvery = 1024

func NewMemoryCounter(window time.Duration) *MemoryCounter {
	return &MemoryCounter{window: window, now: time.Now, m: make(map[string]attempt)}
}

func (c *MemoryCounter) Take(_ context.Context, key string, limit int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.sweep(now)
	a := c.m[key]
	if now.Sub(a.last) > c.window {
		a = attempt{}
	}
	if a.count >= limit {
		return false, nil
	}
	a.count++
	a.last = now
	c.m[key] = a
	return true, nil
}

func (c *MemoryCounter) sweep(now time.Time) {
	c.ops++
	if c.ops%sweepEvery != 0 {
		return
	}
	for k, v := range c.m {
		if now.Sub(v.last) > c.window {
			delete(c.m, k)
		}
	}
}

func (c *MemoryCounter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

// Limiter caps auth attempts per client key.
type Limiter struct {
	store CounterStore
	max   int
}

func NewLimiter(store CounterStore, limit int) *Limiter {
	return &Limiter{store: store, max: limit}
}

// Allow records an attempt and fails with a RateLimit error past the cap.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	ok, err := l.store.Take(ctx, key, l.max)
	if err != nil {
		return apperr.Wrap(err, "rate limit")
	}
	if !ok {
		return apperr.RateLimit("Too many attempts. Please try again later.")
	}
	return nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
