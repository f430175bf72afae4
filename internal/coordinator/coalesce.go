// Package coordinator owns the two mechanisms that keep expensive LLM work
// under control: request coalescing with a short-lived result cache, and
// question-batch sessions that page generated questions to the client
// without ever repeating one.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultCacheTTL is how long a completed generation result may be
	// served without re-invoking the producer.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultSweepInterval is how often expired cache entries are
	// removed to bound memory.
	DefaultSweepInterval = 10 * time.Minute
)

// pending is the shared result of one in-flight produce call. The owner
// closes done exactly once after filling value/err; every waiter reads
// the same outcome.
type pending[V any] struct {
	done  chan struct{}
	value V
	err   error
}

type cacheEntry[V any] struct {
	value     V
	createdAt time.Time
}

// Coalescer guarantees at-most-one concurrent execution of an expensive
// operation per fingerprint, and memoizes successful results for a short
// TTL. Instances are independent; construct one per Coordinator rather
// than sharing process-wide state.
type Coalescer[V any] struct {
	cacheTTL time.Duration

	mu       sync.Mutex
	inflight map[string]*pending[V]
	cache    map[string]cacheEntry[V]

	now  func() time.Time
	stop chan struct{}
}

// NewCoalescer creates a coalescer and starts its background sweep.
// Zero durations select the defaults. Call Close to stop the sweep.
func NewCoalescer[V any](cacheTTL, sweepInterval time.Duration) *Coalescer[V] {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	c := &Coalescer[V]{
		cacheTTL: cacheTTL,
		inflight: make(map[string]*pending[V]),
		cache:    make(map[string]cacheEntry[V]),
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go c.sweepLoop(sweepInterval)

	return c
}

// Close stops the background sweep goroutine.
func (c *Coalescer[V]) Close() {
	close(c.stop)
}

// Do returns the result for key, producing it at most once concurrently.
//
// A fresh cached result is returned without calling produce. If another
// call for the same key is already running, this call waits for it and
// returns its exact outcome, success or failure. Otherwise this call
// becomes the owner: it runs produce, unregisters itself on every exit
// path, and caches the result only on success. Failures are propagated to
// all waiters and never cached, so a retry after an error produces again.
func (c *Coalescer[V]) Do(ctx context.Context, key string, produce func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()

	if entry, ok := c.cache[key]; ok {
		if c.now().Sub(entry.createdAt) < c.cacheTTL {
			c.mu.Unlock()
			return entry.value, nil
		}
		delete(c.cache, key)
	}

	if p, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-p.done:
			return p.value, p.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	p := &pending[V]{done: make(chan struct{})}
	c.inflight[key] = p
	c.mu.Unlock()

	c.run(ctx, key, p, produce)
	return p.value, p.err
}

// run executes produce for the owning call. The deferred block removes the
// in-flight entry and wakes waiters even if produce panics, so a crashed
// producer never permanently suppresses future attempts.
func (c *Coalescer[V]) run(ctx context.Context, key string, p *pending[V], produce func(context.Context) (V, error)) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			p.value, p.err = zero, fmt.Errorf("generation producer panicked: %v", r)
		}

		c.mu.Lock()
		delete(c.inflight, key)
		if p.err == nil {
			c.cache[key] = cacheEntry[V]{value: p.value, createdAt: c.now()}
		}
		c.mu.Unlock()

		close(p.done)
	}()

	p.value, p.err = produce(ctx)
}

// CachedLen reports the number of cached results. Used by tests and stats.
func (c *Coalescer[V]) CachedLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// InFlightLen reports the number of in-flight producers.
func (c *Coalescer[V]) InFlightLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

func (c *Coalescer[V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweepExpired()
		case <-c.stop:
			return
		}
	}
}

// sweepExpired drops cache entries past the TTL.
func (c *Coalescer[V]) sweepExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.cacheTTL)
	for key, entry := range c.cache {
		if entry.createdAt.Before(cutoff) {
			delete(c.cache, key)
		}
	}
}
