// Package syncer holds client-side copies of server data that are refreshed
// by full fetches and kept fresh in between by patches from push events.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the minimum gap between two unforced fetches.
const DefaultInterval = time.Second

var ErrClosed = errors.New("syncer: cache closed")

// FetchFunc retrieves the full current value from the backend.
type FetchFunc[T any] func(ctx context.Context) (T, error)

type Options struct {
	// Interval throttles unforced loads; zero means DefaultInterval.
	Interval time.Duration
	// Name labels log lines.
	Name   string
	Logger *slog.Logger
	Now    func() time.Time
	// OnLoading observes the visible loading indicator. Silent loads never call it.
	OnLoading func(loading bool)
	// OnChange is called after the cached value was replaced or patched.
	OnChange func()
}

// Cache is a throttled, re-entrancy guarded holder of one fetched value.
// At most one fetch is in flight at any time, whatever the call pattern.
type Cache[T any] struct {
	fetch FetchFunc[T]
	opts  Options
	log   *slog.Logger

	mu         sync.Mutex
	value      T
	loaded     bool
	lastLoaded time.Time
	inFlight   bool
	loading    bool
	closed     bool
}

func NewCache[T any](fetch FetchFunc[T], opts Options) *Cache[T] {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Cache[T]{
		fetch: fetch,
		opts:  opts,
		log:   opts.Logger.With("cache", opts.Name),
	}
}

// Load fetches a fresh value unless one is already in flight or, when force is
// false, the last successful fetch finished less than Interval ago. Skipped
// calls return the cached value and a nil error. A visible (non-silent) load
// raises the loading indicator for its duration. On failure the cached value is
// kept and the error is logged and returned; there is no retry.
func (c *Cache[T]) Load(ctx context.Context, force, silent bool) (T, error) {
	c.mu.Lock()
	if c.closed {
		v := c.value
		c.mu.Unlock()
		return v, ErrClosed
	}
	if c.inFlight {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	if !force && c.loaded && c.opts.Now().Sub(c.lastLoaded) < c.opts.Interval {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.inFlight = true
	if !silent {
		c.loading = true
	}
	c.mu.Unlock()

	if !silent {
		c.notifyLoading(true)
	}

	v, err := c.fetch(ctx)

	c.mu.Lock()
	c.inFlight = false
	if !silent {
		c.loading = false
	}
	closed := c.closed
	applied := false
	if err == nil && !closed {
		c.value = v
		c.loaded = true
		c.lastLoaded = c.opts.Now()
		applied = true
	}
	cur := c.value
	c.mu.Unlock()

	if !silent {
		c.notifyLoading(false)
	}

	switch {
	case closed:
		return cur, ErrClosed
	case err != nil:
		c.log.Warn("load failed", "silent", silent, "err", err)
		return cur, err
	}
	if applied {
		c.changed()
	}
	return cur, nil
}

func (c *Cache[T]) Value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Loaded reports whether at least one fetch has succeeded.
func (c *Cache[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

func (c *Cache[T]) LastLoaded() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastLoaded
}

// Loading reports the visible loading indicator.
func (c *Cache[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Cache[T]) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Set replaces the cached value without touching the throttle clock.
func (c *Cache[T]) Set(v T) {
	c.Update(func(T) (T, bool) { return v, true })
}

// Update applies fn to the cached value under the lock. fn reports whether it
// changed anything; fn must not mutate its argument in place when T shares
// memory with values handed out earlier.
func (c *Cache[T]) Update(fn func(cur T) (next T, changed bool)) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	next, changed := fn(c.value)
	if changed {
		c.value = next
	}
	c.mu.Unlock()

	if changed {
		c.changed()
	}
	return changed
}

// Close makes the cache discard results of fetches still in flight and
// refuse further loads and patches.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Cache[T]) notifyLoading(v bool) {
	if c.opts.OnLoading != nil {
		c.opts.OnLoading(v)
	}
}

func (c *Cache[T]) changed() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}
