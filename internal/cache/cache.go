package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

// ErrClosed is returned by Fetch once the cache has been torn down.
var ErrClosed = errors.New("cache closed")

// Key identifies one cached query result.
type Key struct {
	Entity string
	UserID string
}

func (k Key) String() string { return k.Entity + ":" + k.UserID }

// Remote is an optional tier shared by every process. Each key carries a
// shared version that Invalidate moves forward; values are only served
// and saved under the version current when the read began, so a write in
// one process is seen by the next read in any other.
type Remote[V any] interface {
	// Version returns the key's current shared version.
	Version(ctx context.Context, key Key) (uint64, error)
	// Load returns the value saved under version, if any.
	Load(ctx context.Context, key Key, version uint64) (V, bool, error)
	// Save stores value only while key is still at version.
	Save(ctx context.Context, key Key, version uint64, value V) (bool, error)
	// Invalidate moves key to a new version and drops its value.
	Invalidate(ctx context.Context, key Key) error
}

// Loader produces a fresh value from the source of truth.
type Loader[V any] func(ctx context.Context) (V, error)

type Options[V any] struct {
	// TTL bounds how long a local entry is served. Zero keeps entries
	// until they are invalidated.
	TTL time.Duration
	// LoadTimeout bounds a single load. Zero means no bound.
	LoadTimeout time.Duration
	// Clone copies values handed in and out. Nil shares them.
	Clone  func(V) V
	Remote Remote[V]
	Logger logger.Logger
	Now    func() time.Time
}

type entry[V any] struct {
	value    V
	storedAt time.Time
	version  uint64
}

// Cache memoizes query results per key. Invalidate bumps the key's
// generation so that a load started earlier can still answer its own
// callers but never repopulates the entry.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[Key]entry[V]
	gens    map[Key]uint64
	closed  bool

	group  singleflight.Group
	base   context.Context
	cancel context.CancelFunc

	ttl         time.Duration
	loadTimeout time.Duration
	clone       func(V) V
	remote      Remote[V]
	log         logger.Logger
	now         func() time.Time
}

func New[V any](opts Options[V]) *Cache[V] {
	base, cancel := context.WithCancel(context.Background())
	c := &Cache[V]{
		entries:     make(map[Key]entry[V]),
		gens:        make(map[Key]uint64),
		base:        base,
		cancel:      cancel,
		ttl:         opts.TTL,
		loadTimeout: opts.LoadTimeout,
		clone:       opts.Clone,
		remote:      opts.Remote,
		log:         opts.Logger,
		now:         opts.Now,
	}
	if c.clone == nil {
		c.clone = func(v V) V { return v }
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Get returns the local entry for key, if within its TTL. It does not
// consult the shared tier.
func (c *Cache[V]) Get(key Key) (V, bool) {
	e, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	return c.clone(e.value), true
}

func (c *Cache[V]) lookup(key Key) (entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return entry[V]{}, false
	}
	e, ok := c.entries[key]
	if !ok {
		return entry[V]{}, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return entry[V]{}, false
	}
	return e, true
}

// Fetch returns the cached value or loads it. With a remote tier the
// local entry is served only while the shared version has not moved.
// Concurrent fetches of the same key, generation and version share one
// load. A caller whose ctx ends stops waiting; the shared load keeps
// running for the others.
func (c *Cache[V]) Fetch(ctx context.Context, key Key, load Loader[V]) (V, error) {
	var zero V

	var version uint64
	if c.remote != nil {
		v, err := c.remote.Version(ctx, key)
		if err != nil {
			c.log.Warn("remote cache version failed, reading through",
				logger.String("key", key.String()),
				logger.Error(err))
			return c.readThrough(ctx, load)
		}
		version = v
	}

	if e, ok := c.lookup(key); ok && e.version == version {
		return c.clone(e.value), nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, ErrClosed
	}
	gen := c.gens[key]
	c.mu.Unlock()

	flight := fmt.Sprintf("%s#%d#%d", key, gen, version)
	ch := c.group.DoChan(flight, func() (any, error) {
		return c.load(key, gen, version, load)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return c.clone(res.Val.(V)), nil
	}
}

// readThrough loads without caching, for when the shared version is
// unknown and no entry can be trusted.
func (c *Cache[V]) readThrough(ctx context.Context, load Loader[V]) (V, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		var zero V
		return zero, ErrClosed
	}
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.loadTimeout)
		defer cancel()
	}
	return load(ctx)
}

func (c *Cache[V]) load(key Key, gen, version uint64, load Loader[V]) (V, error) {
	var zero V
	ctx := c.base
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.loadTimeout)
		defer cancel()
	}

	if c.remote != nil {
		v, ok, err := c.remote.Load(ctx, key, version)
		switch {
		case err != nil:
			c.log.Warn("remote cache load failed",
				logger.String("key", key.String()),
				logger.Error(err))
		case ok:
			c.store(key, gen, version, v)
			return v, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}

	// The remote Save is conditional on version, so a load that raced an
	// invalidation in any process never reaches the shared tier.
	if c.store(key, gen, version, v) && c.remote != nil {
		saved, err := c.remote.Save(ctx, key, version, v)
		switch {
		case err != nil:
			c.log.Warn("remote cache save failed",
				logger.String("key", key.String()),
				logger.Error(err))
		case !saved:
			c.log.Debug("shared version moved, result not shared",
				logger.String("key", key.String()))
		}
	}
	return v, nil
}

// store keeps v only if key is still at generation gen.
func (c *Cache[V]) store(key Key, gen, version uint64, v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.gens[key] != gen {
		c.log.Debug("discarding stale cache load", logger.String("key", key.String()))
		return false
	}
	c.entries[key] = entry[V]{value: c.clone(v), storedAt: c.now(), version: version}
	return true
}

// Invalidate drops key locally and moves its shared version, which
// retires the entry in every process. Loads already in flight for key
// will not repopulate it.
func (c *Cache[V]) Invalidate(ctx context.Context, key Key) {
	c.mu.Lock()
	c.gens[key]++
	delete(c.entries, key)
	c.mu.Unlock()

	if c.remote != nil {
		if err := c.remote.Invalidate(ctx, key); err != nil {
			c.log.Warn("remote cache invalidate failed",
				logger.String("key", key.String()),
				logger.Error(err))
		}
	}
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Close tears the cache down. In-flight loads are cancelled and their
// results discarded. Close is idempotent.
func (c *Cache[V]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.entries = make(map[Key]entry[V])
	c.mu.Unlock()

	c.cancel()
}
