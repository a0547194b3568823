package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/waypoint/internal/model"
)

// Entry is a cached result with its insertion time.
type Entry struct {
	Result     model.Result
	InsertedAt time.Time
}

// Backing is durable storage mirrored by the cache.
// LoadResolution returns nil and no error when key is absent.
type Backing interface {
	LoadResolution(ctx context.Context, key string) (*Entry, error)
	SaveResolution(ctx context.Context, key string, entry Entry) error
	DeleteResolution(ctx context.Context, key string) error
	PurgeResolutions(ctx context.Context) error
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Shared  int64 `json:"shared"`
	Entries int   `json:"entries"`
}

// Cache is a bounded, optionally expiring table of successful results.
//
// Keys are normalized addresses. Get marks the results it returns as
// Cached; Put ignores results that are not resolved. When the table is
// full the least recently used entry is evicted. The backing store, if
// any, keeps entries past eviction and past a restart, and its entries
// older than the TTL are ignored on load.
//
// It is safe for concurrent use.
type Cache struct {
	table   *expirable.LRU[string, Entry]
	group   singleflight.Group
	backing Backing
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	shared atomic.Int64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	size    int
	ttl     time.Duration
	backing Backing
	logger  *slog.Logger
	now     func() time.Time
}

// WithSize bounds the number of entries. Zero means unbounded.
func WithSize(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.size = n
		}
	}
}

// WithTTL expires entries after d. Zero means entries never expire.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.ttl = d
		}
	}
}

// WithBacking mirrors the cache into durable storage.
func WithBacking(b Backing) Option {
	return func(o *options) {
		o.backing = b
	}
}

// WithLogger sets the logger for backing errors.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the clock used for insertion times.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a Cache.
func New(opts ...Option) *Cache {
	o := options{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache{
		table:   expirable.NewLRU[string, Entry](o.size, nil, o.ttl),
		backing: o.backing,
		ttl:     o.ttl,
		logger:  o.logger,
		now:     o.now,
	}
}

// Get returns the cached result for key. A miss in memory falls through to
// the backing store; entries it returns that are older than the TTL are
// ignored.
func (c *Cache) Get(ctx context.Context, key string) (model.Result, bool) {
	if e, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		res := e.Result
		res.Cached = true
		return res, true
	}
	c.misses.Add(1)
	return model.Result{}, false
}

func (c *Cache) lookup(ctx context.Context, key string) (Entry, bool) {
	if e, ok := c.table.Get(key); ok {
		return e, true
	}
	if c.backing == nil {
		return Entry{}, false
	}

	e, err := c.backing.LoadResolution(ctx, key)
	if err != nil {
		c.logger.Warn("cache backing load failed", "key", key, "error", err)
		return Entry{}, false
	}
	if e == nil || !e.Result.Resolved() {
		return Entry{}, false
	}
	if c.ttl > 0 && c.now().Sub(e.InsertedAt) >= c.ttl {
		return Entry{}, false
	}
	c.table.Add(key, *e)
	return *e, true
}

// Put stores result under key. Results that are not resolved are ignored.
func (c *Cache) Put(ctx context.Context, key string, result model.Result) {
	if !result.Resolved() {
		return
	}
	result.Cached = false
	e := Entry{Result: result, InsertedAt: c.now()}
	c.table.Add(key, e)

	if c.backing != nil {
		if err := c.backing.SaveResolution(ctx, key, e); err != nil {
			c.logger.Warn("cache backing save failed", "key", key, "error", err)
		}
	}
}

// Invalidate removes key from the cache and its backing store.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	c.table.Remove(key)
	if c.backing != nil {
		if err := c.backing.DeleteResolution(ctx, key); err != nil {
			c.logger.Warn("cache backing delete failed", "key", key, "error", err)
		}
	}
}

// Clear removes every entry from the cache and its backing store.
func (c *Cache) Clear(ctx context.Context) {
	c.table.Purge()
	if c.backing != nil {
		if err := c.backing.PurgeResolutions(ctx); err != nil {
			c.logger.Warn("cache backing purge failed", "error", err)
		}
	}
}

// Len returns the number of entries held in memory.
func (c *Cache) Len() int {
	return c.table.Len()
}

// Keys returns the keys held in memory, oldest first.
func (c *Cache) Keys() []string {
	return c.table.Keys()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Shared:  c.shared.Load(),
		Entries: c.table.Len(),
	}
}

// Do runs fn at most once at a time per key. The first caller for a key
// becomes the leader and runs fn; callers arriving while it runs wait for
// the leader's result instead of running fn themselves. A resolved result
// is stored before waiters are released.
//
// fn receives a context that outlives the leader's cancellation, since
// followers depend on it finishing. A caller whose ctx ends while waiting
// gets ctx.Err(); the shared run continues.
func (c *Cache) Do(ctx context.Context, key string, fn func(ctx context.Context) model.Result) (model.Result, bool, error) {
	var leader bool
	ch := c.group.DoChan(key, func() (any, error) {
		leader = true
		runCtx := context.WithoutCancel(ctx)
		if e, ok := c.table.Get(key); ok {
			res := e.Result
			res.Cached = true
			return res, nil
		}
		res := fn(runCtx)
		c.Put(runCtx, key, res)
		return res, nil
	})

	select {
	case r := <-ch:
		res, _ := r.Val.(model.Result) //nolint:errcheck // the group only stores model.Result
		if r.Shared && !leader {
			c.shared.Add(1)
		}
		return res, leader, nil
	case <-ctx.Done():
		return model.Result{}, false, ctx.Err()
	}
}
