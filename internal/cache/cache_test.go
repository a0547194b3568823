package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/nao1215/waypoint/internal/model"
)

func resolved(target string) model.Result {
	return model.Result{Status: model.StatusResolved, Target: target, Strategy: "direct"}
}

// memBacking is an in-memory Backing.
type memBacking struct {
	mu      sync.Mutex
	entries map[string]Entry
	saves   int
	err     error
}

func newMemBacking() *memBacking {
	return &memBacking{entries: make(map[string]Entry)}
}

func (m *memBacking) LoadResolution(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memBacking) SaveResolution(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.entries[key] = e
	return m.err
}

func (m *memBacking) DeleteResolution(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return m.err
}

func (m *memBacking) PurgeResolutions(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	return m.err
}

// TestCache_GetPut tests storing and reading results.
func TestCache_GetPut(t *testing.T) {
	t.Parallel()

	t.Run("hit is marked cached", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		c := New()
		c.Put(ctx, "https://example.com", resolved("https://example.com"))

		got, ok := c.Get(ctx, "https://example.com")
		if !ok {
			t.Fatal("expected hit")
		}
		if !got.Cached || got.Target != "https://example.com" {
			t.Errorf("got %+v", got)
		}
		if s := c.Stats(); s.Hits != 1 || s.Misses != 0 || s.Entries != 1 {
			t.Errorf("stats = %+v", s)
		}
	})

	t.Run("exhausted results are never stored", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		c := New()
		c.Put(ctx, "https://blocked.example", model.Result{Status: model.StatusExhausted})

		if _, ok := c.Get(ctx, "https://blocked.example"); ok {
			t.Error("exhausted result was cached")
		}
		if c.Len() != 0 {
			t.Errorf("Len() = %d", c.Len())
		}
	})

	t.Run("size bound evicts oldest", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		c := New(WithSize(2))
		c.Put(ctx, "a", resolved("a"))
		c.Put(ctx, "b", resolved("b"))
		c.Put(ctx, "c", resolved("c"))

		if _, ok := c.Get(ctx, "a"); ok {
			t.Error("oldest entry should have been evicted")
		}
		keys := c.Keys()
		if len(keys) != 2 || keys[0] != "b" || keys[1] != "c" {
			t.Errorf("Keys() = %v", keys)
		}
	})

	t.Run("entries expire after TTL", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		c := New(WithTTL(20 * time.Millisecond))
		c.Put(ctx, "a", resolved("a"))
		time.Sleep(60 * time.Millisecond)

		if _, ok := c.Get(ctx, "a"); ok {
			t.Error("entry should have expired")
		}
	})
}

// TestCache_InvalidateClear tests explicit removal.
func TestCache_InvalidateClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := newMemBacking()
	c := New(WithBacking(b))
	c.Put(ctx, "a", resolved("a"))
	c.Put(ctx, "b", resolved("b"))

	c.Invalidate(ctx, "a")
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("invalidated entry still present")
	}
	if _, ok := c.Get(ctx, "b"); !ok {
		t.Error("unrelated entry was removed")
	}

	c.Clear(ctx)
	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("entry survived Clear")
	}
	if len(b.entries) != 0 {
		t.Errorf("backing still holds %d entries", len(b.entries))
	}
}

// TestCache_Backing tests the durable mirror.
func TestCache_Backing(t *testing.T) {
	t.Parallel()

	t.Run("memory miss loads from backing", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		b := newMemBacking()
		New(WithBacking(b)).Put(ctx, "a", resolved("a"))

		fresh := New(WithBacking(b))
		got, ok := fresh.Get(ctx, "a")
		if !ok || got.Target != "a" {
			t.Fatalf("got %+v, %v", got, ok)
		}
		if fresh.Len() != 1 {
			t.Error("loaded entry should be promoted to memory")
		}
	})

	t.Run("stale backing entries are ignored", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		b := newMemBacking()
		b.entries["a"] = Entry{Result: resolved("a"), InsertedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}

		c := New(WithBacking(b), WithTTL(time.Hour))
		if _, ok := c.Get(ctx, "a"); ok {
			t.Error("stale entry was returned")
		}
	})

	t.Run("backing errors degrade to misses", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		b := newMemBacking()
		b.err = errors.New("disk full")
		c := New(WithBacking(b))
		c.Put(ctx, "a", resolved("a"))

		if _, ok := c.Get(ctx, "a"); !ok {
			t.Error("memory entry should survive a backing failure")
		}
		if _, ok := c.Get(ctx, "missing"); ok {
			t.Error("unexpected hit")
		}
	})
}

// TestCache_Do tests coalescing of concurrent resolutions.
func TestCache_Do(t *testing.T) {
	t.Parallel()

	t.Run("concurrent callers share one run", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			const callers = 8

			c := New()
			release := make(chan struct{})
			var runs atomic.Int32
			fn := func(context.Context) model.Result {
				runs.Add(1)
				<-release
				return resolved("https://example.com")
			}

			var (
				wg      sync.WaitGroup
				leaders atomic.Int32
				results = make([]model.Result, callers)
			)
			for i := range callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, leader, err := c.Do(context.Background(), "k", fn)
					if err != nil {
						t.Errorf("unexpected error: %v", err)
					}
					if leader {
						leaders.Add(1)
					}
					results[i] = res
				}()
			}

			synctest.Wait()
			close(release)
			wg.Wait()

			if runs.Load() != 1 {
				t.Errorf("fn ran %d times, want 1", runs.Load())
			}
			if leaders.Load() != 1 {
				t.Errorf("%d leaders, want 1", leaders.Load())
			}
			for i, r := range results {
				if r.Target != "https://example.com" {
					t.Errorf("caller %d got %+v", i, r)
				}
			}
			if s := c.Stats(); s.Shared != callers-1 {
				t.Errorf("Shared = %d, want %d", s.Shared, callers-1)
			}
			if _, ok := c.Get(context.Background(), "k"); !ok {
				t.Error("resolved result should be cached")
			}
		})
	})

	t.Run("exhausted results are shared but not cached", func(t *testing.T) {
		t.Parallel()

		c := New()
		res, leader, err := c.Do(context.Background(), "k", func(context.Context) model.Result {
			return model.Result{Status: model.StatusExhausted}
		})
		if err != nil || !leader || res.Resolved() {
			t.Fatalf("got %+v, %v, %v", res, leader, err)
		}
		if c.Len() != 0 {
			t.Error("exhausted result was cached")
		}
	})

	t.Run("cancelled caller returns without stopping the run", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			c := New()
			release := make(chan struct{})
			seen := make(chan error, 1)
			fn := func(ctx context.Context) model.Result {
				<-release
				seen <- ctx.Err()
				return resolved("x")
			}

			leaderCtx, cancelLeader := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _, err := c.Do(leaderCtx, "k", fn)
				if !errors.Is(err, context.Canceled) {
					t.Errorf("expected context.Canceled, got %v", err)
				}
			}()
			synctest.Wait()

			cancelLeader()
			<-done
			close(release)
			if err := <-seen; err != nil {
				t.Errorf("shared run saw cancellation: %v", err)
			}
			synctest.Wait()

			if _, ok := c.Get(context.Background(), "k"); !ok {
				t.Error("abandoned run should still populate the cache")
			}
		})
	})
}
