// Package querycache is the data-synchronisation layer between the gateway's
// handlers and the backend repositories.
//
// Each Key maps to one entry moving idle -> loading -> success|error, and back
// to loading on refetch. Concurrent readers of a key share a single in-flight
// fetch. Mutations invalidate keys by prefix; entries with live subscribers
// are refetched eagerly, the rest on next access. Failed fetches are never
// retried.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status is the lifecycle state of one entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// ErrNoFetcher is returned when a key is refetched before anything has
// queried it.
var ErrNoFetcher = errors.New("querycache: no fetcher registered for key")

// Fetcher loads the value for one key.
type Fetcher func(ctx context.Context) (any, error)

// Snapshot is a point-in-time copy of an entry.
type Snapshot struct {
	Key       Key
	Status    Status
	Data      any
	Err       error
	UpdatedAt time.Time
	Stale     bool
}

type entry struct {
	key        Key
	status     Status
	data       any
	err        error
	updatedAt  time.Time
	stale      bool
	generation uint64
	fetch      Fetcher
	subs       map[*Subscription]struct{}
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Key:       e.key,
		Status:    e.status,
		Data:      e.data,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Stale:     e.stale,
	}
}

func (e *entry) publish() {
	if len(e.subs) == 0 {
		return
	}
	snap := e.snapshot()
	for s := range e.subs {
		s.deliver(snap)
	}
}

// Cache is safe for concurrent use. Construct one per process with New and
// inject it; there is no package-level instance.
type Cache struct {
	id        string
	staleTime time.Duration
	now       func() time.Time
	logger    *zap.Logger
	bus       Bus
	baseCtx   context.Context
	retryBase time.Duration
	retryMax  time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	epoch   uint64
	flights singleflight.Group
	bg      sync.WaitGroup
	busErr  error
}

// Option configures a Cache.
type Option func(*Cache)

// WithStaleTime sets how long a successful result is served without a
// refetch. Zero means every access refetches, while concurrent accesses
// still share one request.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithBus shares invalidations with other gateway instances.
func WithBus(b Bus) Option {
	return func(c *Cache) { c.bus = b }
}

// WithRetryBackoff sets the first and the longest delay between attempts to
// resubscribe to the invalidation bus.
func WithRetryBackoff(base, maxDelay time.Duration) Option {
	return func(c *Cache) { c.retryBase, c.retryMax = base, maxDelay }
}

// WithContext sets the parent context of background refetches.
func WithContext(ctx context.Context) Option {
	return func(c *Cache) { c.baseCtx = ctx }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		id:        uuid.NewString(),
		now:       time.Now,
		logger:    zap.NewNop(),
		baseCtx:   context.Background(),
		retryBase: 500 * time.Millisecond,
		retryMax:  30 * time.Second,
		entries:   map[string]*entry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bus != nil {
		c.busErr = errors.New("invalidation bus not subscribed yet")
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// ID identifies this instance on the invalidation bus.
func (c *Cache) ID() string { return c.id }

// Fetch returns the cached value for key when it is fresh, otherwise joins or
// starts the single in-flight fetch for key. A nil fetch reuses the last
// fetcher registered for key. Cancelling ctx releases the caller but not the
// fetch, which still populates the entry.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch Fetcher) Snapshot {
	ks := key.String()

	c.mu.Lock()
	e := c.entryLocked(key, ks)
	if fetch != nil {
		e.fetch = fetch
	} else {
		fetch = e.fetch
	}
	if c.freshLocked(e) {
		snap := e.snapshot()
		c.mu.Unlock()
		return snap
	}
	c.mu.Unlock()

	if fetch == nil {
		return Snapshot{Key: key, Status: StatusError, Err: ErrNoFetcher}
	}
	return c.load(ctx, key, ks, fetch)
}

// Refetch forces a new fetch of key with its registered fetcher.
func (c *Cache) Refetch(ctx context.Context, key Key) Snapshot {
	ks := key.String()
	c.mu.Lock()
	e, ok := c.entries[ks]
	var fetch Fetcher
	if ok {
		fetch = e.fetch
	}
	c.mu.Unlock()
	if fetch == nil {
		return Snapshot{Key: key, Status: StatusError, Err: ErrNoFetcher}
	}
	c.flights.Forget(ks)
	return c.load(ctx, key, ks, fetch)
}

// Peek returns the current state of key without fetching.
func (c *Cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Snapshot{Key: key}, false
	}
	return e.snapshot(), true
}

// SetData writes data into key as a fresh success, e.g. after a mutation
// returned the updated record.
func (c *Cache) SetData(key Key, data any) {
	ks := key.String()
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key, ks)
	e.status = StatusSuccess
	e.data = data
	e.err = nil
	e.stale = false
	e.updatedAt = c.now()
	e.publish()
}

// Invalidate marks every entry under any of the given prefixes stale and
// loading. Subscribed entries are refetched in the background; the others
// refetch on next access. It returns the number of entries matched.
func (c *Cache) Invalidate(keys ...Key) int {
	return c.invalidate(keys, true)
}

func (c *Cache) invalidate(keys []Key, broadcast bool) int {
	if len(keys) == 0 {
		return 0
	}

	type job struct {
		key   Key
		ks    string
		fetch Fetcher
	}
	var jobs []job

	c.mu.Lock()
	matched := 0
	for ks, e := range c.entries {
		if !matchesAny(e.key, keys) {
			continue
		}
		matched++
		e.generation++
		e.stale = true
		if e.status != StatusIdle {
			e.status = StatusLoading
		}
		// A fetch started before this point must not satisfy later readers.
		c.flights.Forget(ks)
		e.publish()
		if len(e.subs) > 0 && e.fetch != nil {
			jobs = append(jobs, job{key: e.key, ks: ks, fetch: e.fetch})
		}
	}
	c.mu.Unlock()

	for _, j := range jobs {
		j := j
		c.background(func(ctx context.Context) {
			c.load(ctx, j.key, j.ks, j.fetch)
		})
	}

	if broadcast && c.bus != nil {
		msg := Message{Origin: c.id, Keys: keys, SentAt: c.now().UTC()}
		c.background(func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := c.bus.Publish(ctx, msg); err != nil {
				c.logger.Warn("publish invalidation", zap.Error(err))
			}
		})
	}

	c.logger.Debug("invalidated", zap.Int("entries", matched), zap.Int("refetching", len(jobs)))
	return matched
}

// Reset drops every cached value, e.g. on logout. Results of fetches that
// were in flight are discarded. Subscriptions stay open and see idle.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	for ks, e := range c.entries {
		c.flights.Forget(ks)
		if len(e.subs) == 0 {
			delete(c.entries, ks)
			continue
		}
		e.generation++
		e.status = StatusIdle
		e.data = nil
		e.err = nil
		e.stale = false
		e.updatedAt = time.Time{}
		e.publish()
	}
}

// Len reports how many entries exist.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Wait blocks until background refetches and bus publishes have finished.
func (c *Cache) Wait() {
	c.bg.Wait()
}

func (c *Cache) load(ctx context.Context, key Key, ks string, fetch Fetcher) Snapshot {
	detached := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(ks, func() (any, error) {
		return c.run(detached, key, ks, fetch), nil
	})
	select {
	case res := <-ch:
		snap, _ := res.Val.(Snapshot)
		return snap
	case <-ctx.Done():
		return Snapshot{Key: key, Status: StatusError, Err: ctx.Err()}
	}
}

func (c *Cache) run(ctx context.Context, key Key, ks string, fetch Fetcher) Snapshot {
	c.mu.Lock()
	epoch := c.epoch
	e := c.entryLocked(key, ks)
	gen := e.generation
	e.status = StatusLoading
	e.publish()
	c.mu.Unlock()

	start := c.now()
	data, err := call(ctx, fetch)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		snap := Snapshot{Key: key, Status: StatusSuccess, Data: data, Err: err, Stale: true}
		if err != nil {
			snap.Status = StatusError
			snap.Data = nil
		}
		return snap
	}

	e = c.entryLocked(key, ks)
	if err != nil {
		e.status = StatusError
		e.err = err
		c.logger.Debug("query failed", zap.String("key", ks), zap.Error(err))
	} else {
		e.status = StatusSuccess
		e.data = data
		e.err = nil
		e.updatedAt = c.now()
		c.logger.Debug("query resolved", zap.String("key", ks), zap.Duration("elapsed", c.now().Sub(start)))
	}
	// Last resolved wins; a result older than an invalidation is kept but
	// left stale so the next reader refetches.
	e.stale = e.generation != gen
	e.publish()
	return e.snapshot()
}

func (c *Cache) entryLocked(key Key, ks string) *entry {
	e, ok := c.entries[ks]
	if !ok {
		e = &entry{key: append(Key(nil), key...), subs: map[*Subscription]struct{}{}}
		c.entries[ks] = e
	}
	return e
}

func (c *Cache) freshLocked(e *entry) bool {
	if e.status != StatusSuccess || e.stale || c.staleTime <= 0 {
		return false
	}
	return c.now().Sub(e.updatedAt) < c.staleTime
}

func (c *Cache) background(fn func(ctx context.Context)) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		fn(c.baseCtx)
	}()
}

func call(ctx context.Context, fetch Fetcher) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = fmt.Errorf("querycache: fetch panicked: %v", r)
		}
	}()
	return fetch(ctx)
}

func matchesAny(k Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if k.HasPrefix(p) {
			return true
		}
	}
	return false
}
