package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result is the typed view of an entry handed to callers.
type Result[T any] struct {
	Data      T
	Err       error
	Status    Status
	UpdatedAt time.Time
	Stale     bool
}

func (r Result[T]) IsLoading() bool { return r.Status == StatusLoading }
func (r Result[T]) IsError() bool   { return r.Status == StatusError }
func (r Result[T]) IsSuccess() bool { return r.Status == StatusSuccess }

// Query resolves key through c, calling fetch only when no fresh value is
// cached and no fetch for key is already running.
func Query[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) Result[T] {
	snap := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	return ResultOf[T](snap)
}

// Cached returns the value stored under key, if it holds a T.
func Cached[T any](c *Cache, key Key) (T, bool) {
	var zero T
	snap, ok := c.Peek(key)
	if !ok || snap.Data == nil {
		return zero, false
	}
	v, ok := snap.Data.(T)
	return v, ok
}

// ResultOf converts a snapshot, reporting a type mismatch as an error.
func ResultOf[T any](s Snapshot) Result[T] {
	r := Result[T]{Err: s.Err, Status: s.Status, UpdatedAt: s.UpdatedAt, Stale: s.Stale}
	if s.Data == nil {
		return r
	}
	v, ok := s.Data.(T)
	if !ok {
		var zero T
		r.Status = StatusError
		r.Err = fmt.Errorf("querycache: entry %s holds %T, want %T", s.Key, s.Data, zero)
		return r
	}
	r.Data = v
	return r
}

// Subscription is a live interest in one key, the equivalent of a mounted
// view. The channel carries the latest snapshot; intermediate states may be
// dropped when the reader is slow.
type Subscription struct {
	cache *Cache
	key   Key
	ks    string
	ch    chan Snapshot

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// Subscribe registers interest in key and fetches it in the background unless
// a fresh value is cached. While subscribed, invalidating key refetches it
// immediately.
func (c *Cache) Subscribe(key Key, fetch Fetcher) *Subscription {
	ks := key.String()
	s := &Subscription{cache: c, key: key, ks: ks, ch: make(chan Snapshot, 1)}

	c.mu.Lock()
	e := c.entryLocked(key, ks)
	if fetch != nil {
		e.fetch = fetch
	}
	fetch = e.fetch
	e.subs[s] = struct{}{}
	fresh := c.freshLocked(e)
	s.deliver(e.snapshot())
	c.mu.Unlock()

	if !fresh && fetch != nil {
		c.background(func(ctx context.Context) {
			c.load(ctx, key, ks, fetch)
		})
	}
	return s
}

// C delivers snapshots until Close.
func (s *Subscription) C() <-chan Snapshot { return s.ch }

// Key returns the subscribed key.
func (s *Subscription) Key() Key { return s.key }

// Close stops delivery. In-flight fetches still complete into the cache.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cache.mu.Lock()
		if e, ok := s.cache.entries[s.ks]; ok {
			delete(e.subs, s)
		}
		s.cache.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

func (s *Subscription) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}
