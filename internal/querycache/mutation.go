package querycache

import (
	"context"
	"fmt"
	"sync"
)

// MutationState mirrors what a form needs to render a submit button.
type MutationState struct {
	IsPending bool
	IsError   bool
	Err       error
}

// Mutation wraps a write against the backend. It never reads the cache; on
// success the keys returned by its invalidation func are invalidated before
// Run returns, so callers branching on the result already see stale entries
// marked for refetch.
type Mutation[In, Out any] struct {
	cache       *Cache
	fn          func(ctx context.Context, in In) (Out, error)
	invalidates func(in In, out Out) []Key

	mu      sync.Mutex
	pending int
	err     error
}

// NewMutation builds a mutation. invalidates may be nil.
func NewMutation[In, Out any](c *Cache, fn func(ctx context.Context, in In) (Out, error), invalidates func(in In, out Out) []Key) *Mutation[In, Out] {
	return &Mutation[In, Out]{cache: c, fn: fn, invalidates: invalidates}
}

// Invalidating is a shorthand for mutations whose keys do not depend on the
// input or output.
func Invalidating[In, Out any](keys ...Key) func(In, Out) []Key {
	return func(In, Out) []Key { return keys }
}

// Run executes the mutation. A panic in the mutation func is returned as an
// error.
func (m *Mutation[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()

	out, err := m.call(ctx, in)
	if err == nil && m.invalidates != nil {
		if keys := m.invalidates(in, out); len(keys) > 0 {
			m.cache.Invalidate(keys...)
		}
	}

	m.mu.Lock()
	m.pending--
	m.err = err
	m.mu.Unlock()
	return out, err
}

// State reports whether a run is in progress and how the last one ended.
func (m *Mutation[In, Out]) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MutationState{IsPending: m.pending > 0, IsError: m.err != nil, Err: m.err}
}

func (m *Mutation[In, Out]) call(ctx context.Context, in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero Out
			out = zero
			err = fmt.Errorf("querycache: mutation panicked: %v", r)
		}
	}()
	return m.fn(ctx, in)
}
