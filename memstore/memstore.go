// Package memstore provides an in-memory backing store for the cache:
// loads run on their own goroutines via a user-supplied Loader, capacity is
// a fixed slot count, and Unload cancels loads still in flight through
// context cancellation.
//
// It is the reference implementation of the cache.Store contract and the
// store used by the examples. Unlike the cache itself, a Store is safe for
// concurrent use: loader goroutines publish results while the cache polls.
package memstore

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/IvanBrykalov/asynccache/cache"
)

// Compile-time check: Store satisfies the cache's backing-store contract.
var _ cache.Store[string, Handle, struct{}] = (*Store[string, struct{}])(nil)

// Handle identifies an in-progress or completed load. The cache treats it
// as an opaque correlation token.
type Handle int64

// Loader fetches the element for a key. It runs on its own goroutine and
// must honor ctx: cancellation means the element was unloaded while the
// load was still in flight.
type Loader[K comparable, E any] func(ctx context.Context, key K) (E, error)

// Options configures a Store.
type Options struct {
	// Slots is the capacity in elements. Every loading or loaded element
	// claims one slot until it is unloaded. Must be > 0.
	Slots int

	// Workers bounds concurrent Loader calls. <= 0 means Slots.
	Workers int64
}

// Store is an in-memory, asynchronously loading cache.Store.
type Store[K comparable, E any] struct {
	loader Loader[K, E]
	slots  int
	sem    *semaphore.Weighted

	mu    sync.Mutex
	tasks map[Handle]*task[E]
	next  Handle
}

// task tracks one load. Fields past cancel are guarded by Store.mu.
type task[E any] struct {
	cancel context.CancelFunc
	elem   *E
	err    error
	done   bool
}

// New constructs a Store. Panics if loader is nil or opt.Slots <= 0.
func New[K comparable, E any](loader Loader[K, E], opt Options) *Store[K, E] {
	if loader == nil {
		panic("loader must not be nil")
	}
	if opt.Slots <= 0 {
		panic("Slots must be > 0")
	}
	workers := opt.Workers
	if workers <= 0 {
		workers = int64(opt.Slots)
	}
	return &Store[K, E]{
		loader: loader,
		slots:  opt.Slots,
		sem:    semaphore.NewWeighted(workers),
		tasks:  make(map[Handle]*task[E], opt.Slots),
	}
}

// Load claims a slot and starts loading key on a fresh goroutine.
// It returns without waiting for the loader.
func (s *Store[K, E]) Load(key K) Handle {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task[E]{cancel: cancel}

	s.mu.Lock()
	s.next++
	h := s.next
	s.tasks[h] = t
	s.mu.Unlock()

	go s.run(ctx, cancel, t, key)
	return h
}

// run executes the loader under the worker limit and publishes the result.
func (s *Store[K, E]) run(ctx context.Context, cancel context.CancelFunc, t *task[E], key K) {
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.publish(t, nil, err)
		return
	}
	defer s.sem.Release(1)

	el, err := s.loader(ctx, key)
	if err == nil && ctx.Err() != nil {
		// Unloaded while the loader was finishing; drop the element.
		err = ctx.Err()
	}
	if err != nil {
		s.publish(t, nil, err)
		return
	}
	s.publish(t, &el, nil)
}

func (s *Store[K, E]) publish(t *task[E], el *E, err error) {
	s.mu.Lock()
	t.elem = el
	t.err = err
	t.done = true
	s.mu.Unlock()
}

// Unload cancels the load if still in flight and frees the slot. The slot
// is reusable immediately; the loader goroutine winds down on its own.
func (s *Store[K, E]) Unload(h Handle) {
	s.mu.Lock()
	t, ok := s.tasks[h]
	delete(s.tasks, h)
	s.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// HasRoomFor reports whether a slot is free. The key does not matter:
// every element costs exactly one slot.
func (s *Store[K, E]) HasRoomFor(K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks) < s.slots
}

// GetElement returns the loaded element, or (nil, false) while the load is
// pending or after it failed.
func (s *Store[K, E]) GetElement(h Handle) (*E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[h]
	if !ok || !t.done || t.err != nil {
		return nil, false
	}
	return t.elem, true
}

// Err returns the load error for h, if any. A canceled load reports
// context.Canceled. Diagnostic; the cache itself never retries.
func (s *Store[K, E]) Err(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[h]; ok {
		return t.err
	}
	return nil
}

// Len returns the number of claimed slots.
func (s *Store[K, E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
