// Package redistore provides a Redis-backed backing store for the cache.
// Elements are stored in Redis as msgpack blobs; each Load fetches and
// decodes one key on its own goroutine under a per-operation timeout.
// Capacity is a fixed slot count of resident (loading or loaded) elements.
//
// The caller owns the redis.Client lifecycle; the store never closes it.
package redistore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/IvanBrykalov/asynccache/cache"
)

// Compile-time check: Store satisfies the cache's backing-store contract.
var _ cache.Store[string, Handle, struct{}] = (*Store[struct{}])(nil)

// ErrNotFound is reported by Err when the key does not exist in Redis.
// The element simply never becomes ready; the cache does not retry.
var ErrNotFound = errors.New("redistore: key not found")

// Handle identifies an in-progress or completed load.
type Handle int64

// DefaultSlots is the resident element limit used when WithSlots is not given.
const DefaultSlots = 1024

// DefaultTimeout is the per-fetch timeout used when WithTimeout is not given.
// Prevents indefinite hangs on slow or unresponsive storage.
const DefaultTimeout = 5 * time.Second

type config struct {
	prefix  string
	slots   int
	timeout time.Duration
}

// Option configures a Store.
type Option func(*config)

// WithPrefix namespaces all Redis keys as "prefix:key".
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// WithSlots sets the resident element limit. Defaults to DefaultSlots.
func WithSlots(n int) Option {
	return func(c *config) { c.slots = n }
}

// WithTimeout sets the per-fetch timeout. Defaults to DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Store is a Redis-backed, asynchronously loading cache.Store with string
// keys and msgpack-encoded elements.
type Store[E any] struct {
	client *redis.Client
	cfg    config

	mu    sync.Mutex
	tasks map[Handle]*task[E]
	next  Handle
}

// task tracks one fetch. Fields past cancel are guarded by Store.mu.
type task[E any] struct {
	cancel context.CancelFunc
	elem   *E
	err    error
	done   bool
}

// New constructs a Store on top of an existing Redis client.
func New[E any](client *redis.Client, opts ...Option) *Store[E] {
	if client == nil {
		panic("client must not be nil")
	}
	cfg := config{slots: DefaultSlots, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.slots <= 0 {
		panic("slots must be > 0")
	}
	return &Store[E]{
		client: client,
		cfg:    cfg,
		tasks:  make(map[Handle]*task[E]),
	}
}

func (s *Store[E]) prefixKey(key string) string {
	if s.cfg.prefix == "" {
		return key
	}
	return s.cfg.prefix + ":" + key
}

// Load claims a slot and fetches key from Redis on a fresh goroutine.
func (s *Store[E]) Load(key string) Handle {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.timeout)
	t := &task[E]{cancel: cancel}

	s.mu.Lock()
	s.next++
	h := s.next
	s.tasks[h] = t
	s.mu.Unlock()

	go s.fetch(ctx, cancel, t, key)
	return h
}

// fetch performs one GET + decode and publishes the outcome.
func (s *Store[E]) fetch(ctx context.Context, cancel context.CancelFunc, t *task[E], key string) {
	defer cancel()

	data, err := s.client.Get(ctx, s.prefixKey(key)).Bytes()
	if err == redis.Nil {
		err = ErrNotFound
	}
	if err == nil && ctx.Err() != nil {
		// Unloaded while the reply was in transit; drop it.
		err = ctx.Err()
	}
	if err != nil {
		s.publish(t, nil, err)
		return
	}

	var el E
	if err := msgpack.Unmarshal(data, &el); err != nil {
		s.publish(t, nil, err)
		return
	}
	s.publish(t, &el, nil)
}

func (s *Store[E]) publish(t *task[E], el *E, err error) {
	s.mu.Lock()
	t.elem = el
	t.err = err
	t.done = true
	s.mu.Unlock()
}

// Unload cancels the fetch if still in flight and frees the slot.
func (s *Store[E]) Unload(h Handle) {
	s.mu.Lock()
	t, ok := s.tasks[h]
	delete(s.tasks, h)
	s.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// HasRoomFor reports whether a slot is free; every element costs one slot.
func (s *Store[E]) HasRoomFor(string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks) < s.cfg.slots
}

// GetElement returns the decoded element, or (nil, false) while the fetch
// is pending or after it failed.
func (s *Store[E]) GetElement(h Handle) (*E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[h]
	if !ok || !t.done || t.err != nil {
		return nil, false
	}
	return t.elem, true
}

// Err returns the fetch error for h, if any: ErrNotFound for missing keys,
// a decode error for corrupt blobs, or a context error for timeouts.
func (s *Store[E]) Err(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[h]; ok {
		return t.err
	}
	return nil
}

// Len returns the number of claimed slots.
func (s *Store[E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
