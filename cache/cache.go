package cache

import (
	"errors"
	"iter"
)

// ErrNotHeld is returned by Release and ReleaseElement when the entry was
// never actively held by the caller (Prefetched or already Released) and
// force was not set.
var ErrNotHeld = errors.New("cache: release of an entry that is not held")

// cache tracks entry lifecycle on top of a backing Store.
// Entries live in a map for key lookup and an intrusive doubly linked list
// whose order is the eviction order (head first).
type cache[K comparable, H comparable, E any] struct {
	store Store[K, H, E]
	opt   Options[K]

	m    map[K]*entry[K, H, E]
	head *entry[K, H, E] // first eviction candidate
	tail *entry[K, H, E] // last eviction candidate
	len  int
}

// New constructs a cache over the given backing store.
// Panics if store is nil. A nil Options.Metrics defaults to NoopMetrics.
func New[K comparable, H comparable, E any](store Store[K, H, E], opt Options[K]) Cache[K, H, E] {
	if store == nil {
		panic("store must not be nil")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	// return pointer-to-impl as the interface (avoids unexported-return lint)
	return &cache[K, H, E]{
		store: store,
		opt:   opt,
		m:     make(map[K]*entry[K, H, E]),
	}
}

// ---- Cache[K,H,E] implementation ----

// Request ensures an entry for k exists and is progressing toward
// availability. Returns false only when a new entry is needed and
// room-making fails; no entry is created in that case.
func (c *cache[K, H, E]) Request(k K) bool {
	e, ok := c.m[k]
	if !ok {
		ok = c.fetch(k, Requested) != nil
		c.opt.Metrics.Size(c.len)
		return ok
	}

	switch e.state {
	case Requested, Available:
		// Already on its way or already usable.

	case Prefetched:
		// Claim the prefetch: resolve now if the load finished, otherwise
		// promote the passive prefetch to an active request.
		if el, ready := c.store.GetElement(e.handle); ready {
			e.elem = el
			e.state = Available
		} else {
			e.state = Requested
		}

	case Released:
		c.reload(e)
	}
	return true
}

// Prefetch ensures an entry for k exists and is scheduled without marking
// it actively wanted. If there is no room, the element is not loaded.
func (c *cache[K, H, E]) Prefetch(k K) {
	e, ok := c.m[k]
	if !ok {
		c.fetch(k, Prefetched)
		c.opt.Metrics.Size(c.len)
		return
	}

	switch e.state {
	case Requested, Available:
		// Already at least as wanted as a prefetch.

	case Prefetched, Released:
		// Extend the lifetime: last to be evicted. State is unchanged.
		c.moveToBack(e)
	}
}

// Get returns the element for k once it is available. Readiness is
// resolved only from the Requested state; a prefetched element must be
// claimed via Request first.
func (c *cache[K, H, E]) Get(k K) (*E, bool) {
	e, ok := c.m[k]
	if !ok {
		c.opt.Metrics.Miss()
		return nil, false
	}

	if e.state == Requested {
		if el, ready := c.store.GetElement(e.handle); ready {
			e.elem = el
			e.state = Available
		}
	}
	if e.state != Available {
		c.opt.Metrics.Miss()
		return nil, false
	}
	c.opt.Metrics.Hit()
	return e.elem, true
}

// Release marks the entry for k as no longer used. See Cache.Release.
func (c *cache[K, H, E]) Release(k K, force bool) error {
	e, ok := c.m[k]
	if !ok {
		return nil
	}
	return c.release(e, force)
}

// ReleaseElement is Release keyed by element identity. Element addresses
// are not unique across evictions and reloads; a stale pointer may match a
// different entry.
func (c *cache[K, H, E]) ReleaseElement(el *E, force bool) error {
	if el == nil {
		// Entries still loading hold a nil element; nil must not match them.
		return nil
	}
	e := c.findElement(el)
	if e == nil {
		return nil
	}
	return c.release(e, force)
}

// IsCached reports whether k has a resolved element (Available or
// Released). Entries still loading report false.
func (c *cache[K, H, E]) IsCached(k K) bool {
	e, ok := c.m[k]
	return ok && (e.state == Available || e.state == Released)
}

// IsEmpty reports whether the cache holds no entries, loading or otherwise.
func (c *cache[K, H, E]) IsEmpty() bool { return c.len == 0 }

// Len returns the number of entries in any state.
func (c *cache[K, H, E]) Len() int { return c.len }

// Clear unloads and removes every entry regardless of state. In-flight
// loads are canceled through Unload.
func (c *cache[K, H, E]) Clear() {
	for c.head != nil {
		c.evict(c.head, EvictClear)
	}
	c.opt.Metrics.Size(c.len)
}

// Entries iterates over entries in eviction order, first candidate first.
func (c *cache[K, H, E]) Entries() iter.Seq2[K, State] {
	return func(yield func(K, State) bool) {
		for e := c.head; e != nil; e = e.next {
			if !yield(e.key, e.state) {
				return
			}
		}
	}
}

// -------------------- internals --------------------

// release dispatches on the entry's state. A forced release evicts in any
// state; otherwise a not-yet-available entry is evicted outright (the load
// is canceled), an available entry is parked as Released at the back of
// the eviction order, and anything else is a usage error.
func (c *cache[K, H, E]) release(e *entry[K, H, E], force bool) error {
	switch {
	case e.state == Requested || force:
		c.evict(e, EvictForced)

	case e.state == Available:
		e.state = Released
		c.moveToBack(e)

	default:
		// Prefetched and Released entries were never held by the caller.
		return ErrNotHeld
	}
	c.opt.Metrics.Size(c.len)
	return nil
}

// fetch makes room for, loads, and appends a new entry for k in the given
// initial state. Returns nil if room-making fails; no load is started and
// no entry is created in that case.
func (c *cache[K, H, E]) fetch(k K, state State) *entry[K, H, E] {
	if !c.makeRoom(k) {
		return nil
	}
	e := &entry[K, H, E]{key: k, state: state, handle: c.store.Load(k)}
	c.m[k] = e
	c.pushBack(e)
	return e
}

// makeRoom scans from the head, unloading Released and Prefetched entries
// until the store reports room for k or the scan ends. Requested and
// Available entries are skipped in place. Returns the final HasRoomFor.
func (c *cache[K, H, E]) makeRoom(k K) bool {
	e := c.head
	for !c.store.HasRoomFor(k) && e != nil {
		next := e.next
		if e.state == Released || e.state == Prefetched {
			c.evict(e, EvictCapacity)
		}
		e = next
	}
	return c.store.HasRoomFor(k)
}

// evict unloads the entry's backing data and removes the entry.
func (c *cache[K, H, E]) evict(e *entry[K, H, E], reason EvictReason) {
	c.store.Unload(e.handle)
	c.remove(e)
	delete(c.m, e.key)
	c.opt.Metrics.Evict(reason)
	if cb := c.opt.OnEvict; cb != nil {
		cb(e.key, reason)
	}
}

// reload revives a released entry. The previously resolved element and
// handle are reused without contacting the store; the store keeps both
// valid until the entry is actually unloaded.
func (c *cache[K, H, E]) reload(e *entry[K, H, E]) {
	e.state = Available
}

// findElement returns the entry holding el, or nil. Linear scan: element
// identity lookups exist only for the ReleaseElement path and caches are
// assumed small.
func (c *cache[K, H, E]) findElement(el *E) *entry[K, H, E] {
	for e := c.head; e != nil; e = e.next {
		if e.elem == el {
			return e
		}
	}
	return nil
}

// pushBack appends e as the last eviction candidate in O(1).
func (c *cache[K, H, E]) pushBack(e *entry[K, H, E]) {
	e.prev = c.tail
	e.next = nil
	if c.tail != nil {
		c.tail.next = e
	}
	c.tail = e
	if c.head == nil {
		c.head = e
	}
	c.len++
}

// moveToBack relocates e to the last eviction slot in O(1).
func (c *cache[K, H, E]) moveToBack(e *entry[K, H, E]) {
	if e == c.tail {
		return
	}
	// detach
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if c.head == e {
		c.head = e.next
	}
	// append
	e.prev = c.tail
	e.next = nil
	if c.tail != nil {
		c.tail.next = e
	}
	c.tail = e
	if c.head == nil {
		c.head = e
	}
}

// remove unlinks e and updates counters in O(1).
func (c *cache[K, H, E]) remove(e *entry[K, H, E]) {
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if c.head == e {
		c.head = e.next
	}
	if c.tail == e {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
	c.len--
}
