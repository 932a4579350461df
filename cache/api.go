package cache

import "iter"

// Cache manages the lifecycle of asynchronously loaded elements on top of a
// backing Store. It is a passive, single-context state tracker: methods
// never block and never spawn work. Concurrent access must be guarded by
// the caller.
//
// Typical operation cost is O(1) expected: one map lookup plus constant
// list adjustments. Room-making and lookups by element identity are O(n)
// over resident entries.
type Cache[K comparable, H comparable, E any] interface {
	// Request ensures an entry for k exists and is progressing toward
	// availability, starting an asynchronous load if needed. It returns
	// false only when no entry exists yet and room-making cannot free
	// enough capacity; in that case no entry is created.
	//
	// Requesting a Requested or Available entry is a no-op. Requesting a
	// Prefetched entry claims it (promoting to Available if the load
	// already finished). Requesting a Released entry revives it with its
	// previously resolved element, without contacting the store.
	Request(k K) bool

	// Prefetch ensures an entry for k exists and is scheduled, without
	// marking it actively wanted. A prefetched element is not retrievable
	// until claimed via Request, and may be evicted at any time. No-op if
	// k is already Requested or Available; on a Prefetched or Released
	// entry it extends the lifetime (last to be evicted). Prefetch reports
	// nothing: if there is no room, the element simply is not loaded.
	Prefetch(k K)

	// Get returns the element for k once it is available. It resolves
	// readiness only for Requested entries; for Prefetched, Released, and
	// absent keys it returns (nil, false).
	Get(k K) (*E, bool)

	// Release marks the entry for k as no longer used. A Requested entry
	// is evicted outright (canceling the in-flight load); an Available
	// entry becomes Released and moves to the back of the eviction order,
	// or is evicted immediately if force is set. With force set, an entry
	// is evicted whatever its state.
	//
	// Releasing a Prefetched or Released entry without force is a contract
	// violation (the caller never actively held it) and returns ErrNotHeld.
	// Releasing an absent key is a silent no-op.
	Release(k K, force bool) error

	// ReleaseElement is Release keyed by element identity instead of key.
	// Element addresses are not unique across evictions and reloads;
	// releasing by a stale pointer may hit a different entry.
	ReleaseElement(el *E, force bool) error

	// IsCached reports whether k has a resolved element in the cache
	// (Available or Released). Entries still loading report false.
	IsCached(k K) bool

	// IsEmpty reports whether the cache holds no entries at all, loading
	// or otherwise.
	IsEmpty() bool

	// Len returns the number of entries in any state.
	Len() int

	// Clear unloads and removes every entry regardless of state, including
	// ones still loading. This is the only operation that evicts Requested
	// and Available entries wholesale.
	Clear()

	// Entries iterates over resident entries in eviction order, first
	// candidate first. Read-only diagnostic view; the cache must not be
	// mutated during iteration.
	Entries() iter.Seq2[K, State]
}
