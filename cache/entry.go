package cache

// State is the lifecycle state of a cache entry.
type State uint8

const (
	// Requested — a consumer is actively waiting for the load to finish.
	// Protected from room-making while loading.
	Requested State = iota
	// Prefetched — speculative load, not claimed by any requester.
	// Evictable at any time, even before the load completes.
	Prefetched
	// Available — loaded and resolved; in active use until released.
	Available
	// Released — resolved but no longer held. Eligible for eviction, yet
	// reusable through Request without a new load until then.
	Released
)

// String returns a short lowercase name for the state.
func (s State) String() string {
	switch s {
	case Requested:
		return "requested"
	case Prefetched:
		return "prefetched"
	case Available:
		return "available"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// entry is an intrusive doubly linked list element owned by the cache.
// It holds the per-key lifecycle record: state, the backing store's
// correlation handle, and the element reference once resolved.
//
// The element pointer is non-owning. The backing store keeps it valid until
// Unload is called for the entry's handle.
type entry[K comparable, H comparable, E any] struct {
	key    K
	state  State
	handle H
	elem   *E // nil until the store confirms readiness

	// List links: head is the first eviction candidate, tail the last.
	prev *entry[K, H, E]
	next *entry[K, H, E]
}
