package cache

// Store is the contract between the cache and a concrete backing store.
// The backing store owns element memory and handle validity for an entry's
// entire life; the cache only correlates handles back to it.
//
// Any conforming implementation can be substituted: file streaming, GPU
// resource upload, network fetch. The memstore and redistore packages in
// this module are two such implementations.
//
// Obligations (the cache trusts these completely and does not detect
// violations):
//
//   - Load must return promptly without waiting for the payload. The
//     returned handle must stay valid and correlatable until Unload is
//     called with it.
//   - Unload must be safe whether or not loading has completed, and must
//     cancel a load still in flight before returning; the cache treats the
//     slot as free for reuse immediately after. Calling Unload twice with
//     the same handle is outside the contract.
//   - HasRoomFor is a pure capacity predicate. It is the cache's sole
//     source of truth about space; the cache performs no capacity
//     accounting of its own.
//   - GetElement is a non-blocking poll: the element reference once ready,
//     or (nil, false) while pending. It must be callable repeatedly with no
//     side effect beyond reporting current readiness. A load that fails
//     permanently simply never becomes ready; retry policy, if any, lives
//     in the store.
type Store[K comparable, H comparable, E any] interface {
	// Load begins loading the element identified by key and returns a
	// handle used to poll and unload it.
	Load(key K) H

	// Unload releases the element identified by handle, canceling the
	// load if it is still in flight.
	Unload(handle H)

	// HasRoomFor reports whether the store has room to load key.
	HasRoomFor(key K) bool

	// GetElement returns the loaded element for handle, or (nil, false)
	// while the load is pending (or has failed).
	GetElement(handle H) (*E, bool)
}
