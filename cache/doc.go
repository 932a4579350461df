// Package cache provides a generic, backing-store-agnostic manager for
// elements that load asynchronously: a request returns immediately while the
// payload becomes available later, out of band. The cache tracks per-key
// lifecycle state, decides eviction order under capacity pressure, and
// bridges "pending" and "ready" via non-blocking polls of the backing store.
//
// Design
//
//   - Division of labor: the cache owns only entry metadata (key, state,
//     handle). The backing store (the Store interface) owns element memory,
//     performs the actual loads and cancellations, and is the sole authority
//     on capacity via HasRoomFor. The cache never allocates, frees, or
//     inspects element storage.
//
//   - Storage: a map[K]*entry for key lookups plus an intrusive doubly
//     linked list whose order encodes eviction priority, head (evict first)
//     to tail (evict last). New entries append at the tail; released or
//     re-prefetched entries relocate to the tail. Among entries eligible
//     for eviction this yields FIFO: the earliest-released is reclaimed
//     first.
//
//   - States: an entry is Requested (a consumer is waiting; protected from
//     room-making), Prefetched (speculative; evictable at any time, even
//     mid-load), Available (resolved), or Released (resolved but idle;
//     evictable, reusable via Request without a new load).
//
//   - Room-making: before every new load the cache scans the list from the
//     head, unloading Released and Prefetched entries until HasRoomFor is
//     satisfied or the scan ends. Requested and Available entries are never
//     touched by this path.
//
//   - Concurrency: none. "Asynchronous" describes the payload's arrival,
//     not the cache's execution model. The cache is a passive state tracker
//     and never blocks or spawns work; concurrent access must be guarded by
//     the caller. Conforming stores are internally synchronized because
//     their load goroutines complete while the cache polls.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     NoopMetrics is the default; plug the Prometheus adapter to export.
//
//   - Callbacks: Options.OnEvict(k, reason) is called for every eviction
//     (reason is one of EvictCapacity, EvictForced, EvictClear).
//
// Basic usage
//
//	// store is any Store implementation, e.g. memstore.
//	c := cache.New[string, memstore.Handle, Texture](store, cache.Options[string]{})
//	c.Request("hero")          // begins an asynchronous load
//	// ... later, poll:
//	if tex, ok := c.Get("hero"); ok {
//	    draw(tex)
//	    _ = c.Release("hero", false) // done; evictable, but still cached
//	}
//
// Prefetching
//
//	c.Prefetch("level2")        // speculative; not retrievable yet
//	_, ok := c.Get("level2")    // ok == false even if the load finished
//	c.Request("level2")         // claims the prefetch; Get works once ready
//
// A prefetched element must always be claimed via Request before Get will
// return it. Prefetched entries may be discarded by room-making at any
// moment, including while their load is still in flight.
//
// Release contract
//
// Every successful Request must eventually be balanced by a Release. A
// released element stays cached (IsCached reports true) and a later Request
// revives it without contacting the backing store, as long as room-making
// has not reclaimed it in the meantime. Releasing an entry that was never
// actively held (Prefetched or already Released) returns ErrNotHeld.
//
// See options.go for all Options fields and store.go for the exact
// obligations a backing store must uphold.
package cache
