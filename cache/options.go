package cache

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity — reclaimed by room-making to fit a new load.
	EvictCapacity EvictReason = iota
	// EvictForced — removed by Release: either a forced eviction or the
	// release of an entry that never finished loading.
	EvictForced
	// EvictClear — removed by Clear.
	EvictClear
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	// Hit is recorded when Get returns an element.
	Hit()
	// Miss is recorded when Get returns nothing (absent, pending,
	// prefetched, or released).
	Miss()
	// Evict is recorded for every removed entry, with the reason.
	Evict(reason EvictReason)
	// Size reports the entry count after every mutating operation.
	Size(entries int)
}

// Options configures cache behavior. The zero value is safe; defaults are
// applied in New():
//   - nil Metrics => NoopMetrics
type Options[K comparable] struct {
	// Metrics receives Hit/Miss/Evict/Size signals. Nil => NoopMetrics.
	Metrics Metrics

	// OnEvict is called for every eviction, after the backing store's
	// Unload has returned. Keep callbacks lightweight; they run inside
	// cache operations.
	OnEvict func(k K, reason EvictReason)
}
