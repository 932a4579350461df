package memstore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/asynccache/cache"
)

// gatedLoader blocks every load until release is closed.
func gatedLoader(release <-chan struct{}) Loader[string, string] {
	return func(ctx context.Context, key string) (string, error) {
		select {
		case <-release:
			return "v:" + key, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func TestStore_LoadAndPoll(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	s := New(gatedLoader(release), Options{Slots: 4})

	h := s.Load("a")
	_, ok := s.GetElement(h)
	assert.False(t, ok, "element must not be ready before the loader runs")

	close(release)
	require.Eventually(t, func() bool {
		_, ok := s.GetElement(h)
		return ok
	}, time.Second, time.Millisecond)

	el, ok := s.GetElement(h)
	require.True(t, ok)
	assert.Equal(t, "v:a", *el)
	assert.NoError(t, s.Err(h))

	// Repeated polls are side-effect free and stable.
	again, ok := s.GetElement(h)
	require.True(t, ok)
	assert.Same(t, el, again)
}

func TestStore_UnloadCancelsInFlight(t *testing.T) {
	t.Parallel()

	canceled := make(chan error, 1)
	s := New(func(ctx context.Context, key string) (string, error) {
		<-ctx.Done()
		canceled <- ctx.Err()
		return "", ctx.Err()
	}, Options{Slots: 1})

	h := s.Load("a")
	assert.False(t, s.HasRoomFor("b"), "the only slot is claimed")

	s.Unload(h)
	assert.True(t, s.HasRoomFor("b"), "slot must be free immediately after Unload")
	assert.Equal(t, 0, s.Len())

	select {
	case err := <-canceled:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loader was not canceled")
	}
}

func TestStore_SlotAccounting(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	s := New(gatedLoader(release), Options{Slots: 2})

	h1 := s.Load("a")
	assert.True(t, s.HasRoomFor("b"))
	s.Load("b")
	assert.False(t, s.HasRoomFor("c"), "both slots claimed")
	assert.Equal(t, 2, s.Len())

	s.Unload(h1)
	assert.True(t, s.HasRoomFor("c"))
	assert.Equal(t, 1, s.Len())
}

func TestStore_LoaderError(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("backing data corrupt")
	s := New(func(ctx context.Context, key string) (string, error) {
		return "", errBroken
	}, Options{Slots: 1})

	h := s.Load("a")
	require.Eventually(t, func() bool {
		return s.Err(h) != nil
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, s.Err(h), errBroken)
	_, ok := s.GetElement(h)
	assert.False(t, ok, "a failed load never becomes ready")
}

func TestStore_BoundedWorkers(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int64
	release := make(chan struct{})
	s := New(func(ctx context.Context, key string) (string, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		select {
		case <-release:
			return key, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}, Options{Slots: 8, Workers: 2})

	handles := make([]Handle, 0, 8)
	for _, k := range []string{"a", "b", "c", "d", "e", "f"} {
		handles = append(handles, s.Load(k))
	}
	time.Sleep(20 * time.Millisecond)
	close(release)

	for _, h := range handles {
		require.Eventually(t, func() bool {
			_, ok := s.GetElement(h)
			return ok
		}, time.Second, time.Millisecond)
	}
	assert.LessOrEqual(t, peak.Load(), int64(2), "worker bound exceeded")
}

// End to end with the cache itself: request, poll to availability, release,
// make room. The cache runs on this goroutine only; the store does the
// concurrent part.
func TestStore_WithCache(t *testing.T) {
	t.Parallel()

	s := New(func(ctx context.Context, key string) (string, error) {
		return "v:" + key, nil
	}, Options{Slots: 2})
	c := cache.New[string, Handle, string](s, cache.Options[string]{})

	require.True(t, c.Request("a"))
	require.True(t, c.Request("b"))

	get := func(k string) *string {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if el, ok := c.Get(k); ok {
				return el
			}
			time.Sleep(time.Millisecond)
		}
		t.Fatalf("%s never became available", k)
		return nil
	}

	assert.Equal(t, "v:a", *get("a"))
	assert.Equal(t, "v:b", *get("b"))

	// Full of held entries: a new request must fail.
	require.False(t, c.Request("c"))

	// Releasing a lets room-making reclaim it for c.
	require.NoError(t, c.Release("a", false))
	require.True(t, c.Request("c"))
	assert.Equal(t, "v:c", *get("c"))
	assert.False(t, c.IsCached("a"))
	assert.True(t, c.IsCached("b"))

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, s.Len(), "Clear must give every slot back")
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { New[string, string](nil, Options{Slots: 1}) })
	assert.Panics(t, func() {
		New(func(ctx context.Context, k string) (string, error) { return k, nil }, Options{})
	})
}
