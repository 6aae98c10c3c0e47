package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1F47E/go-inkwell/pkg/dispatch"
)

// run executes fn on the owning goroutine and waits for it.
func run(t *testing.T, d *dispatch.Dispatcher, fn func()) {
	t.Helper()
	done := make(chan struct{})
	d.Submit(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatched task never ran")
	}
}

func newCache(t *testing.T) (*Cache[string, *string], *dispatch.Dispatcher) {
	t.Helper()
	d := dispatch.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)
	return New[string, *string](d), d
}

func TestGetOrCreateMemoizes(t *testing.T) {
	c, d := newCache(t)

	calls := 0
	factory := func() (*string, error) {
		calls++
		s := "payload"
		return &s, nil
	}

	var first, second *string
	run(t, d, func() {
		var err error
		first, err = c.GetOrCreate("style-0/variant-a", factory)
		require.NoError(t, err)
		second, err = c.GetOrCreate("style-0/variant-a", factory)
		require.NoError(t, err)
	})

	assert.Equal(t, 1, calls, "factory ran more than once")
	assert.Same(t, first, second, "payloads not reference-equal")
	assert.Equal(t, 1, c.Len())
}

func TestFactoryErrorCachesNothing(t *testing.T) {
	c, d := newCache(t)

	boom := errors.New("decode failed")
	calls := 0
	run(t, d, func() {
		_, err := c.GetOrCreate("k", func() (*string, error) {
			calls++
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		// a later attempt gets a fresh factory call
		v, err := c.GetOrCreate("k", func() (*string, error) {
			calls++
			s := "ok"
			return &s, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "ok", *v)
	})
	assert.Equal(t, 2, calls)
}

func TestInvalidateAndClear(t *testing.T) {
	c, d := newCache(t)

	factory := func() (*string, error) {
		s := "v"
		return &s, nil
	}
	run(t, d, func() {
		_, _ = c.GetOrCreate("a", factory)
		_, _ = c.GetOrCreate("b", factory)

		c.Invalidate("a")
		_, ok := c.Peek("a")
		assert.False(t, ok)
		_, ok = c.Peek("b")
		assert.True(t, ok)

		c.Clear()
	})
	assert.Equal(t, 0, c.Len())
}

func TestPeekFromWorkerGoroutine(t *testing.T) {
	c, d := newCache(t)

	run(t, d, func() {
		_, _ = c.GetOrCreate("k", func() (*string, error) {
			s := "prepared"
			return &s, nil
		})
	})

	// this test goroutine plays the worker
	v, ok := c.Peek("k")
	require.True(t, ok)
	assert.Equal(t, "prepared", *v)
	_, ok = c.Peek("missing")
	assert.False(t, ok)
}

func TestMutationOffOwnerPanics(t *testing.T) {
	c, _ := newCache(t)

	assert.Panics(t, func() {
		_, _ = c.GetOrCreate("k", func() (*string, error) { return nil, nil })
	})
	assert.Panics(t, func() { c.Invalidate("k") })
	assert.Panics(t, func() { c.Clear() })
}
