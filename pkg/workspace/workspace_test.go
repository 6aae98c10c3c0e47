package workspace

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireCreatesUniqueDirs(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "runs"))

	const n = 20
	seen := make(map[string]struct{})
	handles := make([]*Handle, 0, n)
	for i := 0; i < n; i++ {
		h, err := m.Acquire()
		require.NoError(t, err)
		handles = append(handles, h)

		_, dup := seen[h.ID()]
		assert.False(t, dup, "duplicate identity %s", h.ID())
		seen[h.ID()] = struct{}{}

		info, err := os.Stat(h.Dir())
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, n, m.LiveCount())

	for _, h := range handles {
		require.NoError(t, h.Release())
	}
	assert.Equal(t, 0, m.LiveCount())
}

func TestReleaseRemovesContents(t *testing.T) {
	m := NewManager(t.TempDir())

	h, err := m.Acquire()
	require.NoError(t, err)

	// leave some scratch artifacts behind
	require.NoError(t, os.WriteFile(h.Path("page-alpha.png"), []byte("img"), 0o644))
	require.NoError(t, os.Mkdir(h.Path("frames"), os.ModePerm))

	require.NoError(t, h.Release())
	_, err = os.Stat(h.Dir())
	assert.True(t, os.IsNotExist(err), "workspace storage still present after release")
}

func TestReleaseIsIdempotent(t *testing.T) {
	m := NewManager(t.TempDir())

	h, err := m.Acquire()
	require.NoError(t, err)

	require.NoError(t, h.Release())
	require.NoError(t, h.Release())
	require.NoError(t, h.Release())
	assert.Equal(t, 0, m.LiveCount())
}

func TestReleaseSafeAfterPartialCreation(t *testing.T) {
	m := NewManager(t.TempDir())

	h, err := m.Acquire()
	require.NoError(t, err)

	// simulate a run that already tore its dir down
	require.NoError(t, os.RemoveAll(h.Dir()))
	assert.NoError(t, h.Release())
	assert.Equal(t, 0, m.LiveCount())
}

func TestConcurrentAcquireRelease(t *testing.T) {
	m := NewManager(t.TempDir())

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	ids := make(map[string]struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				h, err := m.Acquire()
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				_, dup := ids[h.ID()]
				ids[h.ID()] = struct{}{}
				mu.Unlock()
				assert.False(t, dup, "identity reused across live runs")
				assert.NoError(t, h.Release())
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, m.LiveCount())
}

func TestAcquireFailsOnBadRoot(t *testing.T) {
	// a file where the root dir should be
	base := t.TempDir()
	rootAsFile := filepath.Join(base, "runs")
	require.NoError(t, os.WriteFile(rootAsFile, []byte("x"), 0o644))

	m := NewManager(rootAsFile)
	_, err := m.Acquire()
	assert.Error(t, err)
	assert.Equal(t, 0, m.LiveCount())
}
