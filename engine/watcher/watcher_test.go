package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldProcessEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fractal.wgsl")
	pw, err := NewProgramWatcher(path)
	require.NoError(t, err)
	defer pw.Stop()
	w := pw.(*programWatcher)

	assert.True(t, w.shouldProcessEvent(fsnotify.Event{Name: path, Op: fsnotify.Write}))
	assert.True(t, w.shouldProcessEvent(fsnotify.Event{Name: path, Op: fsnotify.Create}))
	assert.False(t, w.shouldProcessEvent(fsnotify.Event{Name: path, Op: fsnotify.Chmod}))
	assert.False(t, w.shouldProcessEvent(fsnotify.Event{Name: filepath.Join(dir, "other.wgsl"), Op: fsnotify.Write}))
}

func TestChangeIsReportedOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fractal.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("// v1"), 0o644))

	w, err := NewProgramWatcher(path, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("// edit"), 0o644))
	}

	select {
	case got := <-w.Changes():
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case <-w.Changes():
		t.Fatal("burst reported more than once")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w, err := NewProgramWatcher(filepath.Join(t.TempDir(), "fractal.cl"))
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
