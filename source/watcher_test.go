package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsNewFiles(t *testing.T) {
	root := t.TempDir()

	w, err := NewWatcher(WatchConfig{Debounce: 20 * time.Millisecond}, root, nil)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	path := filepath.Join(root, "new.dcm")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ignored.txt"), []byte("x"), 0644))

	select {
	case ev := <-w.Events():
		assert.Equal(t, FileRef(path), ev.Ref)
		assert.Equal(t, WatchOpCreate, ev.Operation)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}

func TestWatcher_SkipsUnchangedContent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "same.dcm")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	w, err := NewWatcher(WatchConfig{Debounce: 10 * time.Millisecond}, root, nil)
	require.NoError(t, err)
	defer w.Stop()

	_, digest, err := FileDigest(path)
	require.NoError(t, err)
	w.Remember(FileRef(path), digest)

	w.pending[path] = 0
	w.flushPending(context.Background())

	select {
	case ev := <-w.events:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestWatcher_ReportsDeletes(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(WatchConfig{}, root, nil)
	require.NoError(t, err)
	defer w.Stop()

	gone := filepath.Join(root, "gone.dcm")
	w.pending[gone] = 0
	w.flushPending(context.Background())

	ev := <-w.events
	assert.Equal(t, WatchOpDelete, ev.Operation)
	assert.Equal(t, FileRef(gone), ev.Ref)
}
