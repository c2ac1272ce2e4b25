package workspace

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileWatcherDebouncesChanges(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()

	var calls atomic.Int32
	fired := make(chan struct{}, 4)
	fw, err := NewFileWatcher([]string{rootA, rootB}, 100*time.Millisecond, func() {
		calls.Add(1)
		fired <- struct{}{}
	})
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	t.Cleanup(fw.Stop)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(rootA, "a.py"), []byte("x = 1\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "b.py"), []byte("y = 2\n"), 0o644))

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change callback")
	}

	// a burst of writes collapses into a single callback
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
}

func TestFileWatcherStartMissingRoot(t *testing.T) {
	fw, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "missing")}, 0, func() {})
	require.NoError(t, err)
	require.Error(t, fw.Start())
}

func TestFileWatcherStopWithoutStart(t *testing.T) {
	fw, err := NewFileWatcher([]string{t.TempDir()}, 0, func() {})
	require.NoError(t, err)
	fw.Stop()
	fw.Stop()
}
