package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/planarena/planarena/pkg/config"
)

func TestWatcherDeliversValidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trial:\n  max_results: 101\n"), 0o644))

	w, err := config.NewWatcher(path, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("trial:\n  max_results: 7\n"), 0o644))

	select {
	case cfg := <-w.Updates():
		require.Equal(t, 7, cfg.Trial.MaxResults)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload delivered")
	}
}

func TestWatcherDropsInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trial:\n  max_results: 101\n"), 0o644))

	w, err := config.NewWatcher(path, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	// An invalid write is rejected and must not reach the consumer.
	require.NoError(t, os.WriteFile(path, []byte("trial:\n  work_floor: -1\n"), 0o644))

	select {
	case cfg := <-w.Updates():
		t.Fatalf("unexpected update delivered: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherCloseEndsUpdates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trial:\n  max_results: 101\n"), 0o644))

	w, err := config.NewWatcher(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case _, ok := <-w.Updates():
		require.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("updates channel never closed")
	}
}
