package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, paths []string, fn func(context.Context, []string) error) {
	t.Helper()
	w, err := New(paths, Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, fn) }()
	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
		w.Close()
	})
}

func TestNewRejectsMissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "missing", "dev.svd")}, Options{})
	assert.Error(t, err)
}

func TestFilesAreAbsolute(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "b.yaml"), filepath.Join(dir, "a.svd")}, Options{})
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, []string{filepath.Join(dir, "a.svd"), filepath.Join(dir, "b.yaml")}, w.Files())
}

func TestBurstRunsOnce(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dev.svd")
	require.NoError(t, os.WriteFile(input, []byte("v0"), 0o644))

	calls := make(chan []string, 10)
	startWatcher(t, []string{input}, func(_ context.Context, changed []string) error {
		calls <- changed
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(input, []byte{byte('a' + i)}, 0o644))
	}

	select {
	case changed := <-calls:
		assert.Equal(t, []string{input}, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("callback not called")
	}
	select {
	case changed := <-calls:
		t.Fatalf("unexpected second call: %v", changed)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestUnrelatedFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dev.svd")
	require.NoError(t, os.WriteFile(input, []byte("v0"), 0o644))

	var calls atomic.Int32
	startWatcher(t, []string{input}, func(context.Context, []string) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestCallbackErrorKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dev.svd")
	require.NoError(t, os.WriteFile(input, []byte("v0"), 0o644))

	calls := make(chan struct{}, 10)
	startWatcher(t, []string{input}, func(context.Context, []string) error {
		calls <- struct{}{}
		return errors.New("bad input")
	})

	for i := 0; i < 2; i++ {
		require.NoError(t, os.WriteFile(input, []byte{byte('a' + i)}, 0o644))
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatalf("callback %d not called", i)
		}
	}
}

func TestRenameOverInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "dev.yaml")
	require.NoError(t, os.WriteFile(input, []byte("v0"), 0o644))

	calls := make(chan []string, 10)
	startWatcher(t, []string{input}, func(_ context.Context, changed []string) error {
		calls <- changed
		return nil
	})

	tmp := filepath.Join(dir, ".dev.yaml.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("v1"), 0o644))
	require.NoError(t, os.Rename(tmp, input))

	select {
	case changed := <-calls:
		assert.Contains(t, changed, input)
	case <-time.After(5 * time.Second):
		t.Fatal("callback not called")
	}
}
