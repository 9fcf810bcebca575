package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestFileLoggerWritesCBOR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	event := Event{
		Timestamp: time.Now(),
		RunID:     "run-123",
		Stage:     StageEmit,
		Category:  CategoryFile,
		Path:      "gpioa/moder.go",
		File:      &FileEvent{Size: 1024, Digest: "blake2b-256:00"},
	}
	logger.Log(event)
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if decoded.RunID != event.RunID {
		t.Errorf("RunID: got %q, want %q", decoded.RunID, event.RunID)
	}
	if decoded.Path != event.Path {
		t.Errorf("Path: got %q, want %q", decoded.Path, event.Path)
	}
	if decoded.File == nil {
		t.Fatal("File is nil")
	}
	if decoded.File.Size != 1024 {
		t.Errorf("File.Size: got %d, want 1024", decoded.File.Size)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rlog")

	for i, run := range []string{"first", "second"} {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		logger.Log(Event{Timestamp: time.Now(), RunID: run})
		logger.Close()
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	events, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].RunID != "first" || events[1].RunID != "second" {
		t.Errorf("runs: got %q, %q", events[0].RunID, events[1].RunID)
	}
}

func TestFileLoggerConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const goroutines, perGoroutine = 8, 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				logger.Log(Event{
					Timestamp: time.Now(),
					RunID:     "run",
					Stage:     StageRuntime,
					Category:  CategoryAccess,
					Access:    &AccessEvent{Op: AccessWrite},
				})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	if err := logger.Err(); err != nil {
		t.Fatalf("logger error: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	events, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != goroutines*perGoroutine {
		t.Errorf("got %d events, want %d", len(events), goroutines*perGoroutine)
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	logger, err := NewFileLogger(filepath.Join(t.TempDir(), "test.rlog"))
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	// Dropped, not a panic.
	logger.Log(Event{RunID: "late"})
}

func TestNewFileLoggerBadPath(t *testing.T) {
	_, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "test.rlog"))
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
