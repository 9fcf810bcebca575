package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vkochnev/ral/pkg/log"
)

func TestFormatProgressEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, log.Event{
		Timestamp: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		RunID:     "abcdef0123456789",
		Stage:     log.StageLayout,
		Category:  log.CategoryProgress,
		Progress:  &log.ProgressEvent{Done: true, Count: 12, Duration: 1500 * time.Microsecond},
	})

	out := buf.String()
	if !strings.HasPrefix(out, "2026-03-02T10:00:00.000000Z [run:abcdef01] LAYOUT  PROGRESS\n") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "Done: 12 items in 1.500ms") {
		t.Errorf("expected done line, got:\n%s", out)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, log.Event{
		RunID:    "short",
		Stage:    log.StageResolve,
		Category: log.CategoryError,
		Path:     "gpioa/moder/mode0",
		Error:    &log.ErrorEventData{Kind: "FieldRangeOverflow", Message: "field exceeds register"},
	})

	out := buf.String()
	for _, want := range []string{"[run:short]", "ERROR gpioa/moder/mode0", "Kind: FieldRangeOverflow", "Message: field exceeds register"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestFormatAccessEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, log.Event{
		Stage:    log.StageRuntime,
		Category: log.CategoryAccess,
		Path:     "gpioa.moder",
		Access:   &log.AccessEvent{Op: log.AccessContend},
	})
	if !strings.Contains(buf.String(), "Op: CONTEND") {
		t.Errorf("expected op line, got:\n%s", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0.500us"},
		{2500 * time.Microsecond, "2.500ms"},
		{1500 * time.Millisecond, "1.500s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	s, err := ParseStageFlag("synth")
	if err != nil || s != log.StageSynth {
		t.Errorf("ParseStageFlag(synth) = %v, %v", s, err)
	}
	if _, err := ParseStageFlag("bogus"); err == nil {
		t.Error("expected error for unknown stage")
	}

	c, err := ParseCategoryFlag("Warning")
	if err != nil || c != log.CategoryWarning {
		t.Errorf("ParseCategoryFlag(Warning) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("message"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRunViewFilters(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleRun(ts))

	cat := log.CategoryWarning
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Category: &cat}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	out := buf.String()
	if strings.Count(out, "[run:") != 1 {
		t.Errorf("expected exactly one event, got:\n%s", out)
	}
	if !strings.Contains(out, "Warning: derivation target") {
		t.Errorf("expected warning detail, got:\n%s", out)
	}
}

func TestRunViewPathPrefix(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleRun(ts))

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{PathPrefix: "gpioa/"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if strings.Count(buf.String(), "[run:") != 1 {
		t.Errorf("expected only the file event, got:\n%s", buf.String())
	}
}
