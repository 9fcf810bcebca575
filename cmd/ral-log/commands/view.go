// Package commands implements the ral-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vkochnev/ral/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Stage      *log.Stage
	Category   *log.Category
	PathPrefix string
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [run:id] STAGE CATEGORY path
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [run:%s] %-7s %s", ts, shortenRunID(event.RunID), event.Stage, event.Category)
	if event.Path != "" {
		fmt.Fprintf(w, " %s", event.Path)
	}
	fmt.Fprintln(w)

	if event.Device != "" {
		fmt.Fprintf(w, "  Device: %s\n", event.Device)
	}

	switch {
	case event.Progress != nil:
		formatProgressDetails(w, event.Progress)
	case event.Warning != nil:
		fmt.Fprintf(w, "  Warning: %s\n", event.Warning.Message)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	case event.File != nil:
		formatFileDetails(w, event.File)
	case event.Access != nil:
		fmt.Fprintf(w, "  Op: %s\n", event.Access.Op)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenRunID returns the first 8 characters of the run ID.
func shortenRunID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatProgressDetails(w io.Writer, p *log.ProgressEvent) {
	if !p.Done {
		fmt.Fprintln(w, "  Started")
		return
	}
	fmt.Fprintf(w, "  Done: %d items in %s\n", p.Count, formatDuration(p.Duration))
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	if err.Kind != "" {
		fmt.Fprintf(w, "  Kind: %s\n", err.Kind)
	}
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
}

func formatFileDetails(w io.Writer, f *log.FileEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", f.Size)
	if f.Digest != "" {
		fmt.Fprintf(w, "  Digest: %s\n", f.Digest)
	}
	if f.Status != "" {
		fmt.Fprintf(w, "  Status: %s\n", f.Status)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseStageFlag parses a stage name from a command-line flag (case-insensitive).
func ParseStageFlag(s string) (log.Stage, error) {
	st, ok := log.ParseStage(strings.ToUpper(s))
	if !ok {
		return 0, fmt.Errorf("invalid stage: %s (must be load, resolve, layout, synth, emit, check, or runtime)", s)
	}
	return st, nil
}

// ParseCategoryFlag parses a category name from a command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	c, ok := log.ParseCategory(strings.ToUpper(s))
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (must be progress, warning, error, file, or access)", s)
	}
	return c, nil
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, log.Filter{
		Stage:      filter.Stage,
		Category:   filter.Category,
		PathPrefix: filter.PathPrefix,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
