package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Warnings and errors log at their own levels; everything else at Debug.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.String("stage", event.Stage.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}
	if event.Path != "" {
		attrs = append(attrs, slog.String("path", event.Path))
	}

	level := slog.LevelDebug
	switch {
	case event.Progress != nil:
		attrs = append(attrs, slog.Bool("done", event.Progress.Done))
		if event.Progress.Done {
			attrs = append(attrs,
				slog.Int("count", event.Progress.Count),
				slog.Duration("duration", event.Progress.Duration),
			)
		}
	case event.Warning != nil:
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("warning", event.Warning.Message))
	case event.Error != nil:
		level = slog.LevelError
		attrs = append(attrs, slog.String("error", event.Error.Message))
		if event.Error.Kind != "" {
			attrs = append(attrs, slog.String("kind", event.Error.Kind))
		}
	case event.File != nil:
		attrs = append(attrs,
			slog.Int("size", event.File.Size),
			slog.String("digest", event.File.Digest),
		)
		if event.File.Status != "" {
			attrs = append(attrs, slog.String("status", event.File.Status))
		}
	case event.Access != nil:
		attrs = append(attrs, slog.String("op", event.Access.Op.String()))
	}

	a.logger.LogAttrs(context.Background(), level, "event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
