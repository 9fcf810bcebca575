// Package log provides structured event capture for ralgen runs and the
// register runtime.
//
// This package defines the Logger interface and Event types for recording
// what a generation pass did: stage progress, warnings, resolution errors and
// emitted files. It also records runtime register activity through an
// Observer adapter. It is separate from operational logging (slog): event
// capture is a complete machine-readable trace for debugging and analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	events := log.NewSlogAdapter(slog.Default())
//
//	// For CI: write a binary event file
//	events, _ := log.NewFileLogger("build/ralgen.rlog")
//
//	// Both
//	events := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Every event carries a run ID and the pipeline stage it came from:
//   - Progress: a stage started or finished (ProgressEvent)
//   - Warning: a non-fatal finding such as an unknown derivation (WarningEvent)
//   - Error: the error that aborted the run (ErrorEventData)
//   - File: a file was emitted or checked (FileEvent)
//   - Access: a runtime register borrow, contention, write or return (AccessEvent)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys, usually
// with the .rlog extension. The ral-log CLI views and summarizes them.
package log
