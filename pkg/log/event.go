package log

import (
	"time"
)

// Event is one captured generation or runtime event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID identifies one generator run or runtime session (UUID).
	RunID string `cbor:"2,keyasint"`

	// Stage is the pipeline stage that produced the event.
	Stage Stage `cbor:"3,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"4,keyasint"`

	// Device is the resolved device name, once known.
	Device string `cbor:"5,keyasint,omitempty"`

	// Path is the node path ("gpioa/moder/mode0") or file path the event
	// is about.
	Path string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Progress *ProgressEvent  `cbor:"10,keyasint,omitempty"`
	Warning  *WarningEvent   `cbor:"11,keyasint,omitempty"`
	Error    *ErrorEventData `cbor:"12,keyasint,omitempty"`
	File     *FileEvent      `cbor:"13,keyasint,omitempty"`
	Access   *AccessEvent    `cbor:"14,keyasint,omitempty"`
}

// Stage is a pipeline stage.
type Stage uint8

const (
	StageLoad Stage = iota
	StageResolve
	StageLayout
	StageSynth
	StageEmit
	StageCheck
	StageRuntime
)

var stageNames = [...]string{"LOAD", "RESOLVE", "LAYOUT", "SYNTH", "EMIT", "CHECK", "RUNTIME"}

// String returns the stage name.
func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "UNKNOWN"
}

// ParseStage returns the stage with the given name.
func ParseStage(name string) (Stage, bool) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), true
		}
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	CategoryProgress Category = iota
	CategoryWarning
	CategoryError
	CategoryFile
	CategoryAccess
)

var categoryNames = [...]string{"PROGRESS", "WARNING", "ERROR", "FILE", "ACCESS"}

// String returns the category name.
func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "UNKNOWN"
}

// ParseCategory returns the category with the given name.
func ParseCategory(name string) (Category, bool) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), true
		}
	}
	return 0, false
}

// ProgressEvent marks a stage boundary.
type ProgressEvent struct {
	// Done is false when the stage starts and true when it finishes.
	Done bool `cbor:"1,keyasint,omitempty"`

	// Count is the number of items the stage produced.
	Count int `cbor:"2,keyasint,omitempty"`

	// Duration of the stage. Stored as nanoseconds.
	Duration time.Duration `cbor:"3,keyasint,omitempty"`
}

// WarningEvent is a non-fatal finding.
type WarningEvent struct {
	Message string `cbor:"1,keyasint"`
}

// ErrorEventData is the error that aborted a run.
type ErrorEventData struct {
	// Kind is the resolution error kind when the error has one.
	Kind string `cbor:"1,keyasint,omitempty"`

	Message string `cbor:"2,keyasint"`
}

// FileEvent describes an emitted or checked file.
type FileEvent struct {
	Size int `cbor:"1,keyasint"`

	// Digest is the manifest digest of the content.
	Digest string `cbor:"2,keyasint,omitempty"`

	// Status is "written", "unchanged", "stale", "missing" or "extra".
	Status string `cbor:"3,keyasint,omitempty"`
}

// AccessOp is a register lifecycle step.
type AccessOp uint8

const (
	AccessBorrow AccessOp = iota
	AccessContend
	AccessWrite
	AccessReturn
)

// String returns the operation name.
func (o AccessOp) String() string {
	switch o {
	case AccessBorrow:
		return "BORROW"
	case AccessContend:
		return "CONTEND"
	case AccessWrite:
		return "WRITE"
	case AccessReturn:
		return "RETURN"
	default:
		return "UNKNOWN"
	}
}

// AccessEvent is one runtime register operation.
type AccessEvent struct {
	Op AccessOp `cbor:"1,keyasint"`
}
