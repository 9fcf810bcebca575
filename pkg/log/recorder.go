package log

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vkochnev/ral/pkg/resolve"
)

// Recorder stamps events of one run with the run ID, device and time before
// passing them to a Logger.
type Recorder struct {
	logger Logger
	runID  string
	device string
	now    func() time.Time
}

// NewRecorder creates a Recorder with a fresh run ID.
func NewRecorder(logger Logger) *Recorder {
	return &Recorder{
		logger: OrNoop(logger),
		runID:  uuid.NewString(),
		now:    time.Now,
	}
}

// RunID returns the run ID stamped on every event.
func (r *Recorder) RunID() string {
	return r.runID
}

// SetDevice sets the device name stamped on later events.
func (r *Recorder) SetDevice(name string) {
	r.device = name
}

func (r *Recorder) log(stage Stage, cat Category, path string, e Event) {
	r.logAt(r.now(), stage, cat, path, e)
}

func (r *Recorder) logAt(ts time.Time, stage Stage, cat Category, path string, e Event) {
	e.Timestamp = ts
	e.RunID = r.runID
	e.Stage = stage
	e.Category = cat
	e.Device = r.device
	e.Path = path
	r.logger.Log(e)
}

// Begin records the start of a stage and returns a function recording its
// end with the number of items produced. The end event's timestamp minus its
// duration is the start event's timestamp.
func (r *Recorder) Begin(stage Stage) func(count int) {
	start := r.now()
	r.logAt(start, stage, CategoryProgress, "", Event{Progress: &ProgressEvent{}})
	return func(count int) {
		end := r.now()
		r.logAt(end, stage, CategoryProgress, "", Event{Progress: &ProgressEvent{
			Done:     true,
			Count:    count,
			Duration: end.Sub(start),
		}})
	}
}

// Warning records a non-fatal finding.
func (r *Recorder) Warning(stage Stage, path, message string) {
	r.log(stage, CategoryWarning, path, Event{Warning: &WarningEvent{Message: message}})
}

// Error records the error that aborted the run. Resolution errors keep their
// kind and path.
func (r *Recorder) Error(stage Stage, err error) {
	data := &ErrorEventData{Message: err.Error()}
	var path string
	var re *resolve.Error
	if errors.As(err, &re) {
		data.Kind = re.Kind.String()
		path = re.Path
	}
	r.log(stage, CategoryError, path, Event{Error: data})
}

// File records an emitted or checked file.
func (r *Recorder) File(stage Stage, path string, size int, digest, status string) {
	r.log(stage, CategoryFile, path, Event{File: &FileEvent{Size: size, Digest: digest, Status: status}})
}
