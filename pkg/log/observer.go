package log

import (
	"github.com/vkochnev/ral/pkg/ral"
)

// Observer records register lifecycle notifications as Access events.
type Observer struct {
	rec *Recorder
}

// NewObserver returns a ral.Observer logging through rec.
func NewObserver(rec *Recorder) *Observer {
	return &Observer{rec: rec}
}

func (o *Observer) access(register string, op AccessOp) {
	o.rec.log(StageRuntime, CategoryAccess, register, Event{Access: &AccessEvent{Op: op}})
}

// Borrowed implements ral.Observer.
func (o *Observer) Borrowed(register string) { o.access(register, AccessBorrow) }

// Contended implements ral.Observer.
func (o *Observer) Contended(register string) { o.access(register, AccessContend) }

// Returned implements ral.Observer.
func (o *Observer) Returned(register string) { o.access(register, AccessReturn) }

// Written implements ral.Observer.
func (o *Observer) Written(register string) { o.access(register, AccessWrite) }

// Compile-time interface satisfaction check.
var _ ral.Observer = (*Observer)(nil)
