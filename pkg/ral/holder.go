package ral

import "sync/atomic"

// Observer receives register lifecycle notifications.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	Borrowed(register string)
	Contended(register string)
	Returned(register string)
	Written(register string)
}

type observerBox struct{ o Observer }

var defaultObserver atomic.Pointer[observerBox]

// Observe installs o as the observer of every holder created without
// WithObserver, including holders created earlier. Pass nil to remove it.
func Observe(o Observer) {
	if o == nil {
		defaultObserver.Store(nil)
		return
	}
	defaultObserver.Store(&observerBox{o: o})
}

// binding ties a holder slot to the hardware cell it guards.
type binding[W Word] struct {
	cell Cell[W]
}

// Holder is the process-wide slot tracking whether a register is available.
//
// The slot stores the register binding while available and nil while checked
// out. All transitions are atomic swaps, which Go orders sequentially
// consistently, so two concurrent borrowers can never both win.
type Holder[W Word] struct {
	slot     atomic.Pointer[binding[W]]
	name     string
	observer Observer
}

// HolderOption configures a Holder.
type HolderOption func(*holderConfig)

type holderConfig struct {
	name     string
	observer Observer
}

// Named sets the register name reported to observers.
func Named(name string) HolderOption {
	return func(c *holderConfig) {
		c.name = name
	}
}

// WithObserver attaches an Observer to the holder.
func WithObserver(o Observer) HolderOption {
	return func(c *holderConfig) {
		c.observer = o
	}
}

// NewHolder creates an available holder guarding cell.
func NewHolder[W Word](cell Cell[W], opts ...HolderOption) *Holder[W] {
	var cfg holderConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	h := &Holder[W]{
		name:     cfg.name,
		observer: cfg.observer,
	}
	h.slot.Store(&binding[W]{cell: cell})
	return h
}

// Name returns the register name the holder was created with.
func (h *Holder[W]) Name() string {
	return h.name
}

// Available reports whether the register can currently be borrowed.
// The answer may be stale by the time the caller acts on it.
func (h *Holder[W]) Available() bool {
	return h.slot.Load() != nil
}

// notifier returns the holder's observer, falling back to the one installed
// by Observe.
func (h *Holder[W]) notifier() Observer {
	if h.observer != nil {
		return h.observer
	}
	if b := defaultObserver.Load(); b != nil {
		return b.o
	}
	return nil
}

// take swaps the empty marker into the slot and returns the previous value.
func (h *Holder[W]) take() *binding[W] {
	b := h.slot.Swap(nil)
	if o := h.notifier(); o != nil {
		if b == nil {
			o.Contended(h.name)
		} else {
			o.Borrowed(h.name)
		}
	}
	return b
}

// give puts the binding back into the slot.
func (h *Holder[W]) give(b *binding[W]) {
	h.slot.Swap(b)
	if o := h.notifier(); o != nil {
		o.Returned(h.name)
	}
}
