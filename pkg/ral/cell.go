package ral

import "unsafe"

// Word is the set of hardware word types a register can be backed by.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Cell is a single hardware word.
// Load and Store must each be a single access to the underlying storage.
type Cell[W Word] interface {
	Load() W
	Store(v W)
}

// mmio is a Cell at a raw physical address.
type mmio[W Word] struct {
	addr uintptr
}

// At returns a Cell for the memory-mapped word at addr.
// The address is not dereferenced until Load or Store is called.
func At[W Word](addr uintptr) Cell[W] {
	return &mmio[W]{addr: addr}
}

//go:noinline
func (m *mmio[W]) Load() W {
	return *(*W)(unsafe.Pointer(m.addr))
}

//go:noinline
func (m *mmio[W]) Store(v W) {
	*(*W)(unsafe.Pointer(m.addr)) = v
}

// pointerCell is a Cell backed by ordinary Go memory.
type pointerCell[W Word] struct {
	p *W
}

// Pointer returns a Cell backed by p. Useful for simulation and tests.
func Pointer[W Word](p *W) Cell[W] {
	return &pointerCell[W]{p: p}
}

// Alloc returns a Cell backed by fresh memory holding initial.
func Alloc[W Word](initial W) Cell[W] {
	v := initial
	return &pointerCell[W]{p: &v}
}

func (c *pointerCell[W]) Load() W   { return *c.p }
func (c *pointerCell[W]) Store(v W) { *c.p = v }
