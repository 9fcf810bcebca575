package ral

// Def carries the per-register constants.
type Def[W Word] struct {
	// Mask selects the bits that are meaningful and writable.
	Mask W

	// Reset is the reset value. It seeds the cache on borrow and
	// pins every bit outside Mask on write.
	Reset W
}

// Handle is a live, exclusive checkout of a register.
// A Handle is owned by one goroutine and is not safe for concurrent use.
type Handle[W Word] struct {
	holder *Holder[W]
	b      *binding[W]
	def    Def[W]
	bits   W
}

// Borrow tries to check the register out of h.
//
// On success the returned handle's cache holds def.Reset; hardware is not
// read. If the register is already checked out Borrow returns (nil, false)
// at once. The caller must Return every handle it obtains.
func Borrow[W Word](h *Holder[W], def Def[W]) (*Handle[W], bool) {
	b := h.take()
	if b == nil {
		return nil, false
	}
	return &Handle[W]{
		holder: h,
		b:      b,
		def:    def,
		bits:   def.Reset,
	}, true
}

// With borrows the register, runs fn and returns the register on every exit
// path, including a panic in fn. It reports false without calling fn when the
// register is owned elsewhere.
func With[W Word](h *Holder[W], def Def[W], fn func(*Handle[W]) error) (bool, error) {
	r, ok := Borrow(h, def)
	if !ok {
		return false, nil
	}
	defer r.Return()
	return true, fn(r)
}

// Def returns the register constants the handle was borrowed with.
func (r *Handle[W]) Def() Def[W] {
	return r.def
}

// Bits returns the cached word.
func (r *Handle[W]) Bits() W {
	return r.bits
}

// SetBits replaces the cached word. Hardware is not touched.
func (r *Handle[W]) SetBits(bits W) {
	r.bits = bits
}

// Read loads the hardware word into the cache.
// It panics if the handle has already been returned.
func (r *Handle[W]) Read() *Handle[W] {
	r.mustOwn()
	r.bits = r.b.cell.Load()
	return r
}

// Write stores (Reset &^ Mask) | (cache & Mask) to hardware in a single store.
// It panics if the handle has already been returned.
func (r *Handle[W]) Write() *Handle[W] {
	r.mustOwn()
	r.b.cell.Store(Merge(r.def, r.bits))
	if o := r.holder.notifier(); o != nil {
		o.Written(r.holder.name)
	}
	return r
}

// Reset sets the cache to the reset value. Hardware is untouched until Write.
func (r *Handle[W]) Reset() *Handle[W] {
	r.bits = r.def.Reset
	return r
}

// Return releases the register back to its holder.
// Only the first call has an effect, so it is safe to defer Return and
// also call it explicitly.
func (r *Handle[W]) Return() {
	b := r.b
	if b == nil {
		return
	}
	r.b = nil
	r.holder.give(b)
}

// Returned reports whether the handle has been returned.
func (r *Handle[W]) Returned() bool {
	return r.b == nil
}

func (r *Handle[W]) mustOwn() {
	if r.b == nil {
		panic("ral: use of returned register " + r.holder.name)
	}
}

// Merge computes the word Write stores for cache bits under def.
func Merge[W Word](def Def[W], bits W) W {
	return (def.Reset &^ def.Mask) | (bits & def.Mask)
}
