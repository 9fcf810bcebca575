// Package ral is the runtime behind generated register accessors.
//
// Every memory-mapped register is guarded by a Holder. A Holder is a single
// atomic slot that either stores the register's binding (available) or nil
// (checked out). Borrow swaps nil into the slot and inspects the previous
// value, so exactly one caller can own a register at a time and a losing
// caller is told immediately instead of waiting.
//
// # Basic Usage
//
//	var ctrl = ral.NewHolder[uint32](ral.At[uint32](0x4800_0000), ral.Named("gpioa/moder"))
//	var ctrlDef = ral.Def[uint32]{Mask: 0xFFFF_FFFF, Reset: 0xA800_0000}
//
//	r, ok := ral.Borrow(ctrl, ctrlDef)
//	if !ok {
//	    return // owned elsewhere, retry later
//	}
//	defer r.Return()
//
//	r.Read()
//	ral.SetField[uint32](r, 0x3, 4, 0x1)
//	r.Write()
//
// # Cache Semantics
//
// A Handle owns a cached copy of the register word. The cache is seeded with
// the reset value on borrow, refreshed only by Read, and pushed to hardware
// only by Write. Field getters and setters never touch hardware, so several
// field updates can be chained and land in a single store.
//
// Write stores (Reset &^ Mask) | (cache & Mask): bits outside the mask are
// always pinned to their reset value.
//
// # Field Logic
//
// Field, SetField, Flag, SetFlag, Decode and Encode are written once against
// the Bits capability and shared by every generated register type.
package ral
