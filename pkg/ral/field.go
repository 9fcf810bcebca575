package ral

import "fmt"

// Bits is the raw-word capability every register type exposes.
// *Handle satisfies it, and so does any type embedding *Handle.
type Bits[W Word] interface {
	Bits() W
	SetBits(bits W)
}

// Decoder is implemented by pointers to custom field types.
type Decoder[W Word] interface {
	DecodeBits(raw W) error
}

// Encoder is implemented by custom field types.
type Encoder[W Word] interface {
	EncodeBits() (W, error)
}

// ConversionError reports a failed custom-type conversion of a field.
type ConversionError struct {
	// Field is the field name.
	Field string

	// Raw is the field value involved, already shifted down and masked.
	// Zero when encoding failed before a raw value existed.
	Raw uint64

	// Decoding is true for a get, false for a set.
	Decoding bool

	Err error
}

func (e *ConversionError) Error() string {
	if e.Decoding {
		return fmt.Sprintf("ral: decode field %s from %#x: %v", e.Field, e.Raw, e.Err)
	}
	return fmt.Sprintf("ral: encode field %s: %v", e.Field, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Field returns (bits >> offset) & mask.
func Field[W Word](r Bits[W], mask W, offset uint) W {
	return (r.Bits() >> offset) & mask
}

// SetField replaces the masked field at offset with v & mask.
func SetField[W Word](r Bits[W], mask W, offset uint, v W) {
	r.SetBits((r.Bits() &^ (mask << offset)) | ((v & mask) << offset))
}

// Flag reports whether the bit at offset is set.
func Flag[W Word](r Bits[W], offset uint) bool {
	return (r.Bits()>>offset)&1 == 1
}

// SetFlag sets or clears the bit at offset.
func SetFlag[W Word](r Bits[W], offset uint, v bool) {
	var b W
	if v {
		b = 1
	}
	SetField(r, 1, offset, b)
}

// Decode reads the field at offset into a custom type T.
func Decode[W Word, T any, PT interface {
	*T
	Decoder[W]
}](r Bits[W], field string, mask W, offset uint) (T, error) {
	var v T
	raw := Field(r, mask, offset)
	if err := PT(&v).DecodeBits(raw); err != nil {
		return v, &ConversionError{Field: field, Raw: uint64(raw), Decoding: true, Err: err}
	}
	return v, nil
}

// Encode writes a custom-type value into the field at offset.
// The cache is left untouched when the conversion fails.
func Encode[W Word, T Encoder[W]](r Bits[W], field string, mask W, offset uint, v T) error {
	raw, err := v.EncodeBits()
	if err != nil {
		return &ConversionError{Field: field, Err: err}
	}
	SetField(r, mask, offset, raw)
	return nil
}

// Mask returns 2^width - 1 in the word type W.
// Widths at or beyond the word size yield all ones.
func Mask[W Word](width uint) W {
	var zero W
	if width >= bitSize[W]() {
		return ^zero
	}
	return W(1)<<width - 1
}

func bitSize[W Word]() uint {
	var zero W
	all := ^zero
	n := uint(0)
	for all != 0 {
		all >>= 1
		n++
	}
	return n
}
