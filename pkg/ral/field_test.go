package ral

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word is a bare Bits implementation for exercising field logic without a holder.
type word[W Word] struct{ v W }

func (w *word[W]) Bits() W        { return w.v }
func (w *word[W]) SetBits(bits W) { w.v = bits }

func TestMask(t *testing.T) {
	assert.Equal(t, uint8(0x01), Mask[uint8](1))
	assert.Equal(t, uint8(0xFF), Mask[uint8](8))
	assert.Equal(t, uint8(0xFF), Mask[uint8](9))
	assert.Equal(t, uint16(0x0FFF), Mask[uint16](12))
	assert.Equal(t, uint32(0x3), Mask[uint32](2))
	assert.Equal(t, uint32(0xFFFF_FFFF), Mask[uint32](32))
	assert.Equal(t, uint64(0xFFFF_FFFF), Mask[uint64](32))
	assert.Equal(t, ^uint64(0), Mask[uint64](64))
}

func TestFieldIdempotence64(t *testing.T) {
	values := []uint64{0, 1, 0xDA, 0x8765_4321, 0xDEAD_BEEF_CAFE_F00D, ^uint64(0)}
	for w := uint(1); w <= 64; w++ {
		mask := Mask[uint64](w)
		for o := uint(0); o+w <= 64; o++ {
			for _, v := range values {
				r := &word[uint64]{v: 0x5A5A_5A5A_5A5A_5A5A}
				before := r.v
				SetField[uint64](r, mask, o, v)
				got := Field[uint64](r, mask, o)
				require.Equal(t, v&mask, got, "width=%d offset=%d value=%#x", w, o, v)
				// Bits outside the field are untouched.
				require.Equal(t, before&^(mask<<o), r.v&^(mask<<o), "width=%d offset=%d", w, o)
			}
		}
	}
}

func TestFieldIdempotence32(t *testing.T) {
	for w := uint(1); w <= 32; w++ {
		mask := Mask[uint32](w)
		for o := uint(0); o+w <= 32; o++ {
			r := &word[uint32]{}
			SetField[uint32](r, mask, o, 0xFFFF_FFFF)
			assert.Equal(t, mask, Field[uint32](r, mask, o))
			SetField[uint32](r, mask, o, 0)
			assert.Equal(t, uint32(0), r.v)
		}
	}
}

func TestFlag(t *testing.T) {
	r := &word[uint16]{}
	for o := uint(0); o < 16; o++ {
		SetFlag[uint16](r, o, true)
		assert.True(t, Flag[uint16](r, o))
		assert.Equal(t, uint16(1)<<o, r.v)
		SetFlag[uint16](r, o, false)
		assert.False(t, Flag[uint16](r, o))
		assert.Equal(t, uint16(0), r.v)
	}
}

func TestFieldsOnHandleDoNotTouchHardware(t *testing.T) {
	cell := &stubCell{}
	holder := NewHolder[uint32](cell)
	r, ok := Borrow(holder, testDef)
	require.True(t, ok)
	defer r.Return()

	SetField[uint32](r, 0xF, 4, 0x7)
	SetFlag[uint32](r, 0, true)
	_ = Field[uint32](r, 0xF, 4)
	_ = Flag[uint32](r, 0)

	cell.AssertNotCalled(t, "Load")
	cell.AssertNotCalled(t, "Store")
	assert.Equal(t, testDef.Reset|0x71, r.Bits())
}

// ---------------------------------------------------------------------------
// Custom field types
// ---------------------------------------------------------------------------

type mode uint8

const (
	modeInput mode = iota
	modeOutput
	modeAlternate
	modeAnalog
)

var errBadMode = errors.New("bad mode")

func (m *mode) DecodeBits(raw uint32) error {
	if raw > uint32(modeAnalog) {
		return errBadMode
	}
	*m = mode(raw)
	return nil
}

func (m mode) EncodeBits() (uint32, error) {
	if m > modeAnalog {
		return 0, fmt.Errorf("%w: %d", errBadMode, m)
	}
	return uint32(m), nil
}

type speed uint8

func (s *speed) DecodeBits(raw uint32) error {
	if raw == 0x7 {
		return errors.New("reserved")
	}
	*s = speed(raw)
	return nil
}

func TestDecodeEncode(t *testing.T) {
	r := &word[uint32]{}

	require.NoError(t, Encode[uint32](r, "moder2", 0x3, 4, modeAlternate))
	assert.Equal(t, uint32(0x20), r.v)

	got, err := Decode[uint32, mode](r, "moder2", 0x3, 4)
	require.NoError(t, err)
	assert.Equal(t, modeAlternate, got)
}

func TestEncodeFailureLeavesCache(t *testing.T) {
	r := &word[uint32]{v: 0x1234}

	err := Encode[uint32](r, "moder0", 0x3, 0, mode(9))
	require.Error(t, err)

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "moder0", ce.Field)
	assert.False(t, ce.Decoding)
	assert.ErrorIs(t, err, errBadMode)
	assert.Equal(t, uint32(0x1234), r.v)
}

func TestDecodeFailure(t *testing.T) {
	r := &word[uint32]{v: 0x7 << 8}

	_, err := Decode[uint32, speed](r, "ospeed", 0x7, 8)
	require.Error(t, err)

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Decoding)
	assert.Equal(t, uint64(0x7), ce.Raw)
	assert.Contains(t, err.Error(), "ospeed")
	assert.Contains(t, err.Error(), "reserved")
}
