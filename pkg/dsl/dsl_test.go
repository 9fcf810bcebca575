package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkochnev/ral/pkg/resolve"
	"github.com/vkochnev/ral/pkg/svd"
	"github.com/vkochnev/ral/pkg/synth"
)

func TestLoad(t *testing.T) {
	doc, err := Load("testdata/moder.yaml")
	require.NoError(t, err)
	assert.Equal(t, "MODER", doc.Name)
	assert.Equal(t, []string{"example.com/board/types"}, doc.Uses)
	require.Len(t, doc.Fields, 3)
	assert.Equal(t, svd.ReadOnly, doc.Fields[2].Access)

	spec, err := doc.Spec()
	require.NoError(t, err)
	assert.Equal(t, "moder", spec.Path)
	assert.Equal(t, "Moder", spec.GoName)
	assert.Equal(t, "uint32", spec.WordType)
	assert.Equal(t, uint64(0x28000000), spec.ResetValue)
	assert.Equal(t, []string{"example.com/board/types"}, spec.Uses)

	require.Len(t, spec.Fields, 3)
	mode := spec.Fields[0]
	assert.Equal(t, synth.KindCustom, mode.Kind)
	assert.Equal(t, "types.Mode", mode.Type)
	assert.Equal(t, "Port 0 configuration", mode.Description)
	assert.Equal(t, uint64(0x3), mode.Mask)

	speed := spec.Fields[1]
	assert.Equal(t, synth.KindPrimitive, speed.Kind)
	assert.Equal(t, "uint8", speed.Type)
	assert.Equal(t, uint32(2), speed.Offset)
	assert.Equal(t, uint64(0xF), speed.Mask)

	lock := spec.Fields[2]
	assert.Equal(t, synth.KindBool, lock.Kind)
	assert.Equal(t, "IsLockSet", lock.GetterName)
	assert.True(t, lock.Getter)
	assert.False(t, lock.Setter)
}

func TestParseField(t *testing.T) {
	tests := []struct {
		spec   string
		name   string
		offset uint32
		width  uint32
		typ    string
	}{
		{"en[0:1] as bool", "en", 0, 1, "bool"},
		{"  mode [ 4 : 2 ]  as  u8 ", "mode", 4, 2, "uint8"},
		{"cnt[0x10:16] as uint16", "cnt", 16, 16, "uint16"},
		{"m[0:3] as types.Mode", "m", 0, 3, "types.Mode"},
	}
	for _, tt := range tests {
		name, offset, width, typ, err := ParseField(tt.spec)
		require.NoError(t, err, tt.spec)
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.offset, offset)
		assert.Equal(t, tt.width, width)
		assert.Equal(t, tt.typ, typ)
	}

	for _, bad := range []string{"en", "en[0..1] as bool", "en[0:1]", "en[a:1] as bool", "[0:1] as bool", "en[0:100] as u8"} {
		_, _, _, _, err := ParseField(bad)
		assert.ErrorIs(t, err, ErrSyntax, bad)
	}
}

const header = `
name: r
offset: 4
value_size: 32
reset_mask: 0xFFFFFFFF
reset_value: 0
`

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"bool wider than one bit", header + "fields:\n  - spec: en[0:2] as bool\n", resolve.ErrInvalidWidth},
		{"zero width", header + "fields:\n  - spec: en[0:0] as u8\n", resolve.ErrInvalidWidth},
		{"offset past size", header + "fields:\n  - spec: en[32:1] as bool\n", resolve.ErrFieldRangeOverflow},
		{"range past size", header + "fields:\n  - spec: v[30:4] as u8\n", resolve.ErrFieldRangeOverflow},
		{"custom past size", header + "fields:\n  - spec: v[0:40] as types.V\n", resolve.ErrFieldRangeOverflow},
		{"no fields", header + "fields: []\n", resolve.ErrEmptyRegister},
		{"duplicate field", header + "fields:\n  - spec: a[0:1] as bool\n  - spec: A[1:1] as bool\n", resolve.ErrDuplicateArrayName},
		{"bad size", "name: r\noffset: 0\nvalue_size: 12\nreset_mask: 0\nreset_value: 0\nfields:\n  - spec: a[0:1] as bool\n", resolve.ErrInvalidSize},
		{"missing reset mask", "name: r\noffset: 0\nvalue_size: 8\nreset_value: 0\nfields:\n  - spec: a[0:1] as bool\n", resolve.ErrMissingDefault},
		{"missing name", "offset: 0\nvalue_size: 8\nreset_mask: 0\nreset_value: 0\nfields:\n  - spec: a[0:1] as bool\n", ErrMissing},
		{"bad spec", header + "fields:\n  - spec: a(0:1) as bool\n", ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			_, err = doc.Register()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRejects(t *testing.T) {
	_, err := Parse([]byte(header + "colour: red\nfields: []\n"))
	assert.Error(t, err, "unknown key")

	_, err = Parse([]byte(header + "fields:\n  - spec: a[0:1] as bool\n    access: sometimes\n"))
	assert.Error(t, err, "unknown access")

	_, err = Parse([]byte("name: r\noffset: 0x\n"))
	assert.Error(t, err, "bad number")
}

func TestRegisterDefaultsAndTruncation(t *testing.T) {
	doc, err := Parse([]byte("name: cr\naccess: write-only\noffset: 8\nvalue_size: 8\nreset_mask: 0x1FF\nreset_value: '#1x1'\nfields:\n  - spec: go[0:1] as bool\n"))
	require.NoError(t, err)
	reg, err := doc.Register()
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFF), reg.ResetMask)
	assert.Equal(t, uint64(0x5), reg.ResetValue)
	assert.Equal(t, uint64(8), reg.Offset)
	require.Len(t, reg.Fields, 1)
	assert.Equal(t, "go_", reg.Fields[0].Name, "keyword escaped")
	assert.Equal(t, svd.WriteOnly, reg.Fields[0].Access, "inherits register access")
}
