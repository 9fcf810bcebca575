package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkochnev/ral/pkg/layout"
	"github.com/vkochnev/ral/pkg/overrides"
	"github.com/vkochnev/ral/pkg/resolve"
	"github.com/vkochnev/ral/pkg/svd"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		width uint32
		want  string
	}{
		{1, "bool"},
		{2, "uint8"},
		{8, "uint8"},
		{9, "uint16"},
		{16, "uint16"},
		{17, "uint32"},
		{32, "uint32"},
		{33, "uint64"},
		{64, "uint64"},
	}
	for _, tt := range tests {
		got, err := InferType(tt.width)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "width %d", tt.width)
	}

	for _, bad := range []uint32{0, 65, 128} {
		_, err := InferType(bad)
		assert.ErrorIs(t, err, resolve.ErrInvalidWidth, "width %d", bad)
	}
}

func TestWordType(t *testing.T) {
	w, err := WordType(16)
	require.NoError(t, err)
	assert.Equal(t, "uint16", w)

	_, err = WordType(12)
	assert.ErrorIs(t, err, resolve.ErrInvalidSize)
}

func TestFieldMask(t *testing.T) {
	assert.Equal(t, uint64(0x1), FieldMask(1, 32))
	assert.Equal(t, uint64(0x3), FieldMask(2, 32))
	assert.Equal(t, uint64(0xFFFF), FieldMask(16, 16))
	assert.Equal(t, uint64(0xFF), FieldMask(8, 8))
	assert.Equal(t, uint64(0xFFFFFFFF), FieldMask(32, 32))
	assert.Equal(t, ^uint64(0), FieldMask(64, 64))
	assert.Equal(t, uint64(0x7FFF_FFFF_FFFF_FFFF), FieldMask(63, 64))
}

func reg(size uint32, access svd.Access) *resolve.Register {
	return &resolve.Register{Name: "r", Size: size, Access: access}
}

func TestFieldSpec(t *testing.T) {
	tests := []struct {
		name   string
		field  resolve.Field
		kind   Kind
		typ    string
		getter string
		setter string
		get    bool
		set    bool
	}{
		{
			name:   "bool read-write",
			field:  resolve.Field{Name: "en", Offset: 0, Width: 1, Access: svd.ReadWrite},
			kind:   KindBool,
			typ:    "bool",
			getter: "IsEnSet",
			setter: "SetEnValue",
			get:    true,
			set:    true,
		},
		{
			name:   "primitive read-only",
			field:  resolve.Field{Name: "mode_0", Offset: 2, Width: 2, Access: svd.ReadOnly},
			kind:   KindPrimitive,
			typ:    "uint8",
			getter: "Mode0",
			setter: "SetMode0",
			get:    true,
		},
		{
			name:   "write only",
			field:  resolve.Field{Name: "bs", Offset: 0, Width: 16, Access: svd.WriteOnly},
			kind:   KindPrimitive,
			typ:    "uint16",
			getter: "Bs",
			setter: "SetBs",
			set:    true,
		},
		{
			name:   "write once",
			field:  resolve.Field{Name: "key", Offset: 0, Width: 32, Access: svd.WriteOnce},
			kind:   KindPrimitive,
			typ:    "uint32",
			getter: "Key",
			setter: "SetKey",
			set:    true,
		},
		{
			name:   "custom",
			field:  resolve.Field{Name: "mode", Offset: 4, Width: 2, Access: svd.ReadWrite, Type: "types.Mode"},
			kind:   KindCustom,
			typ:    "types.Mode",
			getter: "Mode",
			setter: "SetMode",
			get:    true,
			set:    true,
		},
		{
			name:   "primitive override",
			field:  resolve.Field{Name: "cnt", Offset: 0, Width: 4, Access: svd.ReadWrite, Type: "uint32"},
			kind:   KindPrimitive,
			typ:    "uint32",
			getter: "Cnt",
			setter: "SetCnt",
			get:    true,
			set:    true,
		},
		{
			name:   "reserved name",
			field:  resolve.Field{Name: "reset", Offset: 0, Width: 3, Access: svd.ReadWrite},
			kind:   KindPrimitive,
			typ:    "uint8",
			getter: "ResetField",
			setter: "SetResetField",
			get:    true,
			set:    true,
		},
		{
			name:   "bool colliding with SetBits",
			field:  resolve.Field{Name: "bits", Offset: 0, Width: 1, Access: svd.ReadWrite},
			kind:   KindBool,
			typ:    "bool",
			getter: "IsBitsFieldSet",
			setter: "SetBitsFieldValue",
			get:    true,
			set:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.field
			spec, err := Field("p/r/"+f.Name, reg(32, svd.ReadWrite), &f)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, spec.Kind)
			assert.Equal(t, tt.typ, spec.Type)
			assert.Equal(t, tt.getter, spec.GetterName)
			assert.Equal(t, tt.setter, spec.SetterName)
			assert.Equal(t, tt.get, spec.Getter)
			assert.Equal(t, tt.set, spec.Setter)
			assert.Equal(t, FieldMask(f.Width, 32), spec.Mask)
		})
	}
}

func TestFieldSpecErrors(t *testing.T) {
	f := resolve.Field{Name: "f", Offset: 6, Width: 4, Access: svd.ReadWrite}
	_, err := Field("p/r/f", reg(8, svd.ReadWrite), &f)
	assert.ErrorIs(t, err, resolve.ErrFieldRangeOverflow)

	b := resolve.Field{Name: "b", Offset: 0, Width: 3, Type: "bool"}
	_, err = Field("p/r/b", reg(8, svd.ReadWrite), &b)
	assert.ErrorIs(t, err, resolve.ErrInvalidWidth)
}

func TestMethods(t *testing.T) {
	f := resolve.Field{Name: "en", Width: 1, Access: svd.ReadWrite}
	spec, err := Field("x", reg(8, svd.ReadWrite), &f)
	require.NoError(t, err)
	assert.Equal(t, []string{"IsEnSet", "SetEnValue", "SetEn", "UnsetEn"}, spec.Methods())

	f.Access = svd.ReadOnly
	spec, err = Field("x", reg(8, svd.ReadWrite), &f)
	require.NoError(t, err)
	assert.Equal(t, []string{"IsEnSet"}, spec.Methods())
}

func build(t *testing.T, dev *svd.Device, ov *overrides.Device) (*DeviceSpec, error) {
	t.Helper()
	rd, err := resolve.Resolve(dev, ov, resolve.Options{})
	require.NoError(t, err)
	return Device(rd, layout.Compute(rd))
}

func TestDevice(t *testing.T) {
	dev := &svd.Device{
		Name:             "chip",
		RegisterDefaults: svd.RegisterDefaults{Size: svd.U32(32), ResetMask: svd.U64(0xF3FFFFFF), ResetValue: svd.U64(0x28000000)},
		Peripherals: []svd.Peripheral{
			{
				Name:        "DMA",
				BaseAddress: 0x4002_0000,
				Clusters: []svd.Cluster{{
					Name:          "CH%s",
					AddressOffset: 0x8,
					Dim:           &svd.Dimension{Count: 2, Increment: 0x14},
					Registers:     []svd.Register{{Name: "CCR", Fields: []svd.Field{{Name: "EN", BitWidth: 1}}}},
				}},
				Registers: []svd.Register{{Name: "ISR", Fields: []svd.Field{{Name: "GIF", BitWidth: 1}}}},
			},
			{
				Name:        "RCC",
				BaseAddress: 0x4002_1000,
				Registers: []svd.Register{{
					Name:             "CR",
					RegisterDefaults: svd.RegisterDefaults{Size: svd.U32(16)},
					Fields:           []svd.Field{{Name: "HSION", BitWidth: 1}, {Name: "TRIM", BitOffset: 3, BitWidth: 5}},
				}},
			},
		},
	}
	ov := &overrides.Device{Peripherals: map[string]*overrides.Peripheral{
		"DMA": {
			Features: []string{"dma"},
			Clusters: map[string]*overrides.Cluster{"CH%s": {Features: []string{"lqfp64", "lqfp100"}}},
			Registers: map[string]*overrides.Register{
				"ISR": {Features: []string{"isr"}},
			},
		},
	}}

	spec, err := build(t, dev, ov)
	require.NoError(t, err)
	require.Len(t, spec.Peripherals, 2)
	assert.Equal(t, []string{"dma", "isr", "lqfp100", "lqfp64"}, spec.Features)

	dma := spec.Peripherals[0]
	require.Len(t, dma.Registers, 3)

	ccr1 := dma.Registers[1]
	assert.Equal(t, "dma/ch1/ccr", ccr1.Path)
	assert.Equal(t, "Ch1Ccr", ccr1.GoName)
	assert.Equal(t, uint64(0x1C), ccr1.Offset)
	assert.Equal(t, uint64(0x4002_001C), ccr1.Address)
	assert.Equal(t, "uint32", ccr1.WordType)
	assert.Equal(t, [][]string{{"dma"}, {"lqfp64", "lqfp100"}}, ccr1.Features)

	isr := dma.Registers[2]
	assert.Equal(t, "Isr", isr.GoName)
	assert.Equal(t, [][]string{{"dma"}, {"isr"}}, isr.Features)

	cr := spec.Peripherals[1].Registers[0]
	assert.Equal(t, "uint16", cr.WordType)
	assert.Equal(t, uint64(0xFFFF), cr.ResetMask, "mask truncated to 16 bits")
	assert.Empty(t, cr.Features)
	require.Len(t, cr.Fields, 2)
	assert.Equal(t, KindBool, cr.Fields[0].Kind)
	assert.Equal(t, "uint8", cr.Fields[1].Type)
	assert.Equal(t, uint64(0x1F), cr.Fields[1].Mask)
}

func TestDeviceDetectsTypeNameCollision(t *testing.T) {
	dev := &svd.Device{
		Name:             "chip",
		RegisterDefaults: svd.RegisterDefaults{Size: svd.U32(32), ResetMask: svd.U64(0xFFFFFFFF), ResetValue: svd.U64(0)},
		Peripherals: []svd.Peripheral{{
			Name: "P",
			Clusters: []svd.Cluster{{
				Name:      "A",
				Registers: []svd.Register{{Name: "B", Fields: []svd.Field{{Name: "F", BitWidth: 1}}}},
			}},
			Registers: []svd.Register{{Name: "A_B", AddressOffset: 0x10, Fields: []svd.Field{{Name: "F", BitWidth: 1}}}},
		}},
	}
	_, err := build(t, dev, nil)
	assert.ErrorIs(t, err, resolve.ErrDuplicateArrayName)
}

func TestDeviceDetectsAccessorCollision(t *testing.T) {
	dev := &svd.Device{
		Name:             "chip",
		RegisterDefaults: svd.RegisterDefaults{Size: svd.U32(32), ResetMask: svd.U64(0xFFFFFFFF), ResetValue: svd.U64(0)},
		Peripherals: []svd.Peripheral{{
			Name: "P",
			Registers: []svd.Register{{Name: "R", Fields: []svd.Field{
				{Name: "X", BitWidth: 1},
				{Name: "X_VALUE", BitOffset: 1, BitWidth: 1},
			}}},
		}},
	}
	_, err := build(t, dev, nil)
	assert.ErrorIs(t, err, resolve.ErrDuplicateArrayName)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "custom", KindCustom.String())
	assert.Equal(t, "unknown", Kind(9).String())
}

func TestDeviceReservesPackageNames(t *testing.T) {
	defaults := svd.RegisterDefaults{Size: svd.U32(32), ResetMask: svd.U64(0xFFFFFFFF), ResetValue: svd.U64(0)}
	fields := []svd.Field{{Name: "F", BitWidth: 1}}
	for _, regs := range [][]svd.Register{
		{{Name: "BASE_ADDRESS", Fields: fields}},
		{{Name: "CR", Fields: fields}, {Name: "BORROW_CR", AddressOffset: 4, Fields: fields}},
	} {
		dev := &svd.Device{
			Name:             "chip",
			RegisterDefaults: defaults,
			Peripherals:      []svd.Peripheral{{Name: "P", Registers: regs}},
		}
		_, err := build(t, dev, nil)
		assert.ErrorIs(t, err, resolve.ErrDuplicateArrayName, regs[len(regs)-1].Name)
	}
}
