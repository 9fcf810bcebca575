// Package synth derives, for every resolved register and field, the accessor
// specification a source emitter needs: word type, mask, shift, value
// representation and which of getter and setter exist.
package synth

import (
	"fmt"

	"github.com/vkochnev/ral/pkg/layout"
	"github.com/vkochnev/ral/pkg/resolve"
	"github.com/vkochnev/ral/pkg/svd"
)

// Kind is how a field value is represented.
type Kind int

const (
	KindBool Kind = iota + 1
	KindPrimitive
	KindCustom
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindPrimitive:
		return "primitive"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// FieldSpec is the accessor specification of one field.
type FieldSpec struct {
	Name        string
	Description string
	Offset      uint32
	Width       uint32

	// Mask is 2^Width - 1 computed in the register word width.
	Mask   uint64
	Kind   Kind
	Type   string
	Access svd.Access

	// Getter and Setter report which accessors exist.
	Getter bool
	Setter bool

	// Accessor method names. For bool fields SetterName takes a value and
	// SetName/UnsetName are the convenience forms; they are empty otherwise.
	GetterName string
	SetterName string
	SetName    string
	UnsetName  string
}

// RegisterSpec is the accessor specification of one register.
type RegisterSpec struct {
	// Path is the resolved path, e.g. "dma1/cha/ccr".
	Path   string
	Name   string
	GoName string

	Description string

	// Offset is relative to the peripheral base address.
	Offset  uint64
	Address uint64

	Size     uint32
	WordType string

	ResetMask  uint64
	ResetValue uint64
	Access     svd.Access

	// Features holds one tag list per nesting level that declares any:
	// peripheral, clusters, register. Tags OR within a level and AND across.
	Features [][]string
	Uses     []string
	Fields   []FieldSpec
}

// PeripheralSpec groups the registers of one peripheral.
type PeripheralSpec struct {
	Name        string
	Source      string
	Description string
	BaseAddress uint64
	Features    []string
	Registers   []*RegisterSpec
}

// DeviceSpec is the full accessor specification of a device.
type DeviceSpec struct {
	Name        string
	Description string
	Version     string
	Features    []string
	Peripherals []*PeripheralSpec
}

// reservedMethods are the methods every generated register type already has.
var reservedMethods = map[string]bool{
	"Read": true, "Write": true, "Reset": true, "Return": true, "Returned": true,
	"Bits": true, "SetBits": true, "Def": true, "Handle": true,
}

// InferType maps a field width to its default representation.
func InferType(width uint32) (string, error) {
	return inferType("", width)
}

func inferType(path string, width uint32) (string, error) {
	switch {
	case width == 1:
		return "bool", nil
	case width >= 2 && width <= 8:
		return "uint8", nil
	case width >= 9 && width <= 16:
		return "uint16", nil
	case width >= 17 && width <= 32:
		return "uint32", nil
	case width >= 33 && width <= 64:
		return "uint64", nil
	default:
		return "", resolve.Errorf(resolve.InvalidWidth, path, "width %d outside 1..64", width)
	}
}

// WordType returns the Go word type for a register size in bits.
func WordType(size uint32) (string, error) {
	return wordType("", size)
}

func wordType(path string, size uint32) (string, error) {
	switch size {
	case 8, 16, 32, 64:
		return fmt.Sprintf("uint%d", size), nil
	default:
		return "", resolve.Errorf(resolve.InvalidSize, path, "%d bits", size)
	}
}

// FieldMask returns 2^width - 1 confined to a size-bit word.
func FieldMask(width, size uint32) uint64 {
	if width >= size || width >= 64 {
		if size >= 64 {
			return ^uint64(0)
		}
		return uint64(1)<<size - 1
	}
	return uint64(1)<<width - 1
}

func kindOf(typ string) Kind {
	switch typ {
	case "bool":
		return KindBool
	case "uint8", "uint16", "uint32", "uint64":
		return KindPrimitive
	default:
		return KindCustom
	}
}

// Field builds the specification of f inside reg. path identifies the field
// in errors.
func Field(path string, reg *resolve.Register, f *resolve.Field) (FieldSpec, error) {
	if err := resolve.CheckField(path, f.Offset, f.Width, f.Type, reg.Size); err != nil {
		return FieldSpec{}, err
	}
	typ := f.Type
	if typ == "" {
		t, err := inferType(path, f.Width)
		if err != nil {
			return FieldSpec{}, err
		}
		typ = t
	}

	spec := FieldSpec{
		Name:        f.Name,
		Description: f.Description,
		Offset:      f.Offset,
		Width:       f.Width,
		Mask:        FieldMask(f.Width, reg.Size),
		Kind:        kindOf(typ),
		Type:        typ,
		Access:      f.Access,
		Getter:      f.Access.Readable(),
		Setter:      f.Access.Writable(),
	}

	base := resolve.Exported(f.Name)
	spec.nameAccessors(base)
	if spec.collides() {
		spec.nameAccessors(base + "Field")
	}
	return spec, nil
}

func (f *FieldSpec) nameAccessors(base string) {
	if f.Kind == KindBool {
		f.GetterName = "Is" + base + "Set"
		f.SetterName = "Set" + base + "Value"
		f.SetName = "Set" + base
		f.UnsetName = "Unset" + base
		return
	}
	f.GetterName = base
	f.SetterName = "Set" + base
}

func (f *FieldSpec) collides() bool {
	for _, n := range []string{f.GetterName, f.SetterName, f.SetName, f.UnsetName} {
		if reservedMethods[n] {
			return true
		}
	}
	return false
}

// Methods returns the method names the field contributes.
func (f FieldSpec) Methods() []string {
	var out []string
	if f.Getter {
		out = append(out, f.GetterName)
	}
	if f.Setter {
		out = append(out, f.SetterName)
		if f.Kind == KindBool {
			out = append(out, f.SetName, f.UnsetName)
		}
	}
	return out
}

// Register builds the specification of the register at e.
func Register(e layout.Entry) (*RegisterSpec, error) {
	reg := e.Register
	if reg == nil {
		return nil, fmt.Errorf("synth: %s is a %s, not a register", e.Path, e.Kind)
	}
	word, err := wordType(e.Path, reg.Size)
	if err != nil {
		return nil, err
	}

	ident := ""
	var features [][]string
	if len(e.Peripheral.Features) > 0 {
		features = append(features, e.Peripheral.Features)
	}
	for _, c := range e.Clusters {
		ident += c.Name + "_"
		if len(c.Features) > 0 {
			features = append(features, c.Features)
		}
	}
	ident += reg.Name
	if len(reg.Features) > 0 {
		features = append(features, reg.Features)
	}

	spec := &RegisterSpec{
		Path:        e.Path,
		Name:        ident,
		GoName:      resolve.Exported(ident),
		Description: reg.Description,
		Offset:      e.Address - e.Peripheral.BaseAddress,
		Address:     e.Address,
		Size:        reg.Size,
		WordType:    word,
		ResetMask:   reg.ResetMask,
		ResetValue:  reg.ResetValue,
		Access:      reg.Access,
		Features:    features,
		Uses:        reg.Uses,
	}

	methods := make(map[string]string)
	for _, f := range reg.Fields {
		fpath := e.Path + "/" + f.Name
		fs, err := Field(fpath, reg, f)
		if err != nil {
			return nil, err
		}
		for _, m := range fs.Methods() {
			if other, dup := methods[m]; dup {
				return nil, resolve.Errorf(resolve.DuplicateArrayName, fpath, "accessor %s also generated for %s", m, other)
			}
			methods[m] = f.Name
		}
		spec.Fields = append(spec.Fields, fs)
	}
	return spec, nil
}

// Device builds the specification of every register in l, grouped by
// peripheral in description order.
func Device(dev *resolve.Device, l *layout.Layout) (*DeviceSpec, error) {
	out := &DeviceSpec{
		Name:        dev.Name,
		Description: dev.Description,
		Version:     dev.Version,
		Features:    dev.Features,
	}
	byPeripheral := make(map[*resolve.Peripheral]*PeripheralSpec, len(dev.Peripherals))
	for _, p := range dev.Peripherals {
		ps := &PeripheralSpec{
			Name:        p.Name,
			Source:      p.Source,
			Description: p.Description,
			BaseAddress: p.BaseAddress,
			Features:    p.Features,
		}
		byPeripheral[p] = ps
		out.Peripherals = append(out.Peripherals, ps)
	}

	seen := make(map[*PeripheralSpec]map[string]string)
	for _, e := range l.Registers() {
		rs, err := Register(e)
		if err != nil {
			return nil, err
		}
		ps := byPeripheral[e.Peripheral]
		if seen[ps] == nil {
			seen[ps] = map[string]string{"BaseAddress": ps.Name}
		}
		for _, name := range rs.Declares() {
			if other, dup := seen[ps][name]; dup {
				return nil, resolve.Errorf(resolve.DuplicateArrayName, e.Path, "%s also declared for %s", name, other)
			}
			seen[ps][name] = e.Path
		}
		ps.Registers = append(ps.Registers, rs)
	}
	return out, nil
}

// Declares returns the exported package-level names generated for the
// register: its type and its borrow helpers.
func (r *RegisterSpec) Declares() []string {
	return []string{r.GoName, "Borrow" + r.GoName, "With" + r.GoName}
}
