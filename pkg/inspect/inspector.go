package inspect

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vkochnev/ral/pkg/layout"
	"github.com/vkochnev/ral/pkg/ral"
	"github.com/vkochnev/ral/pkg/resolve"
	"github.com/vkochnev/ral/pkg/svd"
	"github.com/vkochnev/ral/pkg/synth"
)

// Inspector errors.
var (
	ErrNotFound     = errors.New("node not found")
	ErrNotRegister  = errors.New("not a register")
	ErrUnknownField = errors.New("unknown field")
	ErrNotWritable  = errors.New("field is not writable")
	ErrValueRange   = errors.New("value does not fit field")
)

// Inspector answers questions about a resolved device.
type Inspector struct {
	device *resolve.Device
	layout *layout.Layout
	names  *Names
}

// NewInspector creates a new Inspector for the given device and its layout.
func NewInspector(device *resolve.Device, l *layout.Layout) *Inspector {
	return &Inspector{device: device, layout: l, names: NewNames(l)}
}

// Device returns the underlying device model.
func (i *Inspector) Device() *resolve.Device {
	return i.device
}

// Layout returns the device layout.
func (i *Inspector) Layout() *layout.Layout {
	return i.layout
}

// Names returns the name index.
func (i *Inspector) Names() *Names {
	return i.names
}

// NodeInfo describes a peripheral, cluster, register or field for display.
type NodeInfo struct {
	Path        string
	Kind        layout.Kind
	Address     uint64
	Description string
	Features    []string

	// Register is set for registers and fields.
	Register *RegisterInfo

	// Field is set when the path names a field of Register.
	Field *FieldInfo

	// Children are the immediate child paths.
	Children []string
}

// RegisterInfo represents register information for display.
type RegisterInfo struct {
	Size       uint32
	Access     svd.Access
	ResetMask  uint64
	ResetValue uint64
	Fields     []FieldInfo
}

// FieldInfo represents field information for display.
type FieldInfo struct {
	Name        string
	Description string
	Offset      uint32
	Width       uint32
	Access      svd.Access
	Type        string

	// Reset is the field's bits of the register reset value.
	Reset uint64
}

// Mask returns the unshifted field mask.
func (f FieldInfo) Mask() uint64 {
	return synth.FieldMask(f.Width, 64)
}

// Inspect returns the node at p. An address path finds the register
// covering that address.
func (i *Inspector) Inspect(p *Path) (*NodeInfo, error) {
	if p.IsAddress {
		e, ok := i.AtAddress(p.Address)
		if !ok {
			return nil, fmt.Errorf("%w: no register at %#x", ErrNotFound, p.Address)
		}
		return i.node(e), nil
	}

	if e, ok := i.layout.Lookup(p.String()); ok {
		return i.node(e), nil
	}
	if parent := p.Parent(); parent != nil {
		if e, ok := i.layout.Lookup(parent.String()); ok && e.Register != nil {
			info := i.node(e)
			for _, f := range info.Register.Fields {
				if f.Name == p.Last() {
					info.Path = p.String()
					info.Field = &f
					info.Children = nil
					return info, nil
				}
			}
			return nil, fmt.Errorf("%w: %s has no field %s", ErrUnknownField, e.Path, p.Last())
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
}

func (i *Inspector) node(e layout.Entry) *NodeInfo {
	info := &NodeInfo{
		Path:     e.Path,
		Kind:     e.Kind,
		Address:  e.Address,
		Children: i.names.Complete(e.Path + "/"),
	}
	switch e.Kind {
	case layout.KindPeripheral:
		info.Description = e.Peripheral.Description
		info.Features = e.Peripheral.Features
	case layout.KindCluster:
		c := e.Clusters[len(e.Clusters)-1]
		info.Description = c.Description
		info.Features = c.Features
	case layout.KindRegister:
		r := e.Register
		info.Description = r.Description
		info.Features = r.Features
		info.Register = &RegisterInfo{
			Size:       r.Size,
			Access:     r.Access,
			ResetMask:  r.ResetMask,
			ResetValue: r.ResetValue,
		}
		for _, f := range r.Fields {
			info.Register.Fields = append(info.Register.Fields, fieldInfo(r, f))
		}
		// Fields are listed by Register.Fields, not as children.
		info.Children = nil
	}
	return info
}

func fieldInfo(r *resolve.Register, f *resolve.Field) FieldInfo {
	typ := f.Type
	if typ == "" {
		typ, _ = synth.InferType(f.Width)
	}
	return FieldInfo{
		Name:        f.Name,
		Description: f.Description,
		Offset:      f.Offset,
		Width:       f.Width,
		Access:      f.Access,
		Type:        typ,
		Reset:       r.ResetValue >> f.Offset & synth.FieldMask(f.Width, 64),
	}
}

// AtAddress returns the first register, in layout order, whose bytes cover
// addr.
func (i *Inspector) AtAddress(addr uint64) (layout.Entry, bool) {
	for _, e := range i.layout.Registers() {
		if addr >= e.Address && addr < e.Address+e.Bytes() {
			return e, true
		}
	}
	return layout.Entry{}, false
}

func (i *Inspector) register(p *Path) (*NodeInfo, error) {
	info, err := i.Inspect(p)
	if err != nil {
		return nil, err
	}
	if info.Register == nil || info.Field != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRegister, info.Path)
	}
	return info, nil
}

// FieldValue is a field together with its value in a decoded word.
type FieldValue struct {
	FieldInfo
	Value uint64
}

// Decode splits word into the fields of the register at p.
func (i *Inspector) Decode(p *Path, word uint64) ([]FieldValue, error) {
	info, err := i.register(p)
	if err != nil {
		return nil, err
	}
	out := make([]FieldValue, len(info.Register.Fields))
	for k, f := range info.Register.Fields {
		out[k] = FieldValue{FieldInfo: f, Value: word >> f.Offset & f.Mask()}
	}
	return out, nil
}

// Encode computes the word the runtime would store after setting the given
// fields, starting from the reset value or from start when it is non-nil.
// Bits outside the reset mask keep their reset value, as on hardware.
func (i *Inspector) Encode(p *Path, start *uint64, values map[string]uint64) (uint64, error) {
	info, err := i.register(p)
	if err != nil {
		return 0, err
	}
	reg := info.Register

	fields := make(map[string]FieldInfo, len(reg.Fields))
	for _, f := range reg.Fields {
		fields[f.Name] = f
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	initial := reg.ResetValue
	if start != nil {
		initial = *start
	}
	cell := ral.Alloc[uint64](initial)
	holder := ral.NewHolder(cell, ral.Named(info.Path))
	h, _ := ral.Borrow(holder, ral.Def[uint64]{Mask: reg.ResetMask, Reset: reg.ResetValue})
	defer h.Return()
	if start != nil {
		h.Read()
	}

	for _, name := range names {
		f, ok := fields[resolve.Ident(name)]
		if !ok {
			return 0, fmt.Errorf("%w: %s has no field %s", ErrUnknownField, info.Path, name)
		}
		if !f.Access.Writable() {
			return 0, fmt.Errorf("%w: %s/%s is %s", ErrNotWritable, info.Path, f.Name, f.Access)
		}
		v := values[name]
		if v > f.Mask() {
			return 0, fmt.Errorf("%w: %s/%s is %d bits, got %#x", ErrValueRange, info.Path, f.Name, f.Width, v)
		}
		ral.SetField[uint64](h, f.Mask(), uint(f.Offset), v)
	}
	h.Write()
	return cell.Load(), nil
}

// Overlaps lists registers sharing bytes, formatted one per line.
func (i *Inspector) Overlaps() []string {
	var out []string
	for _, o := range i.layout.Overlaps() {
		out = append(out, fmt.Sprintf("%s overlaps %s at %#x", o.Second, o.First, o.Address))
	}
	return out
}

// FormatDeviceTree formats the device tree for display.
func (i *Inspector) FormatDeviceTree(formatter *Formatter) string {
	if formatter == nil {
		formatter = NewFormatter()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Device: %s\n", i.device.Name))
	if i.device.Version != "" {
		sb.WriteString(fmt.Sprintf("Version: %s\n", i.device.Version))
	}
	if len(i.device.Features) > 0 {
		sb.WriteString(fmt.Sprintf("Features: %s\n", strings.Join(i.device.Features, ", ")))
	}
	sb.WriteString("---\n")

	for _, e := range i.layout.Entries() {
		depth := strings.Count(e.Path, "/")
		sb.WriteString(formatter.Indent(depth, formatter.FormatEntry(e)))
		sb.WriteString("\n")
	}
	return sb.String()
}
