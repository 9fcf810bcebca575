// Package resolve turns a description tree plus optional overrides into a
// concrete, validated register layout.
//
// Resolution merges derivation chains, scope inherited defaults, overrides
// and array expansion. The first violation aborts the pass with an *Error.
package resolve

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vkochnev/ral/pkg/overrides"
	"github.com/vkochnev/ral/pkg/svd"
)

// Warning is a non-fatal finding reported during resolution.
type Warning struct {
	Path    string
	Message string
}

// Options configures a resolution pass.
type Options struct {
	// AllowEmptyRegisters accepts registers that resolve to no fields.
	AllowEmptyRegisters bool

	// OnWarning, if set, receives non-fatal findings such as unknown
	// derivation targets or truncated reset values.
	OnWarning func(Warning)
}

type resolver struct {
	opts Options
}

// Resolve builds the resolved tree for dev. ov may be nil.
func Resolve(dev *svd.Device, ov *overrides.Device, opts Options) (*Device, error) {
	r := &resolver{opts: opts}
	return r.device(dev, ov)
}

func (r *resolver) warnf(path, format string, args ...any) {
	if r.opts.OnWarning != nil {
		r.opts.OnWarning(Warning{Path: path, Message: fmt.Sprintf(format, args...)})
	}
}

// ---------------------------------------------------------------------------
// Scopes and derivation
// ---------------------------------------------------------------------------

// scope indexes siblings by name for derivedFrom lookups. Array templates are
// indexed by template name and by every expanded element name. Lookups that
// miss fall back to the enclosing scope.
type scope[T any] struct {
	items  map[string]T
	parent *scope[T]
}

func newScope[T any](parent *scope[T], nodes []T, name func(T) string, dim func(T) *svd.Dimension) *scope[T] {
	s := &scope[T]{items: make(map[string]T, len(nodes)), parent: parent}
	for _, n := range nodes {
		s.items[name(n)] = n
		if d := dim(n); d != nil && d.Count > 0 {
			for _, idx := range d.Index() {
				s.items[svd.Substitute(name(n), idx)] = n
				s.items[svd.Expand(name(n), idx)] = n
			}
		}
	}
	return s
}

func (s *scope[T]) lookup(name string) (T, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.items[name]; ok {
			return v, true
		}
	}
	// SVD allows dotted references such as "GPIOA.MODER"; try the last part.
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return s.lookup(name[i+1:])
	}
	var zero T
	return zero, false
}

// derivation returns node followed by its derivedFrom ancestors.
// An unknown target ends the chain with a warning; a loop is fatal.
func derivation[T comparable](r *resolver, path string, node T, sc *scope[T], name, from func(T) string) ([]T, error) {
	chain := []T{node}
	seen := map[T]bool{node: true}
	for cur := node; from(cur) != ""; {
		target := from(cur)
		next, ok := sc.lookup(target)
		if !ok {
			r.warnf(path, "derivedFrom target %q not found", target)
			break
		}
		if seen[next] {
			names := make([]string, 0, len(chain)+1)
			for _, n := range chain {
				names = append(names, name(n))
			}
			names = append(names, name(next))
			return nil, Errorf(DerivationCycle, path, "%s", strings.Join(names, " -> "))
		}
		seen[next] = true
		chain = append(chain, next)
		cur = next
	}
	return chain, nil
}

func foldDefaults[T any](chain []T, get func(T) svd.RegisterDefaults) svd.RegisterDefaults {
	var d svd.RegisterDefaults
	for _, n := range chain {
		d = d.Merge(get(n))
	}
	return d
}

func firstDescription[T any](chain []T, get func(T) string) string {
	for _, n := range chain {
		if s := get(n); s != "" {
			return s
		}
	}
	return ""
}

// firstOverride returns the override for the first candidate name that has one.
func firstOverride[O any](get func(string) *O, names ...string) *O {
	for _, n := range names {
		if n == "" {
			continue
		}
		if o := get(n); o != nil {
			return o
		}
	}
	return nil
}

// override returns the override for the first of the node's own names that
// has one, falling back to its derivation ancestors. inherited is true when
// the override belongs to an ancestor; such an override never renames the
// node, so derived siblings keep distinct names.
func override[O any](get func(string) *O, own, derived []string) (o *O, inherited bool) {
	if o := firstOverride(get, own...); o != nil {
		return o, false
	}
	if o := firstOverride(get, derived...); o != nil {
		return o, true
	}
	return nil, false
}

// instance is one element of a possibly dimensioned node.
type instance struct {
	index  string
	offset uint64
	array  bool
}

func instances(path string, dim *svd.Dimension, base uint64) ([]instance, error) {
	if dim == nil || dim.Count == 0 {
		return []instance{{offset: base}}, nil
	}
	if len(dim.Indices) > 0 && len(dim.Indices) != int(dim.Count) {
		return nil, Errorf(InvalidDimension, path, "%d indices for count %d", len(dim.Indices), dim.Count)
	}
	out := make([]instance, 0, dim.Count)
	for i, idx := range dim.Index() {
		out = append(out, instance{index: idx, offset: base + uint64(i)*dim.Increment, array: true})
	}
	return out, nil
}

// names returns the lowercase element name and the node's own override
// lookup keys for one instance, most specific first.
func (in instance) names(template string) (string, []string) {
	if !in.array {
		return strings.ToLower(template), []string{template}
	}
	keys := []string{svd.Substitute(template, in.index), svd.Expand(template, in.index), template}
	return svd.Expand(template, in.index), keys
}

// rename applies an override name, substituting the array index if present.
func (in instance) rename(name, override string) string {
	if override == "" {
		return name
	}
	if in.array {
		return svd.Expand(override, in.index)
	}
	return strings.ToLower(override)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "/" + name
}

func checkUnique(path string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return Errorf(DuplicateArrayName, join(path, n), "name used twice in scope")
		}
		seen[n] = true
	}
	return nil
}

// ---------------------------------------------------------------------------
// Device and peripherals
// ---------------------------------------------------------------------------

func (r *resolver) device(dev *svd.Device, ov *overrides.Device) (*Device, error) {
	out := &Device{
		Name:        Ident(dev.Name),
		Description: dev.Description,
		Version:     dev.Version,
	}
	if ov != nil {
		if ov.Name != "" {
			out.Name = Ident(ov.Name)
		}
		if ov.Description != "" {
			out.Description = ov.Description
		}
	}

	nodes := make([]*svd.Peripheral, len(dev.Peripherals))
	for i := range dev.Peripherals {
		nodes[i] = &dev.Peripherals[i]
	}
	sc := newScope(nil, nodes,
		func(p *svd.Peripheral) string { return p.Name },
		func(*svd.Peripheral) *svd.Dimension { return nil })

	names := make([]string, 0, len(nodes))
	for _, p := range nodes {
		rp, err := r.peripheral(p, sc, dev.RegisterDefaults, ov)
		if err != nil {
			return nil, err
		}
		out.Peripherals = append(out.Peripherals, rp)
		names = append(names, rp.Name)
	}
	if err := checkUnique("", names); err != nil {
		return nil, err
	}
	out.Features = collectFeatures(out)
	return out, nil
}

func (r *resolver) peripheral(p *svd.Peripheral, sc *scope[*svd.Peripheral], defaults svd.RegisterDefaults, ov *overrides.Device) (*Peripheral, error) {
	path := Ident(p.Name)
	chain, err := derivation(r, path, p, sc,
		func(p *svd.Peripheral) string { return p.Name },
		func(p *svd.Peripheral) string { return p.DerivedFrom })
	if err != nil {
		return nil, err
	}
	chainNames := make([]string, len(chain))
	for i, n := range chain {
		chainNames[i] = n.Name
	}

	o, inherited := override(ov.Peripheral, chainNames[:1], chainNames[1:])
	out := &Peripheral{
		Name:        Ident(p.Name),
		Source:      p.Name,
		Description: firstDescription(chain, func(p *svd.Peripheral) string { return p.Description }),
		GroupName:   firstDescription(chain, func(p *svd.Peripheral) string { return p.GroupName }),
		BaseAddress: p.BaseAddress,
	}
	if o != nil {
		if o.Name != "" && !inherited {
			out.Name = Ident(o.Name)
		}
		if o.Description != "" {
			out.Description = o.Description
		}
		out.Features = slices.Clone(o.Features)
	}
	path = out.Name

	merged := foldDefaults(chain, func(p *svd.Peripheral) svd.RegisterDefaults { return p.RegisterDefaults }).Merge(defaults)

	src := p
	for _, n := range chain {
		if n.HasChildren() {
			src = n
			break
		}
	}
	out.Clusters, out.Registers, err = r.children(path, src.Clusters, src.Registers, merged, o, nil, nil)
	if err != nil {
		return nil, err
	}
	if out.RegisterCount() == 0 {
		return nil, Errorf(EmptyPeripheral, path, "no registers after derivation and expansion")
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Clusters and registers
// ---------------------------------------------------------------------------

// container is the override node holding child overrides: a peripheral or a
// cluster override. Both accessors are safe on nil receivers.
type container interface {
	Cluster(name string) *overrides.Cluster
	Register(name string) *overrides.Register
}

func (r *resolver) children(
	path string,
	clusters []svd.Cluster,
	registers []svd.Register,
	defaults svd.RegisterDefaults,
	ov container,
	parentClusters *scope[*svd.Cluster],
	parentRegisters *scope[*svd.Register],
) ([]*Cluster, []*Register, error) {
	cnodes := make([]*svd.Cluster, len(clusters))
	for i := range clusters {
		cnodes[i] = &clusters[i]
	}
	rnodes := make([]*svd.Register, len(registers))
	for i := range registers {
		rnodes[i] = &registers[i]
	}
	cs := newScope(parentClusters, cnodes,
		func(c *svd.Cluster) string { return c.Name },
		func(c *svd.Cluster) *svd.Dimension { return c.Dim })
	rs := newScope(parentRegisters, rnodes,
		func(r *svd.Register) string { return r.Name },
		func(r *svd.Register) *svd.Dimension { return r.Dim })

	var (
		outClusters  []*Cluster
		outRegisters []*Register
		names        []string
	)
	for _, c := range cnodes {
		rcs, err := r.cluster(path, c, cs, rs, defaults, ov)
		if err != nil {
			return nil, nil, err
		}
		for _, rc := range rcs {
			names = append(names, rc.Name)
		}
		outClusters = append(outClusters, rcs...)
	}
	for _, reg := range rnodes {
		rrs, err := r.register(path, reg, rs, defaults, ov)
		if err != nil {
			return nil, nil, err
		}
		for _, rr := range rrs {
			names = append(names, rr.Name)
		}
		outRegisters = append(outRegisters, rrs...)
	}
	if err := checkUnique(path, names); err != nil {
		return nil, nil, err
	}
	return outClusters, outRegisters, nil
}

func (r *resolver) cluster(
	parent string,
	c *svd.Cluster,
	cs *scope[*svd.Cluster],
	rs *scope[*svd.Register],
	defaults svd.RegisterDefaults,
	ov container,
) ([]*Cluster, error) {
	path := join(parent, Ident(c.Name))
	chain, err := derivation(r, path, c, cs,
		func(c *svd.Cluster) string { return c.Name },
		func(c *svd.Cluster) string { return c.DerivedFrom })
	if err != nil {
		return nil, err
	}
	chainNames := make([]string, len(chain))
	for i, n := range chain {
		chainNames[i] = n.Name
	}

	merged := foldDefaults(chain, func(c *svd.Cluster) svd.RegisterDefaults { return c.RegisterDefaults }).Merge(defaults)
	description := firstDescription(chain, func(c *svd.Cluster) string { return c.Description })
	src := c
	for _, n := range chain {
		if n.HasChildren() {
			src = n
			break
		}
	}

	insts, err := instances(path, c.Dim, c.AddressOffset)
	if err != nil {
		return nil, err
	}
	out := make([]*Cluster, 0, len(insts))
	for _, in := range insts {
		name, own := in.names(c.Name)
		o, inherited := override(ov.Cluster, own, chainNames[1:])
		rc := &Cluster{
			Name:        name,
			Source:      c.Name,
			Description: description,
			Offset:      in.offset,
		}
		if o != nil {
			if !inherited {
				rc.Name = in.rename(name, o.Name)
			}
			if o.Description != "" {
				rc.Description = o.Description
			}
			rc.Features = slices.Clone(o.Features)
		}
		rc.Name = Ident(rc.Name)
		if in.array {
			rc.Source = svd.Substitute(c.Name, in.index)
		}

		rc.Clusters, rc.Registers, err = r.children(join(parent, rc.Name), src.Clusters, src.Registers, merged, o, cs, rs)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

func (r *resolver) register(
	parent string,
	reg *svd.Register,
	rs *scope[*svd.Register],
	defaults svd.RegisterDefaults,
	ov container,
) ([]*Register, error) {
	path := join(parent, Ident(reg.Name))
	chain, err := derivation(r, path, reg, rs,
		func(r *svd.Register) string { return r.Name },
		func(r *svd.Register) string { return r.DerivedFrom })
	if err != nil {
		return nil, err
	}
	chainNames := make([]string, len(chain))
	for i, n := range chain {
		chainNames[i] = n.Name
	}

	props := foldDefaults(chain, func(r *svd.Register) svd.RegisterDefaults { return r.RegisterDefaults }).Merge(defaults)
	switch {
	case props.Size == nil:
		return nil, Errorf(MissingDefault, path, "size")
	case props.ResetMask == nil:
		return nil, Errorf(MissingDefault, path, "resetMask")
	case props.ResetValue == nil:
		return nil, Errorf(MissingDefault, path, "resetValue")
	}
	size := *props.Size
	switch size {
	case 8, 16, 32, 64:
	default:
		return nil, Errorf(InvalidSize, path, "%d bits", size)
	}
	resetMask, resetValue := *props.ResetMask, *props.ResetValue
	if size < 64 {
		limit := uint64(1)<<size - 1
		if resetMask&^limit != 0 {
			r.warnf(path, "resetMask %#x truncated to %d bits", resetMask, size)
			resetMask &= limit
		}
		if resetValue&^limit != 0 {
			r.warnf(path, "resetValue %#x truncated to %d bits", resetValue, size)
			resetValue &= limit
		}
	}
	access := props.Access.Or(svd.ReadWrite)
	description := firstDescription(chain, func(r *svd.Register) string { return r.Description })

	var fields []svd.Field
	for _, n := range chain {
		if n.Fields != nil {
			fields = n.Fields
			break
		}
	}

	insts, err := instances(path, reg.Dim, reg.AddressOffset)
	if err != nil {
		return nil, err
	}
	out := make([]*Register, 0, len(insts))
	for _, in := range insts {
		name, own := in.names(reg.Name)
		o, inherited := override(ov.Register, own, chainNames[1:])
		rr := &Register{
			Name:        name,
			Source:      reg.Name,
			Description: description,
			Offset:      in.offset,
			Size:        size,
			ResetMask:   resetMask,
			ResetValue:  resetValue,
			Access:      access,
		}
		if o != nil {
			if !inherited {
				rr.Name = in.rename(name, o.Name)
			}
			if o.Description != "" {
				rr.Description = o.Description
			}
			rr.Features = slices.Clone(o.Features)
			rr.Uses = slices.Clone(o.Uses)
		}
		rr.Name = Ident(rr.Name)
		if in.array {
			rr.Source = svd.Substitute(reg.Name, in.index)
		}

		rpath := join(parent, rr.Name)
		rr.Fields, err = r.fields(rpath, fields, rr, o)
		if err != nil {
			return nil, err
		}
		if len(rr.Fields) == 0 && !r.opts.AllowEmptyRegisters {
			return nil, Errorf(EmptyRegister, rpath, "no fields")
		}
		out = append(out, rr)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Fields
// ---------------------------------------------------------------------------

func (r *resolver) fields(path string, fields []svd.Field, reg *Register, ov *overrides.Register) ([]*Field, error) {
	nodes := make([]*svd.Field, len(fields))
	for i := range fields {
		nodes[i] = &fields[i]
	}
	sc := newScope(nil, nodes,
		func(f *svd.Field) string { return f.Name },
		func(f *svd.Field) *svd.Dimension { return f.Dim })

	var (
		out   []*Field
		names []string
	)
	for _, f := range nodes {
		fpath := join(path, Ident(f.Name))
		chain, err := derivation(r, fpath, f, sc,
			func(f *svd.Field) string { return f.Name },
			func(f *svd.Field) string { return f.DerivedFrom })
		if err != nil {
			return nil, err
		}
		chainNames := make([]string, len(chain))
		access := svd.Access("")
		for i, n := range chain {
			chainNames[i] = n.Name
			access = access.Or(n.Access)
		}
		access = access.Or(reg.Access).Or(svd.ReadWrite)
		description := firstDescription(chain, func(f *svd.Field) string { return f.Description })

		insts, err := instances(fpath, f.Dim, uint64(f.BitOffset))
		if err != nil {
			return nil, err
		}
		for _, in := range insts {
			name, own := in.names(f.Name)
			o, inherited := override(ov.Field, own, chainNames[1:])
			rf := &Field{
				Name:        name,
				Source:      f.Name,
				Description: description,
				Offset:      uint32(in.offset),
				Width:       f.BitWidth,
				Access:      access,
			}
			if o != nil {
				if !inherited {
					rf.Name = in.rename(name, o.Name)
				}
				if o.Description != "" {
					rf.Description = o.Description
				}
				rf.Type = o.Type
			}
			rf.Name = Ident(rf.Name)
			if in.array {
				rf.Source = svd.Substitute(f.Name, in.index)
			}
			if err := CheckField(join(path, rf.Name), rf.Offset, rf.Width, rf.Type, reg.Size); err != nil {
				return nil, err
			}
			out = append(out, rf)
			names = append(names, rf.Name)
		}
	}
	if err := checkUnique(path, names); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckField validates a field's bit range against its register size.
// typ is the overriding type name, empty when the type is inferred.
func CheckField(path string, offset, width uint32, typ string, size uint32) error {
	switch {
	case typ == "bool" && width != 1:
		return Errorf(InvalidWidth, path, "bool field must be 1 bit wide, got %d", width)
	case typ == "" && (width < 1 || width > 64):
		return Errorf(InvalidWidth, path, "width %d outside 1..64", width)
	case width == 0:
		return Errorf(InvalidWidth, path, "zero width")
	case uint64(offset)+uint64(width) > uint64(size):
		return Errorf(FieldRangeOverflow, path, "%d + %d > %d", offset, width, size)
	}
	return nil
}
