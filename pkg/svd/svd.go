// Package svd defines the hardware description tree consumed by the resolver
// and the loaders that build it from CMSIS-SVD XML or YAML documents.
//
// Description entities are plain data. Optional numeric properties are
// pointers so that "unset" can be told apart from zero; an empty child list
// means "inherit from derivedFrom" and is resolved later.
package svd

// RegisterDefaults are the register properties that can be inherited from an
// enclosing scope or a derivation target. Each property merges independently.
type RegisterDefaults struct {
	Size       *uint32 `yaml:"size,omitempty"`
	ResetMask  *uint64 `yaml:"resetMask,omitempty"`
	ResetValue *uint64 `yaml:"resetValue,omitempty"`
	Access     Access  `yaml:"access,omitempty"`
}

// Merge returns d with every unset property taken from parent.
func (d RegisterDefaults) Merge(parent RegisterDefaults) RegisterDefaults {
	out := d
	if out.Size == nil {
		out.Size = parent.Size
	}
	if out.ResetMask == nil {
		out.ResetMask = parent.ResetMask
	}
	if out.ResetValue == nil {
		out.ResetValue = parent.ResetValue
	}
	out.Access = out.Access.Or(parent.Access)
	return out
}

// IsZero reports whether no property is set.
func (d RegisterDefaults) IsZero() bool {
	return d.Size == nil && d.ResetMask == nil && d.ResetValue == nil && d.Access == ""
}

// Field describes a bitfield within a register.
type Field struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	BitOffset   uint32     `yaml:"bitOffset"`
	BitWidth    uint32     `yaml:"bitWidth"`
	Access      Access     `yaml:"access,omitempty"`
	DerivedFrom string     `yaml:"derivedFrom,omitempty"`
	Dim         *Dimension `yaml:"dim,omitempty"`
}

// Register describes a hardware register.
// A nil Fields slice inherits the fields of the DerivedFrom target.
type Register struct {
	Name             string     `yaml:"name"`
	Description      string     `yaml:"description,omitempty"`
	AddressOffset    uint64     `yaml:"addressOffset"`
	RegisterDefaults `yaml:",inline"`
	DerivedFrom      string     `yaml:"derivedFrom,omitempty"`
	Dim              *Dimension `yaml:"dim,omitempty"`
	Fields           []Field    `yaml:"fields,omitempty"`
}

// Cluster groups registers and nested clusters at a common offset.
type Cluster struct {
	Name             string     `yaml:"name"`
	Description      string     `yaml:"description,omitempty"`
	AddressOffset    uint64     `yaml:"addressOffset"`
	RegisterDefaults `yaml:",inline"`
	DerivedFrom      string     `yaml:"derivedFrom,omitempty"`
	Dim              *Dimension `yaml:"dim,omitempty"`
	Clusters         []Cluster  `yaml:"clusters,omitempty"`
	Registers        []Register `yaml:"registers,omitempty"`
}

// HasChildren reports whether the cluster declares any children of its own.
func (c *Cluster) HasChildren() bool {
	return len(c.Clusters) > 0 || len(c.Registers) > 0
}

// Peripheral is a block of registers at a fixed base address.
type Peripheral struct {
	Name             string     `yaml:"name"`
	Description      string     `yaml:"description,omitempty"`
	GroupName        string     `yaml:"groupName,omitempty"`
	BaseAddress      uint64     `yaml:"baseAddress"`
	RegisterDefaults `yaml:",inline"`
	DerivedFrom      string     `yaml:"derivedFrom,omitempty"`
	Clusters         []Cluster  `yaml:"clusters,omitempty"`
	Registers        []Register `yaml:"registers,omitempty"`
}

// HasChildren reports whether the peripheral declares any children of its own.
func (p *Peripheral) HasChildren() bool {
	return len(p.Clusters) > 0 || len(p.Registers) > 0
}

// Device is the root of a description tree.
type Device struct {
	Name             string       `yaml:"name"`
	Description      string       `yaml:"description,omitempty"`
	Version          string       `yaml:"version,omitempty"`
	RegisterDefaults `yaml:",inline"`
	Peripherals      []Peripheral `yaml:"peripherals"`
}

// U32 returns a pointer to v. Handy for building descriptions in code.
func U32(v uint32) *uint32 { return &v }

// U64 returns a pointer to v.
func U64(v uint64) *uint64 { return &v }
