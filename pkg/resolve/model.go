package resolve

import (
	"sort"

	"github.com/vkochnev/ral/pkg/svd"
)

// Device is a fully resolved description tree. Resolved entities carry only
// concrete values and are not modified after Resolve returns.
type Device struct {
	Name        string
	Description string
	Version     string

	// Features lists every feature tag used anywhere in the tree, sorted.
	Features    []string
	Peripherals []*Peripheral
}

// Peripheral is a resolved peripheral.
type Peripheral struct {
	// Name is the normalized identifier; Source is the name in the description.
	Name        string
	Source      string
	Description string
	GroupName   string
	BaseAddress uint64
	Features    []string
	Clusters    []*Cluster
	Registers   []*Register
}

// Cluster is a resolved cluster. Offset is relative to the enclosing scope.
type Cluster struct {
	Name        string
	Source      string
	Description string
	Offset      uint64
	Features    []string
	Clusters    []*Cluster
	Registers   []*Register
}

// Register is a resolved register. Offset is relative to the enclosing scope.
type Register struct {
	Name        string
	Source      string
	Description string
	Offset      uint64

	// Size is the register width in bits: 8, 16, 32 or 64.
	Size       uint32
	ResetMask  uint64
	ResetValue uint64

	// Access is the register's resolved access mode, never empty.
	Access   svd.Access
	Features []string

	// Uses lists import paths needed by custom field types.
	Uses   []string
	Fields []*Field
}

// Field is a resolved bitfield.
type Field struct {
	Name        string
	Source      string
	Description string
	Offset      uint32
	Width       uint32

	// Access is resolved field, then derivation chain, then register,
	// then read-write.
	Access svd.Access

	// Type is the overriding type name, empty when inferred from Width.
	Type string
}

// Walk calls fn for every register in the device, depth first, with the
// enclosing peripheral and the cluster path from it.
func (d *Device) Walk(fn func(p *Peripheral, clusters []*Cluster, r *Register)) {
	for _, p := range d.Peripherals {
		p.Walk(func(clusters []*Cluster, r *Register) { fn(p, clusters, r) })
	}
}

// Walk calls fn for every register in the peripheral.
func (p *Peripheral) Walk(fn func(clusters []*Cluster, r *Register)) {
	walk(nil, p.Clusters, p.Registers, fn)
}

// RegisterCount returns the number of registers in the peripheral,
// including those inside clusters.
func (p *Peripheral) RegisterCount() int {
	n := 0
	p.Walk(func([]*Cluster, *Register) { n++ })
	return n
}

func walk(path []*Cluster, clusters []*Cluster, registers []*Register, fn func([]*Cluster, *Register)) {
	for _, c := range clusters {
		next := append(path[:len(path):len(path)], c)
		walk(next, c.Clusters, c.Registers, fn)
	}
	for _, r := range registers {
		fn(path, r)
	}
}

// Peripheral returns the peripheral with the given resolved name, or nil.
func (d *Device) Peripheral(name string) *Peripheral {
	for _, p := range d.Peripherals {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func collectFeatures(d *Device) []string {
	seen := make(map[string]bool)
	add := func(fs []string) {
		for _, f := range fs {
			seen[f] = true
		}
	}
	var clusters func([]*Cluster)
	clusters = func(cs []*Cluster) {
		for _, c := range cs {
			add(c.Features)
			clusters(c.Clusters)
			for _, r := range c.Registers {
				add(r.Features)
			}
		}
	}
	for _, p := range d.Peripherals {
		add(p.Features)
		clusters(p.Clusters)
		for _, r := range p.Registers {
			add(r.Features)
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
