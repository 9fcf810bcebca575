// Package layout computes absolute addresses for every peripheral, cluster
// and register of a resolved device.
package layout

import (
	"sort"
	"strings"

	"github.com/vkochnev/ral/pkg/resolve"
)

// Kind is the kind of node an Entry describes.
type Kind int

const (
	KindPeripheral Kind = iota + 1
	KindCluster
	KindRegister
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPeripheral:
		return "peripheral"
	case KindCluster:
		return "cluster"
	case KindRegister:
		return "register"
	default:
		return "unknown"
	}
}

// Entry is one addressed node.
type Entry struct {
	// Path is the slash separated resolved path, e.g. "dma1/cha/ccr".
	Path    string
	Kind    Kind
	Address uint64

	Peripheral *resolve.Peripheral

	// Clusters is the cluster chain from the peripheral down to the node,
	// the node itself included for cluster entries.
	Clusters []*resolve.Cluster

	// Register is set for register entries.
	Register *resolve.Register
}

// Bytes returns the number of bytes a register entry spans; zero otherwise.
func (e Entry) Bytes() uint64 {
	if e.Register == nil {
		return 0
	}
	return uint64(e.Register.Size / 8)
}

// Layout is the address map of a device, in traversal order.
type Layout struct {
	entries []Entry
	index   map[string]int
}

// Compute lays out dev.
//
// A peripheral sits at its base address. Clusters and registers sit at the
// enclosing scope's address plus their own offset; array elements already
// carry their index increment in the offset.
func Compute(dev *resolve.Device) *Layout {
	l := &Layout{index: make(map[string]int)}
	for _, p := range dev.Peripherals {
		l.add(Entry{Path: p.Name, Kind: KindPeripheral, Address: p.BaseAddress, Peripheral: p})
		l.scope(p, p.Name, p.BaseAddress, nil, p.Clusters, p.Registers)
	}
	return l
}

func (l *Layout) scope(p *resolve.Peripheral, path string, base uint64, chain []*resolve.Cluster, clusters []*resolve.Cluster, registers []*resolve.Register) {
	for _, c := range clusters {
		next := append(chain[:len(chain):len(chain)], c)
		cpath := path + "/" + c.Name
		addr := base + c.Offset
		l.add(Entry{Path: cpath, Kind: KindCluster, Address: addr, Peripheral: p, Clusters: next})
		l.scope(p, cpath, addr, next, c.Clusters, c.Registers)
	}
	for _, r := range registers {
		l.add(Entry{
			Path:       path + "/" + r.Name,
			Kind:       KindRegister,
			Address:    base + r.Offset,
			Peripheral: p,
			Clusters:   chain,
			Register:   r,
		})
	}
}

func (l *Layout) add(e Entry) {
	l.index[e.Path] = len(l.entries)
	l.entries = append(l.entries, e)
}

// Entries returns every entry in traversal order.
func (l *Layout) Entries() []Entry {
	return l.entries
}

// Registers returns the register entries in traversal order.
func (l *Layout) Registers() []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Kind == KindRegister {
			out = append(out, e)
		}
	}
	return out
}

// Lookup returns the entry at path.
func (l *Layout) Lookup(path string) (Entry, bool) {
	i, ok := l.index[strings.Trim(path, "/")]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Address returns the absolute address of the node at path.
func (l *Layout) Address(path string) (uint64, bool) {
	e, ok := l.Lookup(path)
	return e.Address, ok
}

// Overlap reports two registers whose byte ranges intersect.
type Overlap struct {
	First, Second string
	Address       uint64
}

// Overlaps returns every pair of registers sharing at least one byte,
// ordered by address. Descriptions use overlapping registers for alternate
// views of the same word, so this is informational.
func (l *Layout) Overlaps() []Overlap {
	regs := l.Registers()
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].Address < regs[j].Address })

	var out []Overlap
	for i := range regs {
		end := regs[i].Address + regs[i].Bytes()
		for j := i + 1; j < len(regs) && regs[j].Address < end; j++ {
			out = append(out, Overlap{First: regs[i].Path, Second: regs[j].Path, Address: regs[j].Address})
		}
	}
	return out
}
