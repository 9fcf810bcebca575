package inspect

import (
	"sort"
	"strings"

	"github.com/vkochnev/ral/pkg/layout"
)

// Names indexes every node path of a device, fields included, for lookup,
// completion and search.
type Names struct {
	paths []string
	set   map[string]bool
}

// NewNames indexes the layout.
func NewNames(l *layout.Layout) *Names {
	n := &Names{set: make(map[string]bool)}
	add := func(p string) {
		if !n.set[p] {
			n.set[p] = true
			n.paths = append(n.paths, p)
		}
	}
	for _, e := range l.Entries() {
		add(e.Path)
		if e.Register != nil {
			for _, f := range e.Register.Fields {
				add(e.Path + "/" + f.Name)
			}
		}
	}
	sort.Strings(n.paths)
	return n
}

// Len returns the number of indexed paths.
func (n *Names) Len() int {
	return len(n.paths)
}

// Has reports whether path names a node.
func (n *Names) Has(path string) bool {
	return n.set[path]
}

// Resolve returns the indexed path matching name (case-insensitive).
func (n *Names) Resolve(name string) (string, bool) {
	lname := strings.ToLower(strings.Trim(name, "/"))
	if n.set[lname] {
		return lname, true
	}
	for _, p := range n.paths {
		if strings.EqualFold(p, lname) {
			return p, true
		}
	}
	return "", false
}

// Complete returns the paths that extend prefix by at most one segment,
// sorted. A prefix ending in "/" lists the children of that node.
func (n *Names) Complete(prefix string) []string {
	lprefix := strings.ToLower(prefix)
	depth := strings.Count(lprefix, "/")
	var out []string
	for _, p := range n.paths {
		if strings.HasPrefix(p, lprefix) && strings.Count(p, "/") == depth {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the paths whose last segment contains substr
// (case-insensitive), sorted.
func (n *Names) Find(substr string) []string {
	lsub := strings.ToLower(substr)
	var out []string
	for _, p := range n.paths {
		last := p[strings.LastIndexByte(p, '/')+1:]
		if strings.Contains(last, lsub) {
			out = append(out, p)
		}
	}
	return out
}
