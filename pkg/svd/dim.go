package svd

import (
	"fmt"
	"strconv"
	"strings"
)

// Dimension replicates a description node into Count siblings.
// With no Indices the elements are numbered 0..Count-1.
type Dimension struct {
	Count     uint32   `yaml:"count"`
	Increment uint64   `yaml:"increment"`
	Indices   []string `yaml:"indices,omitempty"`
}

// Index returns the index strings of the array.
func (d *Dimension) Index() []string {
	if len(d.Indices) > 0 {
		return d.Indices
	}
	out := make([]string, d.Count)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

// Substitute replaces the array placeholder in a templated name with index.
// Both "%s" and the SVD array form "[%s]" are replaced.
func Substitute(template, index string) string {
	name := strings.ReplaceAll(template, "[%s]", index)
	return strings.ReplaceAll(name, "%s", index)
}

// Expand is Substitute followed by lowercasing.
func Expand(template, index string) string {
	return strings.ToLower(Substitute(template, index))
}

// ParseDimIndex expands an SVD dimIndex value: a comma separated list
// ("A,B,C"), a numeric range ("0-3") or a letter range ("A-D").
func ParseDimIndex(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out, nil
	}
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return []string{s}, nil
	}
	if a, err := strconv.Atoi(lo); err == nil {
		b, err := strconv.Atoi(hi)
		if err != nil || b < a {
			return nil, fmt.Errorf("invalid dimIndex range %q", s)
		}
		out := make([]string, 0, b-a+1)
		for i := a; i <= b; i++ {
			out = append(out, strconv.Itoa(i))
		}
		return out, nil
	}
	if len(lo) == 1 && len(hi) == 1 && lo[0] <= hi[0] {
		out := make([]string, 0, int(hi[0]-lo[0])+1)
		for c := lo[0]; c <= hi[0]; c++ {
			out = append(out, string(c))
		}
		return out, nil
	}
	return nil, fmt.Errorf("invalid dimIndex range %q", s)
}
