// Package inspect browses a resolved device: path parsing, name completion,
// node details and register word decoding.
//
// The inspect package offers a unified interface for:
//   - Parsing path expressions ("dma1/cha/ccr/en") and addresses ("0x40020008")
//   - Completing and searching node names
//   - Decoding a register word into fields and encoding fields into a word
//   - Formatting output for display
package inspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vkochnev/ral/pkg/resolve"
	"github.com/vkochnev/ral/pkg/svd"
)

// Path errors.
var (
	ErrEmptyPath     = errors.New("empty path")
	ErrInvalidPath   = errors.New("invalid path format")
	ErrInvalidNumber = errors.New("invalid numeric value in path")
)

// Path is a parsed inspection path.
// Format: peripheral[/cluster...][/register[/field]] or an absolute address.
type Path struct {
	// Segments are the normalized identifiers, peripheral first.
	Segments []string

	// Address is set when IsAddress is true.
	Address   uint64
	IsAddress bool

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path string.
//
// Supported formats:
//   - "gpioa" - a peripheral
//   - "dma1/cha/ccr" - a register, clusters included
//   - "dma1/cha/ccr/en" - a field
//   - "GPIOA.MODER" - dots separate segments too
//   - "0x48000000" - the register covering an address
//
// Segments are normalized the same way description names are, so the
// spelling of the description document works.
func ParsePath(input string) (*Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyPath
	}

	if input[0] >= '0' && input[0] <= '9' || input[0] == '#' {
		addr, err := svd.ParseNumber(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidNumber, input)
		}
		return &Path{Address: addr, IsAddress: true, Raw: input}, nil
	}

	norm := strings.ReplaceAll(input, ".", "/")
	if strings.HasPrefix(norm, "/") || strings.Contains(norm, "//") {
		return nil, ErrInvalidPath
	}
	norm = strings.TrimSuffix(norm, "/")

	p := &Path{Raw: input}
	for _, seg := range strings.Split(norm, "/") {
		p.Segments = append(p.Segments, resolve.Ident(seg))
	}
	return p, nil
}

// String returns the normalized path.
func (p *Path) String() string {
	if p.IsAddress {
		return fmt.Sprintf("%#x", p.Address)
	}
	return strings.Join(p.Segments, "/")
}

// Parent returns the path one level up, or nil at the top.
func (p *Path) Parent() *Path {
	if p.IsAddress || len(p.Segments) <= 1 {
		return nil
	}
	segs := p.Segments[:len(p.Segments)-1]
	return &Path{Segments: segs, Raw: strings.Join(segs, "/")}
}

// Last returns the final segment.
func (p *Path) Last() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}
