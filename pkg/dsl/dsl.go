// Package dsl reads single-register documents and feeds them through the same
// validation and accessor synthesis as full device descriptions.
//
// A document looks like:
//
//	uses: [example.com/board/types]
//	name: moder
//	doc: GPIO port mode register
//	access: read-write
//	offset: 0x0
//	value_size: 32
//	reset_mask: 0xFFFFFFFF
//	reset_value: 0x28000000
//	fields:
//	  - spec: mode0[0:2] as types.Mode
//	    doc: Port 0 configuration
//	  - spec: lock[31:1] as bool
//	    access: read-only
package dsl

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/vkochnev/ral/pkg/layout"
	"github.com/vkochnev/ral/pkg/resolve"
	"github.com/vkochnev/ral/pkg/svd"
	"github.com/vkochnev/ral/pkg/synth"
)

var (
	// ErrSyntax is returned when a field spec does not match
	// "name[offset:width] as type".
	ErrSyntax = errors.New("dsl: malformed field spec")

	// ErrMissing is returned when a required key is absent.
	ErrMissing = errors.New("dsl: missing key")
)

// Number accepts the numeric forms of the description format: decimal, 0x
// hex, #binary and k/M/G suffixes.
type Number uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Number) UnmarshalYAML(value *yaml.Node) error {
	v, err := svd.ParseNumber(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*n = Number(v)
	return nil
}

// Field is one entry of the fields list.
type Field struct {
	Spec   string     `yaml:"spec"`
	Doc    string     `yaml:"doc,omitempty"`
	Access svd.Access `yaml:"access,omitempty"`
}

// Document is a parsed single-register document.
type Document struct {
	Uses       []string   `yaml:"uses,omitempty"`
	Name       string     `yaml:"name"`
	Doc        string     `yaml:"doc,omitempty"`
	Access     svd.Access `yaml:"access,omitempty"`
	Offset     *Number    `yaml:"offset"`
	ValueSize  *Number    `yaml:"value_size"`
	ResetMask  *Number    `yaml:"reset_mask"`
	ResetValue *Number    `yaml:"reset_value"`
	Fields     []Field    `yaml:"fields"`
}

var fieldSpec = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*\[\s*([^:\]\s]+)\s*:\s*([^\]\s]+)\s*\]\s+as\s+([A-Za-z_][A-Za-z0-9_./]*)\s*$`)

// Parse decodes a document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("dsl: %w", err)
	}
	return &doc, nil
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dsl: %w", err)
	}
	return Parse(data)
}

// ParseField splits "name[offset:width] as type" into its parts.
func ParseField(spec string) (name string, offset, width uint32, typ string, err error) {
	m := fieldSpec.FindStringSubmatch(spec)
	if m == nil {
		return "", 0, 0, "", fmt.Errorf("%w: %q", ErrSyntax, spec)
	}
	off, err := svd.ParseNumber(m[2])
	if err != nil {
		return "", 0, 0, "", fmt.Errorf("%w: %q: offset: %v", ErrSyntax, spec, err)
	}
	w, err := svd.ParseNumber(m[3])
	if err != nil {
		return "", 0, 0, "", fmt.Errorf("%w: %q: width: %v", ErrSyntax, spec, err)
	}
	if off > 64 || w > 64 {
		return "", 0, 0, "", fmt.Errorf("%w: %q: range beyond 64 bits", ErrSyntax, spec)
	}
	return m[1], uint32(off), uint32(w), goType(m[4]), nil
}

// goType accepts the short primitive spellings next to the Go names.
func goType(t string) string {
	switch t {
	case "u8":
		return "uint8"
	case "u16":
		return "uint16"
	case "u32":
		return "uint32"
	case "u64":
		return "uint64"
	}
	return t
}

// Register validates the document and returns it as a resolved register.
func (d *Document) Register() (*resolve.Register, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissing)
	}
	path := resolve.Ident(d.Name)
	for _, req := range []struct {
		key string
		v   *Number
	}{
		{"offset", d.Offset},
		{"value_size", d.ValueSize},
		{"reset_mask", d.ResetMask},
		{"reset_value", d.ResetValue},
	} {
		if req.v == nil {
			return nil, resolve.Errorf(resolve.MissingDefault, path, "%s", req.key)
		}
	}
	size := uint64(*d.ValueSize)
	switch size {
	case 8, 16, 32, 64:
	default:
		return nil, resolve.Errorf(resolve.InvalidSize, path, "value_size %d, want a power of two in 8..64", size)
	}
	if len(d.Fields) == 0 {
		return nil, resolve.Errorf(resolve.EmptyRegister, path, "at least one field must be specified")
	}

	reg := &resolve.Register{
		Name:        path,
		Source:      d.Name,
		Description: d.Doc,
		Offset:      uint64(*d.Offset),
		Size:        uint32(size),
		ResetMask:   uint64(*d.ResetMask),
		ResetValue:  uint64(*d.ResetValue),
		Access:      d.Access.Or(svd.ReadWrite),
		Uses:        d.Uses,
	}
	if size < 64 {
		limit := uint64(1)<<size - 1
		reg.ResetMask &= limit
		reg.ResetValue &= limit
	}

	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		name, offset, width, typ, err := ParseField(f.Spec)
		if err != nil {
			return nil, err
		}
		fname := resolve.Ident(name)
		fpath := path + "/" + fname
		if seen[fname] {
			return nil, resolve.Errorf(resolve.DuplicateArrayName, fpath, "field declared twice")
		}
		seen[fname] = true
		if err := resolve.CheckField(fpath, offset, width, typ, reg.Size); err != nil {
			return nil, err
		}
		reg.Fields = append(reg.Fields, &resolve.Field{
			Name:        fname,
			Source:      name,
			Description: f.Doc,
			Offset:      offset,
			Width:       width,
			Access:      f.Access.Or(reg.Access),
			Type:        typ,
		})
	}
	return reg, nil
}

// Spec validates the document and synthesizes its accessor specification.
// The register sits at its offset from a zero base.
func (d *Document) Spec() (*synth.RegisterSpec, error) {
	reg, err := d.Register()
	if err != nil {
		return nil, err
	}
	return synth.Register(layout.Entry{
		Path:       reg.Name,
		Kind:       layout.KindRegister,
		Address:    reg.Offset,
		Peripheral: &resolve.Peripheral{},
		Register:   reg,
	})
}
