package inspect

import (
	"fmt"
	"strings"

	"github.com/vkochnev/ral/pkg/layout"
	"github.com/vkochnev/ral/pkg/svd"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowMetadata includes size, access and reset information
	ShowMetadata bool

	// ShowAddresses includes absolute addresses
	ShowAddresses bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata:  true,
		ShowAddresses: true,
		IndentWidth:   2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatWord formats v as a zero-padded hex word of size bits.
func FormatWord(v uint64, size uint32) string {
	digits := int(size+3) / 4
	if digits == 0 {
		digits = 1
	}
	return fmt.Sprintf("0x%0*X", digits, v)
}

// FormatBinary formats the low size bits of v in nibble groups,
// most significant first.
func FormatBinary(v uint64, size uint32) string {
	var sb strings.Builder
	for bit := int(size) - 1; bit >= 0; bit-- {
		sb.WriteByte('0' + byte(v>>uint(bit)&1))
		if bit > 0 && bit%4 == 0 {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// FormatBits formats a bit range as [msb:lsb], or [bit] for one bit.
func FormatBits(offset, width uint32) string {
	if width <= 1 {
		return fmt.Sprintf("[%d]", offset)
	}
	return fmt.Sprintf("[%d:%d]", offset+width-1, offset)
}

// FormatAccess returns a short access code.
func FormatAccess(a svd.Access) string {
	switch a {
	case svd.ReadOnly:
		return "RO"
	case svd.WriteOnly:
		return "WO"
	case svd.ReadWrite:
		return "RW"
	case svd.WriteOnce:
		return "W1"
	case svd.ReadWriteOnce:
		return "RW1"
	default:
		return "??"
	}
}

// FormatEntry formats one layout entry on a single line.
func (f *Formatter) FormatEntry(e layout.Entry) string {
	name := e.Path[strings.LastIndexByte(e.Path, '/')+1:]
	var sb strings.Builder
	sb.WriteString(name)
	if e.Kind != layout.KindRegister {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Kind))
	}
	if f.ShowAddresses {
		sb.WriteString(fmt.Sprintf(" @ %#08x", e.Address))
	}
	if f.ShowMetadata && e.Register != nil {
		r := e.Register
		sb.WriteString(fmt.Sprintf(" %d-bit %s reset=%s", r.Size, FormatAccess(r.Access), FormatWord(r.ResetValue, r.Size)))
	}
	return sb.String()
}

// FormatNode formats a node with its details.
func (f *Formatter) FormatNode(n *NodeInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s)", n.Path, n.Kind))
	if n.Field != nil {
		sb.WriteString(" field")
	}
	sb.WriteString("\n")
	if f.ShowAddresses {
		sb.WriteString(f.Indent(1, fmt.Sprintf("address: %#08x\n", n.Address)))
	}
	if n.Description != "" && n.Field == nil {
		sb.WriteString(f.Indent(1, "description: "+n.Description+"\n"))
	}
	if len(n.Features) > 0 {
		sb.WriteString(f.Indent(1, "features: "+strings.Join(n.Features, ", ")+"\n"))
	}

	switch {
	case n.Field != nil:
		fi := n.Field
		sb.WriteString(f.Indent(1, fmt.Sprintf("bits: %s\n", FormatBits(fi.Offset, fi.Width))))
		sb.WriteString(f.Indent(1, fmt.Sprintf("type: %s\n", fi.Type)))
		sb.WriteString(f.Indent(1, fmt.Sprintf("access: %s\n", fi.Access)))
		sb.WriteString(f.Indent(1, fmt.Sprintf("reset: %#x\n", fi.Reset)))
		if fi.Description != "" {
			sb.WriteString(f.Indent(1, "description: "+fi.Description+"\n"))
		}
	case n.Register != nil:
		r := n.Register
		if f.ShowMetadata {
			sb.WriteString(f.Indent(1, fmt.Sprintf("size: %d bits, access: %s\n", r.Size, r.Access)))
			sb.WriteString(f.Indent(1, fmt.Sprintf("reset: %s (%s)\n", FormatWord(r.ResetValue, r.Size), FormatBinary(r.ResetValue, r.Size))))
			sb.WriteString(f.Indent(1, fmt.Sprintf("mask:  %s\n", FormatWord(r.ResetMask, r.Size))))
		}
		sb.WriteString(f.FormatFieldTable(fieldRows(r.Fields, nil)))
	default:
		for _, c := range n.Children {
			sb.WriteString(f.Indent(1, c+"\n"))
		}
	}
	return sb.String()
}

// FormatDecoded formats a decoded register word.
func (f *Formatter) FormatDecoded(values []FieldValue) string {
	fields := make([]FieldInfo, len(values))
	for i, v := range values {
		fields[i] = v.FieldInfo
	}
	return f.FormatFieldTable(fieldRows(fields, values))
}

// FieldRow represents a formatted field for display.
type FieldRow struct {
	Bits   string
	Name   string
	Value  string
	Type   string
	Access string
}

func fieldRows(fields []FieldInfo, values []FieldValue) []FieldRow {
	rows := make([]FieldRow, len(fields))
	for i, fi := range fields {
		v := fi.Reset
		if values != nil {
			v = values[i].Value
		}
		rows[i] = FieldRow{
			Bits:   FormatBits(fi.Offset, fi.Width),
			Name:   fi.Name,
			Value:  fmt.Sprintf("%#x", v),
			Type:   fi.Type,
			Access: FormatAccess(fi.Access),
		}
	}
	return rows
}

// FormatFieldTable formats a list of fields as a table.
func (f *Formatter) FormatFieldTable(rows []FieldRow) string {
	if len(rows) == 0 {
		return "  (no fields)\n"
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("  %-8s %s: %s", row.Bits, row.Name, row.Value))
		if f.ShowMetadata && row.Type != "" {
			sb.WriteString(fmt.Sprintf(" (%s, %s)", row.Type, row.Access))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
