package emit

import (
	"fmt"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/vkochnev/ral/pkg/synth"
)

// header marks every emitted file as generated.
const header = "// Code generated by ralgen. DO NOT EDIT."

// funcMap provides helper functions available to all templates.
var funcMap = template.FuncMap{
	"hex":     func(v uint64) string { return fmt.Sprintf("%#x", v) },
	"word":    word,
	"quote":   func(s string) string { return fmt.Sprintf("%q", s) },
	"comment": comment,
	"bits":    bitRange,
	"isBool":  func(f synth.FieldSpec) bool { return f.Kind == synth.KindBool },
	"isPrim":  func(f synth.FieldSpec) bool { return f.Kind == synth.KindPrimitive },
	"mask":    func(f synth.FieldSpec) string { return fmt.Sprintf("%#x", f.Mask) },
	"join":    strings.Join,
}

// templates holds all parsed code generation templates.
var templates = template.Must(template.New("").Funcs(funcMap).Parse(
	moduleDocTmpl +
		peripheralDocTmpl +
		registerTmpl +
		fieldTmpl,
))

// renderTemplate executes a named template into the builder.
func renderTemplate(b *strings.Builder, name string, data any) {
	if err := templates.ExecuteTemplate(b, name, data); err != nil {
		panic(fmt.Sprintf("template %s: %v", name, err))
	}
}

// word formats v as a zero padded hex literal of a size-bit word.
func word(v uint64, size uint32) string {
	digits := int(size / 4)
	if digits == 0 {
		digits = 1
	}
	return fmt.Sprintf("0x%0*X", digits, v)
}

// comment turns free text into "//" comment lines. A paragraph ending in a
// letter or digit gets a period, or gofmt would take a lone line for a heading.
func comment(text string) string {
	raw := strings.Split(strings.TrimSpace(text), "\n")
	lines := make([]string, 0, len(raw))
	for i, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			lines = append(lines, "//")
			continue
		}
		if i == len(raw)-1 || strings.TrimSpace(raw[i+1]) == "" {
			l = closeSentence(l)
		}
		lines = append(lines, "// "+l)
	}
	return strings.Join(lines, "\n")
}

func closeSentence(s string) string {
	r, _ := utf8.DecodeLastRuneInString(s)
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return s + "."
	}
	return s
}

func bitRange(f synth.FieldSpec) string {
	if f.Width == 1 {
		return fmt.Sprintf("bit %d", f.Offset)
	}
	return fmt.Sprintf("bits %d..%d", f.Offset, f.Offset+f.Width-1)
}

// --- Template data types ---

// moduleData holds data for the module doc template.
type moduleData struct {
	Package     string
	Name        string
	Description string
	Module      string
	Runtime     string
	Peripherals []peripheralData
	Features    []string
}

// peripheralData holds data for the peripheral doc template.
type peripheralData struct {
	Package     string
	Name        string
	Description string
	BaseAddress uint64
	Constraint  string
	Registers   int
	Simulated   bool
}

// registerData holds data for the register template.
type registerData struct {
	Package    string
	Constraint string
	Imports    []string
	Reg        *synth.RegisterSpec

	// Var is the unexported prefix of the register's package variables.
	Var string

	// Cell is the expression binding the holder.
	Cell string
}

// fieldData is a field together with its register's type and word.
type fieldData struct {
	synth.FieldSpec
	Owner string
	Word  string
}

// Fields returns the register's fields paired with the register type.
func (d registerData) Fields() []fieldData {
	out := make([]fieldData, len(d.Reg.Fields))
	for i, f := range d.Reg.Fields {
		out[i] = fieldData{FieldSpec: f, Owner: d.Reg.GoName, Word: d.Reg.WordType}
	}
	return out
}

// --- Template definitions ---

const moduleDocTmpl = `{{define "moduleDoc"}}` + header + `

// Package {{.Package}} is the register access layer for the {{.Name}} device.
{{- with .Description}}
//
{{comment .}}
{{- end}}
//
// Every register is a type in its peripheral's package. Borrow a register
// with its Borrow or With function, chain field setters on the cached word
// and Write once. Peripherals:
//
{{- range .Peripherals}}
//   - {{$.Module}}/{{.Package}} ({{.Name}}) at {{hex .BaseAddress}}, {{.Registers}} registers
{{- end}}
{{- if .Features}}
//
// Optional parts are gated by build tags: {{join .Features ", "}}.
{{- end}}
//
// Generated against runtime {{.Runtime}}.
package {{.Package}}
{{end}}`

const peripheralDocTmpl = `{{define "peripheralDoc"}}` + header + `
{{if .Constraint}}
//go:build {{.Constraint}}
{{end}}
// Package {{.Package}} exposes the {{.Name}} registers.
{{- with .Description}}
//
{{comment .}}
{{- end}}
{{- if .Simulated}}
//
// Registers are backed by process memory, not hardware.
{{- end}}
package {{.Package}}

// BaseAddress is the {{.Name}} base address.
const BaseAddress = {{hex .BaseAddress}}
{{end}}`

const registerTmpl = `{{define "register"}}` + header + `
{{if .Constraint}}
//go:build {{.Constraint}}
{{end}}
package {{.Package}}

import (
{{- range .Imports}}
	{{quote .}}
{{- end}}
)
{{- $t := .Reg.GoName}}{{$w := .Reg.WordType}}{{$r := .Reg}}

// {{$t}} is the {{$r.Path}} register.
{{- with $r.Description}}
//
{{comment .}}
{{- end}}
//
// Offset {{hex $r.Offset}}, {{$r.Size}} bits, {{$r.Access}}.
type {{$t}} struct {
	*ral.Handle[{{$w}}]
}

var {{.Var}}Def = ral.Def[{{$w}}]{Mask: {{word $r.ResetMask $r.Size}}, Reset: {{word $r.ResetValue $r.Size}}}

var {{.Var}}Holder = ral.NewHolder[{{$w}}]({{.Cell}}, ral.Named({{quote $r.Path}}))

// Borrow{{$t}} checks the register out. It reports false at once when the
// register is owned elsewhere. The caller must Return the register.
func Borrow{{$t}}() ({{$t}}, bool) {
	h, ok := ral.Borrow({{.Var}}Holder, {{.Var}}Def)
	return {{$t}}{h}, ok
}

// With{{$t}} borrows the register, runs fn and returns the register on
// every exit path. It reports false without calling fn when the register is
// owned elsewhere.
func With{{$t}}(fn func({{$t}}) error) (bool, error) {
	return ral.With({{.Var}}Holder, {{.Var}}Def, func(h *ral.Handle[{{$w}}]) error {
		return fn({{$t}}{h})
	})
}

// Read loads the hardware word into the cache.
func (r {{$t}}) Read() {{$t}} {
	r.Handle.Read()
	return r
}

// Write stores the cache to hardware, bits outside the mask pinned to reset.
func (r {{$t}}) Write() {{$t}} {
	r.Handle.Write()
	return r
}

// Reset sets the cache to the reset value.
func (r {{$t}}) Reset() {{$t}} {
	r.Handle.Reset()
	return r
}
{{- range .Fields}}{{template "field" .}}{{end}}
{{end}}`

const fieldTmpl = `{{define "field"}}
{{- if isBool .FieldSpec}}
{{- if .Getter}}

// {{.GetterName}} reports whether {{.Name}} ({{bits .FieldSpec}}) is set.
{{- with .Description}}
{{comment .}}
{{- end}}
func (r {{.Owner}}) {{.GetterName}}() bool {
	return ral.Flag[{{.Word}}](r, {{.Offset}})
}
{{- end}}
{{- if .Setter}}

// {{.SetterName}} sets or clears {{.Name}} ({{bits .FieldSpec}}).
func (r {{.Owner}}) {{.SetterName}}(v bool) {{.Owner}} {
	ral.SetFlag[{{.Word}}](r, {{.Offset}}, v)
	return r
}

// {{.SetName}} sets {{.Name}}.
func (r {{.Owner}}) {{.SetName}}() {{.Owner}} {
	return r.{{.SetterName}}(true)
}

// {{.UnsetName}} clears {{.Name}}.
func (r {{.Owner}}) {{.UnsetName}}() {{.Owner}} {
	return r.{{.SetterName}}(false)
}
{{- end}}
{{- else if isPrim .FieldSpec}}
{{- if .Getter}}

// {{.GetterName}} returns {{.Name}} ({{bits .FieldSpec}}).
{{- with .Description}}
{{comment .}}
{{- end}}
func (r {{.Owner}}) {{.GetterName}}() {{.FieldSpec.Type}} {
	return {{.FieldSpec.Type}}(ral.Field[{{.Word}}](r, {{mask .FieldSpec}}, {{.Offset}}))
}
{{- end}}
{{- if .Setter}}

// {{.SetterName}} sets {{.Name}} ({{bits .FieldSpec}}). Bits beyond the field
// width are dropped.
func (r {{.Owner}}) {{.SetterName}}(v {{.FieldSpec.Type}}) {{.Owner}} {
	ral.SetField[{{.Word}}](r, {{mask .FieldSpec}}, {{.Offset}}, {{.Word}}(v))
	return r
}
{{- end}}
{{- else}}
{{- if .Getter}}

// {{.GetterName}} decodes {{.Name}} ({{bits .FieldSpec}}).
{{- with .Description}}
{{comment .}}
{{- end}}
func (r {{.Owner}}) {{.GetterName}}() ({{.FieldSpec.Type}}, error) {
	return ral.Decode[{{.Word}}, {{.FieldSpec.Type}}](r, {{quote .Name}}, {{mask .FieldSpec}}, {{.Offset}})
}
{{- end}}
{{- if .Setter}}

// {{.SetterName}} encodes v into {{.Name}} ({{bits .FieldSpec}}). The cache
// is unchanged when encoding fails.
func (r {{.Owner}}) {{.SetterName}}(v {{.FieldSpec.Type}}) ({{.Owner}}, error) {
	return r, ral.Encode[{{.Word}}](r, {{quote .Name}}, {{mask .FieldSpec}}, {{.Offset}}, v)
}
{{- end}}
{{- end}}
{{- end}}`
