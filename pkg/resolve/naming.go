package resolve

import (
	"go/token"
	"strings"
	"unicode"
)

// predeclared Go identifiers a generated name must not shadow.
var predeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"true": true, "false": true, "iota": true, "nil": true,
	"append": true, "cap": true, "clear": true, "close": true, "complex": true,
	"copy": true, "delete": true, "imag": true, "len": true, "make": true,
	"max": true, "min": true, "new": true, "panic": true, "print": true,
	"println": true, "real": true, "recover": true,
}

// Ident normalizes a description name into a lowercase Go identifier.
//
// Characters that cannot appear in an identifier become '_', a leading digit
// gets a '_' prefix, and keywords or predeclared names get a '_' suffix.
func Ident(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	s := b.String()
	switch {
	case s == "" || s == "_":
		return "_" + s
	case unicode.IsDigit(rune(s[0])):
		return "_" + s
	case token.IsKeyword(s) || predeclared[s]:
		return s + "_"
	}
	return s
}

// Exported turns a lowercase identifier into an exported CamelCase one:
// "ch_a_ccr" becomes "ChACcr", "type_" becomes "Type".
func Exported(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	s := b.String()
	if unicode.IsDigit(rune(s[0])) {
		return "X" + s
	}
	return s
}
