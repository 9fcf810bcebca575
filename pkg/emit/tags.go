package emit

import (
	"strings"
)

// Tag turns a feature name into a valid build tag.
// Characters other than letters, digits, '_' and '.' become '_'.
func Tag(feature string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		}
		return '_'
	}, feature)
}

// Constraint renders feature levels as a build constraint expression.
// Tags within a level are OR-ed and levels are AND-ed. Empty levels are
// skipped; the result is empty when no level has tags.
func Constraint(levels [][]string) string {
	var parts []string
	for _, level := range levels {
		if len(level) == 0 {
			continue
		}
		tags := make([]string, len(level))
		for i, f := range level {
			tags[i] = Tag(f)
		}
		expr := strings.Join(tags, " || ")
		if len(tags) > 1 && countNonEmpty(levels) > 1 {
			expr = "(" + expr + ")"
		}
		parts = append(parts, expr)
	}
	return strings.Join(parts, " && ")
}

func countNonEmpty(levels [][]string) int {
	n := 0
	for _, l := range levels {
		if len(l) > 0 {
			n++
		}
	}
	return n
}

// goFileSuffixes are the name suffixes the go tool reads as implicit build
// constraints.
var goFileSuffixes = map[string]bool{
	"test": true,
	"aix": true, "android": true, "darwin": true, "dragonfly": true, "freebsd": true,
	"hurd": true, "illumos": true, "ios": true, "js": true, "linux": true, "nacl": true,
	"netbsd": true, "openbsd": true, "plan9": true, "solaris": true, "wasip1": true,
	"windows": true, "zos": true,
	"386": true, "amd64": true, "amd64p32": true, "arm": true, "arm64": true, "arm64be": true,
	"armbe": true, "loong64": true, "mips": true, "mips64": true, "mips64le": true,
	"mips64p32": true, "mips64p32le": true, "mipsle": true, "ppc": true, "ppc64": true,
	"ppc64le": true, "riscv": true, "riscv64": true, "s390": true, "s390x": true,
	"sparc": true, "sparc64": true, "wasm": true,
}

// FileName returns the Go file name for a register identifier, avoiding
// suffixes that would add an implicit GOOS, GOARCH or test constraint and
// prefixes the go tool ignores. doc.go is kept for the package file.
func FileName(ident string) string {
	if strings.HasPrefix(ident, "_") {
		ident = "r" + ident
	}
	if ident == "doc" {
		return "doc_.go"
	}
	if i := strings.LastIndexByte(ident, '_'); i >= 0 && goFileSuffixes[ident[i+1:]] {
		return ident + "_.go"
	}
	return ident + ".go"
}

// PackageName returns the package and directory name for a peripheral
// identifier. Names the go tool would skip get a "p" prefix.
func PackageName(ident string) string {
	if strings.HasPrefix(ident, "_") || ident == "testdata" || ident == "internal" || ident == "main" {
		return "p" + ident
	}
	return ident
}
