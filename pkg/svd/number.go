package svd

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseNumber parses an SVD scaledNonNegativeInteger: decimal, 0x hex or
// #binary, optionally followed by a k/M/G/T scale. In binary literals an 'x'
// (don't care) digit reads as 0.
func ParseNumber(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}

	var scale uint64 = 1
	switch s[len(s)-1] {
	case 'k', 'K':
		scale = 1 << 10
	case 'm', 'M':
		scale = 1 << 20
	case 'g', 'G':
		scale = 1 << 30
	case 't', 'T':
		scale = 1 << 40
	}

	var (
		v   uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		// No scale suffix on hex literals.
		scale = 1
		v, err = strconv.ParseUint(s[2:], 16, 64)
	case strings.HasPrefix(s, "#"):
		digits := strings.Map(func(r rune) rune {
			if r == 'x' || r == 'X' {
				return '0'
			}
			return r
		}, s[1:])
		v, err = strconv.ParseUint(digits, 2, 64)
	default:
		if scale != 1 {
			s = s[:len(s)-1]
		}
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v * scale, nil
}
