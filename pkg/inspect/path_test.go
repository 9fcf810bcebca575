package inspect

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		addr  bool
	}{
		{"peripheral", "gpioa", "gpioa", false},
		{"description spelling", "GPIOA/MODER", "gpioa/moder", false},
		{"dots", "DMA1.CHA.CCR.EN", "dma1/cha/ccr/en", false},
		{"trailing slash", "gpioa/", "gpioa", false},
		{"keyword segment", "spi/type", "spi/type_", false},
		{"hex address", "0x48000000", "0x48000000", true},
		{"decimal address", "1024", "0x400", true},
		{"binary address", "#1000", "0x8", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePath(tt.input)
			if err != nil {
				t.Fatalf("ParsePath(%q) failed: %v", tt.input, err)
			}
			if p.IsAddress != tt.addr {
				t.Errorf("IsAddress: got %v, want %v", p.IsAddress, tt.addr)
			}
			if got := p.String(); got != tt.want {
				t.Errorf("String: got %q, want %q", got, tt.want)
			}
			if p.Raw != tt.input {
				t.Errorf("Raw: got %q, want %q", p.Raw, tt.input)
			}
		})
	}
}

func TestParsePathErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"", ErrEmptyPath},
		{"   ", ErrEmptyPath},
		{"/gpioa", ErrInvalidPath},
		{"gpioa//moder", ErrInvalidPath},
		{"gpioa..moder", ErrInvalidPath},
		{"0xZZ", ErrInvalidNumber},
	}
	for _, tt := range tests {
		_, err := ParsePath(tt.input)
		if !errors.Is(err, tt.want) {
			t.Errorf("ParsePath(%q): got %v, want %v", tt.input, err, tt.want)
		}
	}
}

func TestPathParentAndLast(t *testing.T) {
	p, _ := ParsePath("dma1/cha/ccr")
	if p.Last() != "ccr" {
		t.Errorf("Last: got %q", p.Last())
	}
	parent := p.Parent()
	if parent == nil || parent.String() != "dma1/cha" {
		t.Fatalf("Parent: got %v", parent)
	}
	if top := parent.Parent(); top == nil || top.Parent() != nil {
		t.Errorf("expected a single-segment parent with no parent")
	}

	addr, _ := ParsePath("0x10")
	if addr.Parent() != nil || addr.Last() != "" {
		t.Error("address paths have no parent or segments")
	}
	if strings.Contains(addr.String(), "/") {
		t.Errorf("address String: %q", addr.String())
	}
}
