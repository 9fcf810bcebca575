package version

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/mod/modfile"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  Version
	}{
		{"1.0", Version{1, 0, 0}},
		{"v1.1", Version{1, 1, 0}},
		{"0.3.1", Version{0, 3, 1}},
		{"v10.23.4", Version{10, 23, 4}},
		{"2", Version{2, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, v, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"abc",
		"1.x",
		"-1.0",
		"1.0.0-rc1",
		"1.0.0+meta",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestRequirement(t *testing.T) {
	v, err := Parse("v1.4.7")
	if err != nil {
		t.Fatal(err)
	}
	if got := v.Requirement(); got != "v1.4.0" {
		t.Errorf("Requirement() = %q, want v1.4.0", got)
	}
	if got := v.String(); got != "v1.4.7" {
		t.Errorf("String() = %q, want v1.4.7", got)
	}
}

func TestRuntime(t *testing.T) {
	got := Runtime()
	tool, _ := Parse(Tool)
	want := Version{Major: tool.Major, Minor: tool.Minor}.String()
	if got != want {
		t.Errorf("Runtime() = %q, want %q", got, want)
	}
	if Compare(got, Tool) > 0 {
		t.Errorf("runtime requirement %s is newer than tool %s", got, Tool)
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		gen, rt string
		want    bool
	}{
		{"1.2", "1.2.5", true},
		{"1.2", "1.3", true},
		{"1.3", "1.2", false},
		{"1.0", "2.0", false},
		{"0.3", "0.3.9", true},
		{"0.3", "0.4", false},
	}

	for _, tt := range tests {
		gen, _ := Parse(tt.gen)
		rt, _ := Parse(tt.rt)
		if got := gen.Compatible(rt); got != tt.want {
			t.Errorf("%s.Compatible(%s) = %v, want %v", tt.gen, tt.rt, got, tt.want)
		}
	}
}

func TestRuntimeGoMatchesModule(t *testing.T) {
	path := filepath.Join("..", "..", "go.mod")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading go.mod: %v", err)
	}
	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		t.Fatalf("parsing go.mod: %v", err)
	}
	if f.Module.Mod.Path != RuntimeModule {
		t.Errorf("module = %q, want %q", f.Module.Mod.Path, RuntimeModule)
	}
	if f.Go == nil || f.Go.Version != RuntimeGo {
		t.Errorf("go directive does not match RuntimeGo %q", RuntimeGo)
	}
}
