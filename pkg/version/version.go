// Package version provides tool and runtime version parsing and the runtime
// requirement written into generated modules.
package version

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Tool is the version of the generator and runtime in this module.
const Tool = "v0.3.1"

// RuntimeModule is the import path generated code requires.
const RuntimeModule = "github.com/vkochnev/ral"

// RuntimeGo is the go directive of the runtime module. Generated modules
// declare at least this version.
const RuntimeGo = "1.25.5"

// RuntimePackage is the runtime package generated code imports.
const RuntimePackage = RuntimeModule + "/pkg/ral"

// Version is a parsed "major.minor" or "major.minor.patch" version.
type Version struct {
	Major, Minor, Patch int
}

// Parse parses a semantic version. The leading "v" is optional; missing
// minor or patch components read as zero.
func Parse(s string) (Version, error) {
	v := s
	if len(v) == 0 || v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	var out Version
	if _, err := fmt.Sscanf(semver.Canonical(v), "v%d.%d.%d", &out.Major, &out.Minor, &out.Patch); err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return out, nil
}

// String returns the version in canonical "vMAJOR.MINOR.PATCH" form.
func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Requirement returns the runtime version generated modules depend on:
// the same major and minor with patch zero, so any patch release satisfies it.
func (v Version) Requirement() string {
	return Version{Major: v.Major, Minor: v.Minor}.String()
}

// Compatible reports whether code generated against v can use runtime other.
// Before v1 the minor version is the compatibility boundary.
func (v Version) Compatible(other Version) bool {
	if v.Major != other.Major {
		return false
	}
	if v.Major == 0 {
		return v.Minor == other.Minor
	}
	return other.Minor >= v.Minor
}

// Runtime returns the runtime requirement of the current tool version.
func Runtime() string {
	v, err := Parse(Tool)
	if err != nil {
		panic(err)
	}
	return v.Requirement()
}

// Compare returns -1, 0 or 1 as a is older than, equal to or newer than b.
// Both must be valid semantic versions with a "v" prefix.
func Compare(a, b string) int {
	return semver.Compare(a, b)
}
