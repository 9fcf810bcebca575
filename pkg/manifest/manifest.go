// Package manifest records digests of a generator run's inputs and outputs
// and checks a generated tree against them.
//
// The manifest is written next to the generated go.mod as ralgen.sum.yaml.
// Digests are BLAKE2b-256, hex encoded with an algorithm prefix.
package manifest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/vkochnev/ral/pkg/emit"
	"github.com/vkochnev/ral/pkg/version"
)

// FileName is the manifest's name in the output directory.
const FileName = "ralgen.sum.yaml"

const digestPrefix = "blake2b-256:"

// Entry is one digested file. Path is slash separated.
type Entry struct {
	Path   string `yaml:"path"`
	Size   int    `yaml:"size"`
	Digest string `yaml:"digest"`
}

// Manifest describes one generated module.
type Manifest struct {
	Tool     string   `yaml:"tool"`
	Runtime  string   `yaml:"runtime"`
	Device   string   `yaml:"device"`
	Features []string `yaml:"features,omitempty"`
	Inputs   []Entry  `yaml:"inputs"`
	Files    []Entry  `yaml:"files"`
}

// Digest returns the manifest digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return digestPrefix + hex.EncodeToString(sum[:])
}

// New returns an empty manifest for device stamped with the tool and runtime
// versions.
func New(device string, features []string) *Manifest {
	return &Manifest{
		Tool:     version.Tool,
		Runtime:  version.Runtime(),
		Device:   device,
		Features: features,
	}
}

// AddInput digests an input document.
func (m *Manifest) AddInput(path string, data []byte) {
	m.Inputs = append(m.Inputs, Entry{Path: filepath.ToSlash(path), Size: len(data), Digest: Digest(data)})
}

// AddFiles digests emitted files.
func (m *Manifest) AddFiles(files []emit.File) {
	for _, f := range files {
		m.Files = append(m.Files, Entry{Path: f.Path, Size: len(f.Data), Digest: Digest(f.Data)})
	}
}

// File returns the entry for path.
func (m *Manifest) File(path string) (Entry, bool) {
	for _, e := range m.Files {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// Marshal encodes the manifest as YAML.
func Marshal(m *Manifest) ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return data, nil
}

// Parse decodes a YAML manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	for _, e := range append(slices.Clone(m.Inputs), m.Files...) {
		if !strings.HasPrefix(e.Digest, digestPrefix) {
			return nil, fmt.Errorf("manifest: %s: unsupported digest %q", e.Path, e.Digest)
		}
	}
	return &m, nil
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return Parse(data)
}

// EmitFile returns the manifest as an emitted file.
func (m *Manifest) EmitFile() (emit.File, error) {
	data, err := Marshal(m)
	if err != nil {
		return emit.File{}, err
	}
	return emit.File{Path: FileName, Data: data}, nil
}

// Status is the outcome of checking one path.
type Status string

const (
	Unchanged Status = "unchanged"
	Stale     Status = "stale"
	Missing   Status = "missing"
	Extra     Status = "extra"
)

// Change is the check result for one path.
type Change struct {
	Path   string
	Status Status
	Detail string
}

// Changes is a check report ordered by path.
type Changes []Change

// Clean reports whether every path is unchanged.
func (cs Changes) Clean() bool {
	for _, c := range cs {
		if c.Status != Unchanged {
			return false
		}
	}
	return true
}

// Dirty returns the changes that are not Unchanged.
func (cs Changes) Dirty() Changes {
	var out Changes
	for _, c := range cs {
		if c.Status != Unchanged {
			out = append(out, c)
		}
	}
	return out
}

// Check compares the tree under dir with want, a manifest built from a fresh
// in-memory generation. Files on disk are digested directly, so hand edits
// show up as stale. Files listed by the manifest on disk but no longer
// generated are reported as extra.
func Check(dir string, want *Manifest) (Changes, error) {
	var out Changes

	old, err := Load(filepath.Join(dir, FileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		old = nil
		out = append(out, Change{Path: FileName, Status: Missing})
	case err != nil:
		return nil, err
	default:
		out = append(out, compareHeader(old, want))
	}

	for _, e := range want.Files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(e.Path)))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			out = append(out, Change{Path: e.Path, Status: Missing})
		case err != nil:
			return nil, fmt.Errorf("manifest: %w", err)
		case Digest(data) != e.Digest:
			out = append(out, Change{Path: e.Path, Status: Stale, Detail: "content differs"})
		default:
			out = append(out, Change{Path: e.Path, Status: Unchanged})
		}
	}

	if old != nil {
		for _, e := range old.Files {
			if _, ok := want.File(e.Path); !ok {
				out = append(out, Change{Path: e.Path, Status: Extra})
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Change) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

func compareHeader(old, want *Manifest) Change {
	c := Change{Path: FileName, Status: Unchanged}
	switch {
	case old.Tool != want.Tool:
		c.Status, c.Detail = Stale, fmt.Sprintf("generated by %s, now %s", old.Tool, want.Tool)
	case old.Runtime != want.Runtime:
		c.Status, c.Detail = Stale, fmt.Sprintf("runtime %s, now %s", old.Runtime, want.Runtime)
	case !slices.Equal(digests(old.Inputs), digests(want.Inputs)):
		c.Status, c.Detail = Stale, "inputs changed"
	}
	return c
}

func digests(es []Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Path + "@" + e.Digest
	}
	return out
}
