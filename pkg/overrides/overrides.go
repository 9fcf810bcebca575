// Package overrides defines the user override document that renames,
// redescribes and feature-gates description nodes without editing the
// description itself.
//
// Document shape:
//
//	name: <device name>
//	description: <device description>
//	peripherals:
//	  <peripheral name as in the description>:
//	    name: <replacement name>
//	    description: <replacement description>
//	    features: [<build tag>, ...]
//	    clusters:
//	      <cluster name>: { name, description, features, clusters, registers }
//	    registers:
//	      <register name>:
//	        name: <replacement name>
//	        description: <replacement description>
//	        features: [<build tag>, ...]
//	        uses: [<import path>, ...]
//	        fields:
//	          <field name>:
//	            name: <replacement name>
//	            description: <replacement description>
//	            type: <Go type, e.g. types.Mode>
//
// All keys are optional.
package overrides

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Device holds device-level overrides.
type Device struct {
	Name        string                 `yaml:"name,omitempty"`
	Description string                 `yaml:"description,omitempty"`
	Peripherals map[string]*Peripheral `yaml:"peripherals,omitempty"`
}

// Peripheral holds overrides for one peripheral.
type Peripheral struct {
	Name        string               `yaml:"name,omitempty"`
	Description string               `yaml:"description,omitempty"`
	Features    []string             `yaml:"features,omitempty"`
	Clusters    map[string]*Cluster  `yaml:"clusters,omitempty"`
	Registers   map[string]*Register `yaml:"registers,omitempty"`
}

// Cluster holds overrides for one cluster and its children.
type Cluster struct {
	Name        string               `yaml:"name,omitempty"`
	Description string               `yaml:"description,omitempty"`
	Features    []string             `yaml:"features,omitempty"`
	Clusters    map[string]*Cluster  `yaml:"clusters,omitempty"`
	Registers   map[string]*Register `yaml:"registers,omitempty"`
}

// Register holds overrides for one register.
type Register struct {
	Name        string            `yaml:"name,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Features    []string          `yaml:"features,omitempty"`
	Uses        []string          `yaml:"uses,omitempty"`
	Fields      map[string]*Field `yaml:"fields,omitempty"`
}

// Field holds overrides for one field.
type Field struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Type        string `yaml:"type,omitempty"`
}

// Parse parses an override document from YAML bytes.
func Parse(data []byte) (*Device, error) {
	var d Device
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing overrides: %w", err)
	}
	return &d, nil
}

// Load loads and parses an override document.
func Load(path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Peripheral returns the override for name, or nil. Safe on a nil receiver.
func (d *Device) Peripheral(name string) *Peripheral {
	if d == nil {
		return nil
	}
	return d.Peripherals[name]
}

// Cluster returns the override for name, or nil. Safe on a nil receiver.
func (p *Peripheral) Cluster(name string) *Cluster {
	if p == nil {
		return nil
	}
	return p.Clusters[name]
}

// Register returns the override for name, or nil. Safe on a nil receiver.
func (p *Peripheral) Register(name string) *Register {
	if p == nil {
		return nil
	}
	return p.Registers[name]
}

// Cluster returns the nested cluster override for name, or nil.
func (c *Cluster) Cluster(name string) *Cluster {
	if c == nil {
		return nil
	}
	return c.Clusters[name]
}

// Register returns the nested register override for name, or nil.
func (c *Cluster) Register(name string) *Register {
	if c == nil {
		return nil
	}
	return c.Registers[name]
}

// Field returns the override for name, or nil. Safe on a nil receiver.
func (r *Register) Field(name string) *Field {
	if r == nil {
		return nil
	}
	return r.Fields[name]
}

// Features returns every feature tag in the document, sorted and without
// duplicates.
func (d *Device) Features() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, p := range d.Peripherals {
		if p == nil {
			continue
		}
		addAll(seen, p.Features)
		collectClusters(seen, p.Clusters)
		collectRegisters(seen, p.Registers)
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func collectClusters(seen map[string]bool, clusters map[string]*Cluster) {
	for _, c := range clusters {
		if c == nil {
			continue
		}
		addAll(seen, c.Features)
		collectClusters(seen, c.Clusters)
		collectRegisters(seen, c.Registers)
	}
}

func collectRegisters(seen map[string]bool, registers map[string]*Register) {
	for _, r := range registers {
		if r != nil {
			addAll(seen, r.Features)
		}
	}
}

func addAll(seen map[string]bool, features []string) {
	for _, f := range features {
		seen[f] = true
	}
}
