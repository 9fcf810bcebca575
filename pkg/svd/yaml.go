package svd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses a description tree written as YAML. The document mirrors
// the Device type; numbers may be written in hex.
func ParseYAML(data []byte) (*Device, error) {
	var dev Device
	if err := yaml.Unmarshal(data, &dev); err != nil {
		return nil, fmt.Errorf("parsing device description: %w", err)
	}
	return &dev, nil
}

// LoadYAML loads and parses a YAML description file.
func LoadYAML(path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseYAML(data)
}

// Load picks a parser by file extension: .yaml and .yml are YAML, anything
// else is treated as SVD XML.
func Load(path string) (*Device, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadSVD(path)
	}
}
