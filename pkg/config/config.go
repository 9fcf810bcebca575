// Package config holds the ralgen configuration.
//
// A configuration comes from a YAML or TOML file, chosen by extension, with
// command-line flags laid over it. Only flags that were set explicitly
// override file values, so a config file can carry the project defaults.
//
//	# ralgen.toml
//	input     = "stm32f103.svd"
//	overrides = "stm32f103.ral.yaml"
//	output    = "internal/regs"
//	module    = "example.com/board/regs"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Format is the kind of input document.
type Format string

const (
	FormatSVD  Format = "svd"
	FormatYAML Format = "yaml"
	FormatDSL  Format = "dsl"
)

// DetectFormat guesses the input format from a file name: .svd and .xml are
// SVD, .ral and .ral.yaml are register documents, other YAML is a device
// description.
func DetectFormat(path string) (Format, bool) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".svd"), strings.HasSuffix(name, ".xml"):
		return FormatSVD, true
	case strings.HasSuffix(name, ".ral"), strings.HasSuffix(name, ".ral.yaml"), strings.HasSuffix(name, ".ral.yml"):
		return FormatDSL, true
	case strings.HasSuffix(name, ".yaml"), strings.HasSuffix(name, ".yml"):
		return FormatYAML, true
	}
	return "", false
}

// Config is a complete generator configuration.
type Config struct {
	// Input is the device description or register document.
	Input string `yaml:"input" toml:"input" validate:"required"`

	// Format overrides format detection from the input name.
	Format Format `yaml:"format,omitempty" toml:"format" validate:"omitempty,oneof=svd yaml dsl"`

	// Overrides is an optional override document. Not used with register
	// documents.
	Overrides string `yaml:"overrides,omitempty" toml:"overrides" validate:"excluded_if=Format dsl"`

	// Output is the directory receiving the generated module. Empty means
	// the working directory.
	Output string `yaml:"output,omitempty" toml:"output"`

	// Module is the import path of the generated module.
	Module string `yaml:"module" toml:"module" validate:"required"`

	// Package overrides the generated root package name.
	Package string `yaml:"package,omitempty" toml:"package" validate:"omitempty,goident"`

	// BaseAddress places a register document's package.
	BaseAddress uint64 `yaml:"base_address,omitempty" toml:"base_address"`

	Simulated           bool `yaml:"simulated,omitempty" toml:"simulated"`
	AllowEmptyRegisters bool `yaml:"allow_empty_registers,omitempty" toml:"allow_empty_registers"`

	// GoVersion is the go directive of the generated go.mod.
	GoVersion string `yaml:"go_version,omitempty" toml:"go_version" validate:"omitempty,goversion"`

	// Concurrency bounds parallel emission; zero means GOMAXPROCS.
	Concurrency int `yaml:"concurrency,omitempty" toml:"concurrency" validate:"gte=0"`

	// EventLog is an optional CBOR event log file.
	EventLog string `yaml:"event_log,omitempty" toml:"event_log"`

	LogLevel string `yaml:"log_level,omitempty" toml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// Watch keeps running and regenerates when inputs change.
	Watch bool `yaml:"watch,omitempty" toml:"watch"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "info",
	}
}

// Load reads a configuration file over Default. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("config: %s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("config: %s: unsupported extension %q", path, ext)
	}

	// Relative paths in a file are relative to the file.
	dir := filepath.Dir(path)
	for _, p := range []*string{&cfg.Input, &cfg.Overrides, &cfg.Output, &cfg.EventLog} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return cfg, nil
}

var (
	validate = newValidator()

	goIdent   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	goVersion = regexp.MustCompile(`^1\.[0-9]+(\.[0-9]+)?$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("goident", func(fl validator.FieldLevel) bool {
		return goIdent.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("goversion", func(fl validator.FieldLevel) bool {
		return goVersion.MatchString(fl.Field().String())
	})
	return v
}

// Validate fills in the detected format and the output directory and checks
// the configuration.
func (c *Config) Validate() error {
	if c.Output == "" {
		c.Output = "."
	}
	if c.Format == "" && c.Input != "" {
		f, ok := DetectFormat(c.Input)
		if !ok {
			return fmt.Errorf("config: cannot tell the format of %s, set format", c.Input)
		}
		c.Format = f
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag())
			}
			return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Inputs returns the documents a run reads, for watching and digests.
func (c *Config) Inputs() []string {
	if c.Overrides == "" {
		return []string{c.Input}
	}
	return []string{c.Input, c.Overrides}
}
