package config

import (
	"flag"
	"fmt"
	"strconv"
)

// Flags binds configuration flags to a FlagSet.
type Flags struct {
	fs     *flag.FlagSet
	file   string
	values Config
}

// NewFlags registers every configuration flag, plus -config, on fs.
func NewFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	v := &f.values
	fs.StringVar(&f.file, "config", "", "Configuration file (.yaml, .yml or .toml)")
	fs.StringVar(&v.Input, "input", "", "Device description or register document")
	fs.StringVar((*string)(&v.Format), "format", "", "Input format: svd, yaml, dsl (default: from extension)")
	fs.StringVar(&v.Overrides, "overrides", "", "Override document")
	fs.StringVar(&v.Output, "output", ".", "Output directory")
	fs.StringVar(&v.Module, "module", "", "Import path of the generated module")
	fs.StringVar(&v.Package, "package", "", "Root package name (default: from device name)")
	fs.Func("base-address", "Base address of a register document's package", func(s string) error {
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid address %q", s)
		}
		v.BaseAddress = n
		return nil
	})
	fs.BoolVar(&v.Simulated, "simulated", false, "Back registers with process memory")
	fs.BoolVar(&v.AllowEmptyRegisters, "allow-empty-registers", false, "Accept registers without fields")
	fs.StringVar(&v.GoVersion, "go-version", "", "go directive of the generated go.mod")
	fs.IntVar(&v.Concurrency, "concurrency", 0, "Parallel emission limit (default GOMAXPROCS)")
	fs.StringVar(&v.EventLog, "event-log", "", "Append CBOR events to this file")
	fs.StringVar(&v.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.BoolVar(&v.Watch, "watch", false, "Regenerate when inputs change")
	return f
}

// Resolve loads the -config file, or Default when none was given, lays the
// explicitly set flags over it and validates the result. The FlagSet must
// already be parsed.
func (f *Flags) Resolve() (Config, error) {
	cfg := Default()
	if f.file != "" {
		var err error
		if cfg, err = Load(f.file); err != nil {
			return cfg, err
		}
	}
	f.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Apply copies the values of explicitly set flags into cfg.
func (f *Flags) Apply(cfg *Config) {
	v := f.values
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "input":
			cfg.Input = v.Input
		case "format":
			cfg.Format = v.Format
		case "overrides":
			cfg.Overrides = v.Overrides
		case "output":
			cfg.Output = v.Output
		case "module":
			cfg.Module = v.Module
		case "package":
			cfg.Package = v.Package
		case "base-address":
			cfg.BaseAddress = v.BaseAddress
		case "simulated":
			cfg.Simulated = v.Simulated
		case "allow-empty-registers":
			cfg.AllowEmptyRegisters = v.AllowEmptyRegisters
		case "go-version":
			cfg.GoVersion = v.GoVersion
		case "concurrency":
			cfg.Concurrency = v.Concurrency
		case "event-log":
			cfg.EventLog = v.EventLog
		case "log-level":
			cfg.LogLevel = v.LogLevel
		case "watch":
			cfg.Watch = v.Watch
		}
	})
}
