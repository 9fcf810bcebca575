// Command ral-inspect browses the resolved register layout of a device.
//
// It runs the same resolution as ralgen, without generating anything, and
// opens a shell with path completion for exploring peripherals, registers
// and fields, decoding register values and computing words to write.
//
// Usage:
//
//	ral-inspect [flags] [command...]
//
// Flags:
//
//	-config string        ralgen configuration file to take the input from
//	-input string         Device description (.svd, .xml, .yaml)
//	-format string        Input format: svd, yaml (default: from extension)
//	-overrides string     Override document
//	-allow-empty-registers Accept registers without fields
//
// When a command is given it is executed once instead of starting the shell.
//
// Examples:
//
//	# Browse interactively
//	ral-inspect -input stm32f4.svd
//
//	# Decode a value read from the bus
//	ral-inspect -config ralgen.yaml decode gpioa/moder 0xa8000000
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vkochnev/ral/cmd/ral-inspect/interactive"
	"github.com/vkochnev/ral/pkg/config"
	"github.com/vkochnev/ral/pkg/inspect"
	"github.com/vkochnev/ral/pkg/layout"
	"github.com/vkochnev/ral/pkg/overrides"
	"github.com/vkochnev/ral/pkg/resolve"
	"github.com/vkochnev/ral/pkg/svd"
)

func main() {
	configFile := flag.String("config", "", "ralgen configuration file to take the input from")
	input := flag.String("input", "", "Device description (.svd, .xml, .yaml)")
	format := flag.String("format", "", "Input format: svd, yaml (default: from extension)")
	overridesFile := flag.String("overrides", "", "Override document")
	allowEmpty := flag.Bool("allow-empty-registers", false, "Accept registers without fields")
	flag.Parse()

	src := source{
		Input:               *input,
		Format:              config.Format(*format),
		Overrides:           *overridesFile,
		AllowEmptyRegisters: *allowEmpty,
	}
	if *configFile != "" {
		cfg, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		src.merge(cfg)
	}
	if src.Input == "" {
		fmt.Fprintln(os.Stderr, "Usage: ral-inspect -input <file> [-overrides <file>] [command...]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	insp, err := src.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	shell := interactive.New(insp, os.Stdout)
	if flag.NArg() > 0 {
		shell.Exec(strings.Join(flag.Args(), " "))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	if err := shell.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// source names the documents to inspect.
type source struct {
	Input               string
	Format              config.Format
	Overrides           string
	AllowEmptyRegisters bool
}

// merge fills fields not given on the command line from a ralgen config.
func (s *source) merge(cfg config.Config) {
	if s.Input == "" {
		s.Input = cfg.Input
	}
	if s.Format == "" {
		s.Format = cfg.Format
	}
	if s.Overrides == "" {
		s.Overrides = cfg.Overrides
	}
	s.AllowEmptyRegisters = s.AllowEmptyRegisters || cfg.AllowEmptyRegisters
}

// load resolves the device and builds an inspector over its layout.
func (s *source) load() (*inspect.Inspector, error) {
	format := s.Format
	if format == "" {
		f, ok := config.DetectFormat(s.Input)
		if !ok {
			return nil, fmt.Errorf("cannot detect the format of %s", s.Input)
		}
		format = f
	}

	var (
		dev *svd.Device
		err error
	)
	switch format {
	case config.FormatSVD:
		dev, err = svd.LoadSVD(s.Input)
	case config.FormatYAML:
		dev, err = svd.LoadYAML(s.Input)
	default:
		return nil, fmt.Errorf("%s: only device descriptions can be inspected", s.Input)
	}
	if err != nil {
		return nil, err
	}

	var ov *overrides.Device
	if s.Overrides != "" {
		if ov, err = overrides.Load(s.Overrides); err != nil {
			return nil, err
		}
	}

	rd, err := resolve.Resolve(dev, ov, resolve.Options{
		AllowEmptyRegisters: s.AllowEmptyRegisters,
		OnWarning: func(w resolve.Warning) {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Path, w.Message)
		},
	})
	if err != nil {
		return nil, err
	}
	return inspect.NewInspector(rd, layout.Compute(rd)), nil
}
