// Command ralgen generates a Go register access module from a device
// description or a single-register document.
//
// The generated module has one package per peripheral and one file per
// register, plus a ralgen.sum.yaml manifest recording digests of the inputs
// and every generated file.
//
// Usage:
//
//	ralgen [flags]
//
// Flags:
//
//	-config string        Configuration file (.yaml, .yml or .toml)
//	-input string         Device description (.svd, .xml, .yaml) or register document (.ral, .ral.yaml)
//	-format string        Input format: svd, yaml, dsl (default: from extension)
//	-overrides string     Override document
//	-output string        Output directory (default ".")
//	-module string        Import path of the generated module
//	-package string       Root package name (default: from device name)
//	-base-address value   Base address of a register document's package
//	-simulated            Back registers with process memory
//	-allow-empty-registers Accept registers without fields
//	-go-version string    go directive of the generated go.mod
//	-concurrency int      Parallel emission limit (default GOMAXPROCS)
//	-event-log string     Append CBOR events to this file
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-watch                Regenerate when inputs change
//	-check                Compare the output directory with a fresh generation
//	-version              Print the version and exit
//
// Flags override values from the configuration file.
//
// Examples:
//
//	# Generate a module for an SVD file
//	ralgen -input stm32f4.svd -overrides stm32f4.ovr.yaml -module example.com/stm32f4 -output ./stm32f4
//
//	# Fail if the generated tree is out of date
//	ralgen -config ralgen.toml -check
//
//	# Regenerate on every save, recording events
//	ralgen -config ralgen.yaml -watch -event-log gen.rlog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vkochnev/ral/pkg/config"
	"github.com/vkochnev/ral/pkg/log"
	"github.com/vkochnev/ral/pkg/version"
	"github.com/vkochnev/ral/pkg/watch"
)

// errOutOfDate is returned by check mode when the output directory differs
// from a fresh generation.
var errOutOfDate = errors.New("generated module is out of date")

func main() {
	flags := config.NewFlags(flag.CommandLine)
	check := flag.Bool("check", false, "Compare the output directory with a fresh generation")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ralgen %s (runtime %s)\n", version.Tool, version.Runtime())
		return
	}

	cfg, err := flags.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	if *check && cfg.Watch {
		fmt.Fprintln(os.Stderr, "error: -check and -watch are mutually exclusive")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *check, logger, os.Stdout); err != nil {
		if !errors.Is(err, errOutOfDate) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run executes one generation, a check or a watch loop.
func run(ctx context.Context, cfg config.Config, check bool, logger *slog.Logger, stdout io.Writer) error {
	events, closeEvents, err := openEvents(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	newGenerator := func() *generator {
		rec := log.NewRecorder(events)
		logger.Debug("run started", slog.String("run_id", rec.RunID()))
		return &generator{cfg: cfg, logger: logger, rec: rec}
	}

	switch {
	case check:
		changes, err := newGenerator().check(ctx)
		if err != nil {
			return err
		}
		dirty := changes.Dirty()
		for _, c := range dirty {
			if c.Detail != "" {
				fmt.Fprintf(stdout, "%-9s %s (%s)\n", c.Status, c.Path, c.Detail)
			} else {
				fmt.Fprintf(stdout, "%-9s %s\n", c.Status, c.Path)
			}
		}
		if len(dirty) > 0 {
			return errOutOfDate
		}
		fmt.Fprintf(stdout, "up to date (%d files)\n", len(changes))
		return nil

	case cfg.Watch:
		return watchInputs(ctx, cfg, logger, newGenerator)

	default:
		return newGenerator().generate(ctx)
	}
}

// openEvents builds the event sink: slog always, the CBOR file when
// configured.
func openEvents(cfg config.Config, logger *slog.Logger) (log.Logger, func() error, error) {
	adapter := log.NewSlogAdapter(logger)
	if cfg.EventLog == "" {
		return adapter, func() error { return nil }, nil
	}
	file, err := log.NewFileLogger(cfg.EventLog)
	if err != nil {
		return nil, nil, fmt.Errorf("opening event log: %w", err)
	}
	return log.NewMultiLogger(adapter, file), file.Close, nil
}

// watchInputs generates once, then again after every change to an input.
// Failed generations are logged and the loop keeps going.
func watchInputs(ctx context.Context, cfg config.Config, logger *slog.Logger, newGenerator func() *generator) error {
	w, err := watch.New(cfg.Inputs(), watch.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := newGenerator().generate(ctx); err != nil {
		logger.Error("generation failed", slog.Any("error", err))
	}
	logger.Info("watching", slog.Any("files", w.Files()))

	err = w.Run(ctx, func(ctx context.Context, changed []string) error {
		logger.Info("inputs changed", slog.Any("files", changed))
		return newGenerator().generate(ctx)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
