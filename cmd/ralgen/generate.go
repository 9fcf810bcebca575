package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vkochnev/ral/pkg/config"
	"github.com/vkochnev/ral/pkg/dsl"
	"github.com/vkochnev/ral/pkg/emit"
	"github.com/vkochnev/ral/pkg/layout"
	"github.com/vkochnev/ral/pkg/log"
	"github.com/vkochnev/ral/pkg/manifest"
	"github.com/vkochnev/ral/pkg/overrides"
	"github.com/vkochnev/ral/pkg/resolve"
	"github.com/vkochnev/ral/pkg/svd"
	"github.com/vkochnev/ral/pkg/synth"
)

// generator runs the pipeline for one configuration.
type generator struct {
	cfg    config.Config
	logger *slog.Logger
	rec    *log.Recorder
}

// output is one in-memory generation: the emitted files and the manifest
// describing them. Nothing has touched the output directory yet.
type output struct {
	files    []emit.File
	manifest *manifest.Manifest
}

// all returns the emitted files followed by the manifest file.
func (o *output) all() ([]emit.File, error) {
	mf, err := o.manifest.EmitFile()
	if err != nil {
		return nil, err
	}
	return append(append([]emit.File(nil), o.files...), mf), nil
}

func (g *generator) emitOptions() emit.Options {
	return emit.Options{
		Module:      g.cfg.Module,
		Package:     g.cfg.Package,
		Simulated:   g.cfg.Simulated,
		GoVersion:   g.cfg.GoVersion,
		Concurrency: g.cfg.Concurrency,
		Logger:      g.logger,
	}
}

// build runs every stage in memory. The stage that fails is recorded as an
// error event.
func (g *generator) build(ctx context.Context) (*output, error) {
	inputs := make(map[string][]byte)
	for _, p := range g.cfg.Inputs() {
		data, err := os.ReadFile(p)
		if err != nil {
			g.rec.Error(log.StageLoad, err)
			return nil, fmt.Errorf("reading input: %w", err)
		}
		inputs[p] = data
	}

	var (
		out *output
		err error
	)
	if g.cfg.Format == config.FormatDSL {
		out, err = g.buildDocument(inputs[g.cfg.Input])
	} else {
		out, err = g.buildDevice(ctx, inputs)
	}
	if err != nil {
		return nil, err
	}
	for _, p := range g.cfg.Inputs() {
		out.manifest.AddInput(filepath.Base(p), inputs[p])
	}
	return out, nil
}

func (g *generator) buildDevice(ctx context.Context, inputs map[string][]byte) (*output, error) {
	done := g.rec.Begin(log.StageLoad)
	var (
		dev *svd.Device
		err error
	)
	if g.cfg.Format == config.FormatYAML {
		dev, err = svd.ParseYAML(inputs[g.cfg.Input])
	} else {
		dev, err = svd.ParseSVD(inputs[g.cfg.Input])
	}
	if err != nil {
		g.rec.Error(log.StageLoad, err)
		return nil, fmt.Errorf("loading %s: %w", g.cfg.Input, err)
	}
	var ov *overrides.Device
	if g.cfg.Overrides != "" {
		if ov, err = overrides.Parse(inputs[g.cfg.Overrides]); err != nil {
			g.rec.Error(log.StageLoad, err)
			return nil, fmt.Errorf("loading %s: %w", g.cfg.Overrides, err)
		}
	}
	done(len(dev.Peripherals))

	done = g.rec.Begin(log.StageResolve)
	rd, err := resolve.Resolve(dev, ov, resolve.Options{
		AllowEmptyRegisters: g.cfg.AllowEmptyRegisters,
		OnWarning: func(w resolve.Warning) {
			g.rec.Warning(log.StageResolve, w.Path, w.Message)
		},
	})
	if err != nil {
		g.rec.Error(log.StageResolve, err)
		return nil, err
	}
	g.rec.SetDevice(rd.Name)
	done(len(rd.Peripherals))

	done = g.rec.Begin(log.StageLayout)
	l := layout.Compute(rd)
	for _, o := range l.Overlaps() {
		g.rec.Warning(log.StageLayout, o.First, fmt.Sprintf("overlaps %s at %#x", o.Second, o.Address))
	}
	done(len(l.Registers()))

	done = g.rec.Begin(log.StageSynth)
	spec, err := synth.Device(rd, l)
	if err != nil {
		g.rec.Error(log.StageSynth, err)
		return nil, err
	}
	done(len(spec.Peripherals))

	done = g.rec.Begin(log.StageEmit)
	files, err := emit.Generate(ctx, spec, g.emitOptions())
	if err != nil {
		g.rec.Error(log.StageEmit, err)
		return nil, err
	}
	done(len(files))

	m := manifest.New(rd.Name, rd.Features)
	m.AddFiles(files)
	return &output{files: files, manifest: m}, nil
}

func (g *generator) buildDocument(data []byte) (*output, error) {
	done := g.rec.Begin(log.StageLoad)
	doc, err := dsl.Parse(data)
	if err != nil {
		g.rec.Error(log.StageLoad, err)
		return nil, fmt.Errorf("loading %s: %w", g.cfg.Input, err)
	}
	done(1)

	done = g.rec.Begin(log.StageSynth)
	spec, err := doc.Spec()
	if err != nil {
		g.rec.Error(log.StageSynth, err)
		return nil, err
	}
	g.rec.SetDevice(spec.Name)
	done(1)

	pkg := g.cfg.Package
	if pkg == "" {
		pkg = emit.PackageName(resolve.Ident(doc.Name))
	}
	done = g.rec.Begin(log.StageEmit)
	files, err := emit.Standalone(pkg, g.cfg.BaseAddress, spec, g.emitOptions())
	if err != nil {
		g.rec.Error(log.StageEmit, err)
		return nil, err
	}
	done(len(files))

	m := manifest.New(spec.Name, nil)
	m.AddFiles(files)
	return &output{files: files, manifest: m}, nil
}

// generate builds the module and writes it with its manifest. Source that
// failed formatting is written next to its target as a .broken file.
func (g *generator) generate(ctx context.Context) error {
	out, err := g.build(ctx)
	if err != nil {
		if p := emit.WriteBroken(g.cfg.Output, err); p != "" {
			g.logger.Error("unformatted source kept", slog.String("path", p))
		}
		return err
	}
	files, err := out.all()
	if err != nil {
		return err
	}
	if err := emit.WriteFiles(g.cfg.Output, files); err != nil {
		g.rec.Error(log.StageEmit, err)
		return err
	}
	for _, f := range files {
		g.rec.File(log.StageEmit, f.Path, len(f.Data), manifest.Digest(f.Data), "written")
	}
	g.logger.Info("generated",
		slog.String("device", out.manifest.Device),
		slog.String("output", g.cfg.Output),
		slog.Int("files", len(files)),
	)
	return nil
}

// check builds the module in memory and compares it with the output
// directory without writing anything.
func (g *generator) check(ctx context.Context) (manifest.Changes, error) {
	out, err := g.build(ctx)
	if err != nil {
		return nil, err
	}
	done := g.rec.Begin(log.StageCheck)
	changes, err := manifest.Check(g.cfg.Output, out.manifest)
	if err != nil {
		g.rec.Error(log.StageCheck, err)
		return nil, err
	}
	for _, c := range changes {
		var size int
		var digest string
		if e, ok := out.manifest.File(c.Path); ok {
			size, digest = e.Size, e.Digest
		}
		g.rec.File(log.StageCheck, c.Path, size, digest, string(c.Status))
	}
	done(len(changes.Dirty()))
	return changes, nil
}
