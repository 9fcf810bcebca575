// Package emit renders accessor specifications as a Go module: a go.mod, a
// package doc file, and one package per peripheral with one file per
// register. Output is built in memory so a failed pass writes nothing.
package emit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/vkochnev/ral/pkg/resolve"
	"github.com/vkochnev/ral/pkg/synth"
	"github.com/vkochnev/ral/pkg/version"
)

// DefaultGoVersion is the go directive written when Options.GoVersion is
// empty: the runtime module's own.
const DefaultGoVersion = version.RuntimeGo

// Options configures an emission pass.
type Options struct {
	// Module is the import path of the generated module. Required.
	Module string

	// Package overrides the root package name, which otherwise derives from
	// the device name.
	Package string

	// Simulated binds holders to process memory seeded with the reset value
	// instead of hardware addresses.
	Simulated bool

	// GoVersion is the go directive of the generated go.mod.
	GoVersion string

	// Runtime is the required runtime version. Defaults to version.Runtime().
	Runtime string

	// Concurrency bounds parallel peripheral rendering. Defaults to GOMAXPROCS.
	Concurrency int

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.GoVersion == "" {
		o.GoVersion = DefaultGoVersion
	}
	if o.Runtime == "" {
		o.Runtime = version.Runtime()
	}
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// File is one emitted file. Path is slash separated and relative to the
// output root.
type File struct {
	Path string
	Data []byte
}

// FormatError reports generated source that goimports rejected.
type FormatError struct {
	Path   string
	Source []byte
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("goimports %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Format formats Go source with goimports.
func Format(name string, code []byte) ([]byte, error) {
	formatted, err := imports.Process(name, code, nil)
	if err != nil {
		return nil, &FormatError{Path: name, Source: code, Err: err}
	}
	return formatted, nil
}

// Generate renders the whole device. Peripherals render in parallel; files
// come back in a stable order: go.mod, doc.go, then each peripheral's doc.go
// and registers in description order.
func Generate(ctx context.Context, dev *synth.DeviceSpec, opts Options) ([]File, error) {
	opts.defaults()
	if opts.Module == "" {
		return nil, errors.New("emit: module path is required")
	}
	if err := module.CheckImportPath(opts.Module); err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}
	root := opts.Package
	if root == "" {
		root = PackageName(resolve.Ident(dev.Name))
	}

	gomod, err := GoMod(opts.Module, opts.GoVersion, opts.Runtime)
	if err != nil {
		return nil, err
	}

	md := moduleData{
		Package:     root,
		Name:        dev.Name,
		Description: dev.Description,
		Module:      opts.Module,
		Runtime:     opts.Runtime,
	}
	for _, t := range dev.Features {
		md.Features = append(md.Features, Tag(t))
	}
	slices.Sort(md.Features)
	md.Features = slices.Compact(md.Features)
	pkgs := make(map[string]string, len(dev.Peripherals))
	for _, p := range dev.Peripherals {
		pkg := PackageName(p.Name)
		if other, dup := pkgs[pkg]; dup {
			return nil, resolve.Errorf(resolve.DuplicateArrayName, p.Name, "package %s also generated for %s", pkg, other)
		}
		pkgs[pkg] = p.Name
		md.Peripherals = append(md.Peripherals, peripheralData{
			Package:     pkg,
			Name:        p.Source,
			BaseAddress: p.BaseAddress,
			Registers:   len(p.Registers),
		})
	}
	var b strings.Builder
	renderTemplate(&b, "moduleDoc", md)
	doc, err := Format("doc.go", []byte(b.String()))
	if err != nil {
		return nil, err
	}

	results := make([][]File, len(dev.Peripherals))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, p := range dev.Peripherals {
		g.Go(func() error {
			files, err := Peripheral(ctx, p, opts)
			if err != nil {
				return err
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []File{{Path: "go.mod", Data: gomod}, {Path: "doc.go", Data: doc}}
	for _, files := range results {
		out = append(out, files...)
	}
	opts.Logger.Info("emitted module",
		slog.String("module", opts.Module),
		slog.Int("peripherals", len(dev.Peripherals)),
		slog.Int("files", len(out)),
	)
	return out, nil
}

// Peripheral renders one peripheral package: its doc.go and one file per
// register, under a directory named after the package.
func Peripheral(ctx context.Context, p *synth.PeripheralSpec, opts Options) ([]File, error) {
	opts.defaults()
	pkg := PackageName(p.Name)
	constraint := Constraint([][]string{p.Features})

	var b strings.Builder
	renderTemplate(&b, "peripheralDoc", peripheralData{
		Package:     pkg,
		Name:        p.Source,
		Description: p.Description,
		BaseAddress: p.BaseAddress,
		Constraint:  constraint,
		Simulated:   opts.Simulated,
	})
	docPath := path.Join(pkg, "doc.go")
	doc, err := Format(docPath, []byte(b.String()))
	if err != nil {
		return nil, err
	}
	out := []File{{Path: docPath, Data: doc}}

	for _, r := range p.Registers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := Register(pkg, r, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	opts.Logger.Debug("emitted peripheral",
		slog.String("peripheral", p.Name),
		slog.Int("registers", len(p.Registers)),
	)
	return out, nil
}

// Register renders the file of one register in package pkg. The file refers
// to the package's BaseAddress constant.
func Register(pkg string, r *synth.RegisterSpec, opts Options) (File, error) {
	uses := append([]string{version.RuntimePackage}, r.Uses...)
	slices.Sort(uses[1:])
	uses = slices.Compact(uses)

	cell := fmt.Sprintf("ral.At[%s](BaseAddress + %#x)", r.WordType, r.Offset)
	if opts.Simulated {
		cell = fmt.Sprintf("ral.Alloc[%s](%s)", r.WordType, word(r.ResetValue, r.Size))
	}

	var b strings.Builder
	renderTemplate(&b, "register", registerData{
		Package:    pkg,
		Constraint: Constraint(r.Features),
		Imports:    uses,
		Reg:        r,
		Var:        unexported(r.GoName),
		Cell:       cell,
	})
	name := path.Join(pkg, FileName(r.Name))
	data, err := Format(name, []byte(b.String()))
	if err != nil {
		return File{}, err
	}
	return File{Path: name, Data: data}, nil
}

// Standalone renders a single register as its own package, with a doc.go
// declaring base as the package base address. Used for register documents.
func Standalone(pkg string, base uint64, r *synth.RegisterSpec, opts Options) ([]File, error) {
	opts.defaults()
	p := &synth.PeripheralSpec{
		Name:        pkg,
		Source:      pkg,
		BaseAddress: base,
		Registers:   []*synth.RegisterSpec{r},
	}
	return Peripheral(context.Background(), p, opts)
}

// GoMod returns the go.mod of a generated module requiring the runtime at
// the given version.
func GoMod(modulePath, goVersion, runtimeVersion string) ([]byte, error) {
	f := new(modfile.File)
	if err := f.AddModuleStmt(modulePath); err != nil {
		return nil, fmt.Errorf("emit: go.mod: %w", err)
	}
	if err := f.AddGoStmt(goVersion); err != nil {
		return nil, fmt.Errorf("emit: go.mod: %w", err)
	}
	if err := f.AddRequire(version.RuntimeModule, runtimeVersion); err != nil {
		return nil, fmt.Errorf("emit: go.mod: %w", err)
	}
	f.Cleanup()
	return modfile.Format(f.Syntax), nil
}

// WriteFiles writes files under dir, creating directories as needed.
func WriteFiles(dir string, files []File) error {
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, f.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.Path, err)
		}
	}
	return nil
}

// WriteBroken writes the unformatted source carried by a FormatError in err
// next to where the file would have gone, so the generator output can be
// debugged. It returns the written path, or "" when err carries none.
func WriteBroken(dir string, err error) string {
	var fe *FormatError
	if !errors.As(err, &fe) {
		return ""
	}
	p := filepath.Join(dir, filepath.FromSlash(fe.Path)) + ".broken"
	if os.MkdirAll(filepath.Dir(p), 0o755) != nil {
		return ""
	}
	if os.WriteFile(p, fe.Source, 0o644) != nil {
		return ""
	}
	return p
}

func unexported(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
