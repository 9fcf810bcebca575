package emit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkochnev/ral/pkg/dsl"
	"github.com/vkochnev/ral/pkg/layout"
	"github.com/vkochnev/ral/pkg/overrides"
	"github.com/vkochnev/ral/pkg/resolve"
	"github.com/vkochnev/ral/pkg/svd"
	"github.com/vkochnev/ral/pkg/synth"
	"github.com/vkochnev/ral/pkg/version"
)

const miniOverrides = `
peripherals:
  GPIOA:
    registers:
      MODER:
        uses: [example.com/board/types]
        fields:
          MODE%s:
            type: types.Mode
  DMA1:
    features: [dma]
    clusters:
      CH[%s]:
        features: [lqfp-64, lqfp100]
`

func miniSpec(t *testing.T) *synth.DeviceSpec {
	t.Helper()
	dev, err := svd.Load(filepath.Join("..", "svd", "testdata", "mini.svd"))
	require.NoError(t, err)
	ov, err := overrides.Parse([]byte(miniOverrides))
	require.NoError(t, err)
	rd, err := resolve.Resolve(dev, ov, resolve.Options{})
	require.NoError(t, err)
	spec, err := synth.Device(rd, layout.Compute(rd))
	require.NoError(t, err)
	return spec
}

func generate(t *testing.T, opts Options) map[string]string {
	t.Helper()
	if opts.Module == "" {
		opts.Module = "example.com/board/mini32"
	}
	files, err := Generate(context.Background(), miniSpec(t), opts)
	require.NoError(t, err)
	out := make(map[string]string, len(files))
	for _, f := range files {
		out[f.Path] = string(f.Data)
	}
	return out
}

func mustContain(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Errorf("output does not contain %q\nOutput:\n%s", substr, output)
	}
}

func mustNotContain(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Errorf("output should not contain %q", substr)
	}
}

func TestGenerateFileOrder(t *testing.T) {
	files, err := Generate(context.Background(), miniSpec(t), Options{Module: "example.com/board/mini32", Concurrency: 2})
	require.NoError(t, err)

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	assert.Equal(t, []string{
		"go.mod",
		"doc.go",
		"gpioa/doc.go", "gpioa/moder.go", "gpioa/idr.go", "gpioa/bsrr.go",
		"gpiob/doc.go", "gpiob/moder.go", "gpiob/idr.go", "gpiob/bsrr.go",
		"dma1/doc.go", "dma1/cha_ccr.go", "dma1/chb_ccr.go", "dma1/isr.go",
	}, paths)
}

func TestGenerateGoMod(t *testing.T) {
	out := generate(t, Options{Runtime: "v1.4.0", GoVersion: "1.23"})
	gomod := out["go.mod"]
	mustContain(t, gomod, "module example.com/board/mini32")
	mustContain(t, gomod, "go 1.23")
	mustContain(t, gomod, "require github.com/vkochnev/ral v1.4.0")
}

func TestGenerateGoModDefaultsToRuntimeGo(t *testing.T) {
	gomod := generate(t, Options{Runtime: "v1.4.0"})["go.mod"]
	mustContain(t, gomod, "go "+version.RuntimeGo+"\n")
}

func TestGenerateModuleDoc(t *testing.T) {
	doc := generate(t, Options{})["doc.go"]
	mustContain(t, doc, "// Code generated by ralgen. DO NOT EDIT.")
	mustContain(t, doc, "// Package mini32 is the register access layer for the mini32 device.")
	mustContain(t, doc, "example.com/board/mini32/dma1 (DMA1) at 0x40020000, 3 registers")
	mustContain(t, doc, "lqfp100, lqfp_64")
	mustContain(t, doc, "package mini32")
}

func TestGeneratePeripheralDoc(t *testing.T) {
	out := generate(t, Options{})
	gpioa := out["gpioa/doc.go"]
	mustContain(t, gpioa, "// Package gpioa exposes the GPIOA registers.")
	mustContain(t, gpioa, "// General-purpose I/Os")
	mustContain(t, gpioa, "const BaseAddress = 0x48000000")
	mustNotContain(t, gpioa, "//go:build")

	mustContain(t, out["dma1/doc.go"], "//go:build dma\n")
}

func TestComment(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"GPIO port mode register", "// GPIO port mode register."},
		{"Already closed.", "// Already closed."},
		{"Bits (31:0)", "// Bits (31:0)"},
		{"  Small test\n  device  \n\nSecond part", "// Small test\n// device.\n//\n// Second part."},
	}
	for _, tt := range tests {
		if got := comment(tt.in); got != tt.want {
			t.Errorf("comment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateRegister(t *testing.T) {
	out := generate(t, Options{})
	moder := out["gpioa/moder.go"]
	mustContain(t, moder, "package gpioa")
	mustContain(t, moder, `"github.com/vkochnev/ral/pkg/ral"`)
	mustContain(t, moder, `"example.com/board/types"`)
	mustContain(t, moder, "type Moder struct {\n\t*ral.Handle[uint32]\n}")
	mustContain(t, moder, "// Moder is the gpioa/moder register.\n//\n// GPIO port mode register.\n//\n")
	mustNotContain(t, moder, "// #")
	mustContain(t, moder, "var moderDef = ral.Def[uint32]{Mask: 0xF3FFFFFF, Reset: 0x28000000}")
	mustContain(t, moder, `ral.NewHolder[uint32](ral.At[uint32](BaseAddress + 0x0), ral.Named("gpioa/moder"))`)
	mustContain(t, moder, "func BorrowModer() (Moder, bool) {")
	mustContain(t, moder, "func WithModer(fn func(Moder) error) (bool, error) {")
	mustContain(t, moder, "func (r Moder) Read() Moder {")
	mustContain(t, moder, "func (r Moder) Write() Moder {")
	mustContain(t, moder, "func (r Moder) Reset() Moder {")
	mustContain(t, moder, "func (r Moder) Mode3() (types.Mode, error) {")
	mustContain(t, moder, `return ral.Decode[uint32, types.Mode](r, "mode3", 0x3, 6)`)
	mustContain(t, moder, "func (r Moder) SetMode15(v types.Mode) (Moder, error) {")
	mustContain(t, moder, `return r, ral.Encode[uint32](r, "mode15", 0x3, 30, v)`)

	gpiob := out["gpiob/moder.go"]
	mustContain(t, gpiob, "package gpiob")
	mustContain(t, gpiob, "func (r Moder) Mode3() (types.Mode, error) {")
	mustContain(t, gpiob, `ral.Named("gpiob/moder")`)
}

func TestGenerateAccessSurface(t *testing.T) {
	out := generate(t, Options{})

	idr := out["gpioa/idr.go"]
	mustContain(t, idr, "func (r Idr) IsIdr1Set() bool {")
	mustContain(t, idr, "return ral.Flag[uint32](r, 1)")
	mustNotContain(t, idr, "SetIdr1")
	mustNotContain(t, idr, "example.com/board/types")

	bsrr := out["gpioa/bsrr.go"]
	mustContain(t, bsrr, "func (r Bsrr) SetBs(v uint16) Bsrr {")
	mustContain(t, bsrr, "ral.SetField[uint32](r, 0xffff, 0, uint32(v))")
	mustNotContain(t, bsrr, "func (r Bsrr) Bs() uint16")

	ccr := out["dma1/chb_ccr.go"]
	mustContain(t, ccr, "func (r ChbCcr) IsEnSet() bool {")
	mustContain(t, ccr, "func (r ChbCcr) SetEnValue(v bool) ChbCcr {")
	mustContain(t, ccr, "func (r ChbCcr) SetEn() ChbCcr {")
	mustContain(t, ccr, "func (r ChbCcr) UnsetEn() ChbCcr {")
}

func TestGenerateWordSizesAndFeatures(t *testing.T) {
	out := generate(t, Options{})

	ccr := out["dma1/chb_ccr.go"]
	mustContain(t, ccr, "//go:build dma && (lqfp_64 || lqfp100)\n")
	mustContain(t, ccr, "var chbCcrDef = ral.Def[uint16]{Mask: 0xFFFF, Reset: 0x0000}")
	mustContain(t, ccr, "ral.At[uint16](BaseAddress + 0x1c)")

	isr := out["dma1/isr.go"]
	mustContain(t, isr, "//go:build dma\n")
	mustContain(t, isr, "*ral.Handle[uint32]")
}

func TestGenerateSimulated(t *testing.T) {
	out := generate(t, Options{Simulated: true})
	mustContain(t, out["gpioa/moder.go"], "ral.NewHolder[uint32](ral.Alloc[uint32](0x28000000)")
	mustNotContain(t, out["gpioa/moder.go"], "ral.At[")
	mustContain(t, out["gpioa/doc.go"], "backed by process memory")
}

func TestGenerateRejectsBadModule(t *testing.T) {
	_, err := Generate(context.Background(), miniSpec(t), Options{})
	assert.Error(t, err)

	_, err = Generate(context.Background(), miniSpec(t), Options{Module: "bad path!"})
	assert.Error(t, err)
}

func TestGenerateRejectsPackageCollision(t *testing.T) {
	spec := miniSpec(t)
	spec.Peripherals[1].Name = "gpioa"
	_, err := Generate(context.Background(), spec, Options{Module: "example.com/x"})
	assert.ErrorIs(t, err, resolve.ErrDuplicateArrayName)
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, miniSpec(t), Options{Module: "example.com/x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStandalone(t *testing.T) {
	doc, err := dsl.Load(filepath.Join("..", "dsl", "testdata", "moder.yaml"))
	require.NoError(t, err)
	spec, err := doc.Spec()
	require.NoError(t, err)

	files, err := Standalone("gpio", 0x4800_0000, spec, Options{})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "gpio/doc.go", files[0].Path)
	assert.Equal(t, "gpio/moder.go", files[1].Path)

	src := string(files[1].Data)
	mustContain(t, src, "func (r Moder) Speed() uint8 {")
	mustContain(t, src, "return uint8(ral.Field[uint32](r, 0xf, 2))")
	mustContain(t, src, "func (r Moder) IsLockSet() bool {")
	mustNotContain(t, src, "SetLock")
	mustContain(t, string(files[0].Data), "const BaseAddress = 0x48000000")
}

func TestFormatErrorWritesBroken(t *testing.T) {
	_, err := Format("gpioa/bad.go", []byte("package gpioa\nfunc {"))
	require.Error(t, err)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "gpioa/bad.go", fe.Path)

	dir := t.TempDir()
	p := WriteBroken(dir, err)
	assert.Equal(t, filepath.Join(dir, "gpioa", "bad.go.broken"), p)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "package gpioa\nfunc {", string(data))

	assert.Empty(t, WriteBroken(dir, os.ErrNotExist))
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	files, err := Generate(context.Background(), miniSpec(t), Options{Module: "example.com/board/mini32"})
	require.NoError(t, err)
	require.NoError(t, WriteFiles(dir, files))

	data, err := os.ReadFile(filepath.Join(dir, "dma1", "cha_ccr.go"))
	require.NoError(t, err)
	assert.Equal(t, files[11].Data, data)
}
