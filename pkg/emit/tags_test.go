package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTag(t *testing.T) {
	assert.Equal(t, "lqfp_64", Tag("lqfp-64"))
	assert.Equal(t, "rev1.2", Tag("rev1.2"))
	assert.Equal(t, "a_b_c", Tag("a b/c"))
}

func TestConstraint(t *testing.T) {
	tests := []struct {
		levels [][]string
		want   string
	}{
		{nil, ""},
		{[][]string{{}, nil}, ""},
		{[][]string{{"dma"}}, "dma"},
		{[][]string{{"a", "b"}}, "a || b"},
		{[][]string{{"dma"}, {"lqfp-64", "lqfp100"}}, "dma && (lqfp_64 || lqfp100)"},
		{[][]string{{"x", "y"}, {}, {"z"}}, "(x || y) && z"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Constraint(tt.levels), "%v", tt.levels)
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"moder":     "moder.go",
		"cha_ccr":   "cha_ccr.go",
		"ctrl_arm":  "ctrl_arm_.go",
		"int_linux": "int_linux_.go",
		"mode_test": "mode_test_.go",
		"linux":     "linux.go",
		"_0cr":      "r_0cr.go",
		"doc":       "doc_.go",
	}
	for in, want := range tests {
		assert.Equal(t, want, FileName(in), in)
	}
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "gpioa", PackageName("gpioa"))
	assert.Equal(t, "p_2", PackageName("_2"))
	assert.Equal(t, "ptestdata", PackageName("testdata"))
	assert.Equal(t, "pmain", PackageName("main"))
}
