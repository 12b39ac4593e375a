package mangle

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMangleEntryAndLibFileUnchanged(t *testing.T) {
	m := New("/proj/index.ts", "assembly.d.ts")

	require.Equal(t, "foo", m.Mangle("foo", "/proj/index.ts"), "entry file name should not be mangled")
	require.Equal(t, "env$abort", m.Mangle("env$abort", "assembly.d.ts"), "lib file name should not be mangled")
}

func TestMangleImportedFilePrefixed(t *testing.T) {
	m := New("/proj/index.ts", "assembly.d.ts")

	got := m.Mangle("helper", "/proj/util/math.ts")
	want := "util/math.ts" + string(filepath.Separator) + "helper"
	require.Equal(t, want, got)
}

func TestMangleIsInjective(t *testing.T) {
	m := New("/proj/index.ts", "assembly.d.ts")

	a := m.Mangle("helper", "/proj/a/mod.ts")
	b := m.Mangle("helper", "/proj/b/mod.ts")
	require.NotEqual(t, a, b, "distinct source files should not mangle to the same name")

	c := m.Mangle("helper", "/proj/a/mod.ts")
	d := m.Mangle("other", "/proj/a/mod.ts")
	require.NotEqual(t, c, d, "distinct names in the same file should not mangle to the same name")
}

func TestSanitizeStripsDisallowedBytes(t *testing.T) {
	require.Equal(t, "../ab/c.ts", sanitize("../a b/(c)!.ts"))
}
