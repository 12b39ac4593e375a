package diag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasErrorsOnlyTrueForErrorCategory(t *testing.T) {
	c := NewCollector(nil, true)
	require.False(t, c.HasErrors(), "fresh collector should report no errors")

	c.Warnf(IllegalImplicitConversion, nil, "x", "a warning")
	require.False(t, c.HasErrors(), "a warning alone should not count as an error")

	c.Errorf(UndefinedLocalVariable, nil, "y", "an error")
	require.True(t, c.HasErrors(), "an Errorf call should make HasErrors true")

	require.Len(t, c.All(), 2)
}

func TestSilentCollectorWritesNothing(t *testing.T) {
	var buf strings.Builder
	c := NewCollector(&buf, true)
	c.Errorf(UnresolvableType, nil, "z", "boom")

	require.Zero(t, buf.Len(), "silent collector wrote %q, want nothing", buf.String())
	require.True(t, c.HasErrors(), "diagnostics are still collected while silenced")
}

func TestNonSilentCollectorWritesReport(t *testing.T) {
	var buf strings.Builder
	c := NewCollector(&buf, false)
	c.Warnf(IllegalType, nil, "", "careful")

	require.Contains(t, buf.String(), "careful")
}
