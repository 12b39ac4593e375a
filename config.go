// Package asc compiles the supported statically-typed subset into
// WebAssembly modules, per spec.md §6's external interface.
package asc

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// CompilerConfig controls one compilation, following the immutable
// builder idiom wazero's RuntimeConfig uses: NewCompilerConfig returns a
// base value, and every With* method returns a modified clone rather than
// mutating the receiver, so a shared base config can be specialized
// per call site without the specializations interfering with each other.
type CompilerConfig struct {
	uintptrSize int
	noLib       bool
	silent      bool
	logger      *logrus.Logger
}

// defaultConfig mirrors wazero's engineLessConfig: a single base value
// every NewCompilerConfig call clones from, so the defaults are declared
// in exactly one place.
var defaultConfig = &CompilerConfig{
	uintptrSize: 4,
	logger:      defaultLogger(),
}

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	l.SetOutput(os.Stderr)
	return l
}

// NewCompilerConfig returns a CompilerConfig defaulting to a 4-byte
// uintptr, library integration enabled, diagnostics not silenced, and a
// warn-level logger writing to stderr (spec.md §6, SPEC_FULL.md §2.4).
func NewCompilerConfig() *CompilerConfig {
	return defaultConfig.clone()
}

func (c *CompilerConfig) clone() *CompilerConfig {
	cp := *c
	return &cp
}

// WithUintptrSize sets the pointer width in bytes: 4 or 8. Any other
// value panics at With-time, per spec.md §6's "construction-time panic on
// an invalid value" rather than deferring the failure to compile time.
func (c *CompilerConfig) WithUintptrSize(size int) *CompilerConfig {
	if size != 4 && size != 8 {
		panic("asc: uintptr size must be 4 or 8")
	}
	ret := c.clone()
	ret.uintptrSize = size
	return ret
}

// WithNoLib disables integration of the allocator module and its
// malloc/free exports, producing a freestanding module (spec.md §4.7,
// §6).
func (c *CompilerConfig) WithNoLib(noLib bool) *CompilerConfig {
	ret := c.clone()
	ret.noLib = noLib
	return ret
}

// WithSilent suppresses the diagnostic collector's writes to its output
// stream; diagnostics are still collected and still gate compilation.
func (c *CompilerConfig) WithSilent(silent bool) *CompilerConfig {
	ret := c.clone()
	ret.silent = silent
	return ret
}

// WithLogger overrides the logger that receives phase-transition and
// monomorphization debug entries (SPEC_FULL.md §2.3). A nil logger is
// replaced with one fully discarding output, distinct from WithSilent,
// which only concerns reported diagnostics.
func (c *CompilerConfig) WithLogger(logger *logrus.Logger) *CompilerConfig {
	ret := c.clone()
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	ret.logger = logger
	return ret
}
