// Package diag collects compiler diagnostics. It plays the same role as a
// host parser's diagnostic constructor named in the reflection model's
// design notes: every phase of this compiler reports through one
// Collector rather than returning errors directly, so that a single bad
// construct does not stop the rest of the module from being analyzed.
package diag

import (
	"fmt"
	"io"
)

// Category classifies a Diagnostic's severity.
type Category int

const (
	Message Category = iota
	Warning
	Error
)

func (c Category) String() string {
	switch c {
	case Message:
		return "message"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Kind enumerates the diagnostic taxonomy of spec.md §7. It is not an error
// code: two diagnostics of the same Kind can carry different messages.
type Kind int

const (
	UnsupportedTopLevelStatement Kind = iota
	UnsupportedStatement
	UnsupportedExpression
	UnsupportedOperator
	UnsupportedClassMember
	UnsupportedType
	UnresolvableType
	TypeExpected
	IllegalType
	IllegalImplicitConversion
	UndefinedLocalVariable
	UnsupportedGlobalConstantInitializer
)

// Node is the minimal location-bearing interface a diagnostic anchors to.
// internal/ast.Node satisfies this; it is declared here (rather than
// imported) to avoid a dependency cycle between internal/ast and
// internal/diag, mirroring how wazero's internal/logging factors
// api.FunctionDefinition-shaped behavior out of api itself.
type Node interface {
	Pos() (file string, line, col int)
}

// Diagnostic is one reported compiler message.
type Diagnostic struct {
	Kind     Kind
	Category Category
	Node     Node
	Message  string
	Arg      string
}

func (d Diagnostic) String() string {
	file, line, col := "<unknown>", 0, 0
	if d.Node != nil {
		file, line, col = d.Node.Pos()
	}
	if d.Arg != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s (%s)", file, line, col, d.Category, d.Message, d.Arg)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", file, line, col, d.Category, d.Message)
}

// Collector accumulates Diagnostics across every phase of one compilation.
// A Collector is not safe for concurrent use; it is scoped to exactly one
// compiler instance, consistent with the single-threaded, one-compilation-
// per-instance concurrency model this compiler follows throughout.
type Collector struct {
	entries []Diagnostic
	silent  bool
	out     io.Writer
}

// NewCollector returns a Collector that writes non-silenced diagnostics to
// out as they are reported.
func NewCollector(out io.Writer, silent bool) *Collector {
	return &Collector{out: out, silent: silent}
}

// Report records d and, unless silenced, writes it to the configured
// writer immediately.
func (c *Collector) Report(d Diagnostic) {
	c.entries = append(c.entries, d)
	if !c.silent && c.out != nil {
		fmt.Fprintln(c.out, d.String())
	}
}

// Errorf is a convenience for reporting an Error-category diagnostic.
func (c *Collector) Errorf(kind Kind, node Node, arg string, format string, args ...interface{}) {
	c.Report(Diagnostic{Kind: kind, Category: Error, Node: node, Message: fmt.Sprintf(format, args...), Arg: arg})
}

// Warnf is a convenience for reporting a Warning-category diagnostic.
func (c *Collector) Warnf(kind Kind, node Node, arg string, format string, args ...interface{}) {
	c.Report(Diagnostic{Kind: kind, Category: Warning, Node: node, Message: fmt.Sprintf(format, args...), Arg: arg})
}

// HasErrors reports whether any collected Diagnostic is Error category.
func (c *Collector) HasErrors() bool {
	for _, d := range c.entries {
		if d.Category == Error {
			return true
		}
	}
	return false
}

// All returns every Diagnostic collected so far, in report order.
func (c *Collector) All() []Diagnostic {
	return c.entries
}
