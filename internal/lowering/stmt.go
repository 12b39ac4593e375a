package lowering

import (
	"github.com/ascwasm/asc/internal/ast"
	"github.com/ascwasm/asc/internal/diag"
	"github.com/ascwasm/asc/internal/ir"
	"github.com/ascwasm/asc/internal/reflection"
)

// LowerBlock lowers every statement of blk in sequence into c.b.
func (c *Context) LowerBlock(blk *ast.BlockStatement) {
	for _, s := range blk.Statements {
		c.LowerStatement(s)
	}
}

// LowerStatement dispatches one statement to its lowering, per spec.md
// §4.5.
func (c *Context) LowerStatement(s ast.Statement) {
	switch st := s.(type) {
	case *ast.BlockStatement:
		c.LowerBlock(st)
	case *ast.VariableStatement:
		c.lowerVariableStatement(st)
	case *ast.IfStatement:
		c.lowerIf(st)
	case *ast.WhileStatement:
		c.lowerWhile(st)
	case *ast.DoStatement:
		c.lowerDo(st)
	case *ast.ForStatement:
		c.lowerFor(st)
	case *ast.SwitchStatement:
		c.lowerSwitch(st)
	case *ast.BreakStatement:
		c.b.Br(c.breakDepth())
	case *ast.ContinueStatement:
		c.b.Br(c.continueDepth())
	case *ast.ReturnStatement:
		c.lowerReturn(st)
	case *ast.ExpressionStatement:
		c.LowerExpr(st.Expr)
		c.dropIfValued(st.Expr)
	default:
		c.Diags.Errorf(diag.UnsupportedStatement, s, "", "unsupported statement")
		c.b.Op(ir.OpcodeUnreachable)
	}
}

// dropIfValued discards an expression-statement's result, since wasm
// requires the value stack to balance around every statement boundary
// and most expressions used as bare statements (calls, assignments,
// increments) leave a value behind that no one consumes.
func (c *Context) dropIfValued(e ast.Expression) {
	t, _ := e.ResolvedType().(*reflection.Type)
	if t != nil && !t.IsVoid() {
		c.b.Op(ir.OpcodeDrop)
	}
}

func (c *Context) lowerVariableStatement(s *ast.VariableStatement) {
	for _, d := range s.Declarators {
		c.lowerDeclarator(d)
	}
}

func (c *Context) lowerDeclarator(d *ast.VariableDeclarator) {
	var t *reflection.Type
	if d.Type != nil {
		t = c.Resolver.Resolve(c.File, d.Type, false)
	} else if d.Initializer != nil {
		t = c.LowerExpr(d.Initializer)
	} else {
		c.Diags.Errorf(diag.TypeExpected, d, d.Name, "cannot infer a type for %q", d.Name)
		t = reflection.Primitives["int"]
	}

	v := c.declareLocal(d.Name, t)
	if d.Initializer == nil {
		return
	}
	if d.Type == nil {
		// Initializer was already lowered above (to infer t); its value
		// is on the stack and already has the declared type.
		c.b.LocalSet(v.Index)
		return
	}
	c.LowerExprTyped(d.Initializer, t, false)
	c.b.LocalSet(v.Index)
}

func (c *Context) lowerIf(s *ast.IfStatement) {
	c.LowerExprTyped(s.Cond, reflection.Primitives["bool"], false)
	c.b.If(ir.BlockTypeEmpty)
	c.enterBlock()
	c.LowerStatement(s.Then)
	if s.Else != nil {
		c.b.Else()
		c.LowerStatement(s.Else)
	}
	c.leaveBlock()
	c.b.End()
}

// lowerWhile follows the canonical `block $break { loop $continue { if
// (cond) { body; br $continue } } }` idiom (spec.md §4.5): the outer
// block is the break target, the inner loop's re-entry is the continue
// target, and the loop only runs again if the condition still holds.
func (c *Context) lowerWhile(s *ast.WhileStatement) {
	c.b.Block(ir.BlockTypeEmpty)
	c.enterBlock()
	c.pushBreakTarget()

	c.b.Loop(ir.BlockTypeEmpty)
	c.enterBlock()
	c.pushContinueTarget()

	c.LowerExprTyped(s.Cond, reflection.Primitives["bool"], false)
	c.b.If(ir.BlockTypeEmpty)
	c.enterBlock()
	c.LowerStatement(s.Body)
	c.b.Br(c.continueDepth())
	c.leaveBlock()
	c.b.End() // if

	c.popContinueTarget()
	c.leaveBlock()
	c.b.End() // loop

	c.popBreakTarget()
	c.leaveBlock()
	c.b.End() // block
}

// lowerDo is the while idiom with the condition test moved after the
// body, so the body always runs once before the first check.
func (c *Context) lowerDo(s *ast.DoStatement) {
	c.b.Block(ir.BlockTypeEmpty)
	c.enterBlock()
	c.pushBreakTarget()

	c.b.Loop(ir.BlockTypeEmpty)
	c.enterBlock()
	c.pushContinueTarget()

	c.LowerStatement(s.Body)
	c.LowerExprTyped(s.Cond, reflection.Primitives["bool"], false)
	c.b.BrIf(c.continueDepth())

	c.popContinueTarget()
	c.leaveBlock()
	c.b.End() // loop

	c.popBreakTarget()
	c.leaveBlock()
	c.b.End() // block
}

// lowerFor desugars to a while loop that runs the update clause after the
// body inside the loop's if, since wasm has no native for-loop
// instruction to target.
func (c *Context) lowerFor(s *ast.ForStatement) {
	if s.Init != nil {
		c.LowerStatement(s.Init)
	}

	c.b.Block(ir.BlockTypeEmpty)
	c.enterBlock()
	c.pushBreakTarget()

	c.b.Loop(ir.BlockTypeEmpty)
	c.enterBlock()
	c.pushContinueTarget()

	if s.Cond != nil {
		c.LowerExprTyped(s.Cond, reflection.Primitives["bool"], false)
	} else {
		c.b.I32Const(1)
	}
	c.b.If(ir.BlockTypeEmpty)
	c.enterBlock()
	c.LowerStatement(s.Body)
	if s.Update != nil {
		c.LowerStatement(s.Update)
	}
	c.b.Br(c.continueDepth())
	c.leaveBlock()
	c.b.End() // if

	c.popContinueTarget()
	c.leaveBlock()
	c.b.End() // loop

	c.popBreakTarget()
	c.leaveBlock()
	c.b.End() // block
}

// lowerSwitch lowers to a dispatch chain of equality comparisons against
// the tag, each br_if-ing directly into its case's own nested block,
// with the per-case blocks nested outermost-first from the last case to
// the first (spec.md §4.5): branching into case i's block lands exactly
// before case i's statements, and since those statements are followed
// immediately by the next case's block end and then that case's own
// statements, a case with no break/return falls straight into the next
// case's body, reproducing the source language's switch fall-through
// rather than the case isolation an if/else chain would give. `switch`
// has no native wasm construct, so this dispatch-into-nested-blocks
// encoding is this compiler's answer rather than a br_table, since case
// values are full expressions here, not required to be small dense
// integers.
func (c *Context) lowerSwitch(s *ast.SwitchStatement) {
	tagBytes, tagT := c.captureExpr(s.Tag)

	c.b.Block(ir.BlockTypeEmpty)
	c.enterBlock()
	c.pushBreakTarget()

	n := len(s.Cases)
	caseDepth := make([]int, n)
	for i := n - 1; i >= 0; i-- {
		c.b.Block(ir.BlockTypeEmpty)
		c.enterBlock()
		caseDepth[i] = c.depth
	}

	defaultIndex := -1
	for i, cs := range s.Cases {
		if cs.Test == nil {
			defaultIndex = i
			break
		}
	}

	for i, cs := range s.Cases {
		if cs.Test == nil {
			continue
		}
		testBytes, testT := c.captureExpr(cs.Test)
		common := widerOf(tagT, testT, c.PtrSize)

		c.b.Append(tagBytes)
		if !tagT.Equal(common) {
			c.Converter.Convert(c.b, s.Tag, tagT, common, false)
		}
		c.b.Append(testBytes)
		if !testT.Equal(common) {
			c.Converter.Convert(c.b, cs.Test, testT, common, false)
		}
		op, _ := binaryOpcode(ast.BinEq, common, c.PtrSize)
		c.b.Op(op)
		c.b.BrIf(uint32(c.depth - caseDepth[i]))
	}
	if defaultIndex >= 0 {
		c.b.Br(uint32(c.depth - caseDepth[defaultIndex]))
	} else {
		c.b.Br(c.breakDepth())
	}

	// Close the case blocks innermost first (case 0 first, the last one
	// opened), emitting case i's own statements right after its block
	// ends: that position is simultaneously "just inside case i+1's
	// block" for every case but the last, which is exactly what lets
	// execution fall through.
	for i := 0; i < n; i++ {
		c.leaveBlock()
		c.b.End()
		for _, stmt := range s.Cases[i].Statements {
			c.LowerStatement(stmt)
		}
	}

	c.popBreakTarget()
	c.leaveBlock()
	c.b.End() // block
}

func (c *Context) lowerReturn(s *ast.ReturnStatement) {
	if s.Value == nil {
		c.b.Op(ir.OpcodeReturn)
		return
	}
	c.LowerExprTyped(s.Value, c.Function.ReturnType, false)
	c.b.Op(ir.OpcodeReturn)
}
