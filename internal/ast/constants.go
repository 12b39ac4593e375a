package ast

// ConstantOracle evaluates an Expression to a compile-time integer constant,
// standing in for the "constant-value oracle for enum members" spec.md's
// design notes attribute to the host checker.
type ConstantOracle interface {
	EvalInt64(expr Expression) (value int64, ok bool)
}

// ConstantFolder is the self-contained ConstantOracle bundled with this
// package's parser. It folds integer literals, their unary +/-/~ forms,
// and + - * | & ^ of two already-foldable operands. Identifier references
// to another enum member already assigned a constant value are folded only
// through EvalQualified; EvalInt64 does not resolve them.
type ConstantFolder struct {
	// enumValues holds already-resolved enum member values, keyed by
	// "EnumName.MemberName", so a member's initializer may reference an
	// earlier member of the same enum (e.g. `Big = Small + 10`).
	enumValues map[string]int64
}

// NewConstantFolder returns an empty ConstantFolder.
func NewConstantFolder() *ConstantFolder {
	return &ConstantFolder{enumValues: make(map[string]int64)}
}

// Record stores the resolved value of an enum member so later members' own
// initializers can reference it by bare name.
func (c *ConstantFolder) Record(enumName, memberName string, value int64) {
	c.enumValues[enumName+"."+memberName] = value
}

// EvalInt64 implements ConstantOracle.
func (c *ConstantFolder) EvalInt64(expr Expression) (int64, bool) {
	switch e := expr.(type) {
	case *NumericLiteral:
		if e.Kind == NumericInteger {
			return e.Int, true
		}
		return 0, false
	case *ParenthesizedExpression:
		return c.EvalInt64(e.Expr)
	case *PrefixUnaryExpression:
		v, ok := c.EvalInt64(e.Operand)
		if !ok {
			return 0, false
		}
		switch e.Op {
		case PrefixMinus:
			return -v, true
		case PrefixPlus:
			return v, true
		case PrefixBitNot:
			return ^v, true
		default:
			return 0, false
		}
	case *BinaryExpression:
		l, ok := c.EvalInt64(e.Left)
		if !ok {
			return 0, false
		}
		r, ok := c.EvalInt64(e.Right)
		if !ok {
			return 0, false
		}
		switch e.Op {
		case BinAdd:
			return l + r, true
		case BinSub:
			return l - r, true
		case BinMul:
			return l * r, true
		case BinOr:
			return l | r, true
		case BinAnd:
			return l & r, true
		case BinXor:
			return l ^ r, true
		default:
			return 0, false
		}
	case *Identifier:
		// A bare identifier can only be an earlier member of the enum
		// currently being folded; callers that know the enclosing enum
		// name should prefer EvalQualified.
		return 0, false
	default:
		return 0, false
	}
}

// EvalQualified is like EvalInt64 but additionally resolves bare
// identifiers against enumName's already-recorded members.
func (c *ConstantFolder) EvalQualified(enumName string, expr Expression) (int64, bool) {
	if id, ok := expr.(*Identifier); ok {
		v, ok := c.enumValues[enumName+"."+id.Name]
		return v, ok
	}
	if bin, ok := expr.(*BinaryExpression); ok {
		l, lok := c.evalQualifiedOperand(enumName, bin.Left)
		r, rok := c.evalQualifiedOperand(enumName, bin.Right)
		if !lok || !rok {
			return 0, false
		}
		switch bin.Op {
		case BinAdd:
			return l + r, true
		case BinSub:
			return l - r, true
		case BinMul:
			return l * r, true
		case BinOr:
			return l | r, true
		case BinAnd:
			return l & r, true
		case BinXor:
			return l ^ r, true
		default:
			return 0, false
		}
	}
	return c.EvalInt64(expr)
}

func (c *ConstantFolder) evalQualifiedOperand(enumName string, expr Expression) (int64, bool) {
	if v, ok := c.EvalInt64(expr); ok {
		return v, ok
	}
	return c.EvalQualified(enumName, expr)
}
