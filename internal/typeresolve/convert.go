package typeresolve

import (
	"github.com/ascwasm/asc/internal/ast"
	"github.com/ascwasm/asc/internal/diag"
	"github.com/ascwasm/asc/internal/ir"
	"github.com/ascwasm/asc/internal/reflection"
)

// Converter implements maybeConvertValue (spec.md §4.3): given an operand
// of type from already pushed onto b's value stack, it appends whatever
// instructions are needed to leave a to-typed value on the stack instead.
type Converter struct {
	PtrSize int
	Diags   *diag.Collector
}

// NewConverter returns a Converter for one compilation's pointer size.
func NewConverter(ptrSize int, diags *diag.Collector) *Converter {
	return &Converter{PtrSize: ptrSize, Diags: diags}
}

// Convert appends the conversion from `from` to `to` onto b. If explicit
// is false and the conversion is not silently safe, an Illegal implicit
// conversion diagnostic is reported against node, but the converted value
// is still produced so that compilation can continue.
func (c *Converter) Convert(b *ir.Builder, node ast.Node, from, to *reflection.Type, explicit bool) {
	if from.Equal(to) {
		return
	}
	if !explicit && !c.isImplicitlySafe(from, to) {
		c.Diags.Errorf(diag.IllegalImplicitConversion, node, "",
			"implicit conversion from %s to %s is not safe", kindLabel(from), kindLabel(to))
	} else if !explicit && c.warnsEvenWhenSafe(from, to) {
		c.Diags.Warnf(diag.IllegalImplicitConversion, node, "",
			"implicit conversion from %s to %s depends on pointer size", kindLabel(from), kindLabel(to))
	}

	ptr := c.PtrSize
	switch {
	case from.IsFloat():
		c.convertFromFloat(b, to, false)
	case from.IsDouble():
		c.convertFromFloat(b, to, true)
	case from.IsLong(ptr):
		c.convertFromLong(b, from, to)
	case from.IsInt(ptr):
		c.convertFromInt(b, from, to)
	default:
		// from is void; nothing sensible to convert, leave the stack as is.
	}
}

func (c *Converter) convertFromFloat(b *ir.Builder, to *reflection.Type, fromDouble bool) {
	ptr := c.PtrSize
	switch {
	case to.IsLong(ptr):
		if fromDouble {
			if to.IsSigned() {
				b.Op(ir.OpcodeI64TruncF64S)
			} else {
				b.Op(ir.OpcodeI64TruncF64U)
			}
		} else {
			if to.IsSigned() {
				b.Op(ir.OpcodeI64TruncF32S)
			} else {
				b.Op(ir.OpcodeI64TruncF32U)
			}
		}
	case to.IsInt(ptr):
		if fromDouble {
			if to.IsSigned() {
				b.Op(ir.OpcodeI32TruncF64S)
			} else {
				b.Op(ir.OpcodeI32TruncF64U)
			}
		} else {
			if to.IsSigned() {
				b.Op(ir.OpcodeI32TruncF32S)
			} else {
				b.Op(ir.OpcodeI32TruncF32U)
			}
		}
		narrow32(b, to)
	case to.IsDouble():
		if !fromDouble {
			b.Op(ir.OpcodeF64PromoteF32)
		}
	case to.IsFloat():
		if fromDouble {
			b.Op(ir.OpcodeF32DemoteF64)
		}
	}
}

func (c *Converter) convertFromLong(b *ir.Builder, from, to *reflection.Type) {
	ptr := c.PtrSize
	signed := from.IsSigned()
	switch {
	case to.IsLong(ptr):
		// ulong<->long/uintptr64 and same-width reinterpretation: no bits move.
	case to.IsInt(ptr):
		b.Op(ir.OpcodeI32WrapI64)
		narrow32(b, to)
	case to.IsFloat():
		if signed {
			b.Op(ir.OpcodeF32ConvertI64S)
		} else {
			b.Op(ir.OpcodeF32ConvertI64U)
		}
	case to.IsDouble():
		if signed {
			b.Op(ir.OpcodeF64ConvertI64S)
		} else {
			b.Op(ir.OpcodeF64ConvertI64U)
		}
	}
}

func (c *Converter) convertFromInt(b *ir.Builder, from, to *reflection.Type) {
	ptr := c.PtrSize
	signed := from.IsSigned()
	switch {
	case to.IsLong(ptr):
		// Only signed->long gets extend_s; every other cell (unsigned->ulong,
		// unsigned->long, signed->ulong/uintptr64) uses extend_u, per
		// spec.md §4.3's table.
		if signed && to.IsSigned() {
			b.Op(ir.OpcodeI64ExtendI32S)
		} else {
			b.Op(ir.OpcodeI64ExtendI32U)
		}
	case to.IsInt(ptr):
		if from.Size(ptr) > to.Size(ptr) {
			narrow32(b, to)
		}
		// from.Size <= to.Size: pass-through, relying on the invariant that
		// every i32 register already holds a correctly sign/zero-extended
		// value for its declared width.
	case to.IsFloat():
		if signed {
			b.Op(ir.OpcodeF32ConvertI32S)
		} else {
			b.Op(ir.OpcodeF32ConvertI32U)
		}
	case to.IsDouble():
		if signed {
			b.Op(ir.OpcodeF64ConvertI32S)
		} else {
			b.Op(ir.OpcodeF64ConvertI32U)
		}
	}
}

// narrow32 emits the shl(shr_s(x, shift32), shift32) / and(x, mask32)
// narrowing sequence of spec.md §4.3 against an i32-register value already
// on the stack, or nothing if to is a full 32-bit width (shift32 == 0).
func narrow32(b *ir.Builder, to *reflection.Type) {
	if to.Shift32() == 0 {
		return
	}
	if to.IsSigned() {
		shift := int32(to.Shift32())
		b.I32Const(shift)
		b.Op(ir.OpcodeI32ShrS)
		b.I32Const(shift)
		b.Op(ir.OpcodeI32Shl)
	} else {
		b.I32Const(int32(to.Mask32()))
		b.Op(ir.OpcodeI32And)
	}
}

// isImplicitlySafe mirrors the non-goal rows of spec.md §4.3's table:
// widening within the same family, and int-to-float/double, are silently
// safe; narrowing of any kind, and any conversion across the int/float
// divide in the narrowing direction, are not.
func (c *Converter) isImplicitlySafe(from, to *reflection.Type) bool {
	ptr := c.PtrSize
	if from.IsFloat() || from.IsDouble() {
		return false // truncation toward an integer is always explicit-only
	}
	if to.IsFloat() || to.IsDouble() {
		return true // widening an integer into a float/double is safe
	}
	if from.IsInt(ptr) && to.IsLong(ptr) {
		return true // extension never loses information
	}
	if from.IsInt(ptr) && to.IsInt(ptr) {
		return from.Size(ptr) <= to.Size(ptr)
	}
	if from.IsLong(ptr) && to.IsLong(ptr) {
		return true
	}
	return false
}

// warnsEvenWhenSafe flags every implicit-warn cell of spec.md §4.3's
// table that isImplicitlySafe also calls safe: the two pointer-size-
// dependent conversions called out in prose (uintptr->uint under
// 32-bit builds is the identity, but would silently truncate a 64-bit
// pointer if the build were ever recompiled at uintptrSize=8; ulong-
// >uintptr similarly warns under 64-bit builds), the mismatched-
// signedness 32-bit-to-64-bit-int widenings (int-family unsigned->long,
// int-family signed->ulong/uintptr64), and every long(signed/unsigned)-
// >float/double conversion.
func (c *Converter) warnsEvenWhenSafe(from, to *reflection.Type) bool {
	ptr := c.PtrSize
	switch {
	case from.Kind == reflection.KindUintptr && to.Kind == reflection.KindUInt && ptr == 4:
		return true
	case from.Kind == reflection.KindULong && to.Kind == reflection.KindUintptr && ptr == 8:
		return true
	case from.IsInt(ptr) && to.IsLong(ptr):
		return from.IsSigned() != to.IsSigned()
	case from.IsLong(ptr) && (to.IsFloat() || to.IsDouble()):
		return true
	}
	return false
}

func kindLabel(t *reflection.Type) string {
	if t.Kind == reflection.KindClass {
		return "class " + t.Class.Name
	}
	names := map[reflection.Kind]string{
		reflection.KindVoid: "void", reflection.KindSByte: "sbyte", reflection.KindShort: "short",
		reflection.KindInt: "int", reflection.KindLong: "long", reflection.KindBool: "bool",
		reflection.KindByte: "byte", reflection.KindUShort: "ushort", reflection.KindUInt: "uint",
		reflection.KindULong: "ulong", reflection.KindFloat: "float", reflection.KindDouble: "double",
		reflection.KindUintptr: "uintptr",
	}
	return names[t.Kind]
}
