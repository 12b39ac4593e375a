// Package reflection is the compiler's type system: concrete types
// (primitive kinds, pointer, class instance), variables, properties,
// function signatures, enums, and the function/class templates that
// monomorphize into them. It is populated once, by the initialize pass,
// and then read by every later phase for the rest of one compilation.
package reflection

import "github.com/ascwasm/asc/internal/ir"

// Kind tags a Type's variant.
type Kind int

const (
	KindVoid Kind = iota
	KindSByte
	KindShort
	KindInt
	KindLong
	KindBool
	KindByte
	KindUShort
	KindUInt
	KindULong
	KindFloat
	KindDouble
	KindUintptr
	KindClass
)

// Type is the reflection model's tagged variant over the surface
// language's primitive kinds, the pointer-sized uintptr, and class
// instances (a reference to the owning Class).
type Type struct {
	Kind  Kind
	Class *Class // non-nil iff Kind == KindClass
}

// bitWidth is the type's natural bit width, used to derive Size, Shift32
// and Mask32. Pointer-sized kinds (Uintptr, Class) are resolved against
// the compilation's configured pointer size by the methods below rather
// than stored here.
func (t *Type) bitWidth(ptrSize int) int {
	switch t.Kind {
	case KindVoid:
		return 0
	case KindBool:
		return 1
	case KindSByte, KindByte:
		return 8
	case KindShort, KindUShort:
		return 16
	case KindInt, KindUInt, KindFloat:
		return 32
	case KindLong, KindULong, KindDouble:
		return 64
	case KindUintptr, KindClass:
		return ptrSize * 8
	default:
		return 0
	}
}

// Size returns the type's size in bytes under the given pointer size.
func (t *Type) Size(ptrSize int) int {
	if t.Kind == KindBool {
		return 1
	}
	return t.bitWidth(ptrSize) / 8
}

// IsInt reports whether values of this type occupy a wasm i32, i.e. every
// integer kind at or below 32 bits, plus uintptr/class references under a
// 4-byte pointer size.
func (t *Type) IsInt(ptrSize int) bool {
	switch t.Kind {
	case KindSByte, KindShort, KindInt, KindBool, KindByte, KindUShort, KindUInt:
		return true
	case KindUintptr, KindClass:
		return ptrSize == 4
	default:
		return false
	}
}

// IsLong reports whether values of this type occupy a wasm i64: long,
// ulong, or uintptr/class references under an 8-byte pointer size.
func (t *Type) IsLong(ptrSize int) bool {
	switch t.Kind {
	case KindLong, KindULong:
		return true
	case KindUintptr, KindClass:
		return ptrSize == 8
	default:
		return false
	}
}

func (t *Type) IsFloat() bool  { return t.Kind == KindFloat }
func (t *Type) IsDouble() bool { return t.Kind == KindDouble }
func (t *Type) IsVoid() bool   { return t.Kind == KindVoid }

// IsSigned reports whether this integer kind is two's-complement signed.
// Meaningless (and false) for float/double/void.
func (t *Type) IsSigned() bool {
	switch t.Kind {
	case KindSByte, KindShort, KindInt, KindLong:
		return true
	default:
		return false
	}
}

// Shift32 is 32 minus this type's bit width, the shift amount used to
// sign-extend a narrower-than-32-bit value held in an i32 register via
// shl then shr_s. Zero for 32-bit-or-wider kinds.
func (t *Type) Shift32() int {
	w := t.bitWidth(4) // pointer size is irrelevant for anything narrower than 32 bits
	if w >= 32 {
		return 0
	}
	return 32 - w
}

// Mask32 is the bitmask selecting this type's low bits out of an i32
// register, used when narrowing to an unsigned type.
func (t *Type) Mask32() uint32 {
	w := t.bitWidth(4)
	if w >= 32 {
		return 0xffffffff
	}
	return uint32(1)<<uint(w) - 1
}

// WasmValueType returns the wasm value type used to represent this type's
// values, under the given pointer size. Panics for KindVoid, which has no
// value representation; callers must special-case void themselves (as the
// statement and expression lowerers do for `return;` and call results).
func (t *Type) WasmValueType(ptrSize int) ir.ValueType {
	switch {
	case t.Kind == KindFloat:
		return ir.ValueTypeF32
	case t.Kind == KindDouble:
		return ir.ValueTypeF64
	case t.IsLong(ptrSize):
		return ir.ValueTypeI64
	case t.IsInt(ptrSize):
		return ir.ValueTypeI32
	default:
		panic("reflection: void has no wasm value type")
	}
}

// Equal reports whether t and other denote the same type.
func (t *Type) Equal(other *Type) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	if t.Kind != other.Kind {
		return false
	}
	return t.Kind != KindClass || t.Class == other.Class
}

// Void is the shared singleton for the void type.
var Void = &Type{Kind: KindVoid}

// Primitives maps every surface-language primitive keyword, plus
// "uintptr", to its singleton Type. Populated once at init time since
// primitive types carry no per-compilation state.
var Primitives = map[string]*Type{
	"void":    Void,
	"sbyte":   {Kind: KindSByte},
	"short":   {Kind: KindShort},
	"int":     {Kind: KindInt},
	"long":    {Kind: KindLong},
	"bool":    {Kind: KindBool},
	"byte":    {Kind: KindByte},
	"ushort":  {Kind: KindUShort},
	"uint":    {Kind: KindUInt},
	"ulong":   {Kind: KindULong},
	"float":   {Kind: KindFloat},
	"double":  {Kind: KindDouble},
	"uintptr": {Kind: KindUintptr},
}

// NewClassType returns the instance type referencing c.
func NewClassType(c *Class) *Type { return &Type{Kind: KindClass, Class: c} }
