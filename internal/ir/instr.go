package ir

// Builder accumulates the instruction stream for one function body. Every
// lowerer in this compiler is handed a *Builder for the function it is
// translating and appends instructions to it directly: WebAssembly's
// control instructions (block/loop/if/br) are already linear in the binary
// format, so there is no intermediate expression tree to build and later
// flatten.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty instruction builder.
func NewBuilder() *Builder { return &Builder{} }

// Bytes returns the accumulated instruction stream. It does not include a
// trailing OpcodeEnd; Module.Encode appends that once per function body.
func (b *Builder) Bytes() []byte { return b.buf }

// Len reports how many bytes have been emitted so far, used by lowerers
// that need to patch or inspect emission (e.g. to detect an empty body).
func (b *Builder) Len() int { return len(b.buf) }

// Append splices in an already-built instruction sequence verbatim, used
// to graft one lowerer's output (e.g. a global initializer expression)
// into another builder's stream without re-emitting it.
func (b *Builder) Append(instrs []byte) { b.buf = append(b.buf, instrs...) }

func (b *Builder) op(op Opcode) { b.buf = append(b.buf, byte(op)) }

// I32Const emits i32.const v.
func (b *Builder) I32Const(v int32) {
	b.op(OpcodeI32Const)
	b.buf = putVarint32(b.buf, v)
}

// I64Const emits i64.const v.
func (b *Builder) I64Const(v int64) {
	b.op(OpcodeI64Const)
	b.buf = putVarint64(b.buf, v)
}

// F32Const emits f32.const v.
func (b *Builder) F32Const(v float32) {
	b.op(OpcodeF32Const)
	b.buf = putFloat32(b.buf, v)
}

// F64Const emits f64.const v.
func (b *Builder) F64Const(v float64) {
	b.op(OpcodeF64Const)
	b.buf = putFloat64(b.buf, v)
}

// LocalGet emits local.get idx.
func (b *Builder) LocalGet(idx uint32) { b.op(OpcodeLocalGet); b.buf = putUvarint32(b.buf, idx) }

// LocalSet emits local.set idx.
func (b *Builder) LocalSet(idx uint32) { b.op(OpcodeLocalSet); b.buf = putUvarint32(b.buf, idx) }

// LocalTee emits local.tee idx.
func (b *Builder) LocalTee(idx uint32) { b.op(OpcodeLocalTee); b.buf = putUvarint32(b.buf, idx) }

// GlobalGet emits global.get idx.
func (b *Builder) GlobalGet(idx uint32) { b.op(OpcodeGlobalGet); b.buf = putUvarint32(b.buf, idx) }

// GlobalSet emits global.set idx.
func (b *Builder) GlobalSet(idx uint32) { b.op(OpcodeGlobalSet); b.buf = putUvarint32(b.buf, idx) }

// Op emits a bare opcode with no immediate (binary/unary/comparison ops,
// Unreachable, Nop, Drop, Return).
func (b *Builder) Op(op Opcode) { b.op(op) }

// Block opens a block with the given result type (BlockTypeEmpty for none).
func (b *Builder) Block(result ValueType) { b.op(OpcodeBlock); b.buf = append(b.buf, byte(result)) }

// Loop opens a loop with the given result type.
func (b *Builder) Loop(result ValueType) { b.op(OpcodeLoop); b.buf = append(b.buf, byte(result)) }

// If opens an if with the given result type.
func (b *Builder) If(result ValueType) { b.op(OpcodeIf); b.buf = append(b.buf, byte(result)) }

// Else emits the else delimiter of the innermost open If.
func (b *Builder) Else() { b.op(OpcodeElse) }

// End closes the innermost open Block, Loop or If.
func (b *Builder) End() { b.op(OpcodeEnd) }

// Br emits br depth.
func (b *Builder) Br(depth uint32) { b.op(OpcodeBr); b.buf = putUvarint32(b.buf, depth) }

// BrIf emits br_if depth.
func (b *Builder) BrIf(depth uint32) { b.op(OpcodeBrIf); b.buf = putUvarint32(b.buf, depth) }

// Call emits call funcIndex.
func (b *Builder) Call(funcIndex uint32) { b.op(OpcodeCall); b.buf = putUvarint32(b.buf, funcIndex) }

// Load emits a memory load instruction with the given alignment (as a
// power-of-two exponent) and byte offset.
func (b *Builder) Load(op Opcode, align uint32, offset uint32) {
	b.op(op)
	b.buf = putUvarint32(b.buf, align)
	b.buf = putUvarint32(b.buf, offset)
}

// Store emits a memory store instruction with the given alignment (as a
// power-of-two exponent) and byte offset.
func (b *Builder) Store(op Opcode, align uint32, offset uint32) {
	b.op(op)
	b.buf = putUvarint32(b.buf, align)
	b.buf = putUvarint32(b.buf, offset)
}

// constExprI32 builds a constant initializer expression: i32.const v, end.
// Used for global initializers and as the basis of data/element offsets.
func constExprI32(v int32) []byte {
	b := NewBuilder()
	b.I32Const(v)
	b.End()
	return b.Bytes()
}

// ConstI32 returns a standalone constant-initializer expression for an i32
// global, for use with AddGlobal.
func ConstI32(v int32) []byte { return constExprI32(v) }

// ConstI64 returns a standalone constant-initializer expression for an i64
// global.
func ConstI64(v int64) []byte {
	b := NewBuilder()
	b.I64Const(v)
	b.End()
	return b.Bytes()
}

// ConstF32 returns a standalone constant-initializer expression for an f32
// global.
func ConstF32(v float32) []byte {
	b := NewBuilder()
	b.F32Const(v)
	b.End()
	return b.Bytes()
}

// ConstF64 returns a standalone constant-initializer expression for an f64
// global.
func ConstF64(v float64) []byte {
	b := NewBuilder()
	b.F64Const(v)
	b.End()
	return b.Bytes()
}
