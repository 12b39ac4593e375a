package ir

import "strings"

// ValueType is a WebAssembly value type, encoded the same way wazero's
// api.ValueType is: the single byte used on the wire.
type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

// BlockTypeEmpty is the "no result" block type immediate.
const BlockTypeEmpty ValueType = 0x40

// String returns the WebAssembly text format name of t.
func (t ValueType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return "unknown"
	}
}

// code returns the single-character signature code for t, used to build the
// short keys that index Module's signature cache (see FunctionType.Key).
func (t ValueType) code() byte {
	switch t {
	case ValueTypeI32:
		return 'i'
	case ValueTypeI64:
		return 'l'
	case ValueTypeF32:
		return 'f'
	case ValueTypeF64:
		return 'd'
	default:
		return '?'
	}
}

// FunctionType is a function signature: an ordered list of parameter types
// and an ordered list of result types. WebAssembly 1.0 (MVP) restricts
// Results to at most one entry.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// Key returns a short, deterministic string uniquely identifying the
// signature, used both as the Module de-duplication key for the type
// section and as the public key applications use to look up a signature
// (the "ii", "Iv", "v"-shaped strings named in the reflection model).
//
// The encoding is: one code byte per parameter, then '_', then one code
// byte per result (or nothing for void). Ex. two int params returning an
// int is "ii_i"; one long param returning void is "l_"; no params or
// results is "_".
func (t *FunctionType) Key() string {
	var b strings.Builder
	for _, p := range t.Params {
		b.WriteByte(p.code())
	}
	b.WriteByte('_')
	for _, r := range t.Results {
		b.WriteByte(r.code())
	}
	return b.String()
}

func (t *FunctionType) equal(o *FunctionType) bool {
	return t.Key() == o.Key()
}

// ExternType classifies an import or export.
type ExternType byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// SectionID identifies a WebAssembly module section.
type SectionID byte

const (
	SectionIDCustom   SectionID = 0
	SectionIDType     SectionID = 1
	SectionIDImport   SectionID = 2
	SectionIDFunction SectionID = 3
	SectionIDTable    SectionID = 4
	SectionIDMemory   SectionID = 5
	SectionIDGlobal   SectionID = 6
	SectionIDExport   SectionID = 7
	SectionIDStart    SectionID = 8
	SectionIDElement  SectionID = 9
	SectionIDCode     SectionID = 10
	SectionIDData     SectionID = 11
)
