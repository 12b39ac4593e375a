package ir

import (
	"bytes"
	"fmt"
)

// Decode parses a WebAssembly 1.0 (20191205) binary module previously
// produced by Encode back into a *Module.
//
// Decode only understands the subset of the format this compiler itself
// emits (type, import, function, memory, global, export, start, code
// sections; no table or data/element sections). It exists so allocator
// integration can treat the bundled allocator artifact as a genuinely
// precompiled binary blob rather than a Go value, matching the reflection
// model's description of allocator integration as "reading a precompiled
// allocator binary".
func Decode(data []byte) (*Module, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], wasmMagic) || !bytes.Equal(data[4:8], wasmVersion) {
		return nil, fmt.Errorf("ir: not a wasm module")
	}
	m := NewModule()
	var funcTypeIndices []uint32
	var codeEntries []codeEntry
	var importedFuncCount int

	rest := data[8:]
	for len(rest) > 0 {
		id := SectionID(rest[0])
		size, n, err := decodeUvarint32(rest[1:])
		if err != nil {
			return nil, err
		}
		body := rest[1+n : 1+n+int(size)]
		rest = rest[1+n+int(size):]

		switch id {
		case SectionIDType:
			if err := decodeTypeSection(m, body); err != nil {
				return nil, err
			}
		case SectionIDImport:
			n, err := decodeImportSection(m, body)
			if err != nil {
				return nil, err
			}
			importedFuncCount = n
		case SectionIDFunction:
			funcTypeIndices, err = decodeFunctionSection(body)
			if err != nil {
				return nil, err
			}
		case SectionIDMemory:
			if err := decodeMemorySection(m, body); err != nil {
				return nil, err
			}
		case SectionIDGlobal:
			if err := decodeGlobalSection(m, body); err != nil {
				return nil, err
			}
		case SectionIDExport:
			if err := decodeExportSection(m, body); err != nil {
				return nil, err
			}
		case SectionIDStart:
			idx, _, err := decodeUvarint32(body)
			if err != nil {
				return nil, err
			}
			m.SetStart(idx)
		case SectionIDCode:
			codeEntries, err = decodeCodeSection(body)
			if err != nil {
				return nil, err
			}
		default:
			// Custom and other unsupported sections are skipped.
		}
	}

	if len(funcTypeIndices) != len(codeEntries) {
		return nil, fmt.Errorf("ir: function/code section length mismatch")
	}
	_ = importedFuncCount
	for i, typeIdx := range funcTypeIndices {
		ft := m.types[typeIdx]
		_, f := m.AddFunction(*ft, "")
		f.Locals = codeEntries[i].locals
		f.Body = codeEntries[i].body
	}
	return m, nil
}

// codeEntry is one decoded function body: its local declarations, expanded
// to one entry per slot, and its instruction bytes (terminating OpcodeEnd
// stripped, since Module.Encode re-adds it).
type codeEntry struct {
	locals []ValueType
	body   []byte
}

func decodeTypeSection(m *Module, body []byte) error {
	count, n, err := decodeUvarint32(body)
	if err != nil {
		return err
	}
	body = body[n:]
	for i := uint32(0); i < count; i++ {
		if len(body) == 0 || body[0] != 0x60 {
			return fmt.Errorf("ir: expected functype form")
		}
		body = body[1:]
		var ft FunctionType
		ft.Params, body, err = decodeValueTypes(body)
		if err != nil {
			return err
		}
		ft.Results, body, err = decodeValueTypes(body)
		if err != nil {
			return err
		}
		m.AddType(ft)
	}
	return nil
}

func decodeValueTypes(body []byte) ([]ValueType, []byte, error) {
	count, n, err := decodeUvarint32(body)
	if err != nil {
		return nil, nil, err
	}
	body = body[n:]
	vts := make([]ValueType, count)
	for i := uint32(0); i < count; i++ {
		if len(body) == 0 {
			return nil, nil, fmt.Errorf("ir: truncated value type list")
		}
		vts[i] = ValueType(body[0])
		body = body[1:]
	}
	return vts, body, nil
}

func decodeImportSection(m *Module, body []byte) (funcCount int, err error) {
	count, n, err := decodeUvarint32(body)
	if err != nil {
		return 0, err
	}
	body = body[n:]
	for i := uint32(0); i < count; i++ {
		var moduleName, name string
		moduleName, body, err = decodeString(body)
		if err != nil {
			return 0, err
		}
		name, body, err = decodeString(body)
		if err != nil {
			return 0, err
		}
		if len(body) == 0 {
			return 0, fmt.Errorf("ir: truncated import")
		}
		kind := ExternType(body[0])
		body = body[1:]
		switch kind {
		case ExternTypeFunc:
			typeIdx, nn, e := decodeUvarint32(body)
			if e != nil {
				return 0, e
			}
			body = body[nn:]
			m.AddImportedFunction(moduleName, name, *m.types[typeIdx])
			funcCount++
		case ExternTypeGlobal:
			if len(body) < 2 {
				return 0, fmt.Errorf("ir: truncated global import")
			}
			vt := ValueType(body[0])
			mutable := body[1] == 0x01
			body = body[2:]
			m.AddImportedGlobal(moduleName, name, vt, mutable)
		case ExternTypeMemory:
			min, max, hasMax, nn, e := decodeLimits(body)
			if e != nil {
				return 0, e
			}
			body = body[nn:]
			m.ImportMemory(moduleName, name, min, max, hasMax)
		default:
			return 0, fmt.Errorf("ir: unsupported import kind %#x", kind)
		}
	}
	return funcCount, nil
}

func decodeFunctionSection(body []byte) ([]uint32, error) {
	count, n, err := decodeUvarint32(body)
	if err != nil {
		return nil, err
	}
	body = body[n:]
	out := make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		idx, nn, err := decodeUvarint32(body)
		if err != nil {
			return nil, err
		}
		body = body[nn:]
		out[i] = idx
	}
	return out, nil
}

func decodeMemorySection(m *Module, body []byte) error {
	count, n, err := decodeUvarint32(body)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	body = body[n:]
	min, max, hasMax, _, err := decodeLimits(body)
	if err != nil {
		return err
	}
	m.SetMemory(min, max, hasMax)
	return nil
}

func decodeGlobalSection(m *Module, body []byte) error {
	count, n, err := decodeUvarint32(body)
	if err != nil {
		return err
	}
	body = body[n:]
	for i := uint32(0); i < count; i++ {
		if len(body) < 2 {
			return fmt.Errorf("ir: truncated global")
		}
		vt := ValueType(body[0])
		mutable := body[1] == 0x01
		body = body[2:]
		init, rest, err := decodeConstExpr(body)
		if err != nil {
			return err
		}
		body = rest
		m.AddGlobal(vt, mutable, init)
	}
	return nil
}

// decodeConstExpr copies bytes up to and including the terminating
// OpcodeEnd, treating nested block constructs as unsupported since global
// initializers are restricted to a single const instruction in this
// compiler's output.
func decodeConstExpr(body []byte) (init []byte, rest []byte, err error) {
	for i, b := range body {
		if Opcode(b) == OpcodeEnd {
			return body[:i+1], body[i+1:], nil
		}
	}
	return nil, nil, fmt.Errorf("ir: unterminated const expr")
}

func decodeExportSection(m *Module, body []byte) error {
	count, n, err := decodeUvarint32(body)
	if err != nil {
		return err
	}
	body = body[n:]
	for i := uint32(0); i < count; i++ {
		var name string
		name, body, err = decodeString(body)
		if err != nil {
			return err
		}
		if len(body) == 0 {
			return fmt.Errorf("ir: truncated export")
		}
		kind := ExternType(body[0])
		body = body[1:]
		idx, nn, err := decodeUvarint32(body)
		if err != nil {
			return err
		}
		body = body[nn:]
		m.AddExport(name, kind, idx)
	}
	return nil
}

func decodeCodeSection(body []byte) ([]codeEntry, error) {
	count, n, err := decodeUvarint32(body)
	if err != nil {
		return nil, err
	}
	body = body[n:]
	out := make([]codeEntry, count)
	for i := uint32(0); i < count; i++ {
		size, nn, err := decodeUvarint32(body)
		if err != nil {
			return nil, err
		}
		entry := body[nn : nn+int(size)]
		body = body[nn+int(size):]

		localCount, ln, err := decodeUvarint32(entry)
		if err != nil {
			return nil, err
		}
		entry = entry[ln:]
		var locals []ValueType
		for j := uint32(0); j < localCount; j++ {
			runLen, rn, err := decodeUvarint32(entry)
			if err != nil {
				return nil, err
			}
			entry = entry[rn:]
			if len(entry) == 0 {
				return nil, fmt.Errorf("ir: truncated locals")
			}
			t := ValueType(entry[0])
			entry = entry[1:]
			for k := uint32(0); k < runLen; k++ {
				locals = append(locals, t)
			}
		}
		// entry now holds body bytes including the trailing OpcodeEnd;
		// strip it since Module.Encode re-adds it.
		if len(entry) == 0 || Opcode(entry[len(entry)-1]) != OpcodeEnd {
			return nil, fmt.Errorf("ir: function body missing terminating end")
		}
		out[i] = codeEntry{locals: locals, body: entry[:len(entry)-1]}
	}
	return out, nil
}

func decodeString(body []byte) (string, []byte, error) {
	l, n, err := decodeUvarint32(body)
	if err != nil {
		return "", nil, err
	}
	body = body[n:]
	if len(body) < int(l) {
		return "", nil, fmt.Errorf("ir: truncated name")
	}
	return string(body[:l]), body[l:], nil
}

func decodeLimits(body []byte) (min, max uint32, hasMax bool, consumed int, err error) {
	if len(body) == 0 {
		return 0, 0, false, 0, fmt.Errorf("ir: truncated limits")
	}
	flag := body[0]
	body = body[1:]
	consumed = 1
	min, n, err := decodeUvarint32(body)
	if err != nil {
		return 0, 0, false, 0, err
	}
	body = body[n:]
	consumed += n
	if flag == 0x01 {
		max, n, err = decodeUvarint32(body)
		if err != nil {
			return 0, 0, false, 0, err
		}
		consumed += n
		hasMax = true
	}
	return min, max, hasMax, consumed, nil
}
