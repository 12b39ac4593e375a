package ir

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}
var wasmVersion = []byte{0x01, 0x00, 0x00, 0x00}

// Encode serializes m as a WebAssembly 1.0 (20191205) binary module.
func (m *Module) Encode() []byte {
	out := append([]byte{}, wasmMagic...)
	out = append(out, wasmVersion...)

	if len(m.types) > 0 {
		out = appendSection(out, SectionIDType, m.encodeTypeSection())
	}
	if body := m.encodeImportSection(); body != nil {
		out = appendSection(out, SectionIDImport, body)
	}
	if body := m.encodeFunctionSection(); body != nil {
		out = appendSection(out, SectionIDFunction, body)
	}
	if body := m.encodeMemorySection(); body != nil {
		out = appendSection(out, SectionIDMemory, body)
	}
	if body := m.encodeGlobalSection(); body != nil {
		out = appendSection(out, SectionIDGlobal, body)
	}
	if body := m.encodeExportSection(); body != nil {
		out = appendSection(out, SectionIDExport, body)
	}
	if m.HasStart {
		out = appendSection(out, SectionIDStart, putUvarint32(nil, m.Start))
	}
	if body := m.encodeCodeSection(); body != nil {
		out = appendSection(out, SectionIDCode, body)
	}
	return out
}

func appendSection(out []byte, id SectionID, body []byte) []byte {
	out = append(out, byte(id))
	out = putUvarint32(out, uint32(len(body)))
	return append(out, body...)
}

func (m *Module) encodeTypeSection() []byte {
	var body []byte
	body = putUvarint32(body, uint32(len(m.types)))
	for _, ft := range m.types {
		body = append(body, 0x60) // functype form
		body = putUvarint32(body, uint32(len(ft.Params)))
		for _, p := range ft.Params {
			body = append(body, byte(p))
		}
		body = putUvarint32(body, uint32(len(ft.Results)))
		for _, r := range ft.Results {
			body = append(body, byte(r))
		}
	}
	return body
}

func (m *Module) encodeImportSection() []byte {
	var count uint32
	var body []byte
	for _, f := range m.Funcs {
		if !f.Import {
			continue
		}
		count++
		body = encodeName(body, f.ModuleName)
		body = encodeName(body, f.Name)
		body = append(body, byte(ExternTypeFunc))
		body = putUvarint32(body, f.Type.Index)
	}
	for _, g := range m.Globals {
		if !g.Import {
			continue
		}
		count++
		body = encodeName(body, g.ModuleName)
		body = encodeName(body, g.Name)
		body = append(body, byte(ExternTypeGlobal))
		body = append(body, byte(g.Type))
		body = append(body, mutByte(g.Mutable))
	}
	if m.ImportedMemory != nil {
		count++
		im := m.ImportedMemory
		body = encodeName(body, im.ModuleName)
		body = encodeName(body, im.Name)
		body = append(body, byte(ExternTypeMemory))
		body = encodeLimits(body, im.Min, im.Max, im.HasMax)
	}
	if count == 0 {
		return nil
	}
	return append(putUvarint32(nil, count), body...)
}

func (m *Module) encodeFunctionSection() []byte {
	var indices []uint32
	for _, f := range m.Funcs {
		if !f.Import {
			indices = append(indices, f.Type.Index)
		}
	}
	if len(indices) == 0 {
		return nil
	}
	body := putUvarint32(nil, uint32(len(indices)))
	for _, idx := range indices {
		body = putUvarint32(body, idx)
	}
	return body
}

func (m *Module) encodeMemorySection() []byte {
	if m.Memory == nil {
		return nil
	}
	body := putUvarint32(nil, 1)
	body = encodeLimits(body, m.Memory.Min, m.Memory.Max, m.Memory.HasMax)
	return body
}

func (m *Module) encodeGlobalSection() []byte {
	var count uint32
	var body []byte
	for _, g := range m.Globals {
		if g.Import {
			continue
		}
		count++
		body = append(body, byte(g.Type))
		body = append(body, mutByte(g.Mutable))
		body = append(body, g.Init...)
	}
	if count == 0 {
		return nil
	}
	return append(putUvarint32(nil, count), body...)
}

func (m *Module) encodeExportSection() []byte {
	if len(m.Exports) == 0 {
		return nil
	}
	body := putUvarint32(nil, uint32(len(m.Exports)))
	for _, e := range m.Exports {
		body = encodeName(body, e.Name)
		body = append(body, byte(e.Kind))
		body = putUvarint32(body, e.Index)
	}
	return body
}

func (m *Module) encodeCodeSection() []byte {
	var count uint32
	var body []byte
	for _, f := range m.Funcs {
		if f.Import {
			continue
		}
		count++
		fb := encodeLocals(f.Locals)
		fb = append(fb, f.Body...)
		fb = append(fb, byte(OpcodeEnd))
		body = putUvarint32(body, uint32(len(fb)))
		body = append(body, fb...)
	}
	if count == 0 {
		return nil
	}
	return append(putUvarint32(nil, count), body...)
}

// encodeLocals groups consecutive identical local types into (count, type)
// runs, as the binary format requires.
func encodeLocals(locals []ValueType) []byte {
	type run struct {
		t ValueType
		n uint32
	}
	var runs []run
	for _, t := range locals {
		if len(runs) > 0 && runs[len(runs)-1].t == t {
			runs[len(runs)-1].n++
		} else {
			runs = append(runs, run{t: t, n: 1})
		}
	}
	out := putUvarint32(nil, uint32(len(runs)))
	for _, r := range runs {
		out = putUvarint32(out, r.n)
		out = append(out, byte(r.t))
	}
	return out
}

func encodeName(buf []byte, s string) []byte {
	buf = putUvarint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func encodeLimits(buf []byte, min, max uint32, hasMax bool) []byte {
	if hasMax {
		buf = append(buf, 0x01)
		buf = putUvarint32(buf, min)
		buf = putUvarint32(buf, max)
	} else {
		buf = append(buf, 0x00)
		buf = putUvarint32(buf, min)
	}
	return buf
}

func mutByte(mutable bool) byte {
	if mutable {
		return 0x01
	}
	return 0x00
}
