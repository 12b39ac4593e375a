// Package ir is the WebAssembly module builder this compiler lowers into.
//
// It plays the role that a "binaryen"-style IR builder plays in the original
// system: a standalone, opaque module object with instruction factories that
// know nothing about the surface language. It is adapted from the section
// and value-type vocabulary of wazero's internal/wasm and internal/leb128
// packages, encoding directly to the WebAssembly 1.0 (MVP) binary format
// instead of wrapping a decoded in-memory instruction tree, since every
// control instruction this compiler emits (block/loop/if/br) is already
// linear in the binary format.
package ir

import (
	"encoding/binary"
	"io"
	"math"
)

// putUvarint32 appends the LEB128 unsigned encoding of v to buf.
func putUvarint32(buf []byte, v uint32) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// putUvarint64 appends the LEB128 unsigned encoding of v to buf.
func putUvarint64(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// putVarint32 appends the LEB128 signed encoding of v to buf.
func putVarint32(buf []byte, v int32) []byte {
	return putVarint64(buf, int64(v))
}

// putVarint64 appends the LEB128 signed encoding of v to buf.
func putVarint64(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

func putFloat32(buf []byte, v float32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	return append(buf, tmp[:]...)
}

func putFloat64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

// decodeUvarint32 reads a LEB128 unsigned 32-bit value, returning the value
// and the number of bytes consumed.
func decodeUvarint32(b []byte) (uint32, int, error) {
	var result uint32
	var shift uint
	for i, c := range b {
		if shift >= 32 {
			return 0, 0, io.ErrUnexpectedEOF
		}
		result |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, io.ErrUnexpectedEOF
}

func decodeUvarint64(b []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i, c := range b {
		if shift >= 64 {
			return 0, 0, io.ErrUnexpectedEOF
		}
		result |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, io.ErrUnexpectedEOF
}

func decodeVarint32(b []byte) (int32, int, error) {
	v, n, err := decodeVarint64(b)
	return int32(v), n, err
}

func decodeVarint64(b []byte) (int64, int, error) {
	var result int64
	var shift uint
	var i int
	var c byte
	for i = 0; i < len(b); i++ {
		c = b[i]
		result |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			break
		}
	}
	if i == len(b) && c&0x80 != 0 {
		return 0, 0, io.ErrUnexpectedEOF
	}
	if shift < 64 && c&0x40 != 0 {
		result |= -1 << shift
	}
	return result, i + 1, nil
}

func decodeFloat32(b []byte) (float32, error) {
	if len(b) < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func decodeFloat64(b []byte) (float64, error) {
	if len(b) < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}
