package abi

import (
	"math"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"

	wasmresolver "github.com/wippyai/wasm-resolver"
	"github.com/wippyai/wasm-resolver/errors"
)

// Lift converts the raw core results of a call into a Go value of type t.
// A nil t means the function returns nothing and Lift returns nil.
func Lift(mem wasmresolver.Memory, t wit.Type, raw []uint64) (any, error) {
	if t == nil {
		return nil, nil
	}
	if len(raw) == 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, "missing result value")
	}
	v := raw[0]
	switch t.(type) {
	case wit.Bool:
		return uint32(v) != 0, nil
	case wit.S8:
		return int8(uint32(v)), nil
	case wit.U8:
		return uint8(uint32(v)), nil
	case wit.S16:
		return int16(uint32(v)), nil
	case wit.U16:
		return uint16(uint32(v)), nil
	case wit.S32:
		return int32(uint32(v)), nil
	case wit.U32:
		return uint32(v), nil
	case wit.S64:
		return int64(v), nil
	case wit.U64:
		return v, nil
	case wit.F32:
		return math.Float32frombits(uint32(v)), nil
	case wit.F64:
		return math.Float64frombits(v), nil
	case wit.Char:
		r := rune(uint32(v))
		if !utf8.ValidRune(r) {
			return nil, errors.InvalidData(errors.PhaseDecode, "invalid Unicode scalar value")
		}
		return r, nil
	case wit.String:
		return liftString(mem, uint32(v))
	}
	return nil, errors.Unsupported(errors.PhaseDecode, "WIT type "+TypeName(t))
}

// liftString reads a (ptr, len) pair stored at retptr.
func liftString(mem wasmresolver.Memory, retptr uint32) (string, error) {
	if mem == nil {
		return "", errors.Unsupported(errors.PhaseDecode, "string result without guest memory")
	}
	ptr, err := mem.ReadU32(retptr)
	if err != nil {
		return "", err
	}
	size, err := mem.ReadU32(retptr + 4)
	if err != nil {
		return "", err
	}
	if size == 0 {
		return "", nil
	}
	data, err := mem.Read(ptr, size)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidData(errors.PhaseDecode, "string result is not valid UTF-8")
	}
	return string(data), nil
}
