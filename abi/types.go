package abi

import (
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-resolver/errors"
)

// MaxFlatParams and MaxFlatResults are the canonical ABI flattening limits.
const (
	MaxFlatParams  = 16
	MaxFlatResults = 1
)

// TypeOf returns the WIT type a Go value maps to, or nil if the value has no
// WIT counterpart.
func TypeOf(v any) wit.Type {
	switch v.(type) {
	case bool:
		return wit.Bool{}
	case int8:
		return wit.S8{}
	case uint8:
		return wit.U8{}
	case int16:
		return wit.S16{}
	case uint16:
		return wit.U16{}
	case int32:
		return wit.S32{}
	case uint32:
		return wit.U32{}
	case int64, int:
		return wit.S64{}
	case uint64, uint:
		return wit.U64{}
	case float32:
		return wit.F32{}
	case float64:
		return wit.F64{}
	case string:
		return wit.String{}
	}
	return nil
}

// Accepts reports whether v may be passed where t is expected.
func Accepts(t wit.Type, v any) bool {
	if t == nil {
		return false
	}
	if _, ok := t.(wit.Char); ok {
		_, isRune := v.(rune)
		return isRune
	}
	got := TypeOf(v)
	return got != nil && TypeName(got) == TypeName(t)
}

// Parse parses a WIT scalar type name such as "s32" or "string".
func Parse(s string) (wit.Type, error) {
	t, err := wit.ParseType(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.ParseFailed("WIT type "+s, err)
	}
	if !Supported(t) {
		return nil, errors.Unsupported(errors.PhaseParse, "WIT type "+s)
	}
	return t, nil
}

// Supported reports whether t is a type this package can lower and lift.
func Supported(t wit.Type) bool {
	switch t.(type) {
	case wit.Bool, wit.S8, wit.U8, wit.S16, wit.U16, wit.S32, wit.U32,
		wit.S64, wit.U64, wit.F32, wit.F64, wit.Char, wit.String:
		return true
	}
	return false
}

// TypeName returns the WIT spelling of t.
func TypeName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S8:
		return "s8"
	case wit.U8:
		return "u8"
	case wit.S16:
		return "s16"
	case wit.U16:
		return "u16"
	case wit.S32:
		return "s32"
	case wit.U32:
		return "u32"
	case wit.S64:
		return "s64"
	case wit.U64:
		return "u64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case nil:
		return "unknown"
	}
	return "unsupported"
}

// GoTypeName names the Go dynamic type of v for error messages.
func GoTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case bool:
		return "bool"
	case int8:
		return "int8"
	case uint8:
		return "uint8"
	case int16:
		return "int16"
	case uint16:
		return "uint16"
	case int32:
		return "int32"
	case uint32:
		return "uint32"
	case int64:
		return "int64"
	case int:
		return "int"
	case uint64:
		return "uint64"
	case uint:
		return "uint"
	case float32:
		return "float32"
	case float64:
		return "float64"
	case string:
		return "string"
	}
	return "unsupported"
}

// FromCore returns the default WIT type for a core value type, used when a
// library ships no WIT description.
func FromCore(vt api.ValueType) wit.Type {
	switch vt {
	case api.ValueTypeI32:
		return wit.S32{}
	case api.ValueTypeI64:
		return wit.S64{}
	case api.ValueTypeF32:
		return wit.F32{}
	case api.ValueTypeF64:
		return wit.F64{}
	}
	return nil
}

// Flatten returns the core value types a parameter of type t occupies.
func Flatten(t wit.Type) ([]api.ValueType, error) {
	switch t.(type) {
	case wit.Bool, wit.S8, wit.U8, wit.S16, wit.U16, wit.S32, wit.U32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}, nil
	case wit.S64, wit.U64:
		return []api.ValueType{api.ValueTypeI64}, nil
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}, nil
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}, nil
	case wit.String:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil
	}
	return nil, errors.Unsupported(errors.PhaseEncode, "WIT type "+TypeName(t))
}

// FlattenParams flattens a parameter list. Lists longer than MaxFlatParams
// are passed through a single pointer.
func FlattenParams(types []wit.Type) ([]api.ValueType, error) {
	var flat []api.ValueType
	for _, t := range types {
		f, err := Flatten(t)
		if err != nil {
			return nil, err
		}
		flat = append(flat, f...)
	}
	if len(flat) > MaxFlatParams {
		return []api.ValueType{api.ValueTypeI32}, nil
	}
	return flat, nil
}

// FlattenResult flattens an optional result type.
func FlattenResult(t wit.Type) ([]api.ValueType, error) {
	if t == nil {
		return nil, nil
	}
	flat, err := Flatten(t)
	if err != nil {
		return nil, err
	}
	if len(flat) > MaxFlatResults {
		return []api.ValueType{api.ValueTypeI32}, nil
	}
	return flat, nil
}

// UsesRetptr reports whether a result of type t is returned through memory.
func UsesRetptr(t wit.Type) bool {
	flat, err := Flatten(t)
	return err == nil && len(flat) > MaxFlatResults
}
