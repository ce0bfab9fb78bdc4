package abi

import (
	"context"
	"math"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"

	wasmresolver "github.com/wippyai/wasm-resolver"
	"github.com/wippyai/wasm-resolver/errors"
)

// MaxStringSize bounds strings lowered into guest memory.
const MaxStringSize = 1 << 28

// Lower converts args into flat core values for the given parameter types.
// Every argument must be accepted by its type.
func Lower(ctx context.Context, env wasmresolver.Env, types []wit.Type, args []any) ([]uint64, error) {
	if len(types) != len(args) {
		return nil, errors.InvalidArgument(errors.PhaseEncode, "argument count mismatch")
	}
	flat := make([]uint64, 0, len(args))
	for i, t := range types {
		var err error
		flat, err = lowerValue(ctx, env, t, args[i], flat)
		if err != nil {
			return nil, err
		}
	}
	return flat, nil
}

func lowerValue(ctx context.Context, env wasmresolver.Env, t wit.Type, v any, flat []uint64) ([]uint64, error) {
	if !Accepts(t, v) {
		return nil, errors.TypeMismatch(errors.PhaseEncode, "", GoTypeName(v), TypeName(t))
	}
	switch val := v.(type) {
	case bool:
		if val {
			return append(flat, 1), nil
		}
		return append(flat, 0), nil
	case int8:
		return append(flat, uint64(uint32(int32(val)))), nil
	case uint8:
		return append(flat, uint64(val)), nil
	case int16:
		return append(flat, uint64(uint32(int32(val)))), nil
	case uint16:
		return append(flat, uint64(val)), nil
	case int32:
		if _, isChar := t.(wit.Char); isChar && !utf8.ValidRune(val) {
			return nil, errors.InvalidData(errors.PhaseEncode, "invalid Unicode scalar value")
		}
		return append(flat, uint64(uint32(val))), nil
	case uint32:
		return append(flat, uint64(val)), nil
	case int64:
		return append(flat, uint64(val)), nil
	case int:
		return append(flat, uint64(int64(val))), nil
	case uint64:
		return append(flat, val), nil
	case uint:
		return append(flat, uint64(val)), nil
	case float32:
		return append(flat, uint64(math.Float32bits(val))), nil
	case float64:
		return append(flat, math.Float64bits(val)), nil
	case string:
		return lowerString(ctx, env, val, flat)
	}
	return nil, errors.Unsupported(errors.PhaseEncode, "Go type "+GoTypeName(v))
}

func lowerString(ctx context.Context, env wasmresolver.Env, s string, flat []uint64) ([]uint64, error) {
	if !utf8.ValidString(s) {
		return nil, errors.InvalidData(errors.PhaseEncode, "string is not valid UTF-8")
	}
	size := uint32(len(s))
	if len(s) > MaxStringSize {
		return nil, errors.InvalidData(errors.PhaseEncode, "string exceeds maximum size")
	}
	if size == 0 {
		return append(flat, 0, 0), nil
	}
	if env == nil {
		return nil, errors.Unsupported(errors.PhaseEncode, "string argument without guest memory")
	}
	ptr, err := env.Alloc(ctx, size, 1)
	if err != nil {
		return nil, err
	}
	if err := env.Write(ptr, []byte(s)); err != nil {
		return nil, err
	}
	return append(flat, uint64(ptr), uint64(size)), nil
}
