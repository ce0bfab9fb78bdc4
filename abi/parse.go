package abi

import (
	"strconv"
	"unicode/utf8"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-resolver/errors"
)

// ParseArg converts textual input into the Go value that t accepts.
func ParseArg(text string, t wit.Type) (any, error) {
	fail := func(err error) error {
		return errors.New(errors.PhaseParse, errors.KindInvalidArgument).
			WitType(TypeName(t)).
			Cause(err).
			Detail("cannot parse %q", text).
			Build()
	}

	switch t.(type) {
	case wit.String:
		return text, nil
	case wit.Bool:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fail(err)
		}
		return v, nil
	case wit.Char:
		r, size := utf8.DecodeRuneInString(text)
		if size == 0 || size != len(text) || (r == utf8.RuneError && size == 1) {
			return nil, fail(nil)
		}
		return r, nil
	case wit.S8:
		v, err := strconv.ParseInt(text, 10, 8)
		if err != nil {
			return nil, fail(err)
		}
		return int8(v), nil
	case wit.S16:
		v, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return nil, fail(err)
		}
		return int16(v), nil
	case wit.S32:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, fail(err)
		}
		return int32(v), nil
	case wit.S64:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fail(err)
		}
		return v, nil
	case wit.U8:
		v, err := strconv.ParseUint(text, 10, 8)
		if err != nil {
			return nil, fail(err)
		}
		return uint8(v), nil
	case wit.U16:
		v, err := strconv.ParseUint(text, 10, 16)
		if err != nil {
			return nil, fail(err)
		}
		return uint16(v), nil
	case wit.U32:
		v, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return nil, fail(err)
		}
		return uint32(v), nil
	case wit.U64:
		v, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, fail(err)
		}
		return v, nil
	case wit.F32:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, fail(err)
		}
		return float32(v), nil
	case wit.F64:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fail(err)
		}
		return v, nil
	}
	return nil, errors.Unsupported(errors.PhaseParse, "WIT type "+TypeName(t))
}
