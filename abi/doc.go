// Package abi maps Go values onto WIT scalar types and the canonical ABI
// core representation used by library exports.
//
// Matching is exact: a Go value is accepted for a WIT type only when its
// dynamic type maps to that WIT type. No numeric widening or narrowing is
// performed.
//
//	bool     -> bool      uint32       -> u32
//	int8     -> s8        int64, int   -> s64
//	uint8    -> u8        uint64, uint -> u64
//	int16    -> s16       float32      -> f32
//	uint16   -> u16       float64      -> f64
//	int32    -> s32, char string       -> string
//
// Strings are lowered into guest memory through the library allocator and
// passed as (ptr, len). Results that flatten to more than one core value are
// returned through a pointer to guest memory.
package abi
