// Package demolib assembles the "mathlib" demo library used by tests and
// examples. It exports a static math interface, a counter resource with a
// constructor and destructor, a constructor that traps, and a world-level
// string function.
package demolib

import (
	"github.com/tetratelabs/wazero/api"

	wb "github.com/wippyai/wasm-resolver/internal/wasmbuild"
)

// The library imports one host function, called by say-hi and by the
// counter destructor.
const (
	LogModule = "env"
	LogFunc   = "log"
)

// Values passed to the log import.
const (
	HelloValue    = 7
	PostEchoValue = 99
)

// Type names defined by the library when described by WIT.
const (
	World   = "mathlib"
	Math    = "m:lib/math@1.0.0"
	Shapes  = "m:lib/shapes@1.0.0"
	Counter = "m:lib/shapes@1.0.0#counter"
	Broken  = "m:lib/shapes@1.0.0#broken"
)

// WIT describes the library exports.
const WIT = `package m:lib@1.0.0;

/// Arithmetic helpers.
@since(version = 1.0.0)
interface math {
    type amount = s32;

    /// Adds two numbers.
    plus: func(a: s32, b: s32) -> s32;
    plus-wide: func(a: s64, b: s64) -> s64;
    scale: func(x: f64, factor: f64) -> f64;
    say-hi: func();
    fail: func();
}

interface shapes {
    record point {
        x: s32,
        y: s32,
    }

    /// A running total.
    @unstable(feature = counters)
    resource counter {
        constructor(start: s32);
        get: func() -> s32;
        add: func(delta: s32) -> s32;
        zero: static func() -> s32;
    }

    resource broken {
        constructor();
    }
}

world mathlib {
    import env: interface {
        log: func(value: s32);
    }

    export math;
    export shapes;

    /// Returns its input.
    export echo: func(s: string) -> string;
}
`

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

func vt(types ...api.ValueType) []api.ValueType {
	return types
}

// Wasm returns the core module binary.
func Wasm() []byte {
	m := wb.New().Name(World)

	log := m.Import(LogModule, LogFunc, vt(i32), nil)
	m.Memory(1, "memory")
	heap := m.GlobalI32(1024, true)
	count := m.GlobalI32(0, true)

	// bump allocator, alignment is not needed by any caller of this library
	m.ExportFunc("cabi_realloc", vt(i32, i32, i32, i32), vt(i32), wb.Body(
		wb.GlobalGet(heap),
		wb.GlobalGet(heap), wb.LocalGet(3), wb.I32Add(), wb.GlobalSet(heap),
	))

	m.ExportFunc(Math+"#plus", vt(i32, i32), vt(i32), wb.Body(
		wb.LocalGet(0), wb.LocalGet(1), wb.I32Add(),
	))
	m.ExportFunc(Math+"#plus-wide", vt(i64, i64), vt(i64), wb.Body(
		wb.LocalGet(0), wb.LocalGet(1), wb.I64Add(),
	))
	m.ExportFunc(Math+"#scale", vt(f64, f64), vt(f64), wb.Body(
		wb.LocalGet(0), wb.LocalGet(1), wb.F64Mul(),
	))
	m.ExportFunc(Math+"#say-hi", nil, nil, wb.Body(
		wb.I32Const(HelloValue), wb.Call(log),
	))
	m.ExportFunc(Math+"#fail", nil, nil, wb.Body(wb.Unreachable()))

	m.ExportFunc(Shapes+"#[constructor]counter", vt(i32), vt(i32), wb.Body(
		wb.LocalGet(0), wb.GlobalSet(count), wb.I32Const(1),
	))
	m.ExportFunc(Shapes+"#[method]counter.get", vt(i32), vt(i32), wb.Body(
		wb.GlobalGet(count),
	))
	m.ExportFunc(Shapes+"#[method]counter.add", vt(i32, i32), vt(i32), wb.Body(
		wb.GlobalGet(count), wb.LocalGet(1), wb.I32Add(), wb.GlobalSet(count),
		wb.GlobalGet(count),
	))
	m.ExportFunc(Shapes+"#[static]counter.zero", nil, vt(i32), wb.Body(wb.I32Const(0)))
	m.ExportFunc(Shapes+"#[resource-drop]counter", vt(i32), nil, wb.Body(
		wb.LocalGet(0), wb.Call(log),
	))
	m.ExportFunc(Shapes+"#[constructor]broken", nil, vt(i32), wb.Body(wb.Unreachable()))

	// echo stores (ptr, len) of its argument at address 0 and returns it
	m.ExportFunc("echo", vt(i32, i32), vt(i32), wb.Body(
		wb.I32Const(0), wb.LocalGet(0), wb.I32Store(0),
		wb.I32Const(0), wb.LocalGet(1), wb.I32Store(4),
		wb.I32Const(0),
	))
	m.ExportFunc("cabi_post_echo", vt(i32), nil, wb.Body(
		wb.I32Const(PostEchoValue), wb.Call(log),
	))

	return m.Bytes()
}
