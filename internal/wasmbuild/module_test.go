package wasmbuild

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestAppendLEB128(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"u32 zero", appendU32(nil, 0), []byte{0x00}},
		{"u32 small", appendU32(nil, 127), []byte{0x7f}},
		{"u32 two bytes", appendU32(nil, 128), []byte{0x80, 0x01}},
		{"u32 max", appendU32(nil, 0xffffffff), []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
		{"i64 zero", appendI64(nil, 0), []byte{0x00}},
		{"i64 minus one", appendI64(nil, -1), []byte{0x7f}},
		{"i64 64", appendI64(nil, 64), []byte{0xc0, 0x00}},
		{"i64 minus 128", appendI64(nil, -128), []byte{0x80, 0x7f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("encoding (-want +got):\n%s", diff)
			}
		})
	}
}

func TestModule_Compiles(t *testing.T) {
	ctx := context.Background()
	i32, i64, f64 := api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF64

	m := New().Name("sample")
	host := m.Import("env", "tick", []api.ValueType{i32}, nil)
	m.Memory(1, "memory")
	g := m.GlobalI32(-5, true)
	m.ExportFunc("add", []api.ValueType{i32, i32}, []api.ValueType{i32}, Body(
		LocalGet(0), LocalGet(1), I32Add(),
	))
	m.ExportFunc("wide", nil, []api.ValueType{i64}, Body(I64Const(1<<40), I64Const(2), I64Add()))
	m.ExportFunc("half", []api.ValueType{f64}, []api.ValueType{f64}, Body(LocalGet(0), F64Const(0.5), F64Mul()))
	m.ExportFunc("global", nil, []api.ValueType{i32}, Body(GlobalGet(g)))
	m.ExportFunc("store", []api.ValueType{i32}, []api.ValueType{i32}, Body(
		I32Const(16), LocalGet(0), I32Store(0),
		I32Const(16), I32Load(0),
	))
	m.ExportFunc("tick", nil, nil, Body(I32Const(1), Call(host)))
	tmp := m.Func([]api.ValueType{i32}, []api.ValueType{i32}, []api.ValueType{i32}, Body(
		LocalGet(0), LocalSet(1), LocalGet(1), I32Const(2), I32Mul(),
	))
	m.ExportFunc("double", []api.ValueType{i32}, []api.ValueType{i32}, Body(LocalGet(0), Call(tmp)))

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var ticks []uint32
	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(v uint32) { ticks = append(ticks, v) }).
		Export("tick").
		Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}

	compiled, err := rt.CompileModule(ctx, m.Bytes())
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	if compiled.Name() != "sample" {
		t.Errorf("module name = %q", compiled.Name())
	}
	if _, ok := compiled.ExportedMemories()["memory"]; !ok {
		t.Error("memory not exported")
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("sample"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		params []uint64
		want   uint64
	}{
		{"add", []uint64{2, 40}, 42},
		{"wide", nil, 1<<40 + 2},
		{"half", []uint64{api.EncodeF64(7)}, api.EncodeF64(3.5)},
		{"global", nil, api.EncodeI32(-5)},
		{"store", []uint64{1234}, 1234},
		{"double", []uint64{21}, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := mod.ExportedFunction(tt.name).Call(ctx, tt.params...)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != 1 || results[0] != tt.want {
				t.Errorf("%s(%v) = %v, want %d", tt.name, tt.params, results, tt.want)
			}
		})
	}

	if _, err := mod.ExportedFunction("tick").Call(ctx); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]uint32{1}, ticks); diff != "" {
		t.Errorf("host calls (-want +got):\n%s", diff)
	}
}

func TestModule_ImportAfterFunc(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Import after Func should panic")
		}
	}()
	m := New()
	m.ExportFunc("f", nil, nil, Body())
	m.Import("env", "late", nil, nil)
}

func TestModule_Unreachable(t *testing.T) {
	ctx := context.Background()
	m := New()
	m.ExportFunc("trap", nil, nil, Body(Unreachable()))
	m.ExportFunc("drop", []api.ValueType{api.ValueTypeI32}, nil, Body(LocalGet(0), Drop()))
	m.ExportFunc("sub", []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}, Body(
		LocalGet(0), LocalGet(1), I32Sub(),
	))
	m.ExportFunc("fadd", []api.ValueType{api.ValueTypeF64, api.ValueTypeF64}, []api.ValueType{api.ValueTypeF64}, Body(
		LocalGet(0), LocalGet(1), F64Add(),
	))

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)
	mod, err := rt.Instantiate(ctx, m.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := mod.ExportedFunction("trap").Call(ctx); err == nil {
		t.Error("trap should fail")
	}
	if _, err := mod.ExportedFunction("drop").Call(ctx, 1); err != nil {
		t.Errorf("drop: %v", err)
	}
	if r, err := mod.ExportedFunction("sub").Call(ctx, 1, 3); err != nil || api.DecodeI32(r[0]) != -2 {
		t.Errorf("sub(1, 3) = %v, %v", r, err)
	}
	if r, err := mod.ExportedFunction("fadd").Call(ctx, api.EncodeF64(1.25), api.EncodeF64(2)); err != nil || api.DecodeF64(r[0]) != 3.25 {
		t.Errorf("fadd = %v, %v", r, err)
	}
}
