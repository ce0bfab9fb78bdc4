package metadata

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-resolver/engine"
	"github.com/wippyai/wasm-resolver/errors"
	"github.com/wippyai/wasm-resolver/internal/demolib"
)

func demoExports(t *testing.T) ([]engine.Export, string) {
	t.Helper()
	ctx := context.Background()

	hosts := engine.NewHostRegistry()
	if err := hosts.RegisterFunc(demolib.LogModule, demolib.LogFunc, func(int32) {}); err != nil {
		t.Fatal(err)
	}
	eng, err := engine.NewWithConfig(ctx, &engine.Config{Hosts: hosts})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close(ctx) })

	mod, err := eng.Compile(ctx, demolib.Wasm())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return mod.Exports(), mod.Name()
}

func demoCatalog(t *testing.T, withDoc bool) *Catalog {
	t.Helper()
	exports, name := demoExports(t)
	in := BuildInput{Exports: exports, ModuleName: name, Fallback: "demo"}
	if withDoc {
		doc, err := ParseWIT(demolib.WIT)
		if err != nil {
			t.Fatal(err)
		}
		in.Doc = doc
	}
	cat, err := Build(in)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return cat
}

func TestBuild_TypeNames(t *testing.T) {
	cat := demoCatalog(t, true)

	want := []string{demolib.World, demolib.Math, demolib.Shapes, demolib.Broken, demolib.Counter}
	if diff := cmp.Diff(want, cat.Names()); diff != "" {
		t.Errorf("type names mismatch (-want +got):\n%s", diff)
	}
	if len(cat.Types()) != 5 {
		t.Errorf("Types() returned %d types", len(cat.Types()))
	}
	if cat.Root().Name != demolib.World {
		t.Errorf("Root() = %q", cat.Root().Name)
	}
}

func TestBuild_RootType(t *testing.T) {
	root := demoCatalog(t, true).Root()

	if root.Kind != KindWorld || !root.StaticOnly() {
		t.Errorf("root kind=%s static=%v", root.Kind, root.StaticOnly())
	}
	if root.Namespace != "m:lib" {
		t.Errorf("Namespace = %q", root.Namespace)
	}
	if root.Base != "" {
		t.Errorf("Base = %q, want none", root.Base)
	}
	if diff := cmp.Diff([]string{demolib.Math, demolib.Shapes}, root.Interfaces); diff != "" {
		t.Errorf("interfaces mismatch (-want +got):\n%s", diff)
	}
	if !root.Implements("math") || !root.Implements(demolib.Shapes) || root.Implements("other") {
		t.Error("Implements disagrees with Interfaces")
	}

	var names []string
	for _, m := range root.Members() {
		names = append(names, m.Kind.String()+":"+m.Name)
	}
	if diff := cmp.Diff([]string{"method:echo", "memory:memory"}, names); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}

	echo := root.MethodsNamed("echo")[0]
	if got := echo.Signature(); got != "echo(s: string) -> string" {
		t.Errorf("echo signature = %q", got)
	}
	if echo.Docs != "Returns its input." {
		t.Errorf("echo docs = %q", echo.Docs)
	}
}

func TestBuild_InterfaceType(t *testing.T) {
	cat := demoCatalog(t, true)
	math, ok := cat.Lookup(demolib.Math)
	if !ok {
		t.Fatal("math not found")
	}

	if math.Kind != KindInterface || math.Namespace != "m:lib" || math.Base != demolib.World {
		t.Errorf("math = kind %s ns %q base %q", math.Kind, math.Namespace, math.Base)
	}
	if len(math.Interfaces) != 0 {
		t.Errorf("interface type lists interfaces %v", math.Interfaces)
	}
	if !math.HasAttribute("interface") || !math.HasAttribute("@since") || math.HasAttribute("unstable") {
		t.Errorf("attributes = %v", math.Attributes)
	}

	var sigs []string
	for _, m := range math.Methods() {
		sigs = append(sigs, m.Signature())
	}
	want := []string{
		"fail()",
		"plus(a: s32, b: s32) -> s32",
		"plus-wide(a: s64, b: s64) -> s64",
		"say-hi()",
		"scale(x: f64, factor: f64) -> f64",
	}
	if diff := cmp.Diff(want, sigs); diff != "" {
		t.Errorf("signatures mismatch (-want +got):\n%s", diff)
	}

	if _, ok := math.FindMethod("plus", MethodStatic, []any{int32(2), int32(3)}); !ok {
		t.Error("plus(int32, int32) not found")
	}
	if _, ok := math.FindMethod("plus", MethodStatic, []any{2, 3}); ok {
		t.Error("plus(int, int) must not match")
	}
	if _, ok := math.FindMethod("plus", MethodInstance, []any{int32(2), int32(3)}); ok {
		t.Error("plus is not an instance method")
	}
}

func TestBuild_ResourceType(t *testing.T) {
	cat := demoCatalog(t, true)
	counter, ok := cat.Lookup(demolib.Counter)
	if !ok {
		t.Fatal("counter not found")
	}

	if counter.Kind != KindResource || counter.StaticOnly() {
		t.Errorf("counter kind=%s static=%v", counter.Kind, counter.StaticOnly())
	}
	if diff := cmp.Diff([]string{demolib.Shapes}, counter.Interfaces); diff != "" {
		t.Errorf("interfaces mismatch (-want +got):\n%s", diff)
	}
	if counter.Docs != "A running total." {
		t.Errorf("docs = %q", counter.Docs)
	}

	var attrs []string
	for _, a := range counter.Attributes {
		attrs = append(attrs, a.String())
	}
	if diff := cmp.Diff([]string{"resource", "unstable(feature = counters)", "constructor", "destructor"}, attrs); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}

	ctor := counter.Constructor
	if ctor.Signature() != "constructor(start: s32) -> own<counter>" {
		t.Errorf("constructor signature = %q", ctor.Signature())
	}
	if ctor.Result.Handle != "counter" {
		t.Errorf("constructor result handle = %q", ctor.Result.Handle)
	}
	if counter.Destructor == nil || counter.Destructor.Export != demolib.Shapes+"#[resource-drop]counter" {
		t.Errorf("destructor = %+v", counter.Destructor)
	}

	get, ok := counter.FindMethod("get", MethodInstance, nil)
	if !ok {
		t.Fatal("get not found")
	}
	if diff := cmp.Diff([]api.ValueType{api.ValueTypeI32}, get.CoreParams); diff != "" {
		t.Errorf("get core params mismatch (-want +got):\n%s", diff)
	}
	if _, ok := counter.FindMethod("zero", MethodStatic, nil); !ok {
		t.Error("static zero not found")
	}

	var members []string
	for _, m := range counter.Members() {
		members = append(members, m.Kind.String()+":"+m.Name)
	}
	want := []string{"constructor:constructor", "method:add", "method:get", "method:zero", "destructor:destructor"}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_WithoutDocument(t *testing.T) {
	cat := demoCatalog(t, false)

	root := cat.Root()
	if root.Name != demolib.World || root.Namespace != demolib.World {
		t.Errorf("root name %q namespace %q, want module name", root.Name, root.Namespace)
	}
	if len(cat.Names()) != 5 {
		t.Errorf("got %d types", len(cat.Names()))
	}

	math, _ := cat.Lookup("math")
	plus := math.MethodsNamed("plus")[0]
	if plus.Signature() != "plus(arg0: s32, arg1: s32) -> s32" {
		t.Errorf("default signature = %q", plus.Signature())
	}

	counter, _ := cat.Lookup("counter")
	add := counter.MethodsNamed("add")[0]
	if len(add.Params) != 1 {
		t.Errorf("self handle not stripped: %d params", len(add.Params))
	}

	echo := root.MethodsNamed("echo")[0]
	if echo.Signature() != "echo(arg0: s32, arg1: s32) -> s32" {
		t.Errorf("echo default signature = %q", echo.Signature())
	}
}

func TestBuild_Fallbacks(t *testing.T) {
	exports := []engine.Export{
		{Name: "run", Kind: engine.ExportFunction, Results: []api.ValueType{api.ValueTypeI32}},
		{Name: "pair", Kind: engine.ExportFunction, Results: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}},
	}

	cat, err := Build(BuildInput{Exports: exports, Fallback: "tool"})
	if err != nil {
		t.Fatal(err)
	}
	if cat.Root().Name != "tool" {
		t.Errorf("root = %q, want file stem", cat.Root().Name)
	}
	pair := cat.Root().MethodsNamed("pair")[0]
	if !pair.Unsupported() {
		t.Error("multi-value result should be unsupported")
	}

	cat, err = Build(BuildInput{Exports: exports})
	if err != nil {
		t.Fatal(err)
	}
	if cat.Root().Name != "library" {
		t.Errorf("root = %q", cat.Root().Name)
	}
}

func TestBuild_SignatureMismatch(t *testing.T) {
	doc, err := ParseWIT(`interface math { plus: func(a: s64, b: s64) -> s64; }`)
	if err != nil {
		t.Fatal(err)
	}
	exports := []engine.Export{{
		Name:    "math#plus",
		Kind:    engine.ExportFunction,
		Params:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
		Results: []api.ValueType{api.ValueTypeI32},
	}}

	_, err = Build(BuildInput{Exports: exports, Doc: doc})
	if err == nil {
		t.Fatal("expected signature mismatch")
	}
	if !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("expected type mismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "math#plus") {
		t.Errorf("error does not name the export: %v", err)
	}
}

func TestBuild_UnsupportedDeclaredType(t *testing.T) {
	doc, err := ParseWIT(`interface io { read: func(n: u32) -> list<u8>; }`)
	if err != nil {
		t.Fatal(err)
	}
	exports := []engine.Export{{
		Name:    "io#read",
		Kind:    engine.ExportFunction,
		Params:  []api.ValueType{api.ValueTypeI32},
		Results: []api.ValueType{api.ValueTypeI32},
	}}

	cat, err := Build(BuildInput{Exports: exports, Doc: doc})
	if err != nil {
		t.Fatalf("unsupported types must not fail the build: %v", err)
	}
	io, _ := cat.Lookup("io")
	read := io.MethodsNamed("read")[0]
	if !read.Unsupported() || read.Signature() != "read(n: u32) -> list<u8>" {
		t.Errorf("read = %s unsupported=%v", read.Signature(), read.Unsupported())
	}
}

func TestCatalog_Lookup(t *testing.T) {
	cat := demoCatalog(t, true)

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{demolib.Math, demolib.Math, true},
		{"math", demolib.Math, true},
		{"m:lib/math", demolib.Math, true},
		{"counter", demolib.Counter, true},
		{"shapes#counter", demolib.Counter, true},
		{demolib.World, demolib.World, true},
		{"missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cat.Lookup(tt.name)
			if ok != tt.ok {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			}
			if ok && got.Name != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.name, got.Name, tt.want)
			}
		})
	}
}

func TestCatalog_AmbiguousAlias(t *testing.T) {
	exports := []engine.Export{
		{Name: "a:x/one#[constructor]item", Kind: engine.ExportFunction, Params: []api.ValueType{}, Results: []api.ValueType{api.ValueTypeI32}},
		{Name: "b:y/two#[constructor]item", Kind: engine.ExportFunction, Params: []api.ValueType{}, Results: []api.ValueType{api.ValueTypeI32}},
	}
	cat, err := Build(BuildInput{Exports: exports})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cat.Lookup("item"); ok {
		t.Error("ambiguous alias must not resolve")
	}
	if _, ok := cat.Lookup("one#item"); !ok {
		t.Error("qualified alias should resolve")
	}
}
