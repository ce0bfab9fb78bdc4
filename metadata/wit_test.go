package metadata

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasm-resolver/errors"
	"github.com/wippyai/wasm-resolver/internal/demolib"
)

func TestParseWIT_DemoLibrary(t *testing.T) {
	doc, err := ParseWIT(demolib.WIT)
	if err != nil {
		t.Fatalf("ParseWIT failed: %v", err)
	}

	if doc.Package != "m:lib@1.0.0" {
		t.Errorf("Package = %q", doc.Package)
	}
	if doc.Namespace() != "m:lib" || doc.Version() != "1.0.0" {
		t.Errorf("Namespace/Version = %q/%q", doc.Namespace(), doc.Version())
	}
	if got := doc.QualifiedInterface("math"); got != demolib.Math {
		t.Errorf("QualifiedInterface = %q", got)
	}

	math := doc.Interfaces["math"]
	if math == nil {
		t.Fatal("interface math not parsed")
	}
	if math.Docs != "Arithmetic helpers." {
		t.Errorf("math docs = %q", math.Docs)
	}
	if diff := cmp.Diff([]Gate{{Name: "since", Args: "version = 1.0.0"}}, math.Gates); diff != "" {
		t.Errorf("math gates mismatch (-want +got):\n%s", diff)
	}
	if len(math.Funcs) != 5 {
		t.Errorf("math has %d funcs, want 5", len(math.Funcs))
	}

	plus := math.Funcs["plus"]
	want := &FuncDecl{
		Annotations: Annotations{Docs: "Adds two numbers."},
		Name:        "plus",
		Params:      []ParamDecl{{Name: "a", Type: "s32"}, {Name: "b", Type: "s32"}},
		Result:      "s32",
	}
	if diff := cmp.Diff(want, plus); diff != "" {
		t.Errorf("plus mismatch (-want +got):\n%s", diff)
	}
	if math.Funcs["say-hi"].Result != "" {
		t.Error("say-hi should have no result")
	}

	shapes := doc.Interfaces["shapes"]
	if shapes == nil {
		t.Fatal("interface shapes not parsed")
	}
	counter := shapes.Resources["counter"]
	if counter == nil {
		t.Fatal("resource counter not parsed")
	}
	if counter.Docs != "A running total." {
		t.Errorf("counter docs = %q", counter.Docs)
	}
	if len(counter.Gates) != 1 || counter.Gates[0].String() != "@unstable(feature = counters)" {
		t.Errorf("counter gates = %v", counter.Gates)
	}
	if counter.Constructor == nil || len(counter.Constructor.Params) != 1 {
		t.Fatalf("counter constructor = %+v", counter.Constructor)
	}
	if _, ok := counter.Methods["get"]; !ok {
		t.Error("method get missing")
	}
	if _, ok := counter.Statics["zero"]; !ok {
		t.Error("static zero missing")
	}
	if broken := shapes.Resources["broken"]; broken == nil || broken.Constructor == nil {
		t.Error("resource broken constructor missing")
	}

	world := doc.World()
	if world == nil || world.Name != "mathlib" {
		t.Fatalf("world = %+v", world)
	}
	if diff := cmp.Diff([]string{"math", "shapes"}, world.Exports); diff != "" {
		t.Errorf("world exports mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"env"}, world.Imports); diff != "" {
		t.Errorf("world imports mismatch (-want +got):\n%s", diff)
	}
	echo := world.Funcs["echo"]
	if echo == nil || echo.Result != "string" || echo.Docs != "Returns its input." {
		t.Errorf("echo = %+v", echo)
	}
}

func TestParseWIT_Syntax(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, doc *Document)
	}{
		{
			name: "nested type text",
			input: `interface io {
				read: func(len: u64) -> result<list<u8>, stream-error>;
			}`,
			check: func(t *testing.T, doc *Document) {
				fn := doc.Interfaces["io"].Funcs["read"]
				if fn.Result != "result<list<u8>, stream-error>" {
					t.Errorf("result = %q", fn.Result)
				}
			},
		},
		{
			name: "qualified export and comments",
			input: `// leading comment
			/* block
			   comment */
			world w {
				export wasi:cli/run@0.2.0;
				import wasi:io/streams@0.2.0;
			}`,
			check: func(t *testing.T, doc *Document) {
				w := doc.World()
				if len(w.Exports) != 1 || w.Exports[0] != "wasi:cli/run@0.2.0" {
					t.Errorf("exports = %v", w.Exports)
				}
				if len(w.Imports) != 1 || w.Imports[0] != "wasi:io/streams@0.2.0" {
					t.Errorf("imports = %v", w.Imports)
				}
			},
		},
		{
			name: "skipped items",
			input: `interface t {
				use other.{thing};
				enum color { red, green }
				variant shape { circle(f32), none }
				flags perms { read, write }
				f: func();
			}`,
			check: func(t *testing.T, doc *Document) {
				if len(doc.Interfaces["t"].Funcs) != 1 {
					t.Errorf("funcs = %v", doc.Interfaces["t"].Funcs)
				}
			},
		},
		{
			name:  "escaped identifiers",
			input: `interface %type { %func: func(%use: u8); }`,
			check: func(t *testing.T, doc *Document) {
				fn := doc.Interfaces["type"].Funcs["func"]
				if fn == nil || fn.Params[0].Name != "use" {
					t.Errorf("escaped func = %+v", fn)
				}
			},
		},
		{
			name:  "resource without body",
			input: `interface h { resource handle; make: func() -> handle; }`,
			check: func(t *testing.T, doc *Document) {
				if _, ok := doc.Interfaces["h"].Resources["handle"]; !ok {
					t.Error("resource handle missing")
				}
			},
		},
		{
			name:  "deprecated gate",
			input: `interface d { @deprecated(version = 2.0.0) old: func(); }`,
			check: func(t *testing.T, doc *Document) {
				gates := doc.Interfaces["d"].Funcs["old"].Gates
				if len(gates) != 1 || gates[0].Name != "deprecated" {
					t.Errorf("gates = %v", gates)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseWIT(tt.input)
			if err != nil {
				t.Fatalf("ParseWIT failed: %v", err)
			}
			tt.check(t, doc)
		})
	}
}

func TestParseWIT_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"unterminated interface", "interface a { f: func();", "unterminated interface"},
		{"missing colon", "interface a { f func(); }", `expected ":"`},
		{"bad character", "interface a { f: func() -> $; }", "unexpected character"},
		{"unterminated comment", "/* never closed", "unterminated block comment"},
		{"missing type", "interface a { f: func(x: ); }", "missing type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWIT(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
			perr, ok := err.(*errors.Error)
			if !ok || perr.Phase != errors.PhaseParse {
				t.Errorf("expected parse phase error, got %v", err)
			}
		})
	}
}
