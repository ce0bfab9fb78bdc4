// Package wasmbuild assembles small core WebAssembly modules in memory.
// It covers the sections needed to describe test libraries: types,
// function imports, functions, one memory, i32 globals, exports, code and
// the module name.
package wasmbuild

import "github.com/tetratelabs/wazero/api"

const (
	sectionCustom = 0
	sectionType   = 1
	sectionImport = 2
	sectionFunc   = 3
	sectionMemory = 5
	sectionGlobal = 6
	sectionExport = 7
	sectionCode   = 10

	kindFunc   = 0x00
	kindMemory = 0x02

	funcTypeMarker = 0x60
)

var magic = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

type funcType struct {
	params  []api.ValueType
	results []api.ValueType
}

type importFunc struct {
	module  string
	name    string
	typeIdx uint32
}

type function struct {
	locals  []api.ValueType
	body    []byte
	typeIdx uint32
}

type global struct {
	valType api.ValueType
	mutable bool
	init    int32
}

type export struct {
	name string
	kind byte
	idx  uint32
}

// Module is a core module under construction.
type Module struct {
	name      string
	types     []funcType
	imports   []importFunc
	funcs     []function
	globals   []global
	exports   []export
	memPages  uint32
	hasMemory bool
}

func New() *Module {
	return &Module{}
}

// Name sets the module name written to the name section.
func (m *Module) Name(name string) *Module {
	m.name = name
	return m
}

// Import declares a function import and returns its function index.
// All imports must be declared before the first Func.
func (m *Module) Import(module, name string, params, results []api.ValueType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmbuild: imports must precede functions")
	}
	m.imports = append(m.imports, importFunc{module: module, name: name, typeIdx: m.typeIndex(params, results)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function and returns its function index.
func (m *Module) Func(params, results, locals []api.ValueType, body []byte) uint32 {
	m.funcs = append(m.funcs, function{typeIdx: m.typeIndex(params, results), locals: locals, body: body})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// ExportFunc defines a function and exports it under name.
func (m *Module) ExportFunc(name string, params, results []api.ValueType, body []byte) uint32 {
	idx := m.Func(params, results, nil, body)
	m.exports = append(m.exports, export{name: name, kind: kindFunc, idx: idx})
	return idx
}

// Memory declares the module memory; a non-empty exportName exports it.
func (m *Module) Memory(minPages uint32, exportName string) *Module {
	m.hasMemory = true
	m.memPages = minPages
	if exportName != "" {
		m.exports = append(m.exports, export{name: exportName, kind: kindMemory, idx: 0})
	}
	return m
}

// GlobalI32 declares an i32 global and returns its index.
func (m *Module) GlobalI32(init int32, mutable bool) uint32 {
	m.globals = append(m.globals, global{valType: api.ValueTypeI32, mutable: mutable, init: init})
	return uint32(len(m.globals) - 1)
}

func (m *Module) typeIndex(params, results []api.ValueType) uint32 {
	for i, t := range m.types {
		if equalTypes(t.params, params) && equalTypes(t.results, results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

func equalTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Bytes encodes the module binary.
func (m *Module) Bytes() []byte {
	out := &buffer{}
	out.write(magic)

	if len(m.types) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(m.types)))
		for _, t := range m.types {
			sec.byte(funcTypeMarker)
			sec.u32(uint32(len(t.params)))
			for _, p := range t.params {
				sec.byte(p)
			}
			sec.u32(uint32(len(t.results)))
			for _, r := range t.results {
				sec.byte(r)
			}
		}
		out.section(sectionType, sec)
	}

	if len(m.imports) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec.name(imp.module)
			sec.name(imp.name)
			sec.byte(kindFunc)
			sec.u32(imp.typeIdx)
		}
		out.section(sectionImport, sec)
	}

	if len(m.funcs) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec.u32(f.typeIdx)
		}
		out.section(sectionFunc, sec)
	}

	if m.hasMemory {
		sec := &buffer{}
		sec.u32(1)
		sec.limits(m.memPages, nil)
		out.section(sectionMemory, sec)
	}

	if len(m.globals) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.byte(g.valType)
			if g.mutable {
				sec.byte(0x01)
			} else {
				sec.byte(0x00)
			}
			sec.write(Body(I32Const(g.init)))
		}
		out.section(sectionGlobal, sec)
	}

	if len(m.exports) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(m.exports)))
		for _, e := range m.exports {
			sec.name(e.name)
			sec.byte(e.kind)
			sec.u32(e.idx)
		}
		out.section(sectionExport, sec)
	}

	if len(m.funcs) > 0 {
		sec := &buffer{}
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			body := &buffer{}
			body.u32(uint32(len(f.locals)))
			for _, l := range f.locals {
				body.u32(1)
				body.byte(l)
			}
			body.write(f.body)
			sec.u32(uint32(len(body.bytes)))
			sec.write(body.bytes)
		}
		out.section(sectionCode, sec)
	}

	if m.name != "" {
		sub := &buffer{}
		sub.name(m.name)
		names := &buffer{}
		names.name("name")
		names.byte(0x00)
		names.u32(uint32(len(sub.bytes)))
		names.write(sub.bytes)
		out.section(sectionCustom, names)
	}

	return out.bytes
}
