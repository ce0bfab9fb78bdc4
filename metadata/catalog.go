package metadata

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-resolver/abi"
	"github.com/wippyai/wasm-resolver/engine"
	"github.com/wippyai/wasm-resolver/errors"
)

// BuildInput is everything known about a library before its types are
// derived.
type BuildInput struct {
	Doc *Document
	// ModuleName is the name from the wasm name section.
	ModuleName string
	// Fallback names the root type when neither the document nor the module
	// provides a name, typically the library file stem.
	Fallback string
	Exports  []engine.Export
}

// Catalog is the set of types defined by one library.
type Catalog struct {
	byName  map[string]*Type
	aliases map[string]*Type
	types   []*Type
}

// Types returns all types: the root first, then interfaces, then resources.
func (c *Catalog) Types() []*Type {
	out := make([]*Type, len(c.types))
	copy(out, c.types)
	return out
}

// Names returns the names of all types in Types order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.types))
	for i, t := range c.types {
		names[i] = t.Name
	}
	return names
}

// Root returns the library root type.
func (c *Catalog) Root() *Type {
	return c.types[0]
}

// Lookup finds a type by its full name. Unambiguous short forms are also
// accepted: "math" or "m:lib/math" for "m:lib/math@1.0.0", and "counter" or
// "shapes#counter" for "m:lib/shapes@1.0.0#counter".
func (c *Catalog) Lookup(name string) (*Type, bool) {
	if t, ok := c.byName[name]; ok {
		return t, true
	}
	t, ok := c.aliases[name]
	return t, ok && t != nil
}

type builder struct {
	in        BuildInput
	root      *Type
	ifaces    map[string]*Type
	resources map[string]*Type
}

// Build derives the library types from its exports and optional document.
func Build(in BuildInput) (*Catalog, error) {
	b := &builder{
		in:        in,
		ifaces:    make(map[string]*Type),
		resources: make(map[string]*Type),
	}
	b.root = b.newRoot()

	for _, exp := range in.Exports {
		if exp.Kind == engine.ExportMemory {
			b.root.memories = append(b.root.memories, exp.Name)
			continue
		}
		if err := b.addExport(exp); err != nil {
			return nil, err
		}
	}

	return b.catalog(), nil
}

func (b *builder) newRoot() *Type {
	root := &Type{Kind: KindWorld, Attributes: []Attribute{{Name: "world"}}}
	switch w := b.in.Doc.World(); {
	case w != nil:
		root.Name = w.Name
		root.Docs = w.Docs
		root.Attributes = append(root.Attributes, gateAttributes(w.Gates)...)
	case b.in.ModuleName != "":
		root.Name = b.in.ModuleName
	case b.in.Fallback != "":
		root.Name = b.in.Fallback
	default:
		root.Name = "library"
	}
	root.Namespace = b.in.Doc.Namespace()
	if root.Namespace == "" {
		root.Namespace = b.in.ModuleName
	}
	return root
}

func gateAttributes(gates []Gate) []Attribute {
	attrs := make([]Attribute, 0, len(gates))
	for _, g := range gates {
		attrs = append(attrs, Attribute{Name: g.Name, Args: g.Args})
	}
	return attrs
}

func (b *builder) ifaceDecl(iface string) *InterfaceDecl {
	if b.in.Doc == nil {
		return nil
	}
	_, short, _ := InterfaceParts(iface)
	return b.in.Doc.Interfaces[short]
}

func (b *builder) iface(name string) *Type {
	if t, ok := b.ifaces[name]; ok {
		return t
	}
	ns, _, _ := InterfaceParts(name)
	if ns == "" {
		ns = b.root.Namespace
	}
	t := &Type{
		Kind:       KindInterface,
		Name:       name,
		Namespace:  ns,
		Base:       b.root.Name,
		Attributes: []Attribute{{Name: "interface"}},
	}
	if decl := b.ifaceDecl(name); decl != nil {
		t.Docs = decl.Docs
		t.Attributes = append(t.Attributes, gateAttributes(decl.Gates)...)
	}
	b.ifaces[name] = t
	b.root.Interfaces = append(b.root.Interfaces, name)
	return t
}

// resourceDecls returns the resource declarations visible from iface.
func (b *builder) resourceDecls(iface string) map[string]*ResourceDecl {
	if iface == "" {
		if w := b.in.Doc.World(); w != nil {
			return w.Resources
		}
		return nil
	}
	if decl := b.ifaceDecl(iface); decl != nil {
		return decl.Resources
	}
	return nil
}

func (b *builder) resource(iface, name string) *Type {
	full := ResourceTypeName(iface, name)
	if t, ok := b.resources[full]; ok {
		return t
	}
	t := &Type{
		Kind:       KindResource,
		Name:       full,
		Namespace:  b.root.Namespace,
		Base:       b.root.Name,
		Attributes: []Attribute{{Name: "resource"}},
	}
	if iface != "" {
		b.iface(iface)
		t.Interfaces = []string{iface}
		if ns, _, _ := InterfaceParts(iface); ns != "" {
			t.Namespace = ns
		}
	}
	if decl := b.resourceDecls(iface)[name]; decl != nil {
		t.Docs = decl.Docs
		t.Attributes = append(t.Attributes, gateAttributes(decl.Gates)...)
	}
	b.resources[full] = t
	return t
}

func (b *builder) funcDecl(n ExportName) *FuncDecl {
	if n.Resource != "" {
		res := b.resourceDecls(n.Interface)[n.Resource]
		if res == nil {
			return nil
		}
		switch n.Kind {
		case ExportConstructor:
			return res.Constructor
		case ExportMethod:
			return res.Methods[n.Func]
		case ExportStatic:
			return res.Statics[n.Func]
		}
		return nil
	}
	if n.Interface == "" {
		if w := b.in.Doc.World(); w != nil {
			return w.Funcs[n.Func]
		}
		return nil
	}
	if decl := b.ifaceDecl(n.Interface); decl != nil {
		return decl.Funcs[n.Func]
	}
	return nil
}

func (b *builder) addExport(exp engine.Export) error {
	n := ParseExportName(exp.Name)
	if n.Kind == ExportPlumbing {
		return nil
	}

	m, err := b.method(exp, n)
	if err != nil {
		return err
	}

	var owner *Type
	switch {
	case n.Resource != "":
		owner = b.resource(n.Interface, n.Resource)
	case n.Interface != "":
		owner = b.iface(n.Interface)
	default:
		owner = b.root
	}

	switch m.Kind {
	case MethodConstructor:
		owner.Constructor = m
	case MethodDestructor:
		owner.Destructor = m
	default:
		owner.methods = append(owner.methods, m)
	}
	return nil
}

func (b *builder) method(exp engine.Export, n ExportName) (*Method, error) {
	m := &Method{
		Name:        n.Func,
		Export:      exp.Name,
		CoreParams:  exp.Params,
		CoreResults: exp.Results,
	}
	switch n.Kind {
	case ExportConstructor:
		m.Kind = MethodConstructor
		m.Name = "constructor"
	case ExportDestructor:
		m.Kind = MethodDestructor
		m.Name = "destructor"
	case ExportMethod:
		m.Kind = MethodInstance
	default:
		m.Kind = MethodStatic
	}

	if m.Kind == MethodDestructor {
		return m, checkCore(m, []api.ValueType{api.ValueTypeI32}, nil)
	}

	decl := b.funcDecl(n)
	if decl == nil {
		b.defaultSignature(m, exp, n)
		return m, nil
	}

	scope := b.resourceDecls(n.Interface)
	m.Docs = decl.Docs
	m.Gates = decl.Gates
	for _, p := range decl.Params {
		param := resolveParam(p.Type, scope)
		param.Name = p.Name
		m.Params = append(m.Params, param)
	}
	switch {
	case m.Kind == MethodConstructor:
		m.Result = &Param{Type: wit.U32{}, TypeText: "own<" + n.Resource + ">", Handle: n.Resource}
	case decl.Result != "":
		result := resolveParam(decl.Result, scope)
		m.Result = &result
	}

	if m.Unsupported() {
		return m, nil
	}
	params, err := abi.FlattenParams(m.ParamTypes())
	if err != nil {
		return nil, err
	}
	if m.Kind == MethodInstance {
		params = append([]api.ValueType{api.ValueTypeI32}, params...)
	}
	results, err := abi.FlattenResult(m.ResultType())
	if err != nil {
		return nil, err
	}
	return m, checkCore(m, params, results)
}

// defaultSignature types a method from its core signature alone.
func (b *builder) defaultSignature(m *Method, exp engine.Export, n ExportName) {
	core := exp.Params
	names := exp.ParamNames
	if m.Kind == MethodInstance && len(core) > 0 {
		core = core[1:]
		if len(names) > 0 {
			names = names[1:]
		}
	}
	for i, vt := range core {
		name := fmt.Sprintf("arg%d", i)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		m.Params = append(m.Params, Param{Name: name, Type: abi.FromCore(vt)})
	}
	switch {
	case m.Kind == MethodConstructor:
		m.Result = &Param{Type: wit.U32{}, TypeText: "own<" + n.Resource + ">", Handle: n.Resource}
	case len(exp.Results) == 1:
		m.Result = &Param{Type: abi.FromCore(exp.Results[0])}
	case len(exp.Results) > 1:
		m.Result = &Param{TypeText: "multi-value"}
	}
}

func checkCore(m *Method, params, results []api.ValueType) error {
	if equalValueTypes(params, m.CoreParams) && equalValueTypes(results, m.CoreResults) {
		return nil
	}
	return errors.New(errors.PhaseParse, errors.KindTypeMismatch).
		Name(m.Export).
		Detail("declared signature %s does not match core signature %s", coreSig(params, results), coreSig(m.CoreParams, m.CoreResults)).
		Build()
}

func equalValueTypes(a, b []api.ValueType) bool {
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

func coreSig(params, results []api.ValueType) string {
	names := func(vts []api.ValueType) string {
		parts := make([]string, len(vts))
		for i, vt := range vts {
			parts[i] = api.ValueTypeName(vt)
		}
		return strings.Join(parts, ", ")
	}
	return "(" + names(params) + ") -> (" + names(results) + ")"
}

// resolveParam maps declared type text to a value type. Resource handles
// become u32; types that cannot be passed by value keep a nil Type.
func resolveParam(text string, resources map[string]*ResourceDecl) Param {
	text = strings.TrimSpace(text)
	p := Param{TypeText: text}
	for _, prefix := range []string{"own<", "borrow<"} {
		if strings.HasPrefix(text, prefix) && strings.HasSuffix(text, ">") {
			p.Handle = strings.TrimSpace(text[len(prefix) : len(text)-1])
			p.Type = wit.U32{}
			return p
		}
	}
	if _, ok := resources[text]; ok {
		p.Handle = text
		p.Type = wit.U32{}
		return p
	}
	if t, err := abi.Parse(text); err == nil {
		p.Type = t
	}
	return p
}

func (b *builder) catalog() *Catalog {
	types := []*Type{b.root}
	types = append(types, sortedTypes(b.ifaces)...)
	types = append(types, sortedTypes(b.resources)...)

	for _, t := range b.resources {
		if t.Constructor != nil {
			t.Attributes = append(t.Attributes, Attribute{Name: "constructor"})
		}
		if t.Destructor != nil {
			t.Attributes = append(t.Attributes, Attribute{Name: "destructor"})
		}
	}

	c := &Catalog{
		types:   types,
		byName:  make(map[string]*Type, len(types)),
		aliases: make(map[string]*Type),
	}
	for _, t := range types {
		c.byName[t.Name] = t
	}
	for _, t := range types {
		for _, alias := range aliases(t) {
			if _, exact := c.byName[alias]; exact {
				continue
			}
			if prev, seen := c.aliases[alias]; seen && prev != t {
				c.aliases[alias] = nil
				continue
			}
			c.aliases[alias] = t
		}
	}
	return c
}

func aliases(t *Type) []string {
	switch t.Kind {
	case KindInterface:
		ns, short, _ := InterfaceParts(t.Name)
		out := []string{short}
		if ns != "" {
			out = append(out, ns+"/"+short)
		}
		return out
	case KindResource:
		iface, res, ok := strings.Cut(t.Name, "#")
		if !ok {
			return nil
		}
		_, short, _ := InterfaceParts(iface)
		return []string{res, short + "#" + res}
	}
	return nil
}

func sortedTypes(m map[string]*Type) []*Type {
	out := make([]*Type, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
