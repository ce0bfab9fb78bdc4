package metadata

import (
	"strings"

	"github.com/wippyai/wasm-resolver/errors"
)

// Document is the subset of a WIT package that describes library exports.
type Document struct {
	Package    string
	Interfaces map[string]*InterfaceDecl
	Worlds     []*WorldDecl
}

// Namespace returns the package without its version, e.g. "m:lib".
func (d *Document) Namespace() string {
	if d == nil {
		return ""
	}
	ns, _, _ := strings.Cut(d.Package, "@")
	return ns
}

// Version returns the package version, if any.
func (d *Document) Version() string {
	if d == nil {
		return ""
	}
	_, v, _ := strings.Cut(d.Package, "@")
	return v
}

// QualifiedInterface returns the fully qualified name of a local interface.
func (d *Document) QualifiedInterface(name string) string {
	if strings.Contains(name, ":") || d.Namespace() == "" {
		return name
	}
	q := d.Namespace() + "/" + name
	if v := d.Version(); v != "" {
		q += "@" + v
	}
	return q
}

// World returns the first world, or nil.
func (d *Document) World() *WorldDecl {
	if d == nil || len(d.Worlds) == 0 {
		return nil
	}
	return d.Worlds[0]
}

// Gate is a WIT feature gate such as @since(version = 1.0.0).
type Gate struct {
	Name string
	Args string
}

func (g Gate) String() string {
	if g.Args == "" {
		return "@" + g.Name
	}
	return "@" + g.Name + "(" + g.Args + ")"
}

// Annotations are the docs and gates attached to a declaration.
type Annotations struct {
	Docs  string
	Gates []Gate
}

type InterfaceDecl struct {
	Annotations
	Name      string
	Funcs     map[string]*FuncDecl
	Resources map[string]*ResourceDecl
}

type ResourceDecl struct {
	Annotations
	Name        string
	Constructor *FuncDecl
	Methods     map[string]*FuncDecl
	Statics     map[string]*FuncDecl
}

type WorldDecl struct {
	Annotations
	Name      string
	Exports   []string
	Imports   []string
	Funcs     map[string]*FuncDecl
	Resources map[string]*ResourceDecl
}

// FuncDecl is a declared function. Types are kept as WIT source text.
type FuncDecl struct {
	Annotations
	Name   string
	Params []ParamDecl
	Result string
}

type ParamDecl struct {
	Name string
	Type string
}

// ParseWIT parses WIT text. Only declarations relevant to exports are
// retained; use, type, record, enum, variant and flags items are skipped.
func ParseWIT(text string) (*Document, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &witParser{toks: toks}
	doc, err := p.document()
	if err != nil {
		return nil, errors.ParseFailed("WIT document", err)
	}
	return doc, nil
}

type witParser struct {
	toks    []token
	pos     int
	pending Annotations
}

func (p *witParser) peek() token {
	return p.toks[p.pos]
}

func (p *witParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *witParser) is(text string) bool {
	t := p.peek()
	return (t.kind == tokPunct || t.kind == tokWord || t.kind == tokArrow) && t.text == text
}

func (p *witParser) expect(text string) error {
	t := p.next()
	if t.text != text || t.kind == tokDoc || t.kind == tokEOF {
		return p.errorf(t, "expected %q, found %q", text, t.text)
	}
	return nil
}

func (p *witParser) word() (string, error) {
	t := p.next()
	if t.kind != tokWord {
		return "", p.errorf(t, "expected identifier, found %q", t.text)
	}
	return strings.TrimPrefix(t.text, "%"), nil
}

func (p *witParser) errorf(t token, format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		Detail("line %d: "+format, append([]any{t.line}, args...)...).
		Build()
}

// annotations collects docs and gates preceding a declaration.
func (p *witParser) annotations() error {
	for {
		t := p.peek()
		switch {
		case t.kind == tokDoc:
			p.next()
			if p.pending.Docs != "" {
				p.pending.Docs += "\n"
			}
			p.pending.Docs += t.text
		case t.kind == tokPunct && t.text == "@":
			p.next()
			name, err := p.word()
			if err != nil {
				return err
			}
			gate := Gate{Name: name}
			if p.is("(") {
				args, err := p.balanced("(", ")")
				if err != nil {
					return err
				}
				gate.Args = args
			}
			p.pending.Gates = append(p.pending.Gates, gate)
		default:
			return nil
		}
	}
}

func (p *witParser) take() Annotations {
	a := p.pending
	p.pending = Annotations{}
	return a
}

// balanced consumes a bracketed group and returns its inner text.
func (p *witParser) balanced(open, close string) (string, error) {
	start := p.next()
	depth := 1
	var parts []string
	for {
		t := p.next()
		switch {
		case t.kind == tokEOF:
			return "", p.errorf(start, "unterminated %q", open)
		case t.kind == tokDoc:
			continue
		case t.text == open:
			depth++
		case t.text == close:
			depth--
			if depth == 0 {
				return strings.Join(parts, " "), nil
			}
		}
		parts = append(parts, t.text)
	}
}

// skipItem skips a statement ending in ';' or a braced block.
func (p *witParser) skipItem() error {
	start := p.peek()
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return p.errorf(start, "unterminated item")
		case t.text == ";" && t.kind == tokPunct:
			p.next()
			return nil
		case t.text == "{" && t.kind == tokPunct:
			_, err := p.balanced("{", "}")
			if p.is(";") {
				p.next()
			}
			return err
		default:
			p.next()
		}
	}
}

func (p *witParser) document() (*Document, error) {
	doc := &Document{Interfaces: make(map[string]*InterfaceDecl)}
	for {
		if err := p.annotations(); err != nil {
			return nil, err
		}
		t := p.peek()
		if t.kind == tokEOF {
			return doc, nil
		}
		switch t.text {
		case "package":
			p.next()
			var parts []string
			for !p.is(";") {
				n := p.next()
				if n.kind == tokEOF {
					return nil, p.errorf(t, "unterminated package declaration")
				}
				parts = append(parts, n.text)
			}
			p.next()
			doc.Package = strings.Join(parts, "")
			p.take()
		case "interface":
			p.next()
			iface, err := p.interfaceDecl()
			if err != nil {
				return nil, err
			}
			doc.Interfaces[iface.Name] = iface
		case "world":
			p.next()
			w, err := p.worldDecl()
			if err != nil {
				return nil, err
			}
			doc.Worlds = append(doc.Worlds, w)
		default:
			p.take()
			if err := p.skipItem(); err != nil {
				return nil, err
			}
		}
	}
}

func (p *witParser) interfaceDecl() (*InterfaceDecl, error) {
	ann := p.take()
	name, err := p.word()
	if err != nil {
		return nil, err
	}
	iface := &InterfaceDecl{
		Annotations: ann,
		Name:        name,
		Funcs:       make(map[string]*FuncDecl),
		Resources:   make(map[string]*ResourceDecl),
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	for {
		if err := p.annotations(); err != nil {
			return nil, err
		}
		if p.is("}") {
			p.next()
			return iface, nil
		}
		if p.peek().kind == tokEOF {
			return nil, p.errorf(p.peek(), "unterminated interface %s", name)
		}
		if err := p.scopeItem(iface.Funcs, iface.Resources); err != nil {
			return nil, err
		}
	}
}

// scopeItem parses one interface or world body item that may declare a
// function or a resource.
func (p *witParser) scopeItem(funcs map[string]*FuncDecl, resources map[string]*ResourceDecl) error {
	t := p.peek()
	switch t.text {
	case "resource":
		p.next()
		res, err := p.resourceDecl()
		if err != nil {
			return err
		}
		resources[res.Name] = res
		return nil
	case "use", "type", "record", "enum", "variant", "flags", "include":
		p.take()
		return p.skipItem()
	}
	if t.kind != tokWord {
		return p.errorf(t, "unexpected %q", t.text)
	}
	fn, _, err := p.namedFunc()
	if err != nil {
		return err
	}
	funcs[fn.Name] = fn
	return nil
}

// namedFunc parses "name: [static] func(...) [-> T];".
func (p *witParser) namedFunc() (*FuncDecl, bool, error) {
	ann := p.take()
	name, err := p.word()
	if err != nil {
		return nil, false, err
	}
	if err := p.expect(":"); err != nil {
		return nil, false, err
	}
	static := false
	for p.is("static") || p.is("async") {
		if p.next().text == "static" {
			static = true
		}
	}
	if err := p.expect("func"); err != nil {
		return nil, false, err
	}
	fn, err := p.signature(name)
	if err != nil {
		return nil, false, err
	}
	fn.Annotations = ann
	return fn, static, nil
}

func (p *witParser) signature(name string) (*FuncDecl, error) {
	fn := &FuncDecl{Name: name}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	for !p.is(")") {
		pname, err := p.word()
		if err != nil {
			return nil, err
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		typ, err := p.typeText(",", ")")
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, ParamDecl{Name: pname, Type: typ})
		if p.is(",") {
			p.next()
		}
	}
	p.next()
	if p.is("->") {
		p.next()
		typ, err := p.typeText(";")
		if err != nil {
			return nil, err
		}
		fn.Result = typ
	}
	return fn, p.expect(";")
}

// typeText collects a type expression up to one of the terminators at
// nesting depth zero.
func (p *witParser) typeText(terms ...string) (string, error) {
	var b strings.Builder
	depth := 0
	start := p.peek()
	for {
		t := p.peek()
		if t.kind == tokEOF {
			return "", p.errorf(start, "unterminated type")
		}
		if depth == 0 {
			for _, term := range terms {
				if t.text == term && t.kind == tokPunct {
					if b.Len() == 0 {
						return "", p.errorf(t, "missing type")
					}
					return b.String(), nil
				}
			}
		}
		switch t.text {
		case "<", "(":
			depth++
		case ">", ")":
			depth--
		}
		p.next()
		b.WriteString(t.text)
		if t.text == "," {
			b.WriteString(" ")
		}
	}
}

func (p *witParser) resourceDecl() (*ResourceDecl, error) {
	ann := p.take()
	name, err := p.word()
	if err != nil {
		return nil, err
	}
	res := &ResourceDecl{
		Annotations: ann,
		Name:        name,
		Methods:     make(map[string]*FuncDecl),
		Statics:     make(map[string]*FuncDecl),
	}
	if p.is(";") {
		p.next()
		return res, nil
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	for {
		if err := p.annotations(); err != nil {
			return nil, err
		}
		switch {
		case p.is("}"):
			p.next()
			return res, nil
		case p.peek().kind == tokEOF:
			return nil, p.errorf(p.peek(), "unterminated resource %s", name)
		case p.is("constructor"):
			p.next()
			ctorAnn := p.take()
			fn, err := p.signature("constructor")
			if err != nil {
				return nil, err
			}
			fn.Annotations = ctorAnn
			res.Constructor = fn
		default:
			fn, static, err := p.namedFunc()
			if err != nil {
				return nil, err
			}
			if static {
				res.Statics[fn.Name] = fn
			} else {
				res.Methods[fn.Name] = fn
			}
		}
	}
}

func (p *witParser) worldDecl() (*WorldDecl, error) {
	ann := p.take()
	name, err := p.word()
	if err != nil {
		return nil, err
	}
	w := &WorldDecl{
		Annotations: ann,
		Name:        name,
		Funcs:       make(map[string]*FuncDecl),
		Resources:   make(map[string]*ResourceDecl),
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	for {
		if err := p.annotations(); err != nil {
			return nil, err
		}
		switch {
		case p.is("}"):
			p.next()
			return w, nil
		case p.peek().kind == tokEOF:
			return nil, p.errorf(p.peek(), "unterminated world %s", name)
		case p.is("export"):
			p.next()
			if err := p.worldExport(w); err != nil {
				return nil, err
			}
		case p.is("import"):
			p.next()
			p.take()
			var ref string
			if p.inlineItem() != "" {
				ref = strings.TrimPrefix(p.next().text, "%")
			} else {
				var err error
				if ref, err = p.pathText(); err != nil {
					return nil, err
				}
			}
			w.Imports = append(w.Imports, ref)
			if err := p.skipItem(); err != nil {
				return nil, err
			}
		default:
			if err := p.scopeItem(w.Funcs, w.Resources); err != nil {
				return nil, err
			}
		}
	}
}

func (p *witParser) worldExport(w *WorldDecl) error {
	switch p.inlineItem() {
	case "func", "static", "async":
		fn, _, err := p.namedFunc()
		if err != nil {
			return err
		}
		w.Funcs[fn.Name] = fn
		return nil
	case "interface":
		// inline interface export, not described further
		p.take()
		return p.skipItem()
	}
	p.take()
	ref, err := p.pathText()
	if err != nil {
		return err
	}
	w.Exports = append(w.Exports, ref)
	return p.expect(";")
}

// inlineItem reports the keyword following "name:" at the cursor, or "" when
// the cursor is not at a named inline item. Package paths such as
// "m:lib/math" are not inline items.
func (p *witParser) inlineItem() string {
	if p.pos+2 >= len(p.toks) || p.peek().kind != tokWord || p.toks[p.pos+1].text != ":" {
		return ""
	}
	switch next := p.toks[p.pos+2].text; next {
	case "func", "static", "async", "interface":
		return next
	}
	return ""
}

// pathText reads an interface reference such as "math" or
// "m:lib/math@1.0.0".
func (p *witParser) pathText() (string, error) {
	var b strings.Builder
	for {
		t := p.peek()
		if t.kind == tokWord || (t.kind == tokPunct && strings.Contains(":/@", t.text)) {
			b.WriteString(t.text)
			p.next()
			continue
		}
		break
	}
	if b.Len() == 0 {
		return "", p.errorf(p.peek(), "expected interface reference")
	}
	return strings.TrimPrefix(b.String(), "%"), nil
}
