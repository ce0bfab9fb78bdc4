// Package metadata derives type descriptors for a library from its
// canonical ABI export names and an optional WIT description.
package metadata

import "strings"

// ExportKind classifies a core export by its canonical ABI name.
type ExportKind int

const (
	ExportFunc ExportKind = iota
	ExportConstructor
	ExportMethod
	ExportStatic
	ExportDestructor
	ExportPlumbing
)

func (k ExportKind) String() string {
	switch k {
	case ExportFunc:
		return "func"
	case ExportConstructor:
		return "constructor"
	case ExportMethod:
		return "method"
	case ExportStatic:
		return "static"
	case ExportDestructor:
		return "destructor"
	case ExportPlumbing:
		return "plumbing"
	default:
		return "unknown"
	}
}

// Prefixes of resource operation names.
const (
	prefixConstructor  = "[constructor]"
	prefixMethod       = "[method]"
	prefixStatic       = "[static]"
	prefixResourceDrop = "[resource-drop]"
	prefixDtor         = "[dtor]"
)

// ExportName is a parsed core export name.
//
//	"m:lib/math@1.0.0#plus"              -> Interface "m:lib/math@1.0.0", Func "plus"
//	"m:lib/shapes@1.0.0#[method]counter.get" -> Resource "counter", Func "get"
//	"[constructor]counter"               -> world-level resource "counter"
type ExportName struct {
	Raw       string
	Interface string
	Resource  string
	Func      string
	Kind      ExportKind
}

// ParseExportName splits a core export name into interface, resource and
// function parts.
func ParseExportName(raw string) ExportName {
	n := ExportName{Raw: raw}
	if isPlumbing(raw) {
		n.Kind = ExportPlumbing
		n.Func = raw
		return n
	}

	rest := raw
	if iface, fn, ok := strings.Cut(raw, "#"); ok {
		n.Interface = iface
		rest = fn
	}

	switch {
	case strings.HasPrefix(rest, prefixConstructor):
		n.Kind = ExportConstructor
		n.Resource = rest[len(prefixConstructor):]
	case strings.HasPrefix(rest, prefixResourceDrop):
		n.Kind = ExportDestructor
		n.Resource = rest[len(prefixResourceDrop):]
	case strings.HasPrefix(rest, prefixDtor):
		n.Kind = ExportDestructor
		n.Resource = rest[len(prefixDtor):]
	case strings.HasPrefix(rest, prefixMethod):
		n.Kind = ExportMethod
		n.Resource, n.Func = splitResourceFunction(rest[len(prefixMethod):])
	case strings.HasPrefix(rest, prefixStatic):
		n.Kind = ExportStatic
		n.Resource, n.Func = splitResourceFunction(rest[len(prefixStatic):])
	default:
		n.Kind = ExportFunc
		n.Func = rest
	}
	return n
}

// splitResourceFunction splits "resource.function". A missing dot leaves
// the function empty.
func splitResourceFunction(s string) (string, string) {
	res, fn, _ := strings.Cut(s, ".")
	return res, fn
}

func isPlumbing(name string) bool {
	switch name {
	case "_initialize", "_start":
		return true
	}
	return strings.HasPrefix(name, "cabi_")
}

// TypeName returns the name of the type that owns this export. Free
// functions of the world belong to the root type, reported as "".
func (n ExportName) TypeName() string {
	if n.Kind == ExportPlumbing {
		return ""
	}
	if n.Resource != "" {
		return ResourceTypeName(n.Interface, n.Resource)
	}
	return n.Interface
}

// ResourceTypeName builds the type name of a resource declared in iface.
func ResourceTypeName(iface, resource string) string {
	if iface == "" {
		return resource
	}
	return iface + "#" + resource
}

// InterfaceParts splits "ns:pkg/name@version" into its parts. Names without
// a package keep the whole string as name.
func InterfaceParts(iface string) (namespace, name, version string) {
	rest := iface
	if before, after, ok := strings.Cut(rest, "@"); ok {
		rest, version = before, after
	}
	if pkg, short, ok := strings.Cut(rest, "/"); ok {
		return pkg, short, version
	}
	return "", rest, version
}
