package resolver

import "github.com/wippyai/wasm-resolver/metadata"

// Introspection accessors return zero values until a type is loaded.

// Type returns the loaded type, or nil.
func (r *Resolver) Type() *metadata.Type {
	return r.state.loadedType()
}

// Instance returns the constructed object, or nil.
func (r *Resolver) Instance() *Object {
	if s, ok := r.state.(loadedWithInstance); ok {
		return s.object
	}
	return nil
}

// Namespace returns the WIT package of the loaded type.
func (r *Resolver) Namespace() string {
	if t := r.Type(); t != nil {
		return t.Namespace
	}
	return ""
}

// Interfaces returns the interfaces the loaded type declares.
func (r *Resolver) Interfaces() []string {
	if t := r.Type(); t != nil {
		return append([]string(nil), t.Interfaces...)
	}
	return nil
}

// BaseTypeName returns the name of the base type, or "" for the root type.
func (r *Resolver) BaseTypeName() string {
	if t := r.Type(); t != nil {
		return t.Base
	}
	return ""
}

// BaseType returns the base type descriptor, or nil.
func (r *Resolver) BaseType() *metadata.Type {
	var lib *library
	switch s := r.state.(type) {
	case loaded:
		lib = s.lib
	case loadedWithInstance:
		lib = s.lib
	default:
		return nil
	}
	if base := r.BaseTypeName(); base != "" {
		if t, ok := lib.catalog.Lookup(base); ok {
			return t
		}
	}
	return nil
}

// Attributes returns the attributes of the loaded type.
func (r *Resolver) Attributes() []metadata.Attribute {
	if t := r.Type(); t != nil {
		return append([]metadata.Attribute(nil), t.Attributes...)
	}
	return nil
}

// Methods returns the static and instance methods of the loaded type.
func (r *Resolver) Methods() []*metadata.Method {
	if t := r.Type(); t != nil {
		return t.Methods()
	}
	return nil
}

// Members returns every member of the loaded type.
func (r *Resolver) Members() []metadata.Member {
	if t := r.Type(); t != nil {
		return t.Members()
	}
	return nil
}

// HasMethod reports whether the loaded type has a method called name.
func (r *Resolver) HasMethod(name string) bool {
	for _, m := range r.Methods() {
		if m.Name == name {
			return true
		}
	}
	return false
}

// HasAttribute reports whether the loaded type carries the attribute.
func (r *Resolver) HasAttribute(name string) bool {
	t := r.Type()
	return t != nil && t.HasAttribute(name)
}

// ImplementsInterface reports whether the loaded type declares the
// interface, by full or short name.
func (r *Resolver) ImplementsInterface(name string) bool {
	t := r.Type()
	return t != nil && t.Implements(name)
}

// HasMember reports whether the loaded type has a member called name.
func (r *Resolver) HasMember(name string) bool {
	for _, m := range r.Members() {
		if m.Name == name {
			return true
		}
	}
	return false
}
