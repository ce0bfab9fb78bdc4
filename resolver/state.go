package resolver

import "github.com/wippyai/wasm-resolver/metadata"

// state is one of unloaded, loaded or loadedWithInstance.
type state interface {
	loadedType() *metadata.Type
}

type unloaded struct{}

func (unloaded) loadedType() *metadata.Type { return nil }

// loaded holds a resolved type and the library copy it was resolved in.
type loaded struct {
	lib *library
	typ *metadata.Type
}

func (s loaded) loadedType() *metadata.Type { return s.typ }

type loadedWithInstance struct {
	loaded
	object *Object
}

// Object is a constructed resource instance: the handle returned by the
// type's constructor, valid in the library copy that produced it.
type Object struct {
	Type   *metadata.Type
	Handle uint32
}
