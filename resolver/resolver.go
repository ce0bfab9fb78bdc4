// Package resolver loads a named type from a WebAssembly library, optionally
// constructs an instance of it, and invokes its methods with dynamically
// typed arguments matched exactly against the declared parameter types.
package resolver

import (
	"context"
	"strings"

	"github.com/viant/afs"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-resolver/abi"
	"github.com/wippyai/wasm-resolver/errors"
	"github.com/wippyai/wasm-resolver/metadata"
)

// Resolver loads a type from a library by name, optionally constructs an
// instance of it, and invokes its methods with dynamically typed arguments.
//
// Each load reopens the library. A successful load replaces the previous
// state and releases the previous library copy, calling the destructor of a
// constructed object first. A failed load leaves the previous state intact.
//
// A Resolver is not safe for concurrent use.
type Resolver struct {
	fs    afs.Service
	state state
	cfg   Config
	path  string
}

// New creates a resolver for the library at path. The path is not checked
// until the first load.
func New(path string) *Resolver {
	return NewWithConfig(path, nil)
}

// NewWithConfig creates a resolver with explicit settings.
func NewWithConfig(path string, cfg *Config) *Resolver {
	r := &Resolver{path: path, state: unloaded{}}
	if cfg != nil {
		r.cfg = *cfg
	}
	r.fs = r.cfg.FS
	if r.fs == nil {
		r.fs = afs.New()
	}
	return r
}

// Path returns the library location.
func (r *Resolver) Path() string {
	return r.path
}

// LoadStaticType loads the library and resolves a type that has no
// constructor. No instance is created.
func (r *Resolver) LoadStaticType(ctx context.Context, typeName string) error {
	if typeName == "" {
		return errors.InvalidArgument(errors.PhaseResolve, "type name is required")
	}

	lib, err := openLibrary(ctx, r.path, &r.cfg, r.fs, true)
	if err != nil {
		return err
	}
	typ, err := lookupType(lib, typeName)
	if err == nil && !typ.StaticOnly() {
		err = errors.NotStatic(typ.Name)
	}
	if err != nil {
		_ = lib.close(ctx)
		return err
	}

	r.replace(ctx, loaded{lib: lib, typ: typ})
	Logger().Debug("loaded static type", zap.String("type", typ.Name))
	return nil
}

// LoadInstantiableType loads the library, resolves a type and constructs an
// instance with ctorArgs. The constructor must accept exactly the dynamic
// types of ctorArgs.
func (r *Resolver) LoadInstantiableType(ctx context.Context, typeName string, ctorArgs ...any) error {
	if typeName == "" {
		return errors.InvalidArgument(errors.PhaseResolve, "type name is required")
	}

	lib, err := openLibrary(ctx, r.path, &r.cfg, r.fs, true)
	if err != nil {
		return err
	}

	obj, typ, err := construct(ctx, lib, typeName, ctorArgs)
	if err != nil {
		_ = lib.close(ctx)
		return err
	}

	r.replace(ctx, loadedWithInstance{loaded: loaded{lib: lib, typ: typ}, object: obj})
	Logger().Debug("constructed instance",
		zap.String("type", typ.Name),
		zap.Uint32("handle", obj.Handle))
	return nil
}

func lookupType(lib *library, typeName string) (*metadata.Type, error) {
	typ, ok := lib.catalog.Lookup(typeName)
	if !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "type", typeName)
	}
	return typ, nil
}

func construct(ctx context.Context, lib *library, typeName string, args []any) (*Object, *metadata.Type, error) {
	typ, err := lookupType(lib, typeName)
	if err != nil {
		return nil, nil, err
	}
	ctor := typ.Constructor
	if ctor != nil && ctor.Unsupported() {
		return nil, nil, unsupportedMethod(ctor)
	}
	if ctor == nil || !ctor.Accepts(args) {
		return nil, nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
			Name(typ.Name).
			Detail("no constructor accepting (%s)", argTypes(args)).
			Build()
	}

	result, err := lib.call(ctx, ctor, nil, args)
	if err != nil {
		if errors.IsKind(err, errors.KindInvocation) {
			return nil, nil, err
		}
		return nil, nil, errors.Invocation(ctor.Export, err)
	}
	handle, ok := result.(uint32)
	if !ok {
		return nil, nil, errors.InvalidData(errors.PhaseDecode, "constructor did not return a handle")
	}
	return &Object{Type: typ, Handle: handle}, typ, nil
}

// replace installs next and releases the previous state.
func (r *Resolver) replace(ctx context.Context, next state) {
	if err := r.release(ctx); err != nil {
		Logger().Warn("release previous type", zap.Error(err))
	}
	r.state = next
}

// release drops a constructed object and closes the library copy.
func (r *Resolver) release(ctx context.Context) error {
	var err error
	switch s := r.state.(type) {
	case loadedWithInstance:
		if dtor := s.typ.Destructor; dtor != nil {
			if _, dropErr := s.lib.instance.Call(ctx, dtor.Export, uint64(s.object.Handle)); dropErr != nil {
				Logger().Warn("destructor failed",
					zap.String("type", s.typ.Name),
					zap.Uint32("handle", s.object.Handle),
					zap.Error(dropErr))
				err = multierr.Append(err, dropErr)
			}
		}
		err = multierr.Append(err, s.lib.close(ctx))
		Logger().Debug("released instance", zap.String("type", s.typ.Name))
	case loaded:
		err = s.lib.close(ctx)
	}
	r.state = unloaded{}
	return err
}

// Close releases the loaded type and any constructed object.
func (r *Resolver) Close(ctx context.Context) error {
	return r.release(ctx)
}

// InvokeStatic calls a static method of the loaded type and discards the
// result.
func (r *Resolver) InvokeStatic(ctx context.Context, name string, args ...any) error {
	_, err := r.InvokeStaticValue(ctx, name, args...)
	return err
}

// InvokeStaticValue calls the static method called name whose parameters
// exactly match the dynamic types of args, and returns its result. Methods
// without a result return nil.
func (r *Resolver) InvokeStaticValue(ctx context.Context, name string, args ...any) (any, error) {
	var s loaded
	switch st := r.state.(type) {
	case loaded:
		s = st
	case loadedWithInstance:
		s = st.loaded
	default:
		return nil, errors.NotLoaded("type")
	}
	if name == "" {
		return nil, errors.InvalidArgument(errors.PhaseResolve, "method name is required")
	}

	m, ok := s.typ.FindMethod(name, metadata.MethodStatic, args)
	if !ok {
		return nil, methodNotFound("static method", s.typ, metadata.MethodStatic, name, args)
	}
	result, err := s.lib.call(ctx, m, nil, args)
	Logger().Debug("invoked static method",
		zap.String("type", s.typ.Name),
		zap.String("method", name),
		zap.Error(err))
	return result, err
}

// InvokeMethod calls an instance method on the constructed object and
// discards the result.
func (r *Resolver) InvokeMethod(ctx context.Context, name string, args ...any) error {
	_, err := r.InvokeMethodValue(ctx, name, args...)
	return err
}

// InvokeMethodValue calls the instance method called name on the constructed
// object. Overloads are resolved by exact argument types, as for static
// methods.
func (r *Resolver) InvokeMethodValue(ctx context.Context, name string, args ...any) (any, error) {
	s, ok := r.state.(loadedWithInstance)
	if !ok {
		return nil, errors.NotLoaded("instance")
	}
	if name == "" {
		return nil, errors.InvalidArgument(errors.PhaseResolve, "method name is required")
	}

	m, ok := s.typ.FindMethod(name, metadata.MethodInstance, args)
	if !ok {
		return nil, methodNotFound("method", s.typ, metadata.MethodInstance, name, args)
	}
	handle := s.object.Handle
	result, err := s.lib.call(ctx, m, &handle, args)
	Logger().Debug("invoked method",
		zap.String("type", s.typ.Name),
		zap.String("method", name),
		zap.Uint32("handle", handle),
		zap.Error(err))
	return result, err
}

// methodNotFound reports a failed overload lookup. A method of that name and
// kind whose signature cannot be passed by value is reported as unsupported.
func methodNotFound(what string, typ *metadata.Type, kind metadata.MethodKind, name string, args []any) error {
	for _, m := range typ.MethodsNamed(name) {
		if m.Kind == kind && m.Unsupported() {
			return unsupportedMethod(m)
		}
	}
	return errors.New(errors.PhaseResolve, errors.KindNotFound).
		Name(name).
		Detail("no %s %s(%s) on %s", what, name, argTypes(args), typ.Name).
		Build()
}

func argTypes(args []any) string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = abi.GoTypeName(a)
	}
	return strings.Join(names, ", ")
}

// LibraryTypeNames reopens the library and returns the names of every type
// it defines. It does not depend on or change the loaded type.
func (r *Resolver) LibraryTypeNames(ctx context.Context) ([]string, error) {
	cat, err := r.describe(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Names(), nil
}

// LibraryTypes is LibraryTypeNames returning the type descriptors.
func (r *Resolver) LibraryTypes(ctx context.Context) ([]*metadata.Type, error) {
	cat, err := r.describe(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Types(), nil
}

// LibraryType looks up one type of the library by name or alias without
// loading it.
func (r *Resolver) LibraryType(ctx context.Context, name string) (*metadata.Type, error) {
	if name == "" {
		return nil, errors.InvalidArgument(errors.PhaseResolve, "type name is required")
	}
	cat, err := r.describe(ctx)
	if err != nil {
		return nil, err
	}
	typ, ok := cat.Lookup(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "type", name)
	}
	return typ, nil
}

func (r *Resolver) describe(ctx context.Context) (*metadata.Catalog, error) {
	lib, err := openLibrary(ctx, r.path, &r.cfg, r.fs, false)
	if err != nil {
		return nil, err
	}
	cat := lib.catalog
	if err := lib.close(ctx); err != nil {
		Logger().Warn("close library", zap.Error(err))
	}
	return cat, nil
}
