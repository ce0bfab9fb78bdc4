// Package wasmresolver loads compiled WebAssembly libraries at runtime,
// resolves the types they export by name, and invokes their methods with
// arguments whose WIT types are derived from the Go values passed in.
//
// # Architecture Overview
//
//	wasmresolver/        Root package with Memory and Allocator interfaces
//	├── resolver/        Resolver: load a type, construct it, invoke methods, introspect
//	├── metadata/        Type descriptors derived from export names and WIT sidecars
//	├── engine/          wazero integration: compile, instantiate, call, host modules
//	├── abi/             Go <-> WIT scalar and string mapping over the flat ABI
//	├── config/          YAML configuration loaded through afs
//	├── errors/          Structured error types
//	└── cmd/resolve/     Command line and interactive browser
//
// # Types in a core module
//
// A core module has no classes, so types are read from the canonical ABI
// export names:
//
//	m:lib/math@1.0.0#plus                     static method plus of interface m:lib/math@1.0.0
//	m:lib/shapes@1.0.0#[constructor]counter   constructor of resource m:lib/shapes@1.0.0#counter
//	m:lib/shapes@1.0.0#[method]counter.get    instance method get
//	m:lib/shapes@1.0.0#[static]counter.zero   static method zero
//	m:lib/shapes@1.0.0#[resource-drop]counter destructor
//
// Interfaces and constructor-less resources are static-only types; resources
// with a constructor are instantiable.
//
// # Quick Start
//
//	r := resolver.New("mathlib.wasm")
//	defer r.Close(ctx)
//
//	if err := r.LoadStaticType(ctx, "m:lib/math@1.0.0"); err != nil {
//	    log.Fatal(err)
//	}
//	sum, err := r.InvokeStaticValue(ctx, "plus", int32(2), int32(3))
//	fmt.Println(sum) // 5
package wasmresolver
