// Package engine wraps wazero for loading core WebAssembly libraries.
//
// # Architecture
//
//	Engine   - owns a wazero runtime, WASI preview1 and host modules
//	Module   - a compiled library; lists exports with core signatures
//	Instance - a running library; calls exports and accesses memory
//
// # Loading Flow
//
//  1. Engine.Compile() compiles the binary and checks every function import
//     against WASI and the HostRegistry, failing with MissingImportsError
//  2. Module.Exports() feeds the metadata package with names and signatures
//  3. Module.Instantiate() creates an Instance; _initialize runs if exported
//  4. Instance.Call() invokes exports with flat uint64 values
//
// Instance implements the root package Memory and Allocator interfaces so
// the abi package can lower strings through cabi_realloc.
//
// # Thread Safety
//
// Engine and Module may be shared. Instance is NOT thread-safe.
package engine
