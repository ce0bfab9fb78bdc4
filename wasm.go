package wasmresolver

import "context"

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
}

// Allocator allocates memory in WASM linear memory
type Allocator interface {
	Alloc(ctx context.Context, size, align uint32) (uint32, error)
}

// Env is the guest state values are lowered into and lifted from.
type Env interface {
	Memory
	Allocator
}
