package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-resolver/errors"
)

const (
	CabiRealloc = "cabi_realloc"

	// Legacy names from pre-standardization component model implementations
	legacyRealloc = "canonical_abi_realloc"
	legacyAlloc   = "allocate"
	simpleAlloc   = "alloc"
)

// Instance is a running module instance.
// Instance is NOT thread-safe.
type Instance struct {
	mod         api.Module
	allocFn     api.Function
	name        string
	allocParams int
}

func newInstance(name string, mod api.Module) *Instance {
	inst := &Instance{name: name, mod: mod}

	defs := mod.ExportedFunctionDefinitions()
	for _, candidate := range []string{CabiRealloc, legacyRealloc, legacyAlloc, simpleAlloc} {
		if def, ok := defs[candidate]; ok {
			inst.allocFn = mod.ExportedFunction(candidate)
			inst.allocParams = len(def.ParamTypes())
			break
		}
	}
	return inst
}

// Name returns the instance's name in the runtime namespace.
func (i *Instance) Name() string {
	return i.name
}

// HasExport reports whether the instance exports a function with this name.
func (i *Instance) HasExport(name string) bool {
	return i.mod.ExportedFunction(name) != nil
}

// Call invokes an exported function with flat core values.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseInvoke, "export", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Invocation(name, err)
	}
	return results, nil
}

func (i *Instance) memory() (api.Memory, error) {
	mem := i.mod.Memory()
	if mem == nil {
		return nil, errors.Unsupported(errors.PhaseInvoke, "library exports no memory")
	}
	return mem, nil
}

// Read copies length bytes starting at offset.
func (i *Instance) Read(offset, length uint32) ([]byte, error) {
	mem, err := i.memory()
	if err != nil {
		return nil, err
	}
	view, ok := mem.Read(offset, length)
	if !ok {
		return nil, errors.InvalidData(errors.PhaseDecode, "read out of memory bounds")
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// Write copies data into memory at offset.
func (i *Instance) Write(offset uint32, data []byte) error {
	mem, err := i.memory()
	if err != nil {
		return err
	}
	if !mem.Write(offset, data) {
		return errors.InvalidData(errors.PhaseEncode, "write out of memory bounds")
	}
	return nil
}

// ReadU32 reads a little-endian uint32 at offset.
func (i *Instance) ReadU32(offset uint32) (uint32, error) {
	mem, err := i.memory()
	if err != nil {
		return 0, err
	}
	v, ok := mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.InvalidData(errors.PhaseDecode, "read out of memory bounds")
	}
	return v, nil
}

// Alloc reserves guest memory through the library's allocator export.
func (i *Instance) Alloc(ctx context.Context, size, align uint32) (uint32, error) {
	if i.allocFn == nil {
		return 0, errors.Unsupported(errors.PhaseEncode, "library exports no "+CabiRealloc)
	}

	var results []uint64
	var err error
	switch i.allocParams {
	case 1:
		results, err = i.allocFn.Call(ctx, uint64(size))
	case 2:
		results, err = i.allocFn.Call(ctx, uint64(size), uint64(align))
	default:
		results, err = i.allocFn.Call(ctx, 0, 0, uint64(align), uint64(size))
	}
	if err != nil {
		return 0, errors.New(errors.PhaseEncode, errors.KindInvocation).
			Name(CabiRealloc).
			Detail("allocate %d bytes", size).
			Cause(err).
			Build()
	}
	if len(results) == 0 {
		return 0, errors.InvalidData(errors.PhaseEncode, CabiRealloc+" returned no pointer")
	}
	return api.DecodeU32(results[0]), nil
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}
