package engine

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-resolver/errors"
)

// ExportKind distinguishes exported functions from exported memories.
type ExportKind int

const (
	ExportFunction ExportKind = iota
	ExportMemory
)

func (k ExportKind) String() string {
	if k == ExportMemory {
		return "memory"
	}
	return "func"
}

// Export describes one export of a compiled module with its core signature.
type Export struct {
	Name       string
	ParamNames []string
	Params     []api.ValueType
	Results    []api.ValueType
	Kind       ExportKind
}

// Import describes one function import of a compiled module.
type Import struct {
	Module  string
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// Module is a compiled core module. It can be instantiated many times.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
}

// Name returns the module name from the name section, or "".
func (m *Module) Name() string {
	return m.compiled.Name()
}

// Exports lists exported functions and memories sorted by name.
func (m *Module) Exports() []Export {
	funcs := m.compiled.ExportedFunctions()
	mems := m.compiled.ExportedMemories()

	exports := make([]Export, 0, len(funcs)+len(mems))
	for name, def := range funcs {
		exports = append(exports, Export{
			Name:       name,
			Kind:       ExportFunction,
			Params:     def.ParamTypes(),
			Results:    def.ResultTypes(),
			ParamNames: def.ParamNames(),
		})
	}
	for name := range mems {
		exports = append(exports, Export{Name: name, Kind: ExportMemory})
	}
	sort.Slice(exports, func(i, j int) bool { return exports[i].Name < exports[j].Name })
	return exports
}

// Imports lists the module's function imports in declaration order.
func (m *Module) Imports() []Import {
	defs := m.compiled.ImportedFunctions()
	imports := make([]Import, 0, len(defs))
	for _, def := range defs {
		module, name, _ := def.Import()
		imports = append(imports, Import{
			Module:  module,
			Name:    name,
			Params:  def.ParamTypes(),
			Results: def.ResultTypes(),
		})
	}
	return imports
}

// ReadImports compiles wasm in a throwaway runtime and lists its function
// imports without resolving them.
func ReadImports(ctx context.Context, wasm []byte) ([]Import, error) {
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("", "compile module", err)
	}
	return (&Module{compiled: compiled}).Imports(), nil
}

// InstanceConfig holds configuration for module instantiation
type InstanceConfig struct {
	// Name registers the instance in the runtime namespace. Empty generates
	// a unique name.
	Name string
}

// Instantiate creates a running instance. _initialize runs when exported.
func (m *Module) Instantiate(ctx context.Context, cfg *InstanceConfig) (*Instance, error) {
	name := ""
	if cfg != nil {
		name = cfg.Name
	}
	if name == "" {
		name = "lib-" + uuid.NewString()
	}

	modConfig := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize")
	if m.engine.stdout != nil {
		modConfig = modConfig.WithStdout(m.engine.stdout)
	}
	if m.engine.stderr != nil {
		modConfig = modConfig.WithStderr(m.engine.stderr)
	}

	mod, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	Logger().Debug("instantiated module", zap.String("instance", name))

	return newInstance(name, mod), nil
}

// Close releases the compiled code. Running instances are unaffected.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
