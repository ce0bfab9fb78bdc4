package engine

import (
	"context"
	"io"
	"sort"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-resolver/errors"
)

// Engine owns a wazero runtime and the host modules instantiated into it.
type Engine struct {
	runtime  wazero.Runtime
	hosts    *HostRegistry
	stdout   io.Writer
	stderr   io.Writer
	cfg      Config
	wasiDone bool
}

// Config holds configuration for engine creation
type Config struct {
	// Stdout and Stderr receive the guest's WASI output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// Hosts provides Go functions for the library's non-WASI imports.
	Hosts *HostRegistry

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// DisableWASI refuses libraries importing wasi_snapshot_preview1
	// instead of providing it.
	DisableWASI bool
}

// New creates an engine with default configuration.
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates an engine and instantiates the registered host modules.
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if c.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}

	e := &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		hosts:   c.Hosts,
		stdout:  c.Stdout,
		stderr:  c.Stderr,
		cfg:     c,
	}
	if e.hosts == nil {
		e.hosts = NewHostRegistry()
	}

	if err := e.hosts.Instantiate(ctx, e.runtime); err != nil {
		_ = e.runtime.Close(ctx)
		return nil, err
	}
	return e, nil
}

// Compile validates and compiles a core module. Every function import must
// be satisfied by WASI or a registered host module.
func (e *Engine) Compile(ctx context.Context, wasm []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("", "compile module", err)
	}

	var missing []string
	needsWASI := false
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		switch {
		case module == wasiModuleName && !e.cfg.DisableWASI:
			needsWASI = true
		case e.hosts.Has(module, name):
		default:
			missing = append(missing, module+"#"+name)
		}
	}
	if len(missing) > 0 {
		_ = compiled.Close(ctx)
		sort.Strings(missing)
		return nil, errors.Load("", "resolve imports", errors.NewMissingImportsError(missing))
	}

	if needsWASI {
		if err := e.initWASI(ctx); err != nil {
			_ = compiled.Close(ctx)
			return nil, errors.Load("", "instantiate WASI", err)
		}
	}

	Logger().Debug("compiled module",
		zap.String("name", compiled.Name()),
		zap.Int("exports", len(compiled.ExportedFunctions())),
		zap.Bool("wasi", needsWASI))

	return &Module{engine: e, compiled: compiled}, nil
}

// Inspect compiles a core module without resolving its imports. The result
// describes the module's exports; instantiating it fails unless every import
// happens to be available.
func (e *Engine) Inspect(ctx context.Context, wasm []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("", "compile module", err)
	}
	return &Module{engine: e, compiled: compiled}, nil
}

// Close releases the runtime and every module instantiated in it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}
