package engine

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-resolver/errors"
)

// Host is the interface for struct-based host modules.
// All exported methods (except Namespace) are registered as host functions.
type Host interface {
	// Namespace returns the import module name (e.g., "env" or "my:pkg/api@1.0.0").
	Namespace() string
}

// HostRegistry collects Go functions that satisfy library imports.
// Parameters and results must be wasm numeric types; a leading
// context.Context and api.Module are allowed.
type HostRegistry struct {
	funcs map[string]map[string]any
	mu    sync.RWMutex
}

func NewHostRegistry() *HostRegistry {
	return &HostRegistry{
		funcs: make(map[string]map[string]any),
	}
}

// RegisterHost registers all exported methods of h as host functions.
// Method names are converted from PascalCase to kebab-case (GetValue -> get-value).
func (r *HostRegistry) RegisterHost(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidArgument(errors.PhaseHost, "namespace cannot be empty")
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Namespace" {
			continue
		}
		r.put(ns, toKebabCase(method.Name), rv.Method(i).Interface())
	}
	return nil
}

// RegisterFunc registers a single function under module#name.
func (r *HostRegistry) RegisterFunc(module, name string, fn any) error {
	if module == "" {
		return errors.InvalidArgument(errors.PhaseHost, "module cannot be empty")
	}
	if name == "" {
		return errors.InvalidArgument(errors.PhaseHost, "function name cannot be empty")
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Name(module + "#" + name).
			GoType(fmt.Sprintf("%T", fn)).
			Detail("handler must be a function").
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(module, name, fn)
	return nil
}

// stub is a host function with an explicit core signature.
type stub struct {
	fn      api.GoModuleFunction
	params  []api.ValueType
	results []api.ValueType
}

// RegisterStub registers a function under module#name that accepts the given
// core signature, logs every call and returns zero results. It lets a
// library be inspected and exercised without its real host.
func (r *HostRegistry) RegisterStub(module, name string, params, results []api.ValueType) error {
	if module == "" {
		return errors.InvalidArgument(errors.PhaseHost, "module cannot be empty")
	}
	if name == "" {
		return errors.InvalidArgument(errors.PhaseHost, "function name cannot be empty")
	}

	qualified := module + "#" + name
	nresults := len(results)
	fn := api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
		Logger().Info("host stub called",
			zap.String("import", qualified),
			zap.Uint64s("args", append([]uint64(nil), stack[:len(params)]...)))
		for i := 0; i < nresults; i++ {
			stack[i] = 0
		}
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(module, name, stub{fn: fn, params: params, results: results})
	return nil
}

func (r *HostRegistry) put(module, name string, fn any) {
	if r.funcs[module] == nil {
		r.funcs[module] = make(map[string]any)
	}
	r.funcs[module][name] = fn
}

// Has reports whether module#name is registered.
func (r *HostRegistry) Has(module, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[module][name]
	return ok
}

// Modules returns the registered module names, sorted.
func (r *HostRegistry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for ns := range r.funcs {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Instantiate builds one wazero host module per registered namespace.
func (r *HostRegistry) Instantiate(ctx context.Context, rt wazero.Runtime) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for module, funcs := range r.funcs {
		builder := rt.NewHostModuleBuilder(module)
		for name, fn := range funcs {
			if s, ok := fn.(stub); ok {
				builder = builder.NewFunctionBuilder().
					WithGoModuleFunction(s.fn, s.params, s.results).
					Export(name)
				continue
			}
			builder = builder.NewFunctionBuilder().WithFunc(fn).Export(name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.Registration(module, "*", err)
		}
		Logger().Debug("instantiated host module",
			zap.String("module", module),
			zap.Int("functions", len(funcs)))
	}
	return nil
}

// toKebabCase converts PascalCase to kebab-case.
// Handles acronyms: GetHTTPURL -> get-http-url
func toKebabCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if !unicode.IsUpper(r) {
			result.WriteRune(r)
			continue
		}

		acronymEnd := i + 1
		for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
			acronymEnd++
		}
		// Last uppercase before lowercase starts next word, not part of acronym
		if acronymEnd > i+1 && acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
			acronymEnd--
		}

		if i > 0 {
			result.WriteByte('-')
		}
		for j := i; j < acronymEnd; j++ {
			result.WriteRune(unicode.ToLower(runes[j]))
		}
		i = acronymEnd - 1
	}
	return result.String()
}
