package resolver

import (
	"context"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-resolver/abi"
	"github.com/wippyai/wasm-resolver/engine"
	"github.com/wippyai/wasm-resolver/errors"
	"github.com/wippyai/wasm-resolver/metadata"
)

const postReturnPrefix = "cabi_post_"

// library is one opened copy of the library: its own engine, compiled
// module, derived catalog and, when instantiated, a running instance.
type library struct {
	engine   *engine.Engine
	module   *engine.Module
	instance *engine.Instance
	catalog  *metadata.Catalog
	location string
}

// sidecarURL returns the default WIT location for a library location.
func sidecarURL(location string) string {
	return strings.TrimSuffix(location, path.Ext(location)) + ".wit"
}

// stem returns the library file name without extension.
func stem(location string) string {
	_, name := url.Split(location, file.Scheme)
	return strings.TrimSuffix(name, path.Ext(name))
}

func readDocument(ctx context.Context, fs afs.Service, location, explicit string) (*metadata.Document, error) {
	witURL := explicit
	if witURL == "" {
		witURL = sidecarURL(location)
		ok, err := fs.Exists(ctx, witURL)
		if err != nil {
			return nil, errors.Load(witURL, "check WIT sidecar", err)
		}
		if !ok {
			return nil, nil
		}
	}
	data, err := fs.DownloadWithURL(ctx, witURL)
	if err != nil {
		return nil, errors.Load(witURL, "read WIT", err)
	}
	doc, err := metadata.ParseWIT(string(data))
	if err != nil {
		return nil, errors.Load(witURL, "parse WIT", err)
	}
	return doc, nil
}

// openLibrary reads, compiles and describes the library. The module is
// instantiated only when instantiate is set; otherwise imports are not
// resolved, so a library can be described without its hosts.
func openLibrary(ctx context.Context, location string, cfg *Config, fs afs.Service, instantiate bool) (*library, error) {
	wasm, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, errors.Load(location, "read library", err)
	}
	doc, err := readDocument(ctx, fs, location, cfg.WIT)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewWithConfig(ctx, cfg.engineConfig())
	if err != nil {
		return nil, errors.Load(location, "create engine", err)
	}
	lib := &library{engine: eng, location: location}
	if err := lib.open(ctx, wasm, doc, instantiate); err != nil {
		if closeErr := lib.close(ctx); closeErr != nil {
			Logger().Warn("close library", zap.String("location", location), zap.Error(closeErr))
		}
		return nil, err
	}

	Logger().Debug("opened library",
		zap.String("location", location),
		zap.Int("types", len(lib.catalog.Names())),
		zap.Bool("wit", doc != nil),
		zap.Bool("instantiated", instantiate))
	return lib, nil
}

func (l *library) open(ctx context.Context, wasm []byte, doc *metadata.Document, instantiate bool) error {
	var err error
	if instantiate {
		l.module, err = l.engine.Compile(ctx, wasm)
	} else {
		l.module, err = l.engine.Inspect(ctx, wasm)
	}
	if err != nil {
		return errors.Load(l.location, "compile library", err)
	}

	l.catalog, err = metadata.Build(metadata.BuildInput{
		Doc:        doc,
		ModuleName: l.module.Name(),
		Fallback:   stem(l.location),
		Exports:    l.module.Exports(),
	})
	if err != nil {
		return errors.Load(l.location, "describe library", err)
	}

	if instantiate {
		if l.instance, err = l.module.Instantiate(ctx, nil); err != nil {
			return errors.Load(l.location, "instantiate library", err)
		}
	}
	return nil
}

// call invokes m with args. A non-nil self is passed as the leading handle.
func (l *library) call(ctx context.Context, m *metadata.Method, self *uint32, args []any) (any, error) {
	if m.Unsupported() {
		return nil, unsupportedMethod(m)
	}

	flat, err := abi.Lower(ctx, l.instance, m.ParamTypes(), args)
	if err != nil {
		return nil, err
	}
	if self != nil {
		flat = append([]uint64{uint64(*self)}, flat...)
	}
	if len(flat) > abi.MaxFlatParams {
		return nil, errors.Unsupported(errors.PhaseInvoke, "more than 16 flat parameters")
	}

	raw, err := l.instance.Call(ctx, m.Export, flat...)
	if err != nil {
		return nil, err
	}

	result, err := abi.Lift(l.instance, m.ResultType(), raw)
	if abi.UsesRetptr(m.ResultType()) && len(raw) > 0 {
		if post := postReturnPrefix + m.Export; l.instance.HasExport(post) {
			if _, postErr := l.instance.Call(ctx, post, raw[0]); postErr != nil {
				err = multierr.Append(err, postErr)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func unsupportedMethod(m *metadata.Method) error {
	return errors.New(errors.PhaseInvoke, errors.KindUnsupported).
		Name(m.Export).
		Detail("signature %s has types that cannot be passed by value", m.Signature()).
		Build()
}

// close releases whatever was opened. It accepts a partly opened library.
func (l *library) close(ctx context.Context) error {
	if l == nil {
		return nil
	}
	var err error
	if l.instance != nil {
		err = multierr.Append(err, l.instance.Close(ctx))
	}
	if l.module != nil {
		err = multierr.Append(err, l.module.Close(ctx))
	}
	if l.engine != nil {
		err = multierr.Append(err, l.engine.Close(ctx))
	}
	return err
}
