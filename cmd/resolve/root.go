package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/viant/afs"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-resolver/config"
	"github.com/wippyai/wasm-resolver/engine"
	"github.com/wippyai/wasm-resolver/errors"
	"github.com/wippyai/wasm-resolver/resolver"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	fs     afs.Service
	cfg    *config.Config
	logger *zap.Logger

	configURL        string
	wit              string
	memoryLimitPages uint32
	disableWASI      bool
	stubImports      bool
	debug            bool
}

// NewRootCommand builds the resolve command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Inspect and invoke types exported by WebAssembly libraries",
		Long: `resolve loads a core WebAssembly library, derives its types from the
canonical ABI export names and an optional WIT sidecar, and calls their
methods with arguments parsed from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return flags.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if flags.logger != nil {
				_ = flags.logger.Sync()
			}
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configURL, "config", "c", "", "YAML configuration file (any afs URL)")
	pf.StringVar(&flags.wit, "wit", "", "WIT document describing the library (defaults to the .wit sidecar)")
	pf.Uint32Var(&flags.memoryLimitPages, "memory-limit-pages", 0, "maximum linear memory per instance in 64KiB pages")
	pf.BoolVar(&flags.disableWASI, "disable-wasi", false, "refuse libraries importing WASI preview1")
	pf.BoolVar(&flags.stubImports, "stub-imports", false, "satisfy unknown host imports with logging stubs")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newTypesCommand(flags),
		newDescribeCommand(flags),
		newCallCommand(flags),
		newBrowseCommand(flags),
	)
	return rootCmd
}

// setup loads the configuration file and installs the package loggers.
func (f *rootFlags) setup(ctx context.Context) error {
	if f.fs == nil {
		f.fs = afs.New()
	}

	logCfg := &config.Config{Log: config.Log{Level: "info", Format: config.FormatConsole}}
	if f.configURL != "" {
		cfg, err := config.Load(ctx, f.fs, f.configURL)
		if err != nil {
			return err
		}
		f.cfg = cfg
		logCfg = cfg
	}
	if f.debug {
		logCfg.Log.Level = "debug"
	}

	logger, err := logCfg.NewLogger()
	if err != nil {
		return err
	}
	f.logger = logger
	engine.SetLogger(logger.Named("engine"))
	resolver.SetLogger(logger.Named("resolver"))
	return nil
}

// library splits the library location off args. With a configuration file
// the library comes from the file and args carry only the operands.
func (f *rootFlags) library(args []string, operands int) (string, []string, error) {
	if f.cfg != nil && f.cfg.Library != "" {
		if len(args) < operands {
			return "", nil, errors.InvalidArgument(errors.PhaseConfig, "missing operands")
		}
		return f.cfg.Library, args, nil
	}
	if len(args) < operands+1 {
		return "", nil, errors.InvalidArgument(errors.PhaseConfig, "library location is required")
	}
	return args[0], args[1:], nil
}

// newResolver creates a resolver for location with the command line and
// configuration file settings applied.
func (f *rootFlags) newResolver(ctx context.Context, location string, stdout io.Writer) (*resolver.Resolver, error) {
	rc := &resolver.Config{FS: f.fs}
	if f.cfg != nil {
		rc = f.cfg.ResolverConfig(f.fs)
	}
	if f.wit != "" {
		rc.WIT = f.wit
	}
	if f.memoryLimitPages > 0 {
		rc.MemoryLimitPages = f.memoryLimitPages
	}
	if f.disableWASI {
		rc.DisableWASI = true
	}
	rc.Stdout = stdout
	rc.Stderr = os.Stderr

	if f.stubImports {
		hosts, err := stubHosts(ctx, f.fs, location, rc.DisableWASI)
		if err != nil {
			return nil, err
		}
		rc.Hosts = hosts
	}
	return resolver.NewWithConfig(location, rc), nil
}

// stubHosts registers a logging stub for every non-WASI import of the
// library at location.
func stubHosts(ctx context.Context, fs afs.Service, location string, disableWASI bool) (*engine.HostRegistry, error) {
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, errors.Load(location, "read library", err)
	}
	imports, err := engine.ReadImports(ctx, data)
	if err != nil {
		return nil, err
	}

	hosts := engine.NewHostRegistry()
	for _, imp := range imports {
		if imp.Module == wasi_snapshot_preview1.ModuleName && !disableWASI {
			continue
		}
		if err := hosts.RegisterStub(imp.Module, imp.Name, imp.Params, imp.Results); err != nil {
			return nil, fmt.Errorf("stub %s#%s: %w", imp.Module, imp.Name, err)
		}
	}
	return hosts, nil
}

// closeResolver releases r, logging failures.
func (f *rootFlags) closeResolver(ctx context.Context, r *resolver.Resolver) {
	if err := r.Close(ctx); err != nil && f.logger != nil {
		f.logger.Warn("close resolver", zap.Error(err))
	}
}
