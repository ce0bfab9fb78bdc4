// Package config loads resolver settings from a YAML file.
//
//	library: file:///opt/libs/mathlib.wasm
//	wit: file:///opt/libs/mathlib.wit
//	memoryLimitPages: 256
//	disableWasi: false
//	log:
//	  level: debug
//	  format: console
//
// Files are read through afs, so any supported scheme may be used.
package config

import (
	"context"

	"github.com/viant/afs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-resolver/errors"
	"github.com/wippyai/wasm-resolver/resolver"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// MaxMemoryLimitPages is the wasm32 page limit (4GiB).
const MaxMemoryLimitPages = 65536

// Log selects the zap logger level and encoding.
type Log struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Config models the resolver configuration file.
type Config struct {
	Library          string `yaml:"library"`
	WIT              string `yaml:"wit,omitempty"`
	Log              Log    `yaml:"log,omitempty"`
	MemoryLimitPages uint32 `yaml:"memoryLimitPages,omitempty"`
	DisableWASI      bool   `yaml:"disableWasi,omitempty"`
}

// Load reads and validates the configuration at URL.
func Load(ctx context.Context, fs afs.Service, URL string) (*Config, error) {
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindLoadFailed).
			Name(URL).
			Cause(err).
			Detail("read configuration").
			Build()
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Cause(err).
			Detail("decode configuration").
			Build()
	}
	cfg.Init()
	return cfg, cfg.Validate()
}

// Init fills defaults.
func (c *Config) Init() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = FormatConsole
	}
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Library == "" {
		return errors.InvalidArgument(errors.PhaseConfig, "library is required")
	}
	if c.MemoryLimitPages > MaxMemoryLimitPages {
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Name("memoryLimitPages").
			Detail("%d exceeds %d pages", c.MemoryLimitPages, MaxMemoryLimitPages).
			Build()
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Name("log.level").
			Cause(err).
			Build()
	}
	switch c.Log.Format {
	case FormatConsole, FormatJSON:
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Name("log.format").
			Detail("unknown format %q", c.Log.Format).
			Build()
	}
	return nil
}

// ResolverConfig converts the file settings into resolver settings.
func (c *Config) ResolverConfig(fs afs.Service) *resolver.Config {
	return &resolver.Config{
		FS:               fs,
		WIT:              c.WIT,
		MemoryLimitPages: c.MemoryLimitPages,
		DisableWASI:      c.DisableWASI,
	}
}

// NewLogger builds a zap logger for the configured level and format.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Name("log.level").
			Cause(err).
			Build()
	}

	zc := zap.NewProductionConfig()
	if c.Log.Format == FormatConsole {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = c.Log.Format
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
