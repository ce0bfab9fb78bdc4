package resolver

import (
	"io"

	"github.com/viant/afs"

	"github.com/wippyai/wasm-resolver/engine"
)

// Config holds optional resolver settings. The zero value is usable.
type Config struct {
	// FS reads the library and its WIT description. Nil uses afs.New().
	FS afs.Service

	// Hosts satisfies the library's non-WASI imports.
	Hosts *engine.HostRegistry

	// Stdout and Stderr receive the library's WASI output.
	Stdout io.Writer
	Stderr io.Writer

	// WIT is the location of the library's WIT description. Empty looks for
	// a .wit file next to the library and proceeds without one if absent.
	WIT string

	// MemoryLimitPages caps library memory in 64KiB pages. 0 keeps the
	// engine default.
	MemoryLimitPages uint32

	// DisableWASI refuses libraries that import WASI preview1.
	DisableWASI bool
}

func (c *Config) engineConfig() *engine.Config {
	return &engine.Config{
		Stdout:           c.Stdout,
		Stderr:           c.Stderr,
		Hosts:            c.Hosts,
		MemoryLimitPages: c.MemoryLimitPages,
		DisableWASI:      c.DisableWASI,
	}
}
