package engine

import (
	"context"

	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

const wasiModuleName = wasi_snapshot_preview1.ModuleName

// initWASI instantiates wasi_snapshot_preview1 once per engine. Output goes
// to the writers configured on each module instance.
func (e *Engine) initWASI(ctx context.Context) error {
	if e.wasiDone {
		return nil
	}
	if e.runtime.Module(wasiModuleName) == nil {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
			return err
		}
	}
	e.wasiDone = true
	return nil
}
