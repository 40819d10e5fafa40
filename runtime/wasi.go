package runtime

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/wippyai/wasm-module/errors"
)

const wasiModuleName = wasi_snapshot_preview1.ModuleName

const (
	ebadf     = 8          // POSIX EBADF error code
	invalidFD = 0xFFFFFFFF // -1 as uint32
)

// instantiateWASI instantiates wasi_snapshot_preview1 with the adapter
// functions emitted by componentize-py and similar toolchains.
func instantiateWASI(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(wasiModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, _ []uint64) {
		}), nil, nil).
		Export("reset_adapter_state")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = ebadf
		}), []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export("adapter_close_badfd")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = invalidFD
		}), []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export("adapter_open_badfd")

	return builder.Instantiate(ctx)
}

// initWASI instantiates the WASI host once per runtime.
// Safe for concurrent calls from modules sharing the runtime.
func (r *Runtime) initWASI(ctx context.Context) error {
	if r.wasiDone.Load() {
		return nil
	}

	r.wasiMu.Lock()
	defer r.wasiMu.Unlock()

	if r.wasiDone.Load() {
		return nil
	}
	if r.wazero.Module(wasiModuleName) != nil {
		r.wasiDone.Store(true)
		return nil
	}

	if _, err := instantiateWASI(ctx, r.wazero); err != nil {
		return errors.Wrap(errors.PhaseInstantiate, errors.KindInstantiation, err, "instantiate "+wasiModuleName)
	}
	r.logger.Debug("wasi instantiated")
	r.wasiDone.Store(true)
	return nil
}
