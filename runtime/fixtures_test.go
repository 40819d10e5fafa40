package runtime

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-module/memory"
	"github.com/wippyai/wasm-module/wasm"
)

var (
	i32 = api.ValueTypeI32
	f64 = api.ValueTypeF64
)

func u32(v uint32) *uint32 { return &v }

// memoryGuest imports its memory as module.name and exports:
//
//	load(ptr i32) f64
//	store(ptr i32, v f64)
//	grow(pages i32) i32
func memoryGuest(module, name string) []byte {
	b := wasm.NewModuleBuilder()
	b.ImportMemory(module, name, 1, nil)
	load := b.AddFunc([]api.ValueType{i32}, []api.ValueType{f64}, nil,
		wasm.Concat(wasm.LocalGet(0), []byte{wasm.OpF64Load}, wasm.MemArg(3, 0)))
	store := b.AddFunc([]api.ValueType{i32, f64}, nil, nil,
		wasm.Concat(wasm.LocalGet(0), wasm.LocalGet(1), []byte{wasm.OpF64Store}, wasm.MemArg(3, 0)))
	grow := b.AddFunc([]api.ValueType{i32}, []api.ValueType{i32}, nil,
		wasm.Concat(wasm.LocalGet(0), []byte{wasm.OpMemoryGrow, 0x00}))
	b.ExportFunc("load", load)
	b.ExportFunc("store", store)
	b.ExportFunc("grow", grow)
	return b.Build()
}

// addGuest exports add(a, b i32) i32 and has no imports.
func addGuest() []byte {
	b := wasm.NewModuleBuilder()
	add := b.AddFunc([]api.ValueType{i32, i32}, []api.ValueType{i32}, nil,
		wasm.Concat(wasm.LocalGet(0), wasm.LocalGet(1), []byte{wasm.OpI32Add}))
	b.ExportFunc("add", add)
	return b.Build()
}

// hostGuest imports env.twice(i32) i32 and exports call_twice(i32) i32.
func hostGuest() []byte {
	b := wasm.NewModuleBuilder()
	twice := b.ImportFunc("env", "twice", []api.ValueType{i32}, []api.ValueType{i32})
	fn := b.AddFunc([]api.ValueType{i32}, []api.ValueType{i32}, nil,
		wasm.Concat(wasm.LocalGet(0), wasm.Call(twice)))
	b.ExportFunc("call_twice", fn)
	return b.Build()
}

// startGuest runs env.wait from its start function.
func startGuest() []byte {
	b := wasm.NewModuleBuilder()
	wait := b.ImportFunc("env", "wait", nil, nil)
	start := b.AddFunc(nil, nil, nil, wasm.Call(wait))
	b.Start(start)
	return b.Build()
}

// trapGuest traps in its start function.
func trapGuest() []byte {
	b := wasm.NewModuleBuilder()
	start := b.AddFunc(nil, nil, nil, []byte{wasm.OpUnreachable})
	b.Start(start)
	return b.Build()
}

// invalidGuest is well formed but fails validation: the body leaves no
// value for its i32 result.
func invalidGuest() []byte {
	b := wasm.NewModuleBuilder()
	fn := b.AddFunc(nil, []api.ValueType{i32}, nil, nil)
	b.ExportFunc("broken", fn)
	return b.Build()
}

// wasiGuest imports random_get and exports fill(ptr, len i32) i32.
func wasiGuest() []byte {
	b := wasm.NewModuleBuilder()
	random := b.ImportFunc(wasiModuleName, "random_get", []api.ValueType{i32, i32}, []api.ValueType{i32})
	b.ImportMemory("env", "memory", 1, nil)
	fill := b.AddFunc([]api.ValueType{i32, i32}, []api.ValueType{i32}, nil,
		wasm.Concat(wasm.LocalGet(0), wasm.LocalGet(1), wasm.Call(random)))
	b.ExportFunc("fill", fill)
	return b.Build()
}

func newTestRuntime(t *testing.T, cfg *Config) *Runtime {
	t.Helper()
	ctx := context.Background()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Interpreter = true
	rt, err := NewWithConfig(ctx, cfg)
	require.NoError(t, err, "create runtime")
	t.Cleanup(func() { rt.Close(ctx) })
	return rt
}

func newTestMemory(t *testing.T, rt *Runtime, cfg memory.Config) *memory.Memory {
	t.Helper()
	mem, err := rt.NewMemory(context.Background(), cfg)
	require.NoError(t, err, "create memory")
	return mem
}

// counterValue reads a labeled counter from reg.
func counterValue(t *testing.T, reg *prometheus.Registry, name, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err, "gather")
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err, "gather")
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}
