package runtime

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-module/errors"
	"github.com/wippyai/wasm-module/memory"
	"github.com/wippyai/wasm-module/wasm"
)

func TestNewModule_Validation(t *testing.T) {
	rt := newTestRuntime(t, nil)
	other := newTestRuntime(t, nil)
	foreign := newTestMemory(t, other, memory.Config{InitialPages: 1})

	tests := []struct {
		name string
		bin  []byte
		opts []ModuleOption
	}{
		{"empty binary", nil, nil},
		{"bad magic", []byte("not wasm"), nil},
		{"component binary", []byte{0x00, 0x61, 0x73, 0x6d, 0x0d, 0x00, 0x01, 0x00}, nil},
		{"foreign memory", addGuest(), []ModuleOption{WithMemory(foreign)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rt.NewModule(tc.bin, tc.opts...)
			require.Error(t, err)
			var e *errors.Error
			require.True(t, stderrors.As(err, &e), "expected *errors.Error, got %T", err)
			assert.Equal(t, errors.PhaseLoad, e.Phase)
		})
	}
}

func TestNewModule_Defaults(t *testing.T) {
	rt := newTestRuntime(t, nil)
	mod, err := rt.NewModule(addGuest())
	require.NoError(t, err)

	assert.Nil(t, mod.Memory(), "memory should be nil without WithMemory")
	assert.Nil(t, mod.Bytes())
	assert.Nil(t, mod.View())
	assert.Equal(t, StateUninitialized, mod.State())
	assert.Nil(t, mod.Instance(), "instance should be nil before initialization")
	assert.Nil(t, mod.ExportedFunction("add"))
	assert.Zero(t, mod.imports.Len(), "imports should default to empty")

	_, err = mod.Call(context.Background(), "add", 1, 2)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindNotInitialized})
}

func TestNewModule_ViewsDerivedImmediately(t *testing.T) {
	rt := newTestRuntime(t, nil)
	mem := newTestMemory(t, rt, memory.Config{InitialPages: 1})
	mod, err := rt.NewModule(memoryGuest("env", "memory"), WithMemory(mem))
	require.NoError(t, err)

	assert.Len(t, mod.Bytes(), 65536)
	assert.Equal(t, 65536, mod.View().Len())
}

func TestBinary_ReturnsCopy(t *testing.T) {
	rt := newTestRuntime(t, nil)
	bin := addGuest()
	mod, err := rt.NewModule(bin)
	require.NoError(t, err)

	bin[8] = 0xFF
	got := mod.Binary()
	assert.NotEqual(t, byte(0xFF), got[8], "constructor should copy the binary")
	got[9] = 0xFF
	assert.NotEqual(t, got, mod.Binary(), "Binary should return a fresh copy")
}

func TestInitialize_Idempotent(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	rt := newTestRuntime(t, &Config{Metrics: reg})
	mod, err := rt.NewModule(addGuest())
	require.NoError(t, err)

	first, err := mod.Initialize(ctx)
	require.NoError(t, err, "Initialize")
	second, err := mod.InitializeSync(ctx)
	require.NoError(t, err, "InitializeSync")
	res := <-mod.InitializeAsync(ctx)
	require.NoError(t, res.Err, "InitializeAsync")

	assert.Same(t, first, second, "initialization should return the same instance")
	assert.Same(t, first, res.Instance)
	assert.Equal(t, StateReady, mod.State())
	assert.Equal(t, float64(1), counterValue(t, reg, "wasm_module_initializations_total", resultOK))

	out, err := mod.Call(ctx, "add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(5), api.DecodeI32(out[0]))
}

func TestInitialize_SingleFlight(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	rt := newTestRuntime(t, &Config{Metrics: reg})

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	imports := NewImports()
	require.NoError(t, imports.RegisterFunc("env", "wait", func(context.Context) {
		calls++
		close(entered)
		<-release
	}))

	mod, err := rt.NewModule(startGuest(), WithImports(imports))
	require.NoError(t, err)

	first := mod.InitializeAsync(ctx)
	<-entered
	assert.Equal(t, StateInitializing, mod.State())

	const waiters = 8
	results := make(chan api.Module, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(useSync bool) {
			defer wg.Done()
			var inst api.Module
			var err error
			if useSync {
				inst, err = mod.InitializeSync(ctx)
			} else {
				inst, err = mod.Initialize(ctx)
			}
			assert.NoError(t, err, "initialize")
			results <- inst
		}(i%2 == 0)
	}

	// let the waiters attach before the start function returns
	time.Sleep(20 * time.Millisecond)
	close(release)

	res := <-first
	require.NoError(t, res.Err)
	wg.Wait()
	close(results)
	for inst := range results {
		assert.Same(t, res.Instance, inst, "waiter received a different instance")
	}
	assert.Equal(t, 1, calls, "start function runs once")
	assert.Equal(t, float64(1), counterValue(t, reg, "wasm_module_initializations_total", resultOK))
}

func TestInitialize_ContextOnlyBoundsWait(t *testing.T) {
	rt := newTestRuntime(t, nil)
	release := make(chan struct{})
	imports := NewImports()
	require.NoError(t, imports.RegisterFunc("env", "wait", func(context.Context) { <-release }))

	mod, err := rt.NewModule(startGuest(), WithImports(imports))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = mod.Initialize(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	inst, err := mod.Initialize(context.Background())
	require.NoError(t, err, "initialization should complete after the wait ended")
	assert.NotNil(t, inst)
	assert.Equal(t, StateReady, mod.State())
}

func TestInitialize_CompileFailure(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, nil)
	mod, err := rt.NewModule(invalidGuest())
	require.NoError(t, err)

	_, syncErr := mod.InitializeSync(ctx)
	asyncRes := <-mod.InitializeAsync(ctx)

	for _, err := range []error{syncErr, asyncRes.Err} {
		var e *errors.Error
		require.True(t, stderrors.As(err, &e), "expected *errors.Error, got %v", err)
		assert.Equal(t, errors.PhaseCompile, e.Phase)
		assert.Equal(t, errors.KindCompilation, e.Kind)
		assert.Error(t, stderrors.Unwrap(err), "wazero error should be kept as the cause")
	}

	// the cause is the unmodified wazero error
	_, want := rt.Wazero().CompileModule(ctx, invalidGuest())
	require.Error(t, want, "expected wazero to reject the binary")
	assert.EqualError(t, stderrors.Unwrap(syncErr), want.Error())
	assert.Equal(t, StateUninitialized, mod.State())
}

func TestInitialize_InstantiateFailureRetries(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, nil)
	mod, err := rt.NewModule(trapGuest())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := mod.Initialize(ctx)
		require.Error(t, err, "expected start trap")
		var e *errors.Error
		require.True(t, stderrors.As(err, &e), "unexpected error %v", err)
		assert.Equal(t, errors.PhaseInstantiate, e.Phase)
		assert.Equal(t, StateUninitialized, mod.State(), "state after failure")
	}
}

func TestInitialize_MissingImports(t *testing.T) {
	rt := newTestRuntime(t, nil)
	b := wasm.NewModuleBuilder()
	b.ImportFunc("env", "abort", []api.ValueType{i32}, nil)
	b.ImportFunc("env", "log", []api.ValueType{i32}, nil)
	b.ImportMemory("env", "memory", 1, nil)
	mod, err := rt.NewModule(b.Build())
	require.NoError(t, err)

	_, err = mod.InitializeSync(context.Background())
	var missing *errors.MissingImportsError
	require.True(t, stderrors.As(err, &missing), "expected MissingImportsError, got %v", err)
	assert.Len(t, missing.Imports, 3)
}

func TestImports_HostFunctions(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, nil)

	newMod := func(factor uint32) *Module {
		imports := NewImports()
		require.NoError(t, imports.RegisterFunc("env", "twice", func(v uint32) uint32 { return v * factor }))
		mod, err := rt.NewModule(hostGuest(), WithImports(imports))
		require.NoError(t, err)
		_, err = mod.InitializeSync(ctx)
		require.NoError(t, err)
		return mod
	}

	// two modules bind different functions to the same import names
	a, b := newMod(2), newMod(3)
	ra, err := a.Call(ctx, "call_twice", 7)
	require.NoError(t, err)
	rb, err := b.Call(ctx, "call_twice", 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(14), ra[0])
	assert.Equal(t, uint64(21), rb[0])
}

func TestImports_MemoryByAnyName(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, nil)
	mem := newTestMemory(t, rt, memory.Config{InitialPages: 1})

	mod, err := rt.NewModule(memoryGuest("js", "mem"), WithMemory(mem))
	require.NoError(t, err)
	_, err = mod.InitializeSync(ctx)
	require.NoError(t, err)

	_, err = mod.Write(8, []float64{6.5})
	require.NoError(t, err)
	out, err := mod.Call(ctx, "load", 8)
	require.NoError(t, err)
	assert.Equal(t, 6.5, api.DecodeF64(out[0]))
}

func TestModule_GuestGrowthRefreshesViews(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, nil)
	mem := newTestMemory(t, rt, memory.Config{InitialPages: 1})
	mod, err := rt.NewModule(memoryGuest("env", "memory"), WithMemory(mem))
	require.NoError(t, err)
	_, err = mod.InitializeSync(ctx)
	require.NoError(t, err)

	_, err = mod.Call(ctx, "grow", 1)
	require.NoError(t, err)
	assert.Len(t, mod.Bytes(), 2*65536, "views not refreshed")
	assert.Equal(t, 2*65536, mod.View().Len())
	_, err = mod.Write(65536, []float64{1})
	assert.NoError(t, err, "write into grown region")
}

func TestWASI(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		rt := newTestRuntime(t, nil)
		mem := newTestMemory(t, rt, memory.Config{InitialPages: 1})
		mod, err := rt.NewModule(wasiGuest(), WithMemory(mem))
		require.NoError(t, err)
		_, err = mod.InitializeSync(ctx)
		var missing *errors.MissingImportsError
		assert.True(t, stderrors.As(err, &missing), "expected MissingImportsError, got %v", err)
	})

	t.Run("enabled", func(t *testing.T) {
		rt := newTestRuntime(t, &Config{EnableWASI: true})
		mem := newTestMemory(t, rt, memory.Config{InitialPages: 1})
		mod, err := rt.NewModule(wasiGuest(), WithMemory(mem))
		require.NoError(t, err)
		_, err = mod.InitializeSync(ctx)
		require.NoError(t, err)

		out, err := mod.Call(ctx, "fill", 0, 32)
		require.NoError(t, err)
		assert.Zero(t, out[0], "errno")
		assert.NotEqual(t, make([]byte, 32), mod.Bytes()[:32], "random_get left the buffer zeroed")
	})
}

func TestModule_Close(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, nil)
	mod, err := rt.NewModule(addGuest(), WithName("adder"))
	require.NoError(t, err)
	_, err = mod.InitializeSync(ctx)
	require.NoError(t, err)
	require.NotNil(t, rt.Wazero().Module("adder"), "instance should be registered under its name")

	require.NoError(t, mod.Close(ctx))
	assert.Nil(t, mod.Instance(), "Close should release the instance")
	assert.Equal(t, StateUninitialized, mod.State())
	assert.Nil(t, rt.Wazero().Module("adder"), "instance should be closed in wazero")
	assert.NoError(t, mod.Close(ctx), "second Close")
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		StateUninitialized: "uninitialized",
		StateInitializing:  "initializing",
		StateReady:         "ready",
		State(42):          "unknown",
	} {
		assert.Equal(t, want, s.String(), "State(%d)", s)
	}
}
