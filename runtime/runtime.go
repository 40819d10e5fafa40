package runtime

import (
	"context"
	"fmt"
	goruntime "runtime"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-module/errors"
	"github.com/wippyai/wasm-module/memory"
	"github.com/wippyai/wasm-module/wasm"
)

// compilerSupported reports whether wazero's compiler targets this platform.
var compilerSupported = func() bool {
	switch goruntime.GOARCH {
	case "amd64", "arm64":
	default:
		return false
	}
	switch goruntime.GOOS {
	case "linux", "darwin", "freebsd", "netbsd", "dragonfly", "solaris", "illumos", "windows":
		return true
	}
	return false
}

// Runtime owns a wazero runtime together with the memories and modules
// created in it. It is safe for concurrent use.
type Runtime struct {
	wazero   wazero.Runtime
	logger   *zap.Logger
	metrics  *metrics
	cfg      Config
	memories []*memory.Memory
	modules  []*Module
	seq      atomic.Uint64
	memBytes atomic.Uint64
	mu       sync.Mutex
	wasiMu   sync.Mutex
	wasiDone atomic.Bool
	closed   bool
}

// New creates a runtime with the default configuration.
func New(ctx context.Context) (*Runtime, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a runtime. It fails with an unsupported error
// when the host cannot run the configured engine.
func NewWithConfig(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.logger()

	if cfg.Compiler && !cfg.Interpreter && !compilerSupported() {
		return nil, errors.Environment(
			fmt.Sprintf("compiler unavailable on %s/%s", goruntime.GOOS, goruntime.GOARCH), nil)
	}

	m, err := newMetrics(cfg.Metrics)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEnvironment, errors.KindRegistration, err, "register metrics")
	}

	rt := wazero.NewRuntimeWithConfig(ctx, cfg.runtimeConfig())
	if err := checkEngine(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	r := &Runtime{
		wazero:  rt,
		logger:  log,
		metrics: m,
		cfg:     *cfg,
	}
	if cfg.EnableWASI {
		if err := r.initWASI(ctx); err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
	}

	log.Debug("runtime created",
		zap.Bool("interpreter", cfg.Interpreter),
		zap.Uint32("memory_limit_pages", cfg.MemoryLimitPages),
		zap.Bool("wasi", cfg.EnableWASI))
	return r, nil
}

// checkEngine compiles the smallest valid module to confirm the engine works.
func checkEngine(ctx context.Context, rt wazero.Runtime) error {
	compiled, err := rt.CompileModule(ctx, wasm.Empty)
	if err != nil {
		return errors.Environment("engine check failed", err)
	}
	return compiled.Close(ctx)
}

// Wazero returns the underlying wazero runtime.
func (r *Runtime) Wazero() wazero.Runtime {
	return r.wazero
}

// Config returns a copy of the configuration the runtime was created with.
func (r *Runtime) Config() Config {
	return r.cfg
}

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *zap.Logger {
	return r.logger
}

func (r *Runtime) nextName(prefix string) string {
	return fmt.Sprintf("%s#%d", prefix, r.seq.Add(1))
}

// NewMemory creates a memory region owned by the runtime.
func (r *Runtime) NewMemory(ctx context.Context, cfg memory.Config) (*memory.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.Closed("runtime")
	}

	mem, err := memory.New(ctx, r.wazero, r.nextName("memory"), cfg,
		memory.WithLogger(r.logger),
		memory.WithGrowHook(func(e memory.GrowEvent) {
			delta := uint64(e.DeltaPages) * wasm.PageSize
			if e.OK {
				r.memBytes.Add(delta)
			}
			r.metrics.grew(e.OK, delta)
		}))
	if err != nil {
		return nil, err
	}
	r.memBytes.Add(uint64(mem.Size()))
	r.metrics.memoryBytes.Add(float64(mem.Size()))
	r.memories = append(r.memories, mem)
	return mem, nil
}

func (r *Runtime) owns(mem *memory.Memory) bool {
	return mem.Runtime() == r.wazero
}

func (r *Runtime) track(m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.Closed("runtime")
	}
	r.modules = append(r.modules, m)
	return nil
}

// Close releases every module, then every memory, then the wazero runtime.
// Calling Close more than once is a no-op.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	modules, memories := r.modules, r.memories
	r.modules, r.memories = nil, nil
	r.mu.Unlock()

	for _, m := range modules {
		_ = m.Close(ctx)
	}
	// guests are closed, so the providers have no importers left
	for _, mem := range memories {
		if err := mem.Close(ctx); err != nil {
			r.logger.Debug("close memory", zap.String("memory", mem.Name()), zap.Error(err))
		}
	}
	// only bytes reported through NewMemory and Grow are in the gauge
	r.metrics.memoryBytes.Sub(float64(r.memBytes.Swap(0)))
	return r.wazero.Close(ctx)
}
