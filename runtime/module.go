package runtime

import (
	"context"
	"io"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/wasm-module/errors"
	"github.com/wippyai/wasm-module/memory"
	"github.com/wippyai/wasm-module/wasm"
)

// State is the initialization state of a Module.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// InitResult is delivered by InitializeAsync.
type InitResult struct {
	Instance api.Module
	Err      error
}

type moduleOptions struct {
	memory   *memory.Memory
	imports  *Imports
	stdout   io.Writer
	stderr   io.Writer
	name     string
	witText  string
	start    []string
	startSet bool
}

// ModuleOption configures a Module.
type ModuleOption func(*moduleOptions)

// WithMemory binds mem as the module's memory region. A memory import in
// the binary is resolved to it regardless of the import's names.
func WithMemory(mem *memory.Memory) ModuleOption {
	return func(o *moduleOptions) { o.memory = mem }
}

// WithImports sets the import table.
func WithImports(imports *Imports) ModuleOption {
	return func(o *moduleOptions) { o.imports = imports }
}

// WithName sets the instance name. Names must be unique within a runtime.
func WithName(name string) ModuleOption {
	return func(o *moduleOptions) { o.name = name }
}

// WithStartFunctions overrides the functions run at instantiation.
// wazero's default is "_start".
func WithStartFunctions(names ...string) ModuleOption {
	return func(o *moduleOptions) {
		o.start = names
		o.startSet = true
	}
}

// WithSignatures provides WIT function signatures for CallWIT.
func WithSignatures(witText string) ModuleOption {
	return func(o *moduleOptions) { o.witText = witText }
}

// WithStdout sets the WASI stdout of the instance.
func WithStdout(w io.Writer) ModuleOption {
	return func(o *moduleOptions) { o.stdout = w }
}

// WithStderr sets the WASI stderr of the instance.
func WithStderr(w io.Writer) ModuleOption {
	return func(o *moduleOptions) { o.stderr = w }
}

const initKey = "init"

// Module wraps one WebAssembly binary together with its memory region and
// import table. It compiles and instantiates at most once, and exposes
// typed access to the bound memory.
//
// Initialization is safe for concurrent use. Resize, Read and Write must be
// serialized by the caller, since growth replaces the memory views.
type Module struct {
	runtime  *Runtime
	mem      *memory.Memory
	imports  *Imports
	logger   *zap.Logger
	compiled wazero.CompiledModule
	instance api.Module
	host     api.Module
	sigs     *signatures
	opts     moduleOptions
	binary   []byte
	group    singleflight.Group
	mu       sync.Mutex
	state    State
	closed   bool
}

// NewModule wraps binary. The binary is copied; nothing is compiled until
// the module is initialized.
func (r *Runtime) NewModule(binary []byte, opts ...ModuleOption) (*Module, error) {
	var o moduleOptions
	for _, opt := range opts {
		opt(&o)
	}

	if len(binary) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "binary is empty")
	}
	if err := wasm.CheckHeader(binary); err != nil {
		return nil, errors.Load("check header", err)
	}
	if o.memory != nil && !r.owns(o.memory) {
		return nil, errors.InvalidInput(errors.PhaseLoad, "memory belongs to another runtime")
	}
	if o.imports == nil {
		o.imports = NewImports()
	}
	if o.name == "" {
		o.name = r.nextName("module")
	}

	m := &Module{
		runtime: r,
		mem:     o.memory,
		imports: o.imports,
		logger:  r.logger.With(zap.String("module", o.name)),
		opts:    o,
		binary:  append([]byte(nil), binary...),
		sigs:    newSignatures(o.witText),
	}
	if err := r.track(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Name returns the instance name.
func (m *Module) Name() string {
	return m.opts.name
}

// Binary returns a copy of the wrapped binary.
func (m *Module) Binary() []byte {
	return append([]byte(nil), m.binary...)
}

// Memory returns the bound memory region, or nil.
func (m *Module) Memory() *memory.Memory {
	return m.mem
}

// Bytes returns the byte view of the bound memory, or nil without one.
func (m *Module) Bytes() []byte {
	if m.mem == nil {
		return nil
	}
	return m.mem.Bytes()
}

// View returns the structured view of the bound memory, or nil without one.
func (m *Module) View() *memory.DataView {
	if m.mem == nil {
		return nil
	}
	return m.mem.View()
}

// State returns the initialization state.
func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Instance returns the instantiated module, or nil before initialization.
func (m *Module) Instance() api.Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instance
}

// InitializeAsync compiles and instantiates the module on a background
// goroutine. Concurrent callers share one in-flight initialization and,
// once it succeeds, later calls resolve with the same instance. ctx
// cancellation does not abort an initialization in progress.
func (m *Module) InitializeAsync(ctx context.Context) <-chan InitResult {
	out := make(chan InitResult, 1)
	if inst := m.Instance(); inst != nil {
		out <- InitResult{Instance: inst}
		close(out)
		return out
	}

	ch := m.group.DoChan(initKey, func() (any, error) {
		return m.initialize(context.WithoutCancel(ctx))
	})
	go func() {
		res := <-ch
		r := InitResult{Err: res.Err}
		if res.Err == nil {
			r.Instance = res.Val.(api.Module)
		}
		out <- r
		close(out)
	}()
	return out
}

// Initialize waits for InitializeAsync. If ctx ends first it returns
// ctx.Err() and the initialization keeps running.
func (m *Module) Initialize(ctx context.Context) (api.Module, error) {
	select {
	case r := <-m.InitializeAsync(ctx):
		return r.Instance, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InitializeSync is Initialize run on the caller's goroutine. It shares
// the single-flight with InitializeAsync. Suited to small binaries.
func (m *Module) InitializeSync(ctx context.Context) (api.Module, error) {
	if inst := m.Instance(); inst != nil {
		return inst, nil
	}
	v, err, _ := m.group.Do(initKey, func() (any, error) {
		return m.initialize(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(api.Module), nil
}

func (m *Module) initialize(ctx context.Context) (api.Module, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.Closed("module " + m.opts.name)
	}
	if m.instance != nil {
		inst := m.instance
		m.mu.Unlock()
		return inst, nil
	}
	m.state = StateInitializing
	m.mu.Unlock()

	inst, err := m.instantiate(ctx)
	m.runtime.metrics.initialized(err)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateUninitialized
		m.logger.Debug("initialization failed", zap.Error(err))
		return nil, err
	}
	if m.closed {
		_ = inst.Close(ctx)
		if m.host != nil {
			_ = m.host.Close(ctx)
			m.host = nil
		}
		if m.compiled != nil {
			_ = m.compiled.Close(ctx)
			m.compiled = nil
		}
		m.state = StateUninitialized
		return nil, errors.Closed("module " + m.opts.name)
	}
	m.instance = inst
	m.state = StateReady
	return inst, nil
}

// importPlan is the resolution of a binary's imports against the bound
// memory, the import table and the runtime's WASI host.
type importPlan struct {
	rename  wasm.RenameTable
	funcs   []wasm.Import
	missing []string
	wasi    bool
}

func (m *Module) plan(imports []wasm.Import, hostName string) *importPlan {
	p := &importPlan{rename: make(wasm.RenameTable)}
	for _, imp := range imports {
		switch {
		case imp.Kind == wasm.KindMemory:
			if m.mem == nil {
				p.missing = append(p.missing, imp.Key())
				continue
			}
			p.rename[imp.Key()] = [2]string{m.mem.Name(), m.mem.ExportName()}
		case imp.Module == wasiModuleName:
			if !m.runtime.cfg.EnableWASI {
				p.missing = append(p.missing, imp.Key())
				continue
			}
			p.wasi = true
		case imp.Kind == wasm.KindFunc:
			if _, ok := m.imports.Lookup(imp.Module, imp.Name); !ok {
				p.missing = append(p.missing, imp.Key())
				continue
			}
			p.rename[imp.Key()] = [2]string{hostName, imp.Key()}
			p.funcs = append(p.funcs, imp)
		default:
			if m.runtime.wazero.Module(imp.Module) == nil {
				p.missing = append(p.missing, imp.Key())
			}
		}
	}
	return p
}

func (m *Module) instantiate(ctx context.Context) (api.Module, error) {
	r := m.runtime

	imports, err := wasm.ParseImports(m.binary)
	if err != nil {
		return nil, errors.Load("parse imports", err)
	}
	hostName := r.nextName("imports")
	p := m.plan(imports, hostName)
	if len(p.missing) > 0 {
		return nil, errors.New(errors.PhaseInstantiate, errors.KindMissingImport).
			Cause(errors.NewMissingImportsError(p.missing)).
			Detail("%d unresolved imports", len(p.missing)).
			Build()
	}
	if p.wasi {
		if err := r.initWASI(ctx); err != nil {
			return nil, err
		}
	}

	bin, err := wasm.RewriteImports(m.binary, p.rename.Renamer())
	if err != nil {
		return nil, errors.Load("rewrite imports", err)
	}

	var host api.Module
	if len(p.funcs) > 0 {
		if host, err = m.imports.instantiate(ctx, r.wazero, hostName, p.funcs); err != nil {
			return nil, err
		}
	}
	cleanup := func() {
		if host != nil {
			_ = host.Close(ctx)
		}
	}

	m.logger.Debug("compiling", zap.Int("bytes", len(bin)), zap.Int("imports", len(imports)))
	compiled, err := r.wazero.CompileModule(ctx, bin)
	if err != nil {
		cleanup()
		return nil, errors.Compilation(err)
	}

	cfg := wazero.NewModuleConfig().WithName(m.opts.name)
	if m.opts.startSet {
		cfg = cfg.WithStartFunctions(m.opts.start...)
	}
	if m.opts.stdout != nil {
		cfg = cfg.WithStdout(m.opts.stdout)
	}
	if m.opts.stderr != nil {
		cfg = cfg.WithStderr(m.opts.stderr)
	}

	m.logger.Debug("instantiating")
	inst, err := r.wazero.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		_ = compiled.Close(ctx)
		cleanup()
		return nil, errors.Instantiation(err)
	}

	m.mu.Lock()
	m.compiled, m.host = compiled, host
	m.mu.Unlock()
	return inst, nil
}

// ExportedFunction returns the named export, or nil when the module is not
// ready or has no such function.
func (m *Module) ExportedFunction(name string) api.Function {
	inst := m.Instance()
	if inst == nil {
		return nil
	}
	return inst.ExportedFunction(name)
}

// Call invokes an exported function with raw wasm values.
func (m *Module) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	inst := m.Instance()
	if inst == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "module "+m.opts.name)
	}
	fn := inst.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Trap(name, err)
	}
	return results, nil
}

// Close releases the instance, its import host and the compiled code.
// The bound memory stays with the runtime. A closed module cannot be
// initialized again.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var err error
	if m.instance != nil {
		err = m.instance.Close(ctx)
		m.instance = nil
	}
	if m.host != nil {
		_ = m.host.Close(ctx)
		m.host = nil
	}
	if m.compiled != nil {
		_ = m.compiled.Close(ctx)
		m.compiled = nil
	}
	m.state = StateUninitialized
	return err
}
