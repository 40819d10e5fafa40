package memory

import (
	"context"
	"reflect"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmmodule "github.com/wippyai/wasm-module"
	"github.com/wippyai/wasm-module/errors"
	"github.com/wippyai/wasm-module/wasm"
)

// DefaultExportName is the export name of the memory inside its provider module.
const DefaultExportName = "memory"

// Config describes a memory region.
type Config struct {
	// MaxPages caps growth. nil leaves the cap to the runtime memory limit.
	MaxPages *uint32

	// ExportName is the memory's export name in the provider module.
	// Defaults to DefaultExportName.
	ExportName string

	// InitialPages is the starting size in 64KiB pages.
	InitialPages uint32
}

// GrowEvent describes one growth attempt.
type GrowEvent struct {
	Memory     string
	DeltaPages uint32
	Size       uint32
	OK         bool
}

// Option configures a Memory.
type Option func(*Memory)

// WithLogger sets the logger used for growth events.
func WithLogger(l *zap.Logger) Option {
	return func(m *Memory) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithGrowHook registers fn to observe growth attempts.
func WithGrowHook(fn func(GrowEvent)) Option {
	return func(m *Memory) {
		m.onGrow = fn
	}
}

// Memory is a growable linear memory region. It is defined by a small
// provider module instantiated in a wazero runtime; guest modules import
// it from there. The region only grows. Growth may move the backing
// storage, so Bytes and View are re-derived and the generation counter
// increments whenever the storage changes.
type Memory struct {
	runtime  wazero.Runtime
	provider api.Module
	mem      api.Memory
	logger   *zap.Logger
	onGrow   func(GrowEvent)
	view     *DataView
	name     string
	export   string
	bytes    []byte
	gen      uint64
	closed   atomic.Bool
}

var _ wasmmodule.Memory = (*Memory)(nil)
var _ wasmmodule.Grower = (*Memory)(nil)

// New instantiates a memory provider module named name in r.
func New(ctx context.Context, r wazero.Runtime, name string, cfg Config, opts ...Option) (*Memory, error) {
	if r == nil {
		return nil, errors.InvalidInput(errors.PhaseMemory, "runtime is nil")
	}
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseMemory, "memory name cannot be empty")
	}
	if cfg.MaxPages != nil && *cfg.MaxPages < cfg.InitialPages {
		return nil, errors.New(errors.PhaseMemory, errors.KindInvalidInput).
			Detail("maximum %d pages below initial %d pages", *cfg.MaxPages, cfg.InitialPages).
			Build()
	}
	export := cfg.ExportName
	if export == "" {
		export = DefaultExportName
	}

	bin := wasm.MemoryModule(export, cfg.InitialPages, cfg.MaxPages)
	provider, err := r.InstantiateWithConfig(ctx, bin,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions())
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindInstantiation, err, "instantiate memory provider "+name)
	}

	m := &Memory{
		runtime:  r,
		provider: provider,
		mem:      provider.ExportedMemory(export),
		logger:   zap.NewNop(),
		name:     name,
		export:   export,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.refresh()
	return m, nil
}

// Name returns the provider module name guests import the memory from.
func (m *Memory) Name() string {
	return m.name
}

// ExportName returns the memory's export name in the provider module.
func (m *Memory) ExportName() string {
	return m.export
}

// Runtime returns the wazero runtime that owns the region.
func (m *Memory) Runtime() wazero.Runtime {
	return m.runtime
}

// API returns the underlying wazero memory.
func (m *Memory) API() api.Memory {
	return m.mem
}

// Size returns the current capacity in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// Pages returns the current capacity in pages.
func (m *Memory) Pages() uint32 {
	return m.mem.Size() / wasmmodule.PageSize
}

// MaxPages returns the declared maximum, if any.
func (m *Memory) MaxPages() (uint32, bool) {
	return m.mem.Definition().Max()
}

// Generation returns the number of times the backing storage has been
// replaced since creation.
func (m *Memory) Generation() uint64 {
	m.refresh()
	return m.gen
}

// Bytes returns a slice aliasing the current backing storage.
func (m *Memory) Bytes() []byte {
	m.refresh()
	return m.bytes
}

// View returns a DataView over the current backing storage.
func (m *Memory) View() *DataView {
	m.refresh()
	return m.view
}

// IsCurrent reports whether v was taken at the current generation.
func (m *Memory) IsCurrent(v *DataView) bool {
	return v != nil && v.generation == m.Generation()
}

// refresh re-derives both views when the backing storage changed, whether
// through Grow or through the guest executing memory.grow.
func (m *Memory) refresh() {
	size := m.mem.Size()
	buf, ok := m.mem.Read(0, size)
	if !ok {
		return
	}
	if m.view != nil && len(buf) == len(m.bytes) && sameBase(buf, m.bytes) {
		return
	}

	if m.view != nil {
		m.gen++
	}
	m.bytes = buf
	m.view = NewDataView(buf, m.gen)
}

func sameBase(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	return &a[0] == &b[0]
}

// Grow adds deltaPages pages. A refusal by the host (declared maximum or
// runtime limit) leaves the region unchanged and returns false.
func (m *Memory) Grow(deltaPages uint32) bool {
	prev, ok := m.mem.Grow(deltaPages)
	size := m.mem.Size()
	if ok {
		m.refresh()
		m.logger.Debug("memory grown",
			zap.String("memory", m.name),
			zap.Uint32("from_pages", prev),
			zap.Uint32("delta_pages", deltaPages),
			zap.Uint64("generation", m.gen))
	} else {
		m.logger.Warn("memory growth refused",
			zap.String("memory", m.name),
			zap.Uint32("pages", size/wasmmodule.PageSize),
			zap.Uint32("delta_pages", deltaPages))
	}
	if m.onGrow != nil {
		m.onGrow(GrowEvent{Memory: m.name, DeltaPages: deltaPages, Size: size, OK: ok})
	}
	return ok
}

// GrowTo grows the region to hold at least n bytes, rounding up to whole
// pages. It returns false without side effects when n does not exceed the
// current capacity, when n is beyond the 4 GiB address space, or when the
// host refuses.
func (m *Memory) GrowTo(n uint64) bool {
	current := uint64(m.mem.Size())
	if n <= current {
		return false
	}
	delta := wasmmodule.PagesFor(n - current)
	if delta > wasmmodule.MaxPages-uint64(m.Pages()) {
		m.logger.Warn("memory growth refused",
			zap.String("memory", m.name),
			zap.Uint32("pages", m.Pages()),
			zap.Uint64("delta_pages", delta))
		if m.onGrow != nil {
			m.onGrow(GrowEvent{Memory: m.name, Size: m.mem.Size()})
		}
		return false
	}
	return m.Grow(uint32(delta))
}

// Contains reports whether values is a slice whose elements lie inside the
// current backing storage.
func (m *Memory) Contains(values any) bool {
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice || rv.IsNil() {
		return false
	}
	buf := m.Bytes()
	if len(buf) == 0 {
		return false
	}

	base := reflect.ValueOf(buf).Pointer()
	end := base + uintptr(len(buf))
	ptr := rv.Pointer()
	n := uintptr(rv.Len()) * rv.Type().Elem().Size()
	return ptr >= base && ptr < end && n <= end-ptr
}

// Close releases the provider module. Guests importing the region must be
// closed first. Calling Close more than once is a no-op.
func (m *Memory) Close(ctx context.Context) error {
	if m.closed.Swap(true) {
		return nil
	}
	return m.provider.Close(ctx)
}

// Closed reports whether Close has been called.
func (m *Memory) Closed() bool {
	return m.closed.Load()
}
