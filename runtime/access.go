package runtime

import (
	"github.com/wippyai/wasm-module/dtype"
	"github.com/wippyai/wasm-module/errors"
)

// Resize grows the bound memory to hold at least n bytes, in whole pages.
// It returns false when n does not exceed the current capacity, when the
// host refuses the growth, or when no memory is bound. On success Bytes
// and View return fresh views and earlier ones are stale.
func (m *Module) Resize(n uint64) bool {
	if m.mem == nil {
		return false
	}
	return m.mem.GrowTo(n)
}

// HasCapacity reports whether values fit in the bound memory at byteOffset.
// Unsupported value shapes and a missing memory report false; Write and Read
// report the same shapes as a type mismatch rather than a capacity error.
func (m *Module) HasCapacity(byteOffset uint32, values any) bool {
	if m.mem == nil {
		return false
	}
	need, ok := dtype.Footprint(values)
	if !ok {
		return false
	}
	return m.mem.HasCapacity(byteOffset, need)
}

// IsView reports whether values is a slice backed by the bound memory's
// current storage.
func (m *Module) IsView(values any) bool {
	return m.mem != nil && m.mem.Contains(values)
}

// Write encodes values little-endian at byteOffset using the element kind
// of the slice. Nothing is written when it fails.
func (m *Module) Write(byteOffset uint32, values any) (*Module, error) {
	need, err := m.checkAccess("write", values)
	if err != nil {
		return nil, err
	}
	if !m.mem.HasCapacity(byteOffset, need) {
		return nil, errors.Capacity("not enough capacity for values", byteOffset, need, uint64(m.mem.Size()))
	}
	if err := m.mem.EncodeAt(byteOffset, values); err != nil {
		return nil, err
	}
	return m, nil
}

// Read fills dst in place from byteOffset using the element kind of dst.
func (m *Module) Read(byteOffset uint32, dst any) (*Module, error) {
	need, err := m.checkAccess("read", dst)
	if err != nil {
		return nil, err
	}
	if !m.mem.HasCapacity(byteOffset, need) {
		return nil, errors.Capacity("not enough bytes to fill destination", byteOffset, need, uint64(m.mem.Size()))
	}
	if err := m.mem.DecodeAt(byteOffset, dst); err != nil {
		return nil, err
	}
	return m, nil
}

// checkAccess validates the value shape, then the memory binding.
func (m *Module) checkAccess(op string, values any) (uint64, error) {
	need, ok := dtype.Footprint(values)
	if !ok {
		return 0, errors.UnsupportedValues(values)
	}
	if m.mem == nil {
		return 0, errors.NoMemory(op)
	}
	return need, nil
}
