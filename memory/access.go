package memory

import (
	"github.com/wippyai/wasm-module/errors"
)

func (m *Memory) outOfBounds(op string, offset uint32, n uint64) error {
	return errors.Capacity(op, offset, n, uint64(m.mem.Size()))
}

// Read returns a copy of length bytes at offset.
func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, m.outOfBounds("read", offset, uint64(length))
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write copies data into memory at offset.
func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return m.outOfBounds("write", offset, uint64(len(data)))
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, m.outOfBounds("read", offset, 1)
	}
	return v, nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Memory) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.mem.ReadUint16Le(offset)
	if !ok {
		return 0, m.outOfBounds("read", offset, 2)
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, m.outOfBounds("read", offset, 4)
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, m.outOfBounds("read", offset, 8)
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Memory) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return m.outOfBounds("write", offset, 1)
	}
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Memory) WriteU16(offset uint32, value uint16) error {
	if !m.mem.WriteUint16Le(offset, value) {
		return m.outOfBounds("write", offset, 2)
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Memory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return m.outOfBounds("write", offset, 4)
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Memory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return m.outOfBounds("write", offset, 8)
	}
	return nil
}

// HasCapacity reports whether size bytes starting at offset fit in the
// current capacity.
func (m *Memory) HasCapacity(offset uint32, size uint64) bool {
	return uint64(offset)+size <= uint64(m.mem.Size())
}

// EncodeAt writes values at offset, packed and little-endian.
// The range is validated before any byte is written.
func (m *Memory) EncodeAt(offset uint32, values any) error {
	_, err := Encode(m.Bytes(), uint64(offset), values)
	if err != nil {
		return errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "encode")
	}
	return nil
}

// DecodeAt fills values from offset, packed and little-endian.
func (m *Memory) DecodeAt(offset uint32, values any) error {
	_, err := Decode(m.Bytes(), uint64(offset), values)
	if err != nil {
		return errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "decode")
	}
	return nil
}
