package memory

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/wasm-module/errors"
)

// DataView reads and writes fixed-width values at arbitrary byte offsets of
// one snapshot of a memory's backing storage. A view is tied to the
// generation it was taken at; after the memory grows, take a new one.
type DataView struct {
	order      binary.ByteOrder
	buf        []byte
	generation uint64
}

// NewDataView wraps buf with little-endian accessors.
func NewDataView(buf []byte, generation uint64) *DataView {
	return &DataView{buf: buf, generation: generation, order: binary.LittleEndian}
}

// WithOrder returns a view over the same bytes using order.
func (v *DataView) WithOrder(order binary.ByteOrder) *DataView {
	return &DataView{buf: v.buf, generation: v.generation, order: order}
}

// Len returns the number of bytes covered by the view.
func (v *DataView) Len() int {
	return len(v.buf)
}

// Bytes returns the bytes covered by the view.
func (v *DataView) Bytes() []byte {
	return v.buf
}

// Generation returns the memory generation the view was taken at.
func (v *DataView) Generation() uint64 {
	return v.generation
}

func (v *DataView) slice(offset uint32, n uint32) ([]byte, error) {
	end := uint64(offset) + uint64(n)
	if end > uint64(len(v.buf)) {
		return nil, errors.OutOfBounds(errors.PhaseMemory, []string{"view"}, int(end)-1, len(v.buf))
	}
	return v.buf[offset:end], nil
}

func (v *DataView) GetUint8(offset uint32) (uint8, error) {
	b, err := v.slice(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (v *DataView) GetInt8(offset uint32) (int8, error) {
	u, err := v.GetUint8(offset)
	return int8(u), err
}

func (v *DataView) GetUint16(offset uint32) (uint16, error) {
	b, err := v.slice(offset, 2)
	if err != nil {
		return 0, err
	}
	return v.order.Uint16(b), nil
}

func (v *DataView) GetInt16(offset uint32) (int16, error) {
	u, err := v.GetUint16(offset)
	return int16(u), err
}

func (v *DataView) GetUint32(offset uint32) (uint32, error) {
	b, err := v.slice(offset, 4)
	if err != nil {
		return 0, err
	}
	return v.order.Uint32(b), nil
}

func (v *DataView) GetInt32(offset uint32) (int32, error) {
	u, err := v.GetUint32(offset)
	return int32(u), err
}

func (v *DataView) GetUint64(offset uint32) (uint64, error) {
	b, err := v.slice(offset, 8)
	if err != nil {
		return 0, err
	}
	return v.order.Uint64(b), nil
}

func (v *DataView) GetInt64(offset uint32) (int64, error) {
	u, err := v.GetUint64(offset)
	return int64(u), err
}

func (v *DataView) GetFloat32(offset uint32) (float32, error) {
	u, err := v.GetUint32(offset)
	return math.Float32frombits(u), err
}

func (v *DataView) GetFloat64(offset uint32) (float64, error) {
	u, err := v.GetUint64(offset)
	return math.Float64frombits(u), err
}

func (v *DataView) SetUint8(offset uint32, value uint8) error {
	b, err := v.slice(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (v *DataView) SetInt8(offset uint32, value int8) error {
	return v.SetUint8(offset, uint8(value))
}

func (v *DataView) SetUint16(offset uint32, value uint16) error {
	b, err := v.slice(offset, 2)
	if err != nil {
		return err
	}
	v.order.PutUint16(b, value)
	return nil
}

func (v *DataView) SetInt16(offset uint32, value int16) error {
	return v.SetUint16(offset, uint16(value))
}

func (v *DataView) SetUint32(offset uint32, value uint32) error {
	b, err := v.slice(offset, 4)
	if err != nil {
		return err
	}
	v.order.PutUint32(b, value)
	return nil
}

func (v *DataView) SetInt32(offset uint32, value int32) error {
	return v.SetUint32(offset, uint32(value))
}

func (v *DataView) SetUint64(offset uint32, value uint64) error {
	b, err := v.slice(offset, 8)
	if err != nil {
		return err
	}
	v.order.PutUint64(b, value)
	return nil
}

func (v *DataView) SetInt64(offset uint32, value int64) error {
	return v.SetUint64(offset, uint64(value))
}

func (v *DataView) SetFloat32(offset uint32, value float32) error {
	return v.SetUint32(offset, math.Float32bits(value))
}

func (v *DataView) SetFloat64(offset uint32, value float64) error {
	return v.SetUint64(offset, math.Float64bits(value))
}
