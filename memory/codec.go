package memory

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wippyai/wasm-module/dtype"
)

// Encode writes values into dst at offset, packed and little-endian.
// It returns the number of bytes written.
func Encode(dst []byte, offset uint64, values any) (uint64, error) {
	return EncodeStrided(dst, offset, 0, values, binary.LittleEndian)
}

// Decode fills values from src at offset, packed and little-endian.
func Decode(src []byte, offset uint64, values any) (uint64, error) {
	return DecodeStrided(src, offset, 0, values, binary.LittleEndian)
}

// span returns the bytes covered by count elements of size placed stride
// bytes apart. A zero stride means packed.
func span(count, size, stride uint64) (uint64, uint64) {
	if stride == 0 {
		stride = size
	}
	if count == 0 {
		return 0, stride
	}
	return (count-1)*stride + size, stride
}

func checkSpan(bufLen int, offset, need uint64) error {
	if offset > uint64(bufLen) || need > uint64(bufLen)-offset {
		return fmt.Errorf("offset %d + %d bytes exceeds buffer length %d", offset, need, bufLen)
	}
	return nil
}

// EncodeStrided writes each element of values at offset + i*stride using
// order. The whole range is checked before the first byte is written.
func EncodeStrided(dst []byte, offset, stride uint64, values any, order binary.ByteOrder) (uint64, error) {
	kind, ok := dtype.KindOf(values)
	if !ok {
		return 0, fmt.Errorf("unsupported values %T", values)
	}
	size := uint64(kind.Size())
	if stride != 0 && stride < size {
		return 0, fmt.Errorf("stride %d smaller than element size %d", stride, size)
	}
	need, stride := span(uint64(dtype.Len(values)), size, stride)
	if err := checkSpan(len(dst), offset, need); err != nil {
		return 0, err
	}

	at := func(i int) []byte { return dst[offset+uint64(i)*stride:] }
	switch v := values.(type) {
	case []int8:
		for i, x := range v {
			at(i)[0] = byte(x)
		}
	case []uint8:
		for i, x := range v {
			at(i)[0] = x
		}
	case []int16:
		for i, x := range v {
			order.PutUint16(at(i), uint16(x))
		}
	case []uint16:
		for i, x := range v {
			order.PutUint16(at(i), x)
		}
	case []int32:
		for i, x := range v {
			order.PutUint32(at(i), uint32(x))
		}
	case []uint32:
		for i, x := range v {
			order.PutUint32(at(i), x)
		}
	case []int64:
		for i, x := range v {
			order.PutUint64(at(i), uint64(x))
		}
	case []uint64:
		for i, x := range v {
			order.PutUint64(at(i), x)
		}
	case []float32:
		for i, x := range v {
			order.PutUint32(at(i), math.Float32bits(x))
		}
	case []float64:
		for i, x := range v {
			order.PutUint64(at(i), math.Float64bits(x))
		}
	case []int:
		for i, x := range v {
			order.PutUint64(at(i), math.Float64bits(float64(x)))
		}
	case []uint:
		for i, x := range v {
			order.PutUint64(at(i), math.Float64bits(float64(x)))
		}
	case []any:
		for i, x := range v {
			f, _ := dtype.ToFloat64(x)
			order.PutUint64(at(i), math.Float64bits(f))
		}
	}
	return need, nil
}

// DecodeStrided fills values in place from offset + i*stride using order.
// Generic []any destinations receive float64 elements.
func DecodeStrided(src []byte, offset, stride uint64, values any, order binary.ByteOrder) (uint64, error) {
	kind, ok := dtype.KindOf(values)
	if !ok {
		return 0, fmt.Errorf("unsupported destination %T", values)
	}
	size := uint64(kind.Size())
	if stride != 0 && stride < size {
		return 0, fmt.Errorf("stride %d smaller than element size %d", stride, size)
	}
	need, stride := span(uint64(dtype.Len(values)), size, stride)
	if err := checkSpan(len(src), offset, need); err != nil {
		return 0, err
	}

	at := func(i int) []byte { return src[offset+uint64(i)*stride:] }
	f64 := func(i int) float64 { return math.Float64frombits(order.Uint64(at(i))) }
	switch v := values.(type) {
	case []int8:
		for i := range v {
			v[i] = int8(at(i)[0])
		}
	case []uint8:
		for i := range v {
			v[i] = at(i)[0]
		}
	case []int16:
		for i := range v {
			v[i] = int16(order.Uint16(at(i)))
		}
	case []uint16:
		for i := range v {
			v[i] = order.Uint16(at(i))
		}
	case []int32:
		for i := range v {
			v[i] = int32(order.Uint32(at(i)))
		}
	case []uint32:
		for i := range v {
			v[i] = order.Uint32(at(i))
		}
	case []int64:
		for i := range v {
			v[i] = int64(order.Uint64(at(i)))
		}
	case []uint64:
		for i := range v {
			v[i] = order.Uint64(at(i))
		}
	case []float32:
		for i := range v {
			v[i] = math.Float32frombits(order.Uint32(at(i)))
		}
	case []float64:
		for i := range v {
			v[i] = f64(i)
		}
	case []int:
		for i := range v {
			v[i] = int(f64(i))
		}
	case []uint:
		for i := range v {
			v[i] = uint(f64(i))
		}
	case []any:
		for i := range v {
			v[i] = f64(i)
		}
	}
	return need, nil
}
