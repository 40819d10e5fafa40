package wasm

import "errors"

// ErrOverflow is returned when a LEB128 value does not fit the target width.
var ErrOverflow = errors.New("leb128: overflow")

// ErrTruncated is returned when input ends inside a value.
var ErrTruncated = errors.New("leb128: unexpected end of input")

// EncodeULEB128 encodes an unsigned value in LEB128 format.
func EncodeULEB128(v uint32) []byte {
	return AppendULEB128(nil, uint64(v))
}

// AppendULEB128 appends the unsigned LEB128 encoding of v to dst.
func AppendULEB128(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// EncodeSLEB128 encodes a signed value in LEB128 format.
func EncodeSLEB128[T int32 | int64](v T) []byte {
	var result []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			result = append(result, b)
			break
		}
		result = append(result, b|0x80)
	}
	return result
}

// DecodeULEB128 decodes an unsigned 32-bit LEB128 value and returns the
// number of bytes consumed.
func DecodeULEB128(data []byte) (uint32, int, error) {
	v, n, err := decodeULEB(data, 32)
	return uint32(v), n, err
}

// DecodeULEB128u64 decodes an unsigned 64-bit LEB128 value.
func DecodeULEB128u64(data []byte) (uint64, int, error) {
	return decodeULEB(data, 64)
}

func decodeULEB(data []byte, bits uint) (uint64, int, error) {
	var result uint64
	var shift uint
	for i, b := range data {
		if shift >= bits {
			return 0, i, ErrOverflow
		}
		chunk := uint64(b & 0x7f)
		if shift+7 > bits && chunk>>(bits-shift) != 0 {
			return 0, i + 1, ErrOverflow
		}
		result |= chunk << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, len(data), ErrTruncated
}

// DecodeSLEB128 decodes a signed 64-bit LEB128 value.
func DecodeSLEB128(data []byte) (int64, int, error) {
	var result int64
	var shift uint
	for i, b := range data {
		if shift >= 64 {
			return 0, i, ErrOverflow
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, i + 1, nil
		}
	}
	return 0, len(data), ErrTruncated
}
