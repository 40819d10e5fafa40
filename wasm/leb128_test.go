package wasm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULEB128RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 63, 64, 127, 128, 255, 300, 16384, 65536, math.MaxUint32}
	for _, v := range values {
		enc := EncodeULEB128(v)
		got, n, err := DecodeULEB128(enc)
		require.NoError(t, err, "decode %x", enc)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
	}
}

func TestULEB128Known(t *testing.T) {
	tests := []struct {
		enc  []byte
		want uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
	}
	for _, tc := range tests {
		got, _, err := DecodeULEB128(tc.enc)
		require.NoError(t, err, "decode %x", tc.enc)
		assert.Equal(t, tc.want, got, "decode %x", tc.enc)
	}
}

func TestULEB128Errors(t *testing.T) {
	_, _, err := DecodeULEB128([]byte{0x80, 0x80})
	assert.ErrorIs(t, err, ErrTruncated)

	_, _, err = DecodeULEB128([]byte{0xff, 0xff, 0xff, 0xff, 0x7f})
	assert.ErrorIs(t, err, ErrOverflow)

	_, _, err = DecodeULEB128u64([]byte{0xff, 0xff, 0xff, 0xff, 0x7f})
	assert.NoError(t, err, "same bytes fit in u64")
}

func TestSLEB128RoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 63, -64, 64, -65, 1 << 40, -(1 << 40), math.MaxInt64, math.MinInt64}
	for _, v := range values {
		enc := EncodeSLEB128(v)
		got, n, err := DecodeSLEB128(enc)
		require.NoError(t, err, "decode %x", enc)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
	}
}
