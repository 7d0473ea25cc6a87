package leb128

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripUint32(t *testing.T) {
	tests := []uint32{0, 1, 127, 128, 1 << 20, 1<<32 - 1}
	for _, v := range tests {
		buf := EncodeUint32(v)
		got, n, err := LoadUint32(buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint32(len(buf)), n)

		got, n, err = DecodeUint32(bytes.NewReader(buf))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint32(len(buf)), n)
	}
}

func TestRoundTripInt32(t *testing.T) {
	tests := []int32{0, 1, -1, 63, -64, 64, -65, 1 << 20, -(1 << 20), 1<<31 - 1, -(1 << 31)}
	for _, v := range tests {
		buf := EncodeInt32(v)
		got, n, err := LoadInt32(buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint32(len(buf)), n)

		got, n, err = DecodeInt32(bytes.NewReader(buf))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint32(len(buf)), n)
	}
}

func TestRoundTripUint64(t *testing.T) {
	tests := []uint64{0, 1, 1 << 40, 1<<64 - 1}
	for _, v := range tests {
		buf := EncodeUint64(v)
		got, _, err := LoadUint64(buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestRoundTripInt64(t *testing.T) {
	tests := []int64{0, -1, 1 << 40, -(1 << 40)}
	for _, v := range tests {
		buf := EncodeInt64(v)
		got, _, err := LoadInt64(buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestLoadUint32Errors(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		_, _, err := LoadUint32([]byte{0x80})
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
	t.Run("too many bytes", func(t *testing.T) {
		_, _, err := LoadUint32([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00})
		require.ErrorIs(t, err, ErrTooManyBytes)
	})
	t.Run("overflow", func(t *testing.T) {
		// 5 bytes, high bits set beyond 32 significant bits.
		_, _, err := LoadUint32([]byte{0xff, 0xff, 0xff, 0xff, 0x7f})
		require.ErrorIs(t, err, ErrOverflow32)
	})
}

func TestLoadInt32Overflow(t *testing.T) {
	// 1<<32 fits in exactly 5 SLEB128 bytes (maxVarintLenInt32), but exceeds
	// int32 range once decoded.
	buf := EncodeInt64(1 << 32)
	require.Len(t, buf, 5)
	_, _, err := LoadInt32(buf)
	require.ErrorIs(t, err, ErrOverflow32)
}
