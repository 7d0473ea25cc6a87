// Package leb128 implements the LEB128 variable-length integer encodings
// used throughout the WebAssembly binary format: unsigned (ULEB128) for
// indices, counts and limits, and signed (SLEB128) for constant immediates.
package leb128

import (
	"errors"
	"io"
)

// ErrOverflow32 is returned when a ULEB128/SLEB128 stream encodes a value
// that does not fit in 32 bits. An encoding with too many bytes returns
// ErrTooManyBytes instead.
var ErrOverflow32 = errors.New("leb128: overflows 32-bit integer")

// ErrOverflow64 is the 64-bit counterpart of ErrOverflow32.
var ErrOverflow64 = errors.New("leb128: overflows 64-bit integer")

// ErrTooManyBytes is returned when a LEB128 encoding uses more continuation
// bytes than the binary format permits for its target width.
var ErrTooManyBytes = errors.New("leb128: integer representation too long")

const (
	maxVarintLenUint32 = 5
	maxVarintLenUint64 = 10
	maxVarintLenInt32  = 5
	maxVarintLenInt64  = 10
)

// LoadUint32 decodes a ULEB128-encoded uint32 from buf, returning the value,
// the number of bytes consumed, and an error if the encoding is malformed.
func LoadUint32(buf []byte) (uint32, uint32, error) {
	v, n, err := loadUvarint(buf, 32, maxVarintLenUint32)
	return uint32(v), n, err
}

// LoadUint64 decodes a ULEB128-encoded uint64 from buf.
func LoadUint64(buf []byte) (uint64, uint32, error) {
	return loadUvarint(buf, 64, maxVarintLenUint64)
}

// LoadInt32 decodes a SLEB128-encoded, sign-extended int32 from buf.
func LoadInt32(buf []byte) (int32, uint32, error) {
	v, n, err := loadVarint(buf, 32, maxVarintLenInt32)
	return int32(v), n, err
}

// LoadInt64 decodes a SLEB128-encoded, sign-extended int64 from buf.
func LoadInt64(buf []byte) (int64, uint32, error) {
	return loadVarint(buf, 64, maxVarintLenInt64)
}

func loadUvarint(buf []byte, width int, maxBytes int) (uint64, uint32, error) {
	var result uint64
	var shift uint
	var i uint32
	for {
		if int(i) >= len(buf) {
			return 0, i, io.ErrUnexpectedEOF
		}
		if int(i) >= maxBytes {
			return 0, i, ErrTooManyBytes
		}
		b := buf[i]
		i++
		if shift+7 >= 64 && (b&0x7f)>>uint(64-shift) != 0 {
			return 0, i, ErrOverflow64
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if shift+7 < uint(width) {
				// fine, no overflow possible.
			} else {
				mask := uint64(1)<<uint(width) - 1
				if width == 64 {
					mask = ^uint64(0)
				}
				if result&^mask != 0 {
					if width == 32 {
						return 0, i, ErrOverflow32
					}
					return 0, i, ErrOverflow64
				}
			}
			return result, i, nil
		}
		shift += 7
	}
}

func loadVarint(buf []byte, width int, maxBytes int) (int64, uint32, error) {
	var result int64
	var shift uint
	var i uint32
	var b byte
	for {
		if int(i) >= len(buf) {
			return 0, i, io.ErrUnexpectedEOF
		}
		if int(i) >= maxBytes {
			return 0, i, ErrTooManyBytes
		}
		b = buf[i]
		i++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	// Sign extend through the last continuation bit.
	if shift < 64 && (b&0x40) != 0 {
		result |= -1 << shift
	}
	if width == 32 {
		if result < -(1<<31) || result > (1<<31-1) {
			return 0, i, ErrOverflow32
		}
	}
	return result, i, nil
}

// DecodeUint32 reads a ULEB128-encoded uint32 from r.
func DecodeUint32(r io.ByteReader) (uint32, uint32, error) {
	v, n, err := decodeUvarint(r, 32, maxVarintLenUint32)
	return uint32(v), n, err
}

// DecodeUint64 reads a ULEB128-encoded uint64 from r.
func DecodeUint64(r io.ByteReader) (uint64, uint32, error) {
	return decodeUvarint(r, 64, maxVarintLenUint64)
}

// DecodeInt32 reads a SLEB128-encoded, sign-extended int32 from r.
func DecodeInt32(r io.ByteReader) (int32, uint32, error) {
	v, n, err := decodeVarint(r, 32, maxVarintLenInt32)
	return int32(v), n, err
}

// DecodeInt64 reads a SLEB128-encoded, sign-extended int64 from r.
func DecodeInt64(r io.ByteReader) (int64, uint32, error) {
	return decodeVarint(r, 64, maxVarintLenInt64)
}

func decodeUvarint(r io.ByteReader, width int, maxBytes int) (uint64, uint32, error) {
	var result uint64
	var shift uint
	var i uint32
	for {
		if int(i) >= maxBytes {
			return 0, i, ErrTooManyBytes
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, i, err
		}
		i++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			mask := uint64(1)<<uint(width) - 1
			if width == 64 {
				mask = ^uint64(0)
			}
			if result&^mask != 0 {
				if width == 32 {
					return 0, i, ErrOverflow32
				}
				return 0, i, ErrOverflow64
			}
			return result, i, nil
		}
		shift += 7
	}
}

func decodeVarint(r io.ByteReader, width int, maxBytes int) (int64, uint32, error) {
	var result int64
	var shift uint
	var i uint32
	var b byte
	for {
		if int(i) >= maxBytes {
			return 0, i, ErrTooManyBytes
		}
		var err error
		b, err = r.ReadByte()
		if err != nil {
			return 0, i, err
		}
		i++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && (b&0x40) != 0 {
		result |= -1 << shift
	}
	if width == 32 {
		if result < -(1<<31) || result > (1<<31-1) {
			return 0, i, ErrOverflow32
		}
	}
	return result, i, nil
}

// EncodeUint32 returns the ULEB128 encoding of v.
func EncodeUint32(v uint32) []byte {
	return EncodeUint64(uint64(v))
}

// EncodeUint64 returns the ULEB128 encoding of v.
func EncodeUint64(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			return out
		}
	}
}

// EncodeInt32 returns the SLEB128 encoding of v.
func EncodeInt32(v int32) []byte {
	return EncodeInt64(int64(v))
}

// EncodeInt64 returns the SLEB128 encoding of v.
func EncodeInt64(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}
