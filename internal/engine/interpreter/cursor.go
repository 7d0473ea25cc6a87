package interpreter

import (
	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/leb128"
	"github.com/tetrawasm/wazerolite/internal/wasm"
)

// cursor re-decodes instruction immediates against a function body at run
// time, using the identical LEB128 and memarg conventions the decoder used
// to build the continuation tables (internal/wasm's decodeFunctionBody). The
// two are independent passes over the same byte layout by design: the
// decode-time scan only locates opcode boundaries, the interpreter is the
// one place immediates are actually interpreted.
type cursor struct {
	buf []byte
	pos uint32
}

func (c *cursor) byte() byte {
	b := c.buf[c.pos]
	c.pos++
	return b
}

func (c *cursor) u32() uint32 {
	v, n, err := leb128.LoadUint32(c.buf[c.pos:])
	if err != nil {
		panic(err)
	}
	c.pos += n
	return v
}

func (c *cursor) i32() int32 {
	v, n, err := leb128.LoadInt32(c.buf[c.pos:])
	if err != nil {
		panic(err)
	}
	c.pos += n
	return v
}

func (c *cursor) i64() int64 {
	v, n, err := leb128.LoadInt64(c.buf[c.pos:])
	if err != nil {
		panic(err)
	}
	c.pos += n
	return v
}

// f32/f64 constants are raw little-endian IEEE754 bytes, not LEB128 — note
// the read order matters since c.byte() has a side effect on c.pos.
func (c *cursor) f32() float32 {
	b0, b1, b2, b3 := c.byte(), c.byte(), c.byte(), c.byte()
	bits := uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24
	return api.DecodeF32(uint64(bits))
}

func (c *cursor) f64() float64 {
	var bits uint64
	for i := 0; i < 8; i++ {
		bits |= uint64(c.byte()) << (8 * i)
	}
	return api.DecodeF64(bits)
}

func (c *cursor) memarg() (align, offset uint32) {
	align = c.u32()
	offset = c.u32()
	return
}

// blockType mirrors internal/wasm's decodeBlockType: a signed LEB128 value
// where negative sentinels denote void/a single value type, and any other
// non-negative value is a type-section index.
func (c *cursor) blockType() wasm.BlockType {
	v := c.i32()
	switch v {
	case -0x40:
		return wasm.BlockType{Kind: wasm.BlockTypeKindVoid}
	case -1:
		return wasm.BlockType{Kind: wasm.BlockTypeKindValueType, Value: wasm.ValueTypeI32}
	case -2:
		return wasm.BlockType{Kind: wasm.BlockTypeKindValueType, Value: wasm.ValueTypeI64}
	case -3:
		return wasm.BlockType{Kind: wasm.BlockTypeKindValueType, Value: wasm.ValueTypeF32}
	case -4:
		return wasm.BlockType{Kind: wasm.BlockTypeKindValueType, Value: wasm.ValueTypeF64}
	case -0x10:
		return wasm.BlockType{Kind: wasm.BlockTypeKindValueType, Value: wasm.ValueTypeFuncref}
	case -0x11:
		return wasm.BlockType{Kind: wasm.BlockTypeKindValueType, Value: wasm.ValueTypeExternref}
	default:
		return wasm.BlockType{Kind: wasm.BlockTypeKindTypeIndex, Index: uint32(v)}
	}
}
