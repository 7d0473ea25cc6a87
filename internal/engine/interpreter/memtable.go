package interpreter

import (
	"math"

	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/wasm"
)

// effectiveAddress sums the dynamic address and the memarg's static offset;
// both are 32-bit so the sum never overflows uint64, but it can exceed
// uint32 range, which must trap rather than silently wrap on truncation.
func effectiveAddress(offset uint32, memarg uint32) (uint64, bool) {
	ea := uint64(offset) + uint64(memarg)
	return ea, ea <= math.MaxUint32
}

// execLoad reads a value from mi's memory at the memarg-immediate offset
// plus the dynamic address on top of vs, trapping if the access falls
// outside the current memory size (spec.md §8 "out of bounds memory
// access").
func execLoad(op wasm.Opcode, memOff uint32, mi *wasm.ModuleInstance, vs *valueStack) error {
	addr := uint32(vs.pop())
	ea, ok := effectiveAddress(addr, memOff)
	if !ok {
		return api.NewTrap(api.ReasonOutOfBoundsMemoryAccess, "")
	}
	size := loadSize(op)
	b, ok := mi.Memory.Read(uint32(ea), size)
	if !ok {
		return api.NewTrap(api.ReasonOutOfBoundsMemoryAccess, "")
	}
	vs.push(decodeLoaded(op, b))
	return nil
}

func loadSize(op wasm.Opcode) uint32 {
	switch op {
	case wasm.OpcodeI32Load, wasm.OpcodeF32Load:
		return 4
	case wasm.OpcodeI64Load, wasm.OpcodeF64Load:
		return 8
	case wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U:
		return 1
	case wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U:
		return 2
	case wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U:
		return 4
	}
	panic("unreachable")
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func decodeLoaded(op wasm.Opcode, b []byte) uint64 {
	switch op {
	case wasm.OpcodeI32Load, wasm.OpcodeF32Load:
		return uint64(le32(b))
	case wasm.OpcodeI64Load, wasm.OpcodeF64Load:
		return le64(b)
	case wasm.OpcodeI32Load8S:
		return uint64(uint32(int32(int8(b[0]))))
	case wasm.OpcodeI32Load8U:
		return uint64(b[0])
	case wasm.OpcodeI32Load16S:
		return uint64(uint32(int32(int16(le16(b)))))
	case wasm.OpcodeI32Load16U:
		return uint64(le16(b))
	case wasm.OpcodeI64Load8S:
		return uint64(int64(int8(b[0])))
	case wasm.OpcodeI64Load8U:
		return uint64(b[0])
	case wasm.OpcodeI64Load16S:
		return uint64(int64(int16(le16(b))))
	case wasm.OpcodeI64Load16U:
		return uint64(le16(b))
	case wasm.OpcodeI64Load32S:
		return uint64(int64(int32(le32(b))))
	case wasm.OpcodeI64Load32U:
		return uint64(le32(b))
	}
	panic("unreachable")
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

// execStore writes the top-of-stack value to mi's memory at the
// memarg-immediate offset plus the dynamic address beneath it.
func execStore(op wasm.Opcode, memOff uint32, mi *wasm.ModuleInstance, vs *valueStack) error {
	v := vs.pop()
	addr := uint32(vs.pop())
	ea, ok := effectiveAddress(addr, memOff)
	if !ok {
		return api.NewTrap(api.ReasonOutOfBoundsMemoryAccess, "")
	}
	b := encodeStored(op, v)
	if !mi.Memory.Write(uint32(ea), b) {
		return api.NewTrap(api.ReasonOutOfBoundsMemoryAccess, "")
	}
	return nil
}

func encodeStored(op wasm.Opcode, v uint64) []byte {
	putLe32 := func(x uint32) []byte {
		return []byte{byte(x), byte(x >> 8), byte(x >> 16), byte(x >> 24)}
	}
	putLe64 := func(x uint64) []byte {
		out := make([]byte, 8)
		for i := 0; i < 8; i++ {
			out[i] = byte(x >> (8 * i))
		}
		return out
	}
	switch op {
	case wasm.OpcodeI32Store, wasm.OpcodeF32Store:
		return putLe32(uint32(v))
	case wasm.OpcodeI64Store, wasm.OpcodeF64Store:
		return putLe64(v)
	case wasm.OpcodeI32Store8, wasm.OpcodeI64Store8:
		return []byte{byte(v)}
	case wasm.OpcodeI32Store16, wasm.OpcodeI64Store16:
		return []byte{byte(v), byte(v >> 8)}
	case wasm.OpcodeI64Store32:
		return putLe32(uint32(v))
	}
	panic("unreachable")
}

// execMisc dispatches the 0xFC-prefixed bulk-memory and saturating-
// conversion instructions.
func execMisc(sub uint32, c *cursor, mi *wasm.ModuleInstance, vs *valueStack) error {
	switch sub {
	case wasm.MiscOpcodeI32TruncSatF32S, wasm.MiscOpcodeI32TruncSatF32U,
		wasm.MiscOpcodeI32TruncSatF64S, wasm.MiscOpcodeI32TruncSatF64U,
		wasm.MiscOpcodeI64TruncSatF32S, wasm.MiscOpcodeI64TruncSatF32U,
		wasm.MiscOpcodeI64TruncSatF64S, wasm.MiscOpcodeI64TruncSatF64U:
		return execSaturatingTrunc(sub, vs)

	case wasm.MiscOpcodeMemoryInit:
		dataIdx := c.u32()
		c.byte() // reserved memory index
		n := uint32(vs.pop())
		src := uint32(vs.pop())
		dst := uint32(vs.pop())
		data := mi.DataInstances[dataIdx]
		if uint64(src)+uint64(n) > uint64(len(data)) {
			return api.NewTrap(api.ReasonOutOfBoundsMemoryAccess, "")
		}
		if !mi.Memory.Write(dst, data[src:src+n]) {
			return api.NewTrap(api.ReasonOutOfBoundsMemoryAccess, "")
		}
		return nil

	case wasm.MiscOpcodeDataDrop:
		dataIdx := c.u32()
		mi.DataInstances[dataIdx] = nil
		return nil

	case wasm.MiscOpcodeMemoryCopy:
		c.byte()
		c.byte()
		n := uint32(vs.pop())
		src := uint32(vs.pop())
		dst := uint32(vs.pop())
		srcB, ok1 := mi.Memory.Read(src, n)
		if !ok1 {
			return api.NewTrap(api.ReasonOutOfBoundsMemoryAccess, "")
		}
		buf := make([]byte, len(srcB))
		copy(buf, srcB)
		if !mi.Memory.Write(dst, buf) {
			return api.NewTrap(api.ReasonOutOfBoundsMemoryAccess, "")
		}
		return nil

	case wasm.MiscOpcodeMemoryFill:
		c.byte()
		n := uint32(vs.pop())
		val := byte(vs.pop())
		dst := uint32(vs.pop())
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = val
		}
		if !mi.Memory.Write(dst, buf) {
			return api.NewTrap(api.ReasonOutOfBoundsMemoryAccess, "")
		}
		return nil

	case wasm.MiscOpcodeTableInit:
		elemIdx := c.u32()
		tableIdx := c.u32()
		n := uint32(vs.pop())
		src := uint32(vs.pop())
		dst := uint32(vs.pop())
		refs := mi.ElementInstances[elemIdx]
		table := mi.Tables[tableIdx]
		if uint64(src)+uint64(n) > uint64(len(refs)) || uint64(dst)+uint64(n) > uint64(table.Size()) {
			return api.NewTrap(api.ReasonOutOfBoundsTableAccess, "")
		}
		copy(table.References[dst:dst+n], refs[src:src+n])
		return nil

	case wasm.MiscOpcodeElemDrop:
		elemIdx := c.u32()
		mi.ElementInstances[elemIdx] = nil
		return nil

	case wasm.MiscOpcodeTableCopy:
		dstTableIdx := c.u32()
		srcTableIdx := c.u32()
		n := uint32(vs.pop())
		src := uint32(vs.pop())
		dst := uint32(vs.pop())
		srcTable := mi.Tables[srcTableIdx]
		dstTable := mi.Tables[dstTableIdx]
		if uint64(src)+uint64(n) > uint64(srcTable.Size()) || uint64(dst)+uint64(n) > uint64(dstTable.Size()) {
			return api.NewTrap(api.ReasonOutOfBoundsTableAccess, "")
		}
		buf := make([]uint64, n)
		copy(buf, srcTable.References[src:src+n])
		copy(dstTable.References[dst:dst+n], buf)
		return nil

	case wasm.MiscOpcodeTableGrow:
		tableIdx := c.u32()
		n := uint32(vs.pop())
		init := vs.pop()
		table := mi.Tables[tableIdx]
		prev, ok := table.Grow(n, init)
		if !ok {
			minusOne := int32(-1)
			vs.push(uint64(uint32(minusOne)))
		} else {
			vs.push(uint64(prev))
		}
		return nil

	case wasm.MiscOpcodeTableSize:
		tableIdx := c.u32()
		vs.push(uint64(mi.Tables[tableIdx].Size()))
		return nil

	case wasm.MiscOpcodeTableFill:
		tableIdx := c.u32()
		n := uint32(vs.pop())
		val := vs.pop()
		dst := uint32(vs.pop())
		table := mi.Tables[tableIdx]
		if uint64(dst)+uint64(n) > uint64(table.Size()) {
			return api.NewTrap(api.ReasonOutOfBoundsTableAccess, "")
		}
		for i := uint32(0); i < n; i++ {
			table.References[dst+i] = val
		}
		return nil
	}
	return api.NewTrap(api.ReasonUnreachable, "unimplemented misc opcode %d", sub)
}
