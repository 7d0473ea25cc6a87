package wasm

import "github.com/tetrawasm/wazerolite/api"

const maxLocalsPerFunction = 1<<32 - 1

func (d *decoder) decodeCodeSection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.m.CodeSection = make([]*Code, count)
	for i := range d.m.CodeSection {
		size, err := r.u32()
		if err != nil {
			return err
		}
		body, err := r.bytes(int(size))
		if err != nil {
			return err
		}
		code, err := decodeFunctionBody(body)
		if err != nil {
			return err
		}
		d.m.CodeSection[i] = code
	}
	return nil
}

// decodeFunctionBody decodes one code entry's locals declaration and runs
// the structured single-pass scan over its instructions that populates the
// continuation tables (spec.md §4.1 "Control-flow pre-computation").
func decodeFunctionBody(body []byte) (*Code, error) {
	r := newReader(body)

	numLocalDecls, err := r.u32()
	if err != nil {
		return nil, err
	}
	var locals []ValueType
	var total uint64
	for i := uint32(0); i < numLocalDecls; i++ {
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		total += uint64(n)
		if total > maxLocalsPerFunction {
			return nil, api.MalformedError(api.ReasonTooManyLocals, "too many locals: %d", total)
		}
		vt, err := r.valueType()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < n; j++ {
			locals = append(locals, vt)
		}
	}

	bodyStart := r.pos
	code := &Code{
		LocalTypes: locals,
		LabelEnd:   map[uint32]uint32{},
		IfElse:     map[uint32]uint32{},
	}

	type openConstruct struct {
		opcode   Opcode // OpcodeBlock, OpcodeLoop, or OpcodeIf
		offset   uint32 // offset, within code.Body, of the opening opcode
		sawElse  bool
		ifOffset uint32 // meaningful once sawElse is set: the enclosing if's own offset
	}
	var stack []openConstruct

	for {
		offset := uint32(r.pos - bodyStart)
		op, err := r.byte()
		if err != nil {
			return nil, err
		}
		switch op {
		case OpcodeBlock, OpcodeLoop, OpcodeIf:
			if _, err := decodeBlockType(r); err != nil {
				return nil, err
			}
			stack = append(stack, openConstruct{opcode: op, offset: offset})
		case OpcodeElse:
			if len(stack) == 0 || stack[len(stack)-1].opcode != OpcodeIf {
				return nil, api.MalformedError(api.ReasonIllegalOpcode, "else without matching if")
			}
			top := &stack[len(stack)-1]
			code.IfElse[top.offset] = offset
			top.sawElse = true
			top.ifOffset = top.offset
		case OpcodeEnd:
			if len(stack) == 0 {
				code.FunctionEnd = offset
				code.Body = r.buf[bodyStart:r.pos]
				return code, nil
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch {
			case top.opcode == OpcodeLoop:
				code.LabelEnd[top.offset] = top.offset
			case top.opcode == OpcodeIf && top.sawElse:
				code.LabelEnd[top.ifOffset] = offset
				code.LabelEnd[code.IfElse[top.ifOffset]] = offset
			case top.opcode == OpcodeIf:
				code.LabelEnd[top.offset] = offset
			default: // OpcodeBlock
				code.LabelEnd[top.offset] = offset
			}
		default:
			if err := skipImmediate(r, op); err != nil {
				return nil, err
			}
		}
	}
}

// decodeBlockType reads a block-type immediate: a single 0x40 (void) or
// value-type byte, or a signed LEB128 non-negative type-section index.
func decodeBlockType(r *reader) (BlockType, error) {
	// Peek without committing: block types are encoded as signed LEB128,
	// where negative single-byte values are the void/valtype sentinels.
	start := r.pos
	v, err := r.i32()
	if err != nil {
		return BlockType{}, err
	}
	switch v {
	case -0x40: // void, encoded as the single byte 0x40 under sign extension
		return BlockType{Kind: BlockTypeKindVoid}, nil
	case -1, -2, -3, -4, -0x10, -0x11: // i32,i64,f32,f64,funcref,externref sentinels
		_ = start
		return BlockType{Kind: BlockTypeKindValueType, Value: valueTypeFromBlockSentinel(v)}, nil
	default:
		if v < 0 {
			return BlockType{}, api.MalformedError(api.ReasonType, "invalid block type: %d", v)
		}
		return BlockType{Kind: BlockTypeKindTypeIndex, Index: uint32(v)}, nil
	}
}

func valueTypeFromBlockSentinel(v int32) ValueType {
	switch v {
	case -1:
		return ValueTypeI32
	case -2:
		return ValueTypeI64
	case -3:
		return ValueTypeF32
	case -4:
		return ValueTypeF64
	case -0x10:
		return ValueTypeFuncref
	case -0x11:
		return ValueTypeExternref
	}
	panic("unreachable")
}

// memarg reads the (align, offset) immediate pair of a load/store
// instruction.
type memarg struct {
	Align  uint32
	Offset uint32
}

func decodeMemarg(r *reader) (memarg, error) {
	align, err := r.u32()
	if err != nil {
		return memarg{}, err
	}
	offset, err := r.u32()
	if err != nil {
		return memarg{}, err
	}
	return memarg{Align: align, Offset: offset}, nil
}

// skipImmediate advances r past the immediate(s) of op without
// interpreting them; the validator (validate.go) and the interpreter
// (internal/engine/interpreter) each re-decode immediates themselves when
// they actually execute/check an instruction. This single decode pass
// exists only to locate opcode boundaries for the continuation-table scan
// and to reject illegal opcodes early (spec.md §4.1).
func skipImmediate(r *reader, op Opcode) error {
	switch op {
	case OpcodeUnreachable, OpcodeNop, OpcodeReturn, OpcodeDrop, OpcodeSelect,
		OpcodeI32Eqz, OpcodeI32Eq, OpcodeI32Ne, OpcodeI32LtS, OpcodeI32LtU, OpcodeI32GtS, OpcodeI32GtU,
		OpcodeI32LeS, OpcodeI32LeU, OpcodeI32GeS, OpcodeI32GeU,
		OpcodeI64Eqz, OpcodeI64Eq, OpcodeI64Ne, OpcodeI64LtS, OpcodeI64LtU, OpcodeI64GtS, OpcodeI64GtU,
		OpcodeI64LeS, OpcodeI64LeU, OpcodeI64GeS, OpcodeI64GeU,
		OpcodeF32Eq, OpcodeF32Ne, OpcodeF32Lt, OpcodeF32Gt, OpcodeF32Le, OpcodeF32Ge,
		OpcodeF64Eq, OpcodeF64Ne, OpcodeF64Lt, OpcodeF64Gt, OpcodeF64Le, OpcodeF64Ge,
		OpcodeI32Clz, OpcodeI32Ctz, OpcodeI32Popcnt, OpcodeI32Add, OpcodeI32Sub, OpcodeI32Mul,
		OpcodeI32DivS, OpcodeI32DivU, OpcodeI32RemS, OpcodeI32RemU, OpcodeI32And, OpcodeI32Or, OpcodeI32Xor,
		OpcodeI32Shl, OpcodeI32ShrS, OpcodeI32ShrU, OpcodeI32Rotl, OpcodeI32Rotr,
		OpcodeI64Clz, OpcodeI64Ctz, OpcodeI64Popcnt, OpcodeI64Add, OpcodeI64Sub, OpcodeI64Mul,
		OpcodeI64DivS, OpcodeI64DivU, OpcodeI64RemS, OpcodeI64RemU, OpcodeI64And, OpcodeI64Or, OpcodeI64Xor,
		OpcodeI64Shl, OpcodeI64ShrS, OpcodeI64ShrU, OpcodeI64Rotl, OpcodeI64Rotr,
		OpcodeF32Abs, OpcodeF32Neg, OpcodeF32Ceil, OpcodeF32Floor, OpcodeF32Trunc, OpcodeF32Nearest, OpcodeF32Sqrt,
		OpcodeF32Add, OpcodeF32Sub, OpcodeF32Mul, OpcodeF32Div, OpcodeF32Min, OpcodeF32Max, OpcodeF32Copysign,
		OpcodeF64Abs, OpcodeF64Neg, OpcodeF64Ceil, OpcodeF64Floor, OpcodeF64Trunc, OpcodeF64Nearest, OpcodeF64Sqrt,
		OpcodeF64Add, OpcodeF64Sub, OpcodeF64Mul, OpcodeF64Div, OpcodeF64Min, OpcodeF64Max, OpcodeF64Copysign,
		OpcodeI32WrapI64, OpcodeI32TruncF32S, OpcodeI32TruncF32U, OpcodeI32TruncF64S, OpcodeI32TruncF64U,
		OpcodeI64ExtendI32S, OpcodeI64ExtendI32U, OpcodeI64TruncF32S, OpcodeI64TruncF32U, OpcodeI64TruncF64S, OpcodeI64TruncF64U,
		OpcodeF32ConvertI32S, OpcodeF32ConvertI32U, OpcodeF32ConvertI64S, OpcodeF32ConvertI64U, OpcodeF32DemoteF64,
		OpcodeF64ConvertI32S, OpcodeF64ConvertI32U, OpcodeF64ConvertI64S, OpcodeF64ConvertI64U, OpcodeF64PromoteF32,
		OpcodeI32ReinterpretF32, OpcodeI64ReinterpretF64, OpcodeF32ReinterpretI32, OpcodeF64ReinterpretI64,
		OpcodeI32Extend8S, OpcodeI32Extend16S, OpcodeI64Extend8S, OpcodeI64Extend16S, OpcodeI64Extend32S,
		OpcodeRefIsNull:
		return nil

	case OpcodeSelectT:
		n, err := r.u32()
		if err != nil {
			return err
		}
		for i := uint32(0); i < n; i++ {
			if _, err := r.valueType(); err != nil {
				return err
			}
		}
		return nil

	case OpcodeBr, OpcodeBrIf, OpcodeLocalGet, OpcodeLocalSet, OpcodeLocalTee,
		OpcodeGlobalGet, OpcodeGlobalSet, OpcodeCall, OpcodeTableGet, OpcodeTableSet,
		OpcodeMemorySize, OpcodeMemoryGrow, OpcodeRefFunc:
		_, err := r.u32()
		return err

	case OpcodeRefNull:
		_, err := r.refType()
		return err

	case OpcodeI32Const:
		_, err := r.i32()
		return err
	case OpcodeI64Const:
		_, err := r.i64()
		return err
	case OpcodeF32Const:
		_, err := r.f32()
		return err
	case OpcodeF64Const:
		_, err := r.f64()
		return err

	case OpcodeCallIndirect:
		if _, err := r.u32(); err != nil {
			return err
		}
		_, err := r.u32()
		return err

	case OpcodeBrTable:
		n, err := r.u32()
		if err != nil {
			return err
		}
		for i := uint32(0); i < n; i++ {
			if _, err := r.u32(); err != nil {
				return err
			}
		}
		_, err = r.u32()
		return err

	case OpcodeI32Load, OpcodeI64Load, OpcodeF32Load, OpcodeF64Load,
		OpcodeI32Load8S, OpcodeI32Load8U, OpcodeI32Load16S, OpcodeI32Load16U,
		OpcodeI64Load8S, OpcodeI64Load8U, OpcodeI64Load16S, OpcodeI64Load16U, OpcodeI64Load32S, OpcodeI64Load32U,
		OpcodeI32Store, OpcodeI64Store, OpcodeF32Store, OpcodeF64Store,
		OpcodeI32Store8, OpcodeI32Store16, OpcodeI64Store8, OpcodeI64Store16, OpcodeI64Store32:
		_, err := decodeMemarg(r)
		return err

	case OpcodeMiscPrefix:
		sub, err := r.u32()
		if err != nil {
			return err
		}
		switch sub {
		case MiscOpcodeI32TruncSatF32S, MiscOpcodeI32TruncSatF32U, MiscOpcodeI32TruncSatF64S, MiscOpcodeI32TruncSatF64U,
			MiscOpcodeI64TruncSatF32S, MiscOpcodeI64TruncSatF32U, MiscOpcodeI64TruncSatF64S, MiscOpcodeI64TruncSatF64U:
			return nil
		case MiscOpcodeMemoryInit:
			if _, err := r.u32(); err != nil {
				return err
			}
			_, err := r.byte() // reserved memory index, must be 0
			return err
		case MiscOpcodeDataDrop:
			_, err := r.u32()
			return err
		case MiscOpcodeMemoryCopy:
			if _, err := r.byte(); err != nil {
				return err
			}
			_, err := r.byte()
			return err
		case MiscOpcodeMemoryFill:
			_, err := r.byte()
			return err
		case MiscOpcodeTableInit:
			if _, err := r.u32(); err != nil {
				return err
			}
			_, err := r.u32()
			return err
		case MiscOpcodeElemDrop:
			_, err := r.u32()
			return err
		case MiscOpcodeTableCopy:
			if _, err := r.u32(); err != nil {
				return err
			}
			_, err := r.u32()
			return err
		case MiscOpcodeTableGrow, MiscOpcodeTableSize, MiscOpcodeTableFill:
			_, err := r.u32()
			return err
		default:
			return api.MalformedError(api.ReasonIllegalOpcode, "invalid 0xFC sub-opcode: %d", sub)
		}

	default:
		return api.MalformedError(api.ReasonIllegalOpcode, "invalid opcode: %#x", op)
	}
}
