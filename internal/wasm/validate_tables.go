package wasm

// numericSig is the fixed (params, results) signature of one numeric
// instruction, independent of surrounding context.
type numericSig struct {
	params  []ValueType
	results []ValueType
}

var (
	sigI32I32I32      = numericSig{[]ValueType{ValueTypeI32, ValueTypeI32}, []ValueType{ValueTypeI32}}
	sigI32I32         = numericSig{[]ValueType{ValueTypeI32}, []ValueType{ValueTypeI32}}
	sigI64I64I32      = numericSig{[]ValueType{ValueTypeI64, ValueTypeI64}, []ValueType{ValueTypeI32}}
	sigI64I64I64      = numericSig{[]ValueType{ValueTypeI64, ValueTypeI64}, []ValueType{ValueTypeI64}}
	sigI64I64         = numericSig{[]ValueType{ValueTypeI64}, []ValueType{ValueTypeI64}}
	sigI64I32         = numericSig{[]ValueType{ValueTypeI64}, []ValueType{ValueTypeI32}}
	sigF32F32I32      = numericSig{[]ValueType{ValueTypeF32, ValueTypeF32}, []ValueType{ValueTypeI32}}
	sigF32F32F32      = numericSig{[]ValueType{ValueTypeF32, ValueTypeF32}, []ValueType{ValueTypeF32}}
	sigF32F32         = numericSig{[]ValueType{ValueTypeF32}, []ValueType{ValueTypeF32}}
	sigF64F64I32      = numericSig{[]ValueType{ValueTypeF64, ValueTypeF64}, []ValueType{ValueTypeI32}}
	sigF64F64F64      = numericSig{[]ValueType{ValueTypeF64, ValueTypeF64}, []ValueType{ValueTypeF64}}
	sigF64F64         = numericSig{[]ValueType{ValueTypeF64}, []ValueType{ValueTypeF64}}
	sigI32I64         = numericSig{[]ValueType{ValueTypeI32}, []ValueType{ValueTypeI64}}
	sigF32I32         = numericSig{[]ValueType{ValueTypeF32}, []ValueType{ValueTypeI32}}
	sigF64I32         = numericSig{[]ValueType{ValueTypeF64}, []ValueType{ValueTypeI32}}
	sigF32I64         = numericSig{[]ValueType{ValueTypeF32}, []ValueType{ValueTypeI64}}
	sigF64I64         = numericSig{[]ValueType{ValueTypeF64}, []ValueType{ValueTypeI64}}
	sigI32F32         = numericSig{[]ValueType{ValueTypeI32}, []ValueType{ValueTypeF32}}
	sigI64F32         = numericSig{[]ValueType{ValueTypeI64}, []ValueType{ValueTypeF32}}
	sigI32F64         = numericSig{[]ValueType{ValueTypeI32}, []ValueType{ValueTypeF64}}
	sigI64F64         = numericSig{[]ValueType{ValueTypeI64}, []ValueType{ValueTypeF64}}
	sigF64F32         = numericSig{[]ValueType{ValueTypeF64}, []ValueType{ValueTypeF32}}
	sigF32F64         = numericSig{[]ValueType{ValueTypeF32}, []ValueType{ValueTypeF64}}
)

var numericSigTable = map[Opcode]numericSig{
	OpcodeI32Eqz: sigI32I32,
	OpcodeI32Eq:  sigI32I32I32, OpcodeI32Ne: sigI32I32I32,
	OpcodeI32LtS: sigI32I32I32, OpcodeI32LtU: sigI32I32I32,
	OpcodeI32GtS: sigI32I32I32, OpcodeI32GtU: sigI32I32I32,
	OpcodeI32LeS: sigI32I32I32, OpcodeI32LeU: sigI32I32I32,
	OpcodeI32GeS: sigI32I32I32, OpcodeI32GeU: sigI32I32I32,

	OpcodeI64Eqz: sigI64I32,
	OpcodeI64Eq:  sigI64I64I32, OpcodeI64Ne: sigI64I64I32,
	OpcodeI64LtS: sigI64I64I32, OpcodeI64LtU: sigI64I64I32,
	OpcodeI64GtS: sigI64I64I32, OpcodeI64GtU: sigI64I64I32,
	OpcodeI64LeS: sigI64I64I32, OpcodeI64LeU: sigI64I64I32,
	OpcodeI64GeS: sigI64I64I32, OpcodeI64GeU: sigI64I64I32,

	OpcodeF32Eq: sigF32F32I32, OpcodeF32Ne: sigF32F32I32,
	OpcodeF32Lt: sigF32F32I32, OpcodeF32Gt: sigF32F32I32,
	OpcodeF32Le: sigF32F32I32, OpcodeF32Ge: sigF32F32I32,

	OpcodeF64Eq: sigF64F64I32, OpcodeF64Ne: sigF64F64I32,
	OpcodeF64Lt: sigF64F64I32, OpcodeF64Gt: sigF64F64I32,
	OpcodeF64Le: sigF64F64I32, OpcodeF64Ge: sigF64F64I32,

	OpcodeI32Clz: sigI32I32, OpcodeI32Ctz: sigI32I32, OpcodeI32Popcnt: sigI32I32,
	OpcodeI32Add: sigI32I32I32, OpcodeI32Sub: sigI32I32I32, OpcodeI32Mul: sigI32I32I32,
	OpcodeI32DivS: sigI32I32I32, OpcodeI32DivU: sigI32I32I32,
	OpcodeI32RemS: sigI32I32I32, OpcodeI32RemU: sigI32I32I32,
	OpcodeI32And: sigI32I32I32, OpcodeI32Or: sigI32I32I32, OpcodeI32Xor: sigI32I32I32,
	OpcodeI32Shl: sigI32I32I32, OpcodeI32ShrS: sigI32I32I32, OpcodeI32ShrU: sigI32I32I32,
	OpcodeI32Rotl: sigI32I32I32, OpcodeI32Rotr: sigI32I32I32,

	OpcodeI64Clz: sigI64I64, OpcodeI64Ctz: sigI64I64, OpcodeI64Popcnt: sigI64I64,
	OpcodeI64Add: sigI64I64I64, OpcodeI64Sub: sigI64I64I64, OpcodeI64Mul: sigI64I64I64,
	OpcodeI64DivS: sigI64I64I64, OpcodeI64DivU: sigI64I64I64,
	OpcodeI64RemS: sigI64I64I64, OpcodeI64RemU: sigI64I64I64,
	OpcodeI64And: sigI64I64I64, OpcodeI64Or: sigI64I64I64, OpcodeI64Xor: sigI64I64I64,
	OpcodeI64Shl: sigI64I64I64, OpcodeI64ShrS: sigI64I64I64, OpcodeI64ShrU: sigI64I64I64,
	OpcodeI64Rotl: sigI64I64I64, OpcodeI64Rotr: sigI64I64I64,

	OpcodeF32Abs: sigF32F32, OpcodeF32Neg: sigF32F32, OpcodeF32Ceil: sigF32F32,
	OpcodeF32Floor: sigF32F32, OpcodeF32Trunc: sigF32F32, OpcodeF32Nearest: sigF32F32, OpcodeF32Sqrt: sigF32F32,
	OpcodeF32Add: sigF32F32F32, OpcodeF32Sub: sigF32F32F32, OpcodeF32Mul: sigF32F32F32, OpcodeF32Div: sigF32F32F32,
	OpcodeF32Min: sigF32F32F32, OpcodeF32Max: sigF32F32F32, OpcodeF32Copysign: sigF32F32F32,

	OpcodeF64Abs: sigF64F64, OpcodeF64Neg: sigF64F64, OpcodeF64Ceil: sigF64F64,
	OpcodeF64Floor: sigF64F64, OpcodeF64Trunc: sigF64F64, OpcodeF64Nearest: sigF64F64, OpcodeF64Sqrt: sigF64F64,
	OpcodeF64Add: sigF64F64F64, OpcodeF64Sub: sigF64F64F64, OpcodeF64Mul: sigF64F64F64, OpcodeF64Div: sigF64F64F64,
	OpcodeF64Min: sigF64F64F64, OpcodeF64Max: sigF64F64F64, OpcodeF64Copysign: sigF64F64F64,

	OpcodeI32WrapI64: sigI64I32,
	OpcodeI32TruncF32S: sigF32I32, OpcodeI32TruncF32U: sigF32I32,
	OpcodeI32TruncF64S: sigF64I32, OpcodeI32TruncF64U: sigF64I32,
	OpcodeI64ExtendI32S: sigI32I64, OpcodeI64ExtendI32U: sigI32I64,
	OpcodeI64TruncF32S: sigF32I64, OpcodeI64TruncF32U: sigF32I64,
	OpcodeI64TruncF64S: sigF64I64, OpcodeI64TruncF64U: sigF64I64,
	OpcodeF32ConvertI32S: sigI32F32, OpcodeF32ConvertI32U: sigI32F32,
	OpcodeF32ConvertI64S: sigI64F32, OpcodeF32ConvertI64U: sigI64F32,
	OpcodeF32DemoteF64: sigF64F32,
	OpcodeF64ConvertI32S: sigI32F64, OpcodeF64ConvertI32U: sigI32F64,
	OpcodeF64ConvertI64S: sigI64F64, OpcodeF64ConvertI64U: sigI64F64,
	OpcodeF64PromoteF32: sigF32F64,
	OpcodeI32ReinterpretF32: sigF32I32, OpcodeI64ReinterpretF64: sigF64I64,
	OpcodeF32ReinterpretI32: sigI32F32, OpcodeF64ReinterpretI64: sigI64F64,

	OpcodeI32Extend8S: sigI32I32, OpcodeI32Extend16S: sigI32I32,
	OpcodeI64Extend8S: sigI64I64, OpcodeI64Extend16S: sigI64I64, OpcodeI64Extend32S: sigI64I64,
}

func numericSignature(op Opcode) (numericSig, bool) {
	sig, ok := numericSigTable[op]
	return sig, ok
}

func isLoadOpcode(op Opcode) bool {
	switch op {
	case OpcodeI32Load, OpcodeI64Load, OpcodeF32Load, OpcodeF64Load,
		OpcodeI32Load8S, OpcodeI32Load8U, OpcodeI32Load16S, OpcodeI32Load16U,
		OpcodeI64Load8S, OpcodeI64Load8U, OpcodeI64Load16S, OpcodeI64Load16U,
		OpcodeI64Load32S, OpcodeI64Load32U:
		return true
	}
	return false
}

func isStoreOpcode(op Opcode) bool {
	switch op {
	case OpcodeI32Store, OpcodeI64Store, OpcodeF32Store, OpcodeF64Store,
		OpcodeI32Store8, OpcodeI32Store16, OpcodeI64Store8, OpcodeI64Store16, OpcodeI64Store32:
		return true
	}
	return false
}

// naturalAlignment returns the maximum legal align exponent (log2 of byte
// width) for a load/store opcode, per spec.md's alignment rule.
func naturalAlignment(op Opcode) uint32 {
	switch op {
	case OpcodeI32Load, OpcodeI32Store, OpcodeF32Load, OpcodeF32Store:
		return 2
	case OpcodeI64Load, OpcodeI64Store, OpcodeF64Load, OpcodeF64Store:
		return 3
	case OpcodeI32Load8S, OpcodeI32Load8U, OpcodeI32Store8,
		OpcodeI64Load8S, OpcodeI64Load8U, OpcodeI64Store8:
		return 0
	case OpcodeI32Load16S, OpcodeI32Load16U, OpcodeI32Store16,
		OpcodeI64Load16S, OpcodeI64Load16U, OpcodeI64Store16:
		return 1
	case OpcodeI64Load32S, OpcodeI64Load32U, OpcodeI64Store32:
		return 2
	}
	return 0
}

func loadResultType(op Opcode) ValueType {
	switch op {
	case OpcodeI32Load, OpcodeI32Load8S, OpcodeI32Load8U, OpcodeI32Load16S, OpcodeI32Load16U:
		return ValueTypeI32
	case OpcodeI64Load, OpcodeI64Load8S, OpcodeI64Load8U, OpcodeI64Load16S, OpcodeI64Load16U,
		OpcodeI64Load32S, OpcodeI64Load32U:
		return ValueTypeI64
	case OpcodeF32Load:
		return ValueTypeF32
	case OpcodeF64Load:
		return ValueTypeF64
	}
	panic("unreachable")
}

func storeValueType(op Opcode) ValueType {
	switch op {
	case OpcodeI32Store, OpcodeI32Store8, OpcodeI32Store16:
		return ValueTypeI32
	case OpcodeI64Store, OpcodeI64Store8, OpcodeI64Store16, OpcodeI64Store32:
		return ValueTypeI64
	case OpcodeF32Store:
		return ValueTypeF32
	case OpcodeF64Store:
		return ValueTypeF64
	}
	panic("unreachable")
}
