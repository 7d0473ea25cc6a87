package wasm

import "github.com/tetrawasm/wazerolite/api"

// decodeConstantExpression decodes the single permitted instruction of a
// constant expression (spec.md §4.2's list) and consumes its trailing `end`.
func (d *decoder) decodeConstantExpression(r *reader) (ConstantExpression, error) {
	op, err := r.byte()
	if err != nil {
		return ConstantExpression{}, err
	}
	ce := ConstantExpression{Opcode: op}
	switch op {
	case OpcodeI32Const:
		if ce.I32, err = r.i32(); err != nil {
			return ce, err
		}
	case OpcodeI64Const:
		if ce.I64, err = r.i64(); err != nil {
			return ce, err
		}
	case OpcodeF32Const:
		if ce.F32, err = r.f32(); err != nil {
			return ce, err
		}
	case OpcodeF64Const:
		if ce.F64, err = r.f64(); err != nil {
			return ce, err
		}
	case OpcodeGlobalGet:
		if ce.GlobalIndex, err = r.u32(); err != nil {
			return ce, err
		}
	case OpcodeRefNull:
		if ce.RefType, err = r.refType(); err != nil {
			return ce, err
		}
	case OpcodeRefFunc:
		if ce.FuncIndex, err = r.u32(); err != nil {
			return ce, err
		}
	default:
		return ce, api.ValidationError(api.ReasonBadConstantExpression, "invalid opcode in constant expression: %#x", op)
	}
	end, err := r.byte()
	if err != nil {
		return ce, err
	}
	if end != OpcodeEnd {
		return ce, api.ValidationError(api.ReasonBadConstantExpression, "constant expression must end with end opcode")
	}
	return ce, nil
}

// ResultType reports the value type a constant expression produces, given
// the global section's types for resolving a global.get reference.
func (ce ConstantExpression) ResultType(globalTypes []*GlobalType) ValueType {
	switch ce.Opcode {
	case OpcodeI32Const:
		return ValueTypeI32
	case OpcodeI64Const:
		return ValueTypeI64
	case OpcodeF32Const:
		return ValueTypeF32
	case OpcodeF64Const:
		return ValueTypeF64
	case OpcodeGlobalGet:
		return globalTypes[ce.GlobalIndex].ValType
	case OpcodeRefNull:
		return ce.RefType
	case OpcodeRefFunc:
		return ValueTypeFuncref
	}
	panic("unreachable: invalid constant expression opcode")
}

// Evaluate computes the 64-bit encoded value of a constant expression,
// given the already-initialized global instances of the instantiating
// module (global.get may only reference immutable imported globals, all of
// which are initialized before any module-defined global).
func (ce ConstantExpression) Evaluate(globals []*GlobalInstance) uint64 {
	switch ce.Opcode {
	case OpcodeI32Const:
		return api.EncodeI32(ce.I32)
	case OpcodeI64Const:
		return api.EncodeI64(ce.I64)
	case OpcodeF32Const:
		return api.EncodeF32(ce.F32)
	case OpcodeF64Const:
		return api.EncodeF64(ce.F64)
	case OpcodeGlobalGet:
		return globals[ce.GlobalIndex].Val
	case OpcodeRefNull:
		return RefNullValue
	case OpcodeRefFunc:
		return uint64(ce.FuncIndex)
	}
	panic("unreachable: invalid constant expression opcode")
}

// RefNullValue is the sentinel 64-bit encoding of a null reference.
const RefNullValue = ^uint64(0)
