package interpreter

import (
	"math"
	"math/bits"

	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/wasm"
)

// execNumeric applies a non-memory, non-control numeric/comparison/
// conversion instruction to vs, trapping on division by zero,
// signed overflow, or an out-of-range float-to-int conversion (spec.md §8).
func execNumeric(op wasm.Opcode, vs *valueStack) error {
	switch op {
	case wasm.OpcodeI32Eqz:
		vs.push(b2u(int32(vs.pop()) == 0))
	case wasm.OpcodeI32Eq:
		y, x := int32(vs.pop()), int32(vs.pop())
		vs.push(b2u(x == y))
	case wasm.OpcodeI32Ne:
		y, x := int32(vs.pop()), int32(vs.pop())
		vs.push(b2u(x != y))
	case wasm.OpcodeI32LtS:
		y, x := int32(vs.pop()), int32(vs.pop())
		vs.push(b2u(x < y))
	case wasm.OpcodeI32LtU:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(b2u(x < y))
	case wasm.OpcodeI32GtS:
		y, x := int32(vs.pop()), int32(vs.pop())
		vs.push(b2u(x > y))
	case wasm.OpcodeI32GtU:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(b2u(x > y))
	case wasm.OpcodeI32LeS:
		y, x := int32(vs.pop()), int32(vs.pop())
		vs.push(b2u(x <= y))
	case wasm.OpcodeI32LeU:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(b2u(x <= y))
	case wasm.OpcodeI32GeS:
		y, x := int32(vs.pop()), int32(vs.pop())
		vs.push(b2u(x >= y))
	case wasm.OpcodeI32GeU:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(b2u(x >= y))

	case wasm.OpcodeI64Eqz:
		vs.push(b2u(int64(vs.pop()) == 0))
	case wasm.OpcodeI64Eq:
		y, x := int64(vs.pop()), int64(vs.pop())
		vs.push(b2u(x == y))
	case wasm.OpcodeI64Ne:
		y, x := int64(vs.pop()), int64(vs.pop())
		vs.push(b2u(x != y))
	case wasm.OpcodeI64LtS:
		y, x := int64(vs.pop()), int64(vs.pop())
		vs.push(b2u(x < y))
	case wasm.OpcodeI64LtU:
		y, x := vs.pop(), vs.pop()
		vs.push(b2u(x < y))
	case wasm.OpcodeI64GtS:
		y, x := int64(vs.pop()), int64(vs.pop())
		vs.push(b2u(x > y))
	case wasm.OpcodeI64GtU:
		y, x := vs.pop(), vs.pop()
		vs.push(b2u(x > y))
	case wasm.OpcodeI64LeS:
		y, x := int64(vs.pop()), int64(vs.pop())
		vs.push(b2u(x <= y))
	case wasm.OpcodeI64LeU:
		y, x := vs.pop(), vs.pop()
		vs.push(b2u(x <= y))
	case wasm.OpcodeI64GeS:
		y, x := int64(vs.pop()), int64(vs.pop())
		vs.push(b2u(x >= y))
	case wasm.OpcodeI64GeU:
		y, x := vs.pop(), vs.pop()
		vs.push(b2u(x >= y))

	case wasm.OpcodeF32Eq:
		y, x := popF32(vs), popF32(vs)
		vs.push(b2u(x == y))
	case wasm.OpcodeF32Ne:
		y, x := popF32(vs), popF32(vs)
		vs.push(b2u(x != y))
	case wasm.OpcodeF32Lt:
		y, x := popF32(vs), popF32(vs)
		vs.push(b2u(x < y))
	case wasm.OpcodeF32Gt:
		y, x := popF32(vs), popF32(vs)
		vs.push(b2u(x > y))
	case wasm.OpcodeF32Le:
		y, x := popF32(vs), popF32(vs)
		vs.push(b2u(x <= y))
	case wasm.OpcodeF32Ge:
		y, x := popF32(vs), popF32(vs)
		vs.push(b2u(x >= y))

	case wasm.OpcodeF64Eq:
		y, x := popF64(vs), popF64(vs)
		vs.push(b2u(x == y))
	case wasm.OpcodeF64Ne:
		y, x := popF64(vs), popF64(vs)
		vs.push(b2u(x != y))
	case wasm.OpcodeF64Lt:
		y, x := popF64(vs), popF64(vs)
		vs.push(b2u(x < y))
	case wasm.OpcodeF64Gt:
		y, x := popF64(vs), popF64(vs)
		vs.push(b2u(x > y))
	case wasm.OpcodeF64Le:
		y, x := popF64(vs), popF64(vs)
		vs.push(b2u(x <= y))
	case wasm.OpcodeF64Ge:
		y, x := popF64(vs), popF64(vs)
		vs.push(b2u(x >= y))

	case wasm.OpcodeI32Clz:
		vs.push(uint64(bits.LeadingZeros32(uint32(vs.pop()))))
	case wasm.OpcodeI32Ctz:
		vs.push(uint64(bits.TrailingZeros32(uint32(vs.pop()))))
	case wasm.OpcodeI32Popcnt:
		vs.push(uint64(bits.OnesCount32(uint32(vs.pop()))))
	case wasm.OpcodeI32Add:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(uint64(x + y))
	case wasm.OpcodeI32Sub:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(uint64(x - y))
	case wasm.OpcodeI32Mul:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(uint64(x * y))
	case wasm.OpcodeI32DivS:
		y, x := int32(vs.pop()), int32(vs.pop())
		if y == 0 {
			return api.NewTrap(api.ReasonIntegerDivisionByZero, "")
		}
		if x == math.MinInt32 && y == -1 {
			return api.NewTrap(api.ReasonIntegerOverflow, "")
		}
		vs.push(uint64(uint32(x / y)))
	case wasm.OpcodeI32DivU:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		if y == 0 {
			return api.NewTrap(api.ReasonIntegerDivisionByZero, "")
		}
		vs.push(uint64(x / y))
	case wasm.OpcodeI32RemS:
		y, x := int32(vs.pop()), int32(vs.pop())
		if y == 0 {
			return api.NewTrap(api.ReasonIntegerDivisionByZero, "")
		}
		if x == math.MinInt32 && y == -1 {
			vs.push(0)
		} else {
			vs.push(uint64(uint32(x % y)))
		}
	case wasm.OpcodeI32RemU:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		if y == 0 {
			return api.NewTrap(api.ReasonIntegerDivisionByZero, "")
		}
		vs.push(uint64(x % y))
	case wasm.OpcodeI32And:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(uint64(x & y))
	case wasm.OpcodeI32Or:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(uint64(x | y))
	case wasm.OpcodeI32Xor:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(uint64(x ^ y))
	case wasm.OpcodeI32Shl:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(uint64(x << (y & 31)))
	case wasm.OpcodeI32ShrS:
		y, x := uint32(vs.pop()), int32(vs.pop())
		vs.push(uint64(uint32(x >> (y & 31))))
	case wasm.OpcodeI32ShrU:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(uint64(x >> (y & 31)))
	case wasm.OpcodeI32Rotl:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(uint64(bits.RotateLeft32(x, int(y))))
	case wasm.OpcodeI32Rotr:
		y, x := uint32(vs.pop()), uint32(vs.pop())
		vs.push(uint64(bits.RotateLeft32(x, -int(y))))

	case wasm.OpcodeI64Clz:
		vs.push(uint64(bits.LeadingZeros64(vs.pop())))
	case wasm.OpcodeI64Ctz:
		vs.push(uint64(bits.TrailingZeros64(vs.pop())))
	case wasm.OpcodeI64Popcnt:
		vs.push(uint64(bits.OnesCount64(vs.pop())))
	case wasm.OpcodeI64Add:
		y, x := vs.pop(), vs.pop()
		vs.push(x + y)
	case wasm.OpcodeI64Sub:
		y, x := vs.pop(), vs.pop()
		vs.push(x - y)
	case wasm.OpcodeI64Mul:
		y, x := vs.pop(), vs.pop()
		vs.push(x * y)
	case wasm.OpcodeI64DivS:
		y, x := int64(vs.pop()), int64(vs.pop())
		if y == 0 {
			return api.NewTrap(api.ReasonIntegerDivisionByZero, "")
		}
		if x == math.MinInt64 && y == -1 {
			return api.NewTrap(api.ReasonIntegerOverflow, "")
		}
		vs.push(uint64(x / y))
	case wasm.OpcodeI64DivU:
		y, x := vs.pop(), vs.pop()
		if y == 0 {
			return api.NewTrap(api.ReasonIntegerDivisionByZero, "")
		}
		vs.push(x / y)
	case wasm.OpcodeI64RemS:
		y, x := int64(vs.pop()), int64(vs.pop())
		if y == 0 {
			return api.NewTrap(api.ReasonIntegerDivisionByZero, "")
		}
		if x == math.MinInt64 && y == -1 {
			vs.push(0)
		} else {
			vs.push(uint64(x % y))
		}
	case wasm.OpcodeI64RemU:
		y, x := vs.pop(), vs.pop()
		if y == 0 {
			return api.NewTrap(api.ReasonIntegerDivisionByZero, "")
		}
		vs.push(x % y)
	case wasm.OpcodeI64And:
		y, x := vs.pop(), vs.pop()
		vs.push(x & y)
	case wasm.OpcodeI64Or:
		y, x := vs.pop(), vs.pop()
		vs.push(x | y)
	case wasm.OpcodeI64Xor:
		y, x := vs.pop(), vs.pop()
		vs.push(x ^ y)
	case wasm.OpcodeI64Shl:
		y, x := vs.pop(), vs.pop()
		vs.push(x << (y & 63))
	case wasm.OpcodeI64ShrS:
		y, x := vs.pop(), int64(vs.pop())
		vs.push(uint64(x >> (y & 63)))
	case wasm.OpcodeI64ShrU:
		y, x := vs.pop(), vs.pop()
		vs.push(x >> (y & 63))
	case wasm.OpcodeI64Rotl:
		y, x := vs.pop(), vs.pop()
		vs.push(bits.RotateLeft64(x, int(y)))
	case wasm.OpcodeI64Rotr:
		y, x := vs.pop(), vs.pop()
		vs.push(bits.RotateLeft64(x, -int(y)))

	case wasm.OpcodeF32Abs:
		vs.push(pushF32(float32(math.Abs(float64(popF32(vs))))))
	case wasm.OpcodeF32Neg:
		vs.push(pushF32(-popF32(vs)))
	case wasm.OpcodeF32Ceil:
		vs.push(pushF32(float32(math.Ceil(float64(popF32(vs))))))
	case wasm.OpcodeF32Floor:
		vs.push(pushF32(float32(math.Floor(float64(popF32(vs))))))
	case wasm.OpcodeF32Trunc:
		vs.push(pushF32(float32(math.Trunc(float64(popF32(vs))))))
	case wasm.OpcodeF32Nearest:
		vs.push(pushF32(float32(math.RoundToEven(float64(popF32(vs))))))
	case wasm.OpcodeF32Sqrt:
		vs.push(pushF32(float32(math.Sqrt(float64(popF32(vs))))))
	case wasm.OpcodeF32Add:
		y, x := popF32(vs), popF32(vs)
		vs.push(pushF32(x + y))
	case wasm.OpcodeF32Sub:
		y, x := popF32(vs), popF32(vs)
		vs.push(pushF32(x - y))
	case wasm.OpcodeF32Mul:
		y, x := popF32(vs), popF32(vs)
		vs.push(pushF32(x * y))
	case wasm.OpcodeF32Div:
		y, x := popF32(vs), popF32(vs)
		vs.push(pushF32(x / y))
	case wasm.OpcodeF32Min:
		y, x := popF32(vs), popF32(vs)
		vs.push(pushF32(f32Min(x, y)))
	case wasm.OpcodeF32Max:
		y, x := popF32(vs), popF32(vs)
		vs.push(pushF32(f32Max(x, y)))
	case wasm.OpcodeF32Copysign:
		y, x := popF32(vs), popF32(vs)
		vs.push(pushF32(float32(math.Copysign(float64(x), float64(y)))))

	case wasm.OpcodeF64Abs:
		vs.push(pushF64(math.Abs(popF64(vs))))
	case wasm.OpcodeF64Neg:
		vs.push(pushF64(-popF64(vs)))
	case wasm.OpcodeF64Ceil:
		vs.push(pushF64(math.Ceil(popF64(vs))))
	case wasm.OpcodeF64Floor:
		vs.push(pushF64(math.Floor(popF64(vs))))
	case wasm.OpcodeF64Trunc:
		vs.push(pushF64(math.Trunc(popF64(vs))))
	case wasm.OpcodeF64Nearest:
		vs.push(pushF64(math.RoundToEven(popF64(vs))))
	case wasm.OpcodeF64Sqrt:
		vs.push(pushF64(math.Sqrt(popF64(vs))))
	case wasm.OpcodeF64Add:
		y, x := popF64(vs), popF64(vs)
		vs.push(pushF64(x + y))
	case wasm.OpcodeF64Sub:
		y, x := popF64(vs), popF64(vs)
		vs.push(pushF64(x - y))
	case wasm.OpcodeF64Mul:
		y, x := popF64(vs), popF64(vs)
		vs.push(pushF64(x * y))
	case wasm.OpcodeF64Div:
		y, x := popF64(vs), popF64(vs)
		vs.push(pushF64(x / y))
	case wasm.OpcodeF64Min:
		y, x := popF64(vs), popF64(vs)
		vs.push(pushF64(f64Min(x, y)))
	case wasm.OpcodeF64Max:
		y, x := popF64(vs), popF64(vs)
		vs.push(pushF64(f64Max(x, y)))
	case wasm.OpcodeF64Copysign:
		y, x := popF64(vs), popF64(vs)
		vs.push(pushF64(math.Copysign(x, y)))

	case wasm.OpcodeI32WrapI64:
		vs.push(uint64(uint32(vs.pop())))
	case wasm.OpcodeI64ExtendI32S:
		vs.push(uint64(int64(int32(vs.pop()))))
	case wasm.OpcodeI64ExtendI32U:
		vs.push(uint64(uint32(vs.pop())))
	case wasm.OpcodeI32Extend8S:
		vs.push(uint64(uint32(int32(int8(vs.pop())))))
	case wasm.OpcodeI32Extend16S:
		vs.push(uint64(uint32(int32(int16(vs.pop())))))
	case wasm.OpcodeI64Extend8S:
		vs.push(uint64(int64(int8(vs.pop()))))
	case wasm.OpcodeI64Extend16S:
		vs.push(uint64(int64(int16(vs.pop()))))
	case wasm.OpcodeI64Extend32S:
		vs.push(uint64(int64(int32(vs.pop()))))

	case wasm.OpcodeI32TruncF32S:
		v, err := truncF(float64(popF32(vs)), math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		vs.push(uint64(uint32(int32(v))))
	case wasm.OpcodeI32TruncF32U:
		v, err := truncF(float64(popF32(vs)), 0, math.MaxUint32)
		if err != nil {
			return err
		}
		vs.push(uint64(uint32(v)))
	case wasm.OpcodeI32TruncF64S:
		v, err := truncF(popF64(vs), math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		vs.push(uint64(uint32(int32(v))))
	case wasm.OpcodeI32TruncF64U:
		v, err := truncF(popF64(vs), 0, math.MaxUint32)
		if err != nil {
			return err
		}
		vs.push(uint64(uint32(v)))
	case wasm.OpcodeI64TruncF32S:
		v, err := truncF(float64(popF32(vs)), math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		vs.push(uint64(int64(v)))
	case wasm.OpcodeI64TruncF32U:
		v, err := truncF(float64(popF32(vs)), 0, math.MaxUint64)
		if err != nil {
			return err
		}
		vs.push(uint64(v))
	case wasm.OpcodeI64TruncF64S:
		v, err := truncF(popF64(vs), math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		vs.push(uint64(int64(v)))
	case wasm.OpcodeI64TruncF64U:
		v, err := truncF(popF64(vs), 0, math.MaxUint64)
		if err != nil {
			return err
		}
		vs.push(uint64(v))

	case wasm.OpcodeF32ConvertI32S:
		vs.push(pushF32(float32(int32(vs.pop()))))
	case wasm.OpcodeF32ConvertI32U:
		vs.push(pushF32(float32(uint32(vs.pop()))))
	case wasm.OpcodeF32ConvertI64S:
		vs.push(pushF32(float32(int64(vs.pop()))))
	case wasm.OpcodeF32ConvertI64U:
		vs.push(pushF32(float32(vs.pop())))
	case wasm.OpcodeF32DemoteF64:
		vs.push(pushF32(float32(popF64(vs))))
	case wasm.OpcodeF64ConvertI32S:
		vs.push(pushF64(float64(int32(vs.pop()))))
	case wasm.OpcodeF64ConvertI32U:
		vs.push(pushF64(float64(uint32(vs.pop()))))
	case wasm.OpcodeF64ConvertI64S:
		vs.push(pushF64(float64(int64(vs.pop()))))
	case wasm.OpcodeF64ConvertI64U:
		vs.push(pushF64(float64(vs.pop())))
	case wasm.OpcodeF64PromoteF32:
		vs.push(pushF64(float64(popF32(vs))))

	case wasm.OpcodeI32ReinterpretF32:
		vs.push(vs.pop()) // bit pattern already identical in our uint64 encoding
	case wasm.OpcodeI64ReinterpretF64:
		vs.push(vs.pop())
	case wasm.OpcodeF32ReinterpretI32:
		vs.push(vs.pop())
	case wasm.OpcodeF64ReinterpretI64:
		vs.push(vs.pop())

	default:
		return api.NewTrap(api.ReasonUnreachable, "unimplemented numeric opcode %#x", op)
	}
	return nil
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func popF32(vs *valueStack) float32 { return api.DecodeF32(vs.pop()) }
func popF64(vs *valueStack) float64 { return api.DecodeF64(vs.pop()) }
func pushF32(v float32) uint64      { return api.EncodeF32(v) }
func pushF64(v float64) uint64      { return api.EncodeF64(v) }

func f32Min(x, y float32) float32 {
	if math.IsNaN(float64(x)) || math.IsNaN(float64(y)) {
		return float32(math.NaN())
	}
	if x == 0 && y == 0 {
		if math.Signbit(float64(x)) {
			return x
		}
		return y
	}
	return float32(math.Min(float64(x), float64(y)))
}

func f32Max(x, y float32) float32 {
	if math.IsNaN(float64(x)) || math.IsNaN(float64(y)) {
		return float32(math.NaN())
	}
	if x == 0 && y == 0 {
		if !math.Signbit(float64(x)) {
			return x
		}
		return y
	}
	return float32(math.Max(float64(x), float64(y)))
}

func f64Min(x, y float64) float64 {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN()
	}
	if x == 0 && y == 0 {
		if math.Signbit(x) {
			return x
		}
		return y
	}
	return math.Min(x, y)
}

func f64Max(x, y float64) float64 {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.NaN()
	}
	if x == 0 && y == 0 {
		if !math.Signbit(x) {
			return x
		}
		return y
	}
	return math.Max(x, y)
}

// truncF converts f to an integer, trapping on NaN or out-of-range input
// rather than saturating (spec.md §8 "invalid conversion to integer");
// lo/hi bound the target integer type.
func truncF(f float64, lo, hi float64) (float64, error) {
	if math.IsNaN(f) {
		return 0, api.NewTrap(api.ReasonInvalidIntegerConversion, "")
	}
	t := math.Trunc(f)
	// hi+1 is exact for every target (2^31, 2^32, 2^63, 2^64), whereas
	// float64(MaxInt64) and float64(MaxUint64) round up to 2^63 and 2^64.
	if t < lo || t >= hi+1 {
		return 0, api.NewTrap(api.ReasonInvalidIntegerConversion, "")
	}
	return t, nil
}

// execSaturatingTrunc handles the 0xFC-prefixed saturating truncation
// opcodes, which never trap: out-of-range and NaN inputs saturate to the
// target type's min/max/zero instead.
func execSaturatingTrunc(sub uint32, vs *valueStack) error {
	switch sub {
	case wasm.MiscOpcodeI32TruncSatF32S:
		vs.push(uint64(uint32(satTruncS(float64(popF32(vs)), math.MinInt32, math.MaxInt32))))
	case wasm.MiscOpcodeI32TruncSatF32U:
		vs.push(uint64(uint32(satTruncU(float64(popF32(vs)), math.MaxUint32))))
	case wasm.MiscOpcodeI32TruncSatF64S:
		vs.push(uint64(uint32(satTruncS(popF64(vs), math.MinInt32, math.MaxInt32))))
	case wasm.MiscOpcodeI32TruncSatF64U:
		vs.push(uint64(uint32(satTruncU(popF64(vs), math.MaxUint32))))
	case wasm.MiscOpcodeI64TruncSatF32S:
		vs.push(uint64(satTruncS(float64(popF32(vs)), math.MinInt64, math.MaxInt64)))
	case wasm.MiscOpcodeI64TruncSatF32U:
		vs.push(uint64(satTruncU(float64(popF32(vs)), math.MaxUint64)))
	case wasm.MiscOpcodeI64TruncSatF64S:
		vs.push(uint64(satTruncS(popF64(vs), math.MinInt64, math.MaxInt64)))
	case wasm.MiscOpcodeI64TruncSatF64U:
		vs.push(uint64(satTruncU(popF64(vs), math.MaxUint64)))
	default:
		return api.NewTrap(api.ReasonUnreachable, "unimplemented opcode")
	}
	return nil
}

func satTruncS(f, lo, hi float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	if t < lo {
		return int64(lo)
	}
	if t >= hi+1 {
		if hi > math.MaxInt32 {
			return math.MaxInt64
		}
		return int64(hi)
	}
	return int64(t)
}

func satTruncU(f, hi float64) uint64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	t := math.Trunc(f)
	if t >= hi+1 {
		if hi > math.MaxUint32 {
			return math.MaxUint64
		}
		return uint64(hi)
	}
	return uint64(t)
}
