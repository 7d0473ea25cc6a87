// Package api includes constants and interfaces used by both end-users and
// internal implementations of the runtime.
package api

import (
	"context"
	"fmt"
	"math"
	"reflect"
)

// ExternType classifies imports and exports by their respective kind.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#external-types%E2%91%A0
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

const (
	ExternTypeFuncName   = "func"
	ExternTypeTableName  = "table"
	ExternTypeMemoryName = "memory"
	ExternTypeGlobalName = "global"
)

// ExternTypeName returns the text format field name of the given ExternType.
func ExternTypeName(et ExternType) string {
	switch et {
	case ExternTypeFunc:
		return ExternTypeFuncName
	case ExternTypeTable:
		return ExternTypeTableName
	case ExternTypeMemory:
		return ExternTypeMemoryName
	case ExternTypeGlobal:
		return ExternTypeGlobalName
	}
	return fmt.Sprintf("%#x", et)
}

// ValueType describes a numeric or reference type used in WebAssembly 1.0.
//
// The following describes how to convert between Wasm and Go types:
//
//   - ValueTypeI32 - uint64(uint32,int32)
//   - ValueTypeI64 - uint64(int64)
//   - ValueTypeF32 - EncodeF32 / DecodeF32
//   - ValueTypeF64 - EncodeF64 / DecodeF64
//   - ValueTypeFuncref - a nullable index into a module's function table
//   - ValueTypeExternref - uintptr(unsafe.Pointer(p)), an opaque host handle
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c

	// ValueTypeFuncref is a nullable reference to a function.
	ValueTypeFuncref ValueType = 0x70

	// ValueTypeExternref is a nullable, opaque host-supplied reference.
	ValueTypeExternref ValueType = 0x6f
)

// ValueTypeName returns the text format name of the given ValueType, or
// "unknown" if t is not a recognized value.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	}
	return "unknown"
}

// Module is functions, memory, and globals exported from an instantiated
// module.
//
// Notes:
//   - Closing the Runtime closes any Module it instantiated.
//   - This is an interface for decoupling; all implementations live in this
//     module.
type Module interface {
	fmt.Stringer

	// Name is the name this module was instantiated with.
	Name() string

	// Memory returns the memory defined or imported by this module, or nil.
	Memory() Memory

	// ExportedFunction returns a function exported from this module, or nil.
	ExportedFunction(name string) Function

	// ExportedMemory returns a memory exported from this module, or nil.
	ExportedMemory(name string) Memory

	// ExportedGlobal returns a global exported from this module, or nil.
	ExportedGlobal(name string) Global

	// Close releases resources owned by this module instance.
	Closer
}

// Closer closes a resource.
type Closer interface {
	// Close closes the resource. When ctx is nil, it defaults to
	// context.Background.
	Close(ctx context.Context) error
}

// FunctionDefinition describes a function, imported or defined, prior to
// or after instantiation.
type FunctionDefinition interface {
	// ModuleName is the possibly-empty name of the module defining this
	// function.
	ModuleName() string

	// Index is the position of this function in the module's function
	// index namespace (imports first).
	Index() uint32

	// Name is the module-defined name of the function, which is not
	// necessarily an export name.
	Name() string

	// DebugName identifies this function in errors and stack traces.
	DebugName() string

	// Import returns the (moduleName, name) this function imports from, and
	// whether it is an import at all.
	Import() (moduleName, name string, isImport bool)

	// ExportNames lists every exported name of this function.
	ExportNames() []string

	// GoFunc is non-nil when this function is implemented by the host.
	GoFunc() *reflect.Value

	// ParamTypes are the value types accepted by this function.
	ParamTypes() []ValueType

	// ResultTypes are the value types returned by this function.
	ResultTypes() []ValueType
}

// Function is a WebAssembly function exported from an instantiated module.
type Function interface {
	// Definition is metadata about this function from its defining module.
	Definition() FunctionDefinition

	// Call invokes the function with parameters encoded per ParamTypes,
	// returning results encoded per ResultTypes. When ctx is nil, it
	// defaults to context.Background.
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// Global is a WebAssembly global exported from an instantiated module.
type Global interface {
	fmt.Stringer

	// Type describes the numeric type of the global.
	Type() ValueType

	// Get returns the current value of this global.
	Get(ctx context.Context) uint64
}

// MutableGlobal is a Global whose value can be updated at runtime.
type MutableGlobal interface {
	Global

	// Set updates the value of this global.
	Set(ctx context.Context, v uint64)
}

// Memory allows restricted, bounds-checked access to a module's linear
// memory.
//
// All offsets/byteCounts are in bytes; all multi-byte values are encoded
// little-endian per the WebAssembly core specification.
type Memory interface {
	// Size returns the current size in pages (65536 bytes each). E.g. 1 for
	// one page.
	Size(ctx context.Context) uint32

	// Grow increases memory by deltaPages (65536 bytes each), returning the
	// previous size in pages, or false if the delta was rejected because it
	// would exceed the memory's max.
	Grow(ctx context.Context, deltaPages uint32) (previousPages uint32, ok bool)

	ReadByte(ctx context.Context, offset uint32) (byte, bool)
	ReadUint16Le(ctx context.Context, offset uint32) (uint16, bool)
	ReadUint32Le(ctx context.Context, offset uint32) (uint32, bool)
	ReadFloat32Le(ctx context.Context, offset uint32) (float32, bool)
	ReadUint64Le(ctx context.Context, offset uint32) (uint64, bool)
	ReadFloat64Le(ctx context.Context, offset uint32) (float64, bool)

	// Read returns a byteCount-length view of the underlying buffer at
	// offset, or false if out of range. Writes to the returned slice write
	// through to Wasm memory until the buffer's capacity changes (e.g. via
	// Grow).
	Read(ctx context.Context, offset, byteCount uint32) ([]byte, bool)

	WriteByte(ctx context.Context, offset uint32, v byte) bool
	WriteUint16Le(ctx context.Context, offset uint32, v uint16) bool
	WriteUint32Le(ctx context.Context, offset, v uint32) bool
	WriteFloat32Le(ctx context.Context, offset uint32, v float32) bool
	WriteUint64Le(ctx context.Context, offset uint32, v uint64) bool
	WriteFloat64Le(ctx context.Context, offset uint32, v float64) bool
	Write(ctx context.Context, offset uint32, v []byte) bool
}

// EncodeExternref encodes input as a ValueTypeExternref.
func EncodeExternref(input uintptr) uint64 { return uint64(input) }

// DecodeExternref decodes input as a ValueTypeExternref.
func DecodeExternref(input uint64) uintptr { return uintptr(input) }

// EncodeI32 encodes input as a ValueTypeI32.
func EncodeI32(input int32) uint64 { return uint64(uint32(input)) }

// EncodeI64 encodes input as a ValueTypeI64.
func EncodeI64(input int64) uint64 { return uint64(input) }

// EncodeF32 encodes input as a ValueTypeF32.
func EncodeF32(input float32) uint64 { return uint64(math.Float32bits(input)) }

// DecodeF32 decodes input as a ValueTypeF32.
func DecodeF32(input uint64) float32 { return math.Float32frombits(uint32(input)) }

// EncodeF64 encodes input as a ValueTypeF64.
func EncodeF64(input float64) uint64 { return math.Float64bits(input) }

// DecodeF64 decodes input as a ValueTypeF64.
func DecodeF64(input uint64) float64 { return math.Float64frombits(input) }
