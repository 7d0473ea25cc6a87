// Package wasm holds the decoded, in-memory representation of a WebAssembly
// 1.0 module, its validator, its instance collaborators (memory, table,
// global), and the linker that ties a Module to a set of imports at
// instantiation time. This package has no dependency on any particular
// execution strategy; internal/engine/interpreter supplies that.
package wasm

import (
	"fmt"
	"strings"

	"github.com/tetrawasm/wazerolite/api"
)

// ValueType re-exports api.ValueType so internal code need not import api
// for the common case.
type ValueType = api.ValueType

const (
	ValueTypeI32       = api.ValueTypeI32
	ValueTypeI64       = api.ValueTypeI64
	ValueTypeF32       = api.ValueTypeF32
	ValueTypeF64       = api.ValueTypeF64
	ValueTypeFuncref   = api.ValueTypeFuncref
	ValueTypeExternref = api.ValueTypeExternref
)

// ExternType re-exports api.ExternType.
type ExternType = api.ExternType

const (
	ExternTypeFunc   = api.ExternTypeFunc
	ExternTypeTable  = api.ExternTypeTable
	ExternTypeMemory = api.ExternTypeMemory
	ExternTypeGlobal = api.ExternTypeGlobal
)

// MemoryPageSize is the number of bytes in one page of linear memory.
const MemoryPageSize = 65536

// MemoryMaxPages is the hard ceiling on pages for any memory: 4GiB / 64KiB.
const MemoryMaxPages = 65536

// FunctionType is an ordered sequence of parameter types and an ordered
// sequence of result types.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#function-types%E2%91%A0
type FunctionType struct {
	Params  []ValueType
	Results []ValueType

	// cachedKey memoizes String() for use as a map key (type-identity
	// lookups during indirect-call validation and dispatch).
	cachedKey string
}

// EqualsSignature reports whether ft has exactly the given params/results.
func (ft *FunctionType) EqualsSignature(params, results []ValueType) bool {
	return bytesEqual(ft.Params, params) && bytesEqual(ft.Results, results)
}

// Equals reports whether two function types are identical, i.e. their
// parameter and result sequences are elementwise equal.
func (ft *FunctionType) Equals(other *FunctionType) bool {
	if other == nil {
		return false
	}
	return ft.EqualsSignature(other.Params, other.Results)
}

func bytesEqual(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders the type as e.g. "(i32, i32) -> (i32)", used both for
// debugging and as a type-identity cache key.
func (ft *FunctionType) String() string {
	if ft.cachedKey != "" {
		return ft.cachedKey
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range ft.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(api.ValueTypeName(p))
	}
	sb.WriteString(") -> (")
	for i, r := range ft.Results {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(api.ValueTypeName(r))
	}
	sb.WriteByte(')')
	ft.cachedKey = sb.String()
	return ft.cachedKey
}

// Limits bound the size of a table or memory: a mandatory minimum and an
// optional maximum.
type Limits struct {
	Min uint32
	Max *uint32 // nil means unbounded (subject to the hard ceiling elsewhere)
}

// RefType distinguishes the two reference value types a table may hold.
type RefType = ValueType

// TableType describes a table's element type and size limits.
type TableType struct {
	ElemType RefType
	Limits   Limits
}

// MemoryType describes a memory's size limits, in pages.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// BlockType is the function-type-like signature attached to block/loop/if.
// Kind distinguishes the three binary encodings; Index is only meaningful
// when Kind is BlockTypeKindTypeIndex.
type BlockType struct {
	Kind  BlockTypeKind
	Index uint32 // into the module's TypeSection, when Kind == BlockTypeKindTypeIndex
	Value ValueType
}

type BlockTypeKind byte

const (
	BlockTypeKindVoid BlockTypeKind = iota
	BlockTypeKindValueType
	BlockTypeKindTypeIndex
)

// Arity returns (numParams, numResults) for the block type given the
// module's type section (needed to resolve BlockTypeKindTypeIndex).
func (bt BlockType) Arity(types []*FunctionType) (params, results int) {
	switch bt.Kind {
	case BlockTypeKindVoid:
		return 0, 0
	case BlockTypeKindValueType:
		return 0, 1
	case BlockTypeKindTypeIndex:
		ft := types[bt.Index]
		return len(ft.Params), len(ft.Results)
	}
	panic(fmt.Sprintf("unknown block type kind %d", bt.Kind))
}

// ParamResultTypes returns the concrete value types for a block's params and
// results, resolving a type-index block type against the module's type
// section.
func (bt BlockType) ParamResultTypes(types []*FunctionType) (params, results []ValueType) {
	switch bt.Kind {
	case BlockTypeKindVoid:
		return nil, nil
	case BlockTypeKindValueType:
		return nil, []ValueType{bt.Value}
	case BlockTypeKindTypeIndex:
		ft := types[bt.Index]
		return ft.Params, ft.Results
	}
	panic(fmt.Sprintf("unknown block type kind %d", bt.Kind))
}
