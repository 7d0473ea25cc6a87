package wasm

import "reflect"

// FunctionKind distinguishes a function instance implemented by Wasm bytecode
// from one implemented by the host.
type FunctionKind byte

const (
	FunctionKindWasm FunctionKind = iota
	FunctionKindGoFunc
)

// FunctionInstance is a function instance in the sense of the Wasm core
// spec: either Wasm-defined (Kind == FunctionKindWasm, Body/LocalTypes/
// continuation tables set) or host-defined (Kind == FunctionKindGoFunc,
// GoFunc set to a reflect.Value of a Go func accepting a leading
// context.Context and, optionally, an api.Module, followed by its declared
// parameters).
type FunctionInstance struct {
	DebugName   string
	Kind        FunctionKind
	Type        *FunctionType
	LocalTypes  []ValueType
	Body        []byte
	LabelEnd    map[uint32]uint32
	IfElse      map[uint32]uint32
	FunctionEnd uint32

	GoFunc       *reflect.Value
	PassesModule bool // true when GoFunc's second parameter is an api.Module

	Module *ModuleInstance
	Idx    uint32
}

// ExportInstance is one (name, kind) pair resolved to the runtime object it
// refers to, as recorded in ModuleInstance.Exports.
type ExportInstance struct {
	Type     ExternType
	Function *FunctionInstance
	Global   *GlobalInstance
	Memory   *MemoryInstance
	Table    *TableInstance
}

// ModuleInstance is a Module bound to a concrete set of imports: the
// runtime objects produced by Instantiate (spec.md §5).
type ModuleInstance struct {
	Name string

	Functions []*FunctionInstance
	Globals   []*GlobalInstance
	Tables    []*TableInstance
	Memory    *MemoryInstance

	Exports map[string]*ExportInstance

	// DataInstances/ElementInstances hold the segment bytes/refs still
	// available to memory.init/table.init; index i is zeroed out (but kept,
	// not removed) once data.drop/elem.drop i has run (spec.md §9(a)).
	DataInstances    [][]byte
	ElementInstances [][]uint64

	Module *Module
}

// ExportedFunction looks up an exported function by name, or returns nil.
func (mi *ModuleInstance) ExportedFunction(name string) *FunctionInstance {
	if e, ok := mi.Exports[name]; ok {
		return e.Function
	}
	return nil
}

// ExportedGlobal looks up an exported global by name, or returns nil.
func (mi *ModuleInstance) ExportedGlobal(name string) *GlobalInstance {
	if e, ok := mi.Exports[name]; ok {
		return e.Global
	}
	return nil
}

// ExportedMemory looks up an exported memory by name, or returns nil.
func (mi *ModuleInstance) ExportedMemory(name string) *MemoryInstance {
	if e, ok := mi.Exports[name]; ok {
		return e.Memory
	}
	return nil
}
