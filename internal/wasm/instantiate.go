package wasm

import (
	"context"
	"fmt"

	"github.com/tetrawasm/wazerolite/api"
)

// Engine executes a FunctionInstance's body. internal/wasm depends only on
// this interface, not on any concrete execution strategy; the root package
// wires internal/engine/interpreter's implementation in.
type Engine interface {
	Call(ctx context.Context, fn *FunctionInstance, params []uint64) ([]uint64, error)
}

// Instantiate binds module to the given ordered import sets and runs it to
// completion of its start function, per spec.md §4.3 steps 1-7. On any
// failure, the partially built instance is discarded and nil is returned.
// Writes already made by earlier active element or data segments to
// imported tables or memory, and the effects of a failing start function,
// are not undone.
func Instantiate(ctx context.Context, module *Module, name string, sets []*ImportSet, engine Engine) (*ModuleInstance, error) {
	importedFunctions, importedGlobals, importedTables, importedMemory, lerr := resolveImports(module, sets)
	if lerr != nil {
		return nil, lerr
	}

	globals := make([]*GlobalInstance, 0, len(importedGlobals)+len(module.GlobalSection))
	globals = append(globals, importedGlobals...)
	for _, g := range module.GlobalSection {
		globals = append(globals, &GlobalInstance{Type: g.Type, Val: g.Init.Evaluate(globals)})
	}

	tables := make([]*TableInstance, 0, len(importedTables)+len(module.TableSection))
	tables = append(tables, importedTables...)
	for _, tt := range module.TableSection {
		tables = append(tables, NewTableInstance(tt))
	}

	var memory *MemoryInstance
	if importedMemory != nil {
		memory = importedMemory
	} else if len(module.MemorySection) > 0 {
		memory = NewMemoryInstance(module.MemorySection[0])
	}

	functions := make([]*FunctionInstance, 0, len(importedFunctions)+len(module.FunctionSection))
	functions = append(functions, importedFunctions...)
	for i, typeIdx := range module.FunctionSection {
		code := module.CodeSection[i]
		functions = append(functions, &FunctionInstance{
			Kind:        FunctionKindWasm,
			Type:        module.TypeSection[typeIdx],
			LocalTypes:  code.LocalTypes,
			Body:        code.Body,
			LabelEnd:    code.LabelEnd,
			IfElse:      code.IfElse,
			FunctionEnd: code.FunctionEnd,
			Idx:         uint32(i + len(importedFunctions)),
		})
	}
	mi := &ModuleInstance{
		Name:      name,
		Functions: functions,
		Globals:   globals,
		Tables:    tables,
		Memory:    memory,
		Exports:   map[string]*ExportInstance{},
		Module:    module,
	}
	for _, f := range functions[len(importedFunctions):] {
		f.Module = mi
	}

	// Element instances: one per segment, holding its resolved references,
	// used by table.init/elem.drop; dropped segments are zeroed in place
	// but the slot is retained (spec.md §9(a) idempotence).
	mi.ElementInstances = make([][]uint64, len(module.ElementSection))
	for i, seg := range module.ElementSection {
		refs := make([]uint64, len(seg.Init))
		for j, fidx := range seg.Init {
			if fidx == RefNull {
				refs[j] = RefNullValue
			} else {
				refs[j] = uint64(fidx)
			}
		}
		mi.ElementInstances[i] = refs
	}

	// Active element segments initialize their target table now; passive
	// and declarative segments are recorded above without further effect.
	for i, seg := range module.ElementSection {
		if seg.Mode != ElementModeActive {
			continue
		}
		table := tables[seg.Table]
		offset := int(int32(uint32(seg.Offset.Evaluate(globals))))
		refs := mi.ElementInstances[i]
		if offset < 0 || offset+len(refs) > int(table.Size()) {
			return nil, api.UninstantiableError(api.ReasonOutOfBoundsTableAccessInit, "")
		}
		copy(table.References[offset:], refs)
	}

	mi.DataInstances = make([][]byte, len(module.DataSection))
	for i, seg := range module.DataSection {
		b := make([]byte, len(seg.Init))
		copy(b, seg.Init)
		mi.DataInstances[i] = b
	}
	for i, seg := range module.DataSection {
		if seg.Mode != DataModeActive {
			continue
		}
		offset := int(int32(uint32(seg.Offset.Evaluate(globals))))
		data := mi.DataInstances[i]
		if memory == nil || offset < 0 || offset+len(data) > len(memory.Buffer) {
			return nil, api.UninstantiableError(api.ReasonOutOfBoundsMemoryAccessInit, "")
		}
		copy(memory.Buffer[offset:], data)
	}

	for _, exp := range module.ExportSection {
		ei := &ExportInstance{Type: exp.Type}
		switch exp.Type {
		case ExternTypeFunc:
			ei.Function = functions[exp.Index]
		case ExternTypeTable:
			ei.Table = tables[exp.Index]
		case ExternTypeMemory:
			ei.Memory = memory
		case ExternTypeGlobal:
			ei.Global = globals[exp.Index]
		}
		mi.Exports[exp.Name] = ei
	}

	if module.StartSection != nil {
		fn := functions[*module.StartSection]
		if _, err := engine.Call(ctx, fn, nil); err != nil {
			return nil, fmt.Errorf("start function failed: %w", err)
		}
	}

	return mi, nil
}
