package wasm

import "github.com/tetrawasm/wazerolite/api"

// ImportSet is a named collection of host- or module-provided imports,
// keyed by field name within each kind (spec.md §4.3, §6 "ImportSet"). A
// Linker searches an ordered list of these for each of a module's declared
// imports; later sets in the list override earlier ones on a field-name
// collision.
type ImportSet struct {
	ModuleName string
	Functions  map[string]*FunctionInstance
	Tables     map[string]*TableInstance
	Memories   map[string]*MemoryInstance
	Globals    map[string]*GlobalInstance
}

// NewImportSet creates an empty ImportSet for the given module name.
func NewImportSet(moduleName string) *ImportSet {
	return &ImportSet{
		ModuleName: moduleName,
		Functions:  map[string]*FunctionInstance{},
		Tables:     map[string]*TableInstance{},
		Memories:   map[string]*MemoryInstance{},
		Globals:    map[string]*GlobalInstance{},
	}
}

// AsImportSet wraps a module instance's own exports as an ImportSet usable
// by a later instantiation, renaming it to asModuleName (spec.md §6,
// ModuleInstance.exports(as_module_name)).
func AsImportSet(mi *ModuleInstance, asModuleName string) *ImportSet {
	is := NewImportSet(asModuleName)
	for name, exp := range mi.Exports {
		switch exp.Type {
		case ExternTypeFunc:
			is.Functions[name] = exp.Function
		case ExternTypeTable:
			is.Tables[name] = exp.Table
		case ExternTypeMemory:
			is.Memories[name] = exp.Memory
		case ExternTypeGlobal:
			is.Globals[name] = exp.Global
		}
	}
	return is
}

// resolveImport finds the matching field in the last import set, walking
// sets back-to-front, so later sets shadow earlier ones (spec.md §4.3.1).
func resolveImport(sets []*ImportSet, moduleName, fieldName string, kind ExternType) (interface{}, bool) {
	for i := len(sets) - 1; i >= 0; i-- {
		s := sets[i]
		if s.ModuleName != moduleName {
			continue
		}
		switch kind {
		case ExternTypeFunc:
			if f, ok := s.Functions[fieldName]; ok {
				return f, true
			}
		case ExternTypeTable:
			if t, ok := s.Tables[fieldName]; ok {
				return t, true
			}
		case ExternTypeMemory:
			if m, ok := s.Memories[fieldName]; ok {
				return m, true
			}
		case ExternTypeGlobal:
			if g, ok := s.Globals[fieldName]; ok {
				return g, true
			}
		}
	}
	return nil, false
}

// resolveImports matches every import declared by module against sets,
// performing the type-compatibility checks of spec.md §4.3 step 2.
func resolveImports(module *Module, sets []*ImportSet) (
	functions []*FunctionInstance, globals []*GlobalInstance,
	tables []*TableInstance, memory *MemoryInstance, err *api.Error,
) {
	for _, imp := range module.ImportSection {
		found, ok := resolveImport(sets, imp.Module, imp.Name, imp.Type)
		if !ok {
			return nil, nil, nil, nil, api.UnlinkableError(api.ReasonUnknownImport,
				"unknown import: %s.%s", imp.Module, imp.Name)
		}
		switch imp.Type {
		case ExternTypeFunc:
			fn := found.(*FunctionInstance)
			expected := module.TypeSection[imp.DescFunc]
			if !expected.Equals(fn.Type) {
				return nil, nil, nil, nil, api.UnlinkableError(api.ReasonIncompatibleImportType,
					"signature mismatch for import %s.%s: %s != %s", imp.Module, imp.Name, expected, fn.Type)
			}
			functions = append(functions, fn)
		case ExternTypeTable:
			t := found.(*TableInstance)
			exp := imp.DescTable
			if exp.Limits.Min > t.Size() || (exp.ElemType != t.Type) ||
				(exp.Limits.Max != nil && *exp.Limits.Max < t.Max) {
				return nil, nil, nil, nil, api.UnlinkableError(api.ReasonIncompatibleImportType,
					"table import %s.%s is incompatible", imp.Module, imp.Name)
			}
			tables = append(tables, t)
		case ExternTypeMemory:
			m := found.(*MemoryInstance)
			exp := imp.DescMem
			if exp.Limits.Min > m.PageSize() || (exp.Limits.Max != nil && *exp.Limits.Max < m.Max) {
				return nil, nil, nil, nil, api.UnlinkableError(api.ReasonIncompatibleImportType,
					"memory import %s.%s is incompatible", imp.Module, imp.Name)
			}
			memory = m
		case ExternTypeGlobal:
			g := found.(*GlobalInstance)
			exp := imp.DescGlobal
			if exp.Mutable != g.Type.Mutable || exp.ValType != g.Type.ValType {
				return nil, nil, nil, nil, api.UnlinkableError(api.ReasonIncompatibleImportType,
					"global import %s.%s is incompatible", imp.Module, imp.Name)
			}
			globals = append(globals, g)
		}
	}
	return functions, globals, tables, memory, nil
}
