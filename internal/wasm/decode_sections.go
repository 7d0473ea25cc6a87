package wasm

import (
	"github.com/tetrawasm/wazerolite/api"
)

const funcTypeSentinel = 0x60

func (d *decoder) decodeTypeSection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.m.TypeSection = make([]*FunctionType, count)
	for i := range d.m.TypeSection {
		sentinel, err := r.byte()
		if err != nil {
			return err
		}
		if sentinel != funcTypeSentinel {
			return api.MalformedError(api.ReasonTypeSentinel, "invalid function type sentinel: %#x", sentinel)
		}
		numParams, err := r.u32()
		if err != nil {
			return err
		}
		params := make([]ValueType, numParams)
		for j := range params {
			if params[j], err = r.valueType(); err != nil {
				return err
			}
		}
		numResults, err := r.u32()
		if err != nil {
			return err
		}
		results := make([]ValueType, numResults)
		for j := range results {
			if results[j], err = r.valueType(); err != nil {
				return err
			}
		}
		d.m.TypeSection[i] = &FunctionType{Params: params, Results: results}
	}
	return nil
}

func (d *decoder) decodeImportSection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.m.ImportSection = make([]*Import, count)
	for i := range d.m.ImportSection {
		imp := &Import{}
		if imp.Module, err = r.name(); err != nil {
			return err
		}
		if imp.Name, err = r.name(); err != nil {
			return err
		}
		kind, err := r.byte()
		if err != nil {
			return err
		}
		switch kind {
		case ExternTypeFunc:
			imp.Type = ExternTypeFunc
			if imp.DescFunc, err = r.u32(); err != nil {
				return err
			}
		case ExternTypeTable:
			imp.Type = ExternTypeTable
			tt, err := d.decodeTableType(r)
			if err != nil {
				return err
			}
			imp.DescTable = tt
		case ExternTypeMemory:
			imp.Type = ExternTypeMemory
			mt, err := d.decodeMemoryType(r)
			if err != nil {
				return err
			}
			imp.DescMem = mt
		case ExternTypeGlobal:
			imp.Type = ExternTypeGlobal
			gt, err := d.decodeGlobalType(r)
			if err != nil {
				return err
			}
			imp.DescGlobal = gt
		default:
			return api.MalformedError(api.ReasonInvalidImport, "invalid import kind: %#x", kind)
		}
		d.m.ImportSection[i] = imp
	}
	return nil
}

func (d *decoder) decodeTableType(r *reader) (*TableType, error) {
	elem, err := r.refType()
	if err != nil {
		return nil, err
	}
	lim, err := r.limits(1 << 32 - 1)
	if err != nil {
		return nil, err
	}
	return &TableType{ElemType: elem, Limits: lim}, nil
}

func (d *decoder) decodeMemoryType(r *reader) (*MemoryType, error) {
	lim, err := r.limits(MemoryMaxPages)
	if err != nil {
		return nil, err
	}
	return &MemoryType{Limits: lim}, nil
}

func (d *decoder) decodeGlobalType(r *reader) (*GlobalType, error) {
	vt, err := r.valueType()
	if err != nil {
		return nil, err
	}
	mut, err := r.byte()
	if err != nil {
		return nil, err
	}
	var mutable bool
	switch mut {
	case 0x00:
		mutable = false
	case 0x01:
		mutable = true
	default:
		return nil, api.MalformedError(api.ReasonMutability, "invalid mutability: %#x", mut)
	}
	return &GlobalType{ValType: vt, Mutable: mutable}, nil
}

func (d *decoder) decodeFunctionSection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.m.FunctionSection = make([]uint32, count)
	for i := range d.m.FunctionSection {
		if d.m.FunctionSection[i], err = r.u32(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) decodeTableSection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.m.TableSection = make([]*TableType, count)
	for i := range d.m.TableSection {
		if d.m.TableSection[i], err = d.decodeTableType(r); err != nil {
			return err
		}
	}
	if len(d.m.TableSection)+d.countImportedTables() > 1 {
		return api.ValidationError(api.ReasonMultipleTables, "multiple tables")
	}
	return nil
}

func (d *decoder) countImportedTables() int {
	n := 0
	for _, imp := range d.m.ImportSection {
		if imp.Type == ExternTypeTable {
			n++
		}
	}
	return n
}

func (d *decoder) countImportedMemories() int {
	n := 0
	for _, imp := range d.m.ImportSection {
		if imp.Type == ExternTypeMemory {
			n++
		}
	}
	return n
}

func (d *decoder) decodeMemorySection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.m.MemorySection = make([]*MemoryType, count)
	for i := range d.m.MemorySection {
		if d.m.MemorySection[i], err = d.decodeMemoryType(r); err != nil {
			return err
		}
	}
	if len(d.m.MemorySection)+d.countImportedMemories() > 1 {
		return api.ValidationError(api.ReasonMultipleMemories, "")
	}
	return nil
}

func (d *decoder) decodeGlobalSection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.m.GlobalSection = make([]*Global, count)
	for i := range d.m.GlobalSection {
		gt, err := d.decodeGlobalType(r)
		if err != nil {
			return err
		}
		init, err := d.decodeConstantExpression(r)
		if err != nil {
			return err
		}
		d.m.GlobalSection[i] = &Global{Type: gt, Init: init}
	}
	return nil
}

func (d *decoder) decodeExportSection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.m.ExportSection = make([]*Export, count)
	seen := make(map[string]struct{}, count)
	for i := range d.m.ExportSection {
		name, err := r.name()
		if err != nil {
			return err
		}
		kind, err := r.byte()
		if err != nil {
			return err
		}
		switch kind {
		case ExternTypeFunc, ExternTypeTable, ExternTypeMemory, ExternTypeGlobal:
		default:
			return api.MalformedError(api.ReasonInvalidImport, "invalid export kind: %#x", kind)
		}
		idx, err := r.u32()
		if err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return api.ValidationError(api.ReasonDuplicateExportName, "duplicate export name: %s", name)
		}
		seen[name] = struct{}{}
		d.m.ExportSection[i] = &Export{Name: name, Type: kind, Index: idx}
	}
	return nil
}

func (d *decoder) decodeStartSection(r *reader) error {
	idx, err := r.u32()
	if err != nil {
		return err
	}
	d.m.StartSection = &idx
	return nil
}

func (d *decoder) decodeDataCountSection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.sawDataCount = true
	d.dataCountVal = count
	d.m.DataCountSection = &count
	return nil
}

func (d *decoder) decodeCustomSection(r *reader) error {
	name, err := r.name()
	if err != nil {
		// Tolerate malformed custom sections: they carry no semantic
		// weight and spec.md §9(c) explicitly permits ignoring them.
		return nil
	}
	if name == "name" {
		if ns, err := decodeNameSection(r.buf[r.pos:]); err == nil {
			d.m.NameSection = ns
		}
		return nil
	}
	return nil
}
