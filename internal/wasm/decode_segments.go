package wasm

import "github.com/tetrawasm/wazerolite/api"

// decodeElementSection decodes the element segments in any of the eight
// encodings of the bulk-memory/reference-types binary format (flags 0..7):
// active-with-table-0, passive, active-explicit, declarative, and their
// funcref-expression-list variants.
func (d *decoder) decodeElementSection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.m.ElementSection = make([]*ElementSegment, count)
	for i := range d.m.ElementSection {
		seg, err := d.decodeElementSegment(r)
		if err != nil {
			return err
		}
		d.m.ElementSection[i] = seg
	}
	return nil
}

// decodeElementSegment decodes one of the eight element-segment flag
// encodings (bulk-memory proposal, carried forward by reference-types):
//
//	0: active, table 0,        funcidx* (implicit funcref)
//	1: passive,                elemkind funcidx*
//	2: active, explicit table, elemkind funcidx*
//	3: declarative,            elemkind funcidx*
//	4: active, table 0,        expr* (implicit funcref)
//	5: passive,                reftype expr*
//	6: active, explicit table, reftype expr*
//	7: declarative,            reftype expr*
func (d *decoder) decodeElementSegment(r *reader) (*ElementSegment, error) {
	flags, err := r.u32()
	if err != nil {
		return nil, err
	}
	seg := &ElementSegment{Type: ValueTypeFuncref}

	switch flags {
	case 0, 4:
		seg.Mode = ElementModeActive
		if seg.Offset, err = d.decodeConstantExpression(r); err != nil {
			return nil, err
		}
	case 1, 5:
		seg.Mode = ElementModePassive
	case 2, 6:
		seg.Mode = ElementModeActive
		if seg.Table, err = r.u32(); err != nil {
			return nil, err
		}
		if seg.Offset, err = d.decodeConstantExpression(r); err != nil {
			return nil, err
		}
	case 3, 7:
		seg.Mode = ElementModeDeclarative
	default:
		return nil, api.MalformedError(api.ReasonElementType, "invalid element segment flags: %d", flags)
	}

	exprInit := flags == 4 || flags == 5 || flags == 6 || flags == 7
	hasTypeByte := flags != 0 && flags != 4
	if hasTypeByte {
		if exprInit {
			if seg.Type, err = r.refType(); err != nil {
				return nil, err
			}
		} else {
			kind, err := r.byte()
			if err != nil {
				return nil, err
			}
			if kind != 0x00 {
				return nil, api.MalformedError(api.ReasonElementType, "invalid elemkind: %#x", kind)
			}
			seg.Type = ValueTypeFuncref
		}
	}

	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	seg.Init = make([]uint32, n)
	if exprInit {
		for j := range seg.Init {
			ce, err := d.decodeConstantExpression(r)
			if err != nil {
				return nil, err
			}
			switch ce.Opcode {
			case OpcodeRefFunc:
				seg.Init[j] = ce.FuncIndex
			case OpcodeRefNull:
				seg.Init[j] = RefNull
			default:
				return nil, api.MalformedError(api.ReasonBadConstantExpression, "invalid element expression")
			}
		}
	} else {
		for j := range seg.Init {
			if seg.Init[j], err = r.u32(); err != nil {
				return nil, err
			}
		}
	}
	return seg, nil
}

// decodeDataSection decodes active (flag 0, 2) and passive (flag 1) data
// segments.
func (d *decoder) decodeDataSection(r *reader) error {
	count, err := r.u32()
	if err != nil {
		return err
	}
	d.m.DataSection = make([]*DataSegment, count)
	for i := range d.m.DataSection {
		flags, err := r.u32()
		if err != nil {
			return err
		}
		seg := &DataSegment{}
		switch flags {
		case 0:
			seg.Mode = DataModeActive
			seg.Memory = 0
			if seg.Offset, err = d.decodeConstantExpression(r); err != nil {
				return err
			}
		case 1:
			seg.Mode = DataModePassive
		case 2:
			seg.Mode = DataModeActive
			if seg.Memory, err = r.u32(); err != nil {
				return err
			}
			if seg.Offset, err = d.decodeConstantExpression(r); err != nil {
				return err
			}
		default:
			return api.MalformedError(api.ReasonDataType, "invalid data segment flags: %d", flags)
		}
		n, err := r.u32()
		if err != nil {
			return err
		}
		if seg.Init, err = r.bytes(int(n)); err != nil {
			return err
		}
		d.m.DataSection[i] = seg
	}
	return nil
}
