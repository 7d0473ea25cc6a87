package wasm

import (
	"bytes"
	"unicode/utf8"

	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/leb128"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d} // "\0asm"

const wasmVersion = 1

// SectionID identifies one section of the binary format.
type SectionID = byte

const (
	SectionIDCustom SectionID = iota
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
	SectionIDDataCount
)

// reader is a cursor over an in-memory byte slice. All decode_*.go helpers
// hang off reader so error positions and EOF handling stay in one place.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader { return &reader{buf: buf} }

func (r *reader) malformed(reason api.Reason, msg string, args ...interface{}) error {
	return api.MalformedError(reason, msg, args...)
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) byte() (byte, error) {
	if r.remaining() < 1 {
		return 0, r.malformed(api.ReasonSectionSizeMismatch, "unexpected end of section or function")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, r.malformed(api.ReasonSectionSizeMismatch, "unexpected end of section or function")
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	v, n, err := leb128.LoadUint32(r.buf[r.pos:])
	if err != nil {
		return 0, r.malformed(api.ReasonLEB128, "%v", err)
	}
	r.pos += int(n)
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, n, err := leb128.LoadInt32(r.buf[r.pos:])
	if err != nil {
		return 0, r.malformed(api.ReasonLEB128, "%v", err)
	}
	r.pos += int(n)
	return v, nil
}

func (r *reader) i64() (int64, error) {
	v, n, err := leb128.LoadInt64(r.buf[r.pos:])
	if err != nil {
		return 0, r.malformed(api.ReasonLEB128, "%v", err)
	}
	r.pos += int(n)
	return v, nil
}

func (r *reader) f32() (float32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return api.DecodeF32(uint64(bits)), nil
}

func (r *reader) f64() (float64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	var bits uint64
	for i := 0; i < 8; i++ {
		bits |= uint64(b[i]) << (8 * i)
	}
	return api.DecodeF64(bits), nil
}

// name reads a length-prefixed, strictly-validated UTF-8 string.
func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", r.malformed(api.ReasonUTF8Encoding, "invalid UTF-8 encoding")
	}
	return string(b), nil
}

func (r *reader) valueType() (ValueType, error) {
	b, err := r.byte()
	if err != nil {
		return 0, err
	}
	switch b {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		return b, nil
	case ValueTypeFuncref, ValueTypeExternref:
		return b, nil
	default:
		return 0, r.malformed(api.ReasonType, "invalid value type: %#x", b)
	}
}

func (r *reader) refType() (RefType, error) {
	b, err := r.byte()
	if err != nil {
		return 0, err
	}
	switch b {
	case ValueTypeFuncref, ValueTypeExternref:
		return b, nil
	default:
		return 0, r.malformed(api.ReasonReferenceType, "invalid reference type: %#x", b)
	}
}

func (r *reader) limits(hardMax uint32) (Limits, error) {
	flag, err := r.byte()
	if err != nil {
		return Limits{}, err
	}
	var l Limits
	switch flag {
	case 0x00:
		min, err := r.u32()
		if err != nil {
			return Limits{}, err
		}
		l.Min = min
	case 0x01:
		min, err := r.u32()
		if err != nil {
			return Limits{}, err
		}
		max, err := r.u32()
		if err != nil {
			return Limits{}, err
		}
		if min > max {
			return Limits{}, api.ValidationError(api.ReasonBadConstantExpression, "size minimum must not be greater than maximum")
		}
		l.Min, l.Max = min, &max
	default:
		return Limits{}, r.malformed(api.ReasonLimits, "invalid limits flag: %#x", flag)
	}
	if l.Min > hardMax || (l.Max != nil && *l.Max > hardMax) {
		return Limits{}, api.ValidationError(api.ReasonMemoryMaxPagesExceeded, reasonMessage(api.ReasonMemoryMaxPagesExceeded))
	}
	return l, nil
}

func reasonMessage(r api.Reason) string {
	return api.ValidationError(r, "").Error()
}

// DecodeModule parses a complete Wasm binary into a Module, running the
// decode-time structural checks of spec.md §4.1. Validation proper
// (§4.2) is a separate pass; callers that need both call DecodeModule
// followed by ValidateModule (or use Runtime.CompileModule in the root
// package).
func DecodeModule(b []byte) (*Module, error) {
	r := newReader(b)

	magic, err := r.bytes(4)
	if err != nil || !bytes.Equal(magic, wasmMagic) {
		return nil, api.MalformedError(api.ReasonMagicSignature, "magic header not detected")
	}
	verBytes, err := r.bytes(4)
	if err != nil {
		return nil, api.MalformedError(api.ReasonUnsupportedVersion, "unknown binary version")
	}
	version := uint32(verBytes[0]) | uint32(verBytes[1])<<8 | uint32(verBytes[2])<<16 | uint32(verBytes[3])<<24
	if version != wasmVersion {
		return nil, api.MalformedError(api.ReasonUnsupportedVersion, "unknown binary version")
	}

	m := &Module{}
	d := &decoder{r: r, m: m}
	if err := d.decodeSections(); err != nil {
		return nil, err
	}
	if d.sawDataCount && d.dataCountVal != uint32(len(m.DataSection)) {
		return nil, api.MalformedError(api.ReasonDataCountMismatch, "data count and data section have inconsistent lengths")
	}
	if len(m.FunctionSection) != len(m.CodeSection) {
		return nil, api.MalformedError(api.ReasonFunctionCodeSectionMismatch, "function and code section have inconsistent lengths")
	}
	m.buildIndexSpace()
	return m, nil
}

// decoder threads section-ordering state through the per-section decode
// functions defined in decode_sections.go and decode_code.go.
type decoder struct {
	r *reader
	m *Module

	lastSectionID    int // -1 before any non-custom section
	sawDataCount     bool
	dataCountVal     uint32
	usedDataSegments  bool // data.drop/memory.init requires a data-count section
	requiresDataCount bool
}

func (d *decoder) decodeSections() error {
	d.lastSectionID = -1
	r := d.r
	for r.remaining() > 0 {
		id, err := r.byte()
		if err != nil {
			return err
		}
		size, err := r.u32()
		if err != nil {
			return err
		}
		payload, err := r.bytes(int(size))
		if err != nil {
			return err
		}
		if id != SectionIDCustom {
			ord := canonicalOrder(id)
			if ord < 0 {
				return api.MalformedError(api.ReasonSectionID, "invalid section id: %d", id)
			}
			if ord == d.lastSectionID && id == SectionIDStart {
				return api.MalformedError(api.ReasonMultipleStartSections, "multiple start sections")
			}
			if ord <= d.lastSectionID {
				return api.MalformedError(api.ReasonSectionID, "section out of order: %d", id)
			}
			d.lastSectionID = ord
		}
		if err := d.decodeSection(id, payload); err != nil {
			return err
		}
	}
	return nil
}

// canonicalOrder maps a section ID to its position in the canonical
// ordering (type, import, function, table, memory, global, export, start,
// element, data-count, code, data). Custom sections (id 0) are exempt and
// never passed here.
func canonicalOrder(id SectionID) int {
	switch id {
	case SectionIDType:
		return 0
	case SectionIDImport:
		return 1
	case SectionIDFunction:
		return 2
	case SectionIDTable:
		return 3
	case SectionIDMemory:
		return 4
	case SectionIDGlobal:
		return 5
	case SectionIDExport:
		return 6
	case SectionIDStart:
		return 7
	case SectionIDElement:
		return 8
	case SectionIDDataCount:
		return 9
	case SectionIDCode:
		return 10
	case SectionIDData:
		return 11
	default:
		return -1
	}
}

func (d *decoder) decodeSection(id SectionID, payload []byte) error {
	sr := newReader(payload)
	switch id {
	case SectionIDCustom:
		return d.decodeCustomSection(sr)
	case SectionIDType:
		return d.decodeTypeSection(sr)
	case SectionIDImport:
		return d.decodeImportSection(sr)
	case SectionIDFunction:
		return d.decodeFunctionSection(sr)
	case SectionIDTable:
		return d.decodeTableSection(sr)
	case SectionIDMemory:
		return d.decodeMemorySection(sr)
	case SectionIDGlobal:
		return d.decodeGlobalSection(sr)
	case SectionIDExport:
		return d.decodeExportSection(sr)
	case SectionIDStart:
		return d.decodeStartSection(sr)
	case SectionIDElement:
		return d.decodeElementSection(sr)
	case SectionIDCode:
		return d.decodeCodeSection(sr)
	case SectionIDData:
		return d.decodeDataSection(sr)
	case SectionIDDataCount:
		return d.decodeDataCountSection(sr)
	default:
		return api.MalformedError(api.ReasonSectionID, "invalid section id: %d", id)
	}
}
