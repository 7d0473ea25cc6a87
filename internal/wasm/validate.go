package wasm

import "github.com/tetrawasm/wazerolite/api"

// valueTypeUnknown marks an operand produced in unreachable code: it
// unifies with any concrete type, implementing the polymorphic stack-typing
// rule from the reference validation algorithm.
const valueTypeUnknown ValueType = 0

// ctrlFrame is one entry of the control-frame stack: one per open block,
// loop, if/else, or (at the bottom) the function body itself.
type ctrlFrame struct {
	opcode      Opcode
	startTypes  []ValueType // the label's branch-target (loop: params, else: block results)
	endTypes    []ValueType // the construct's own result types
	height      int         // operand stack height when this frame was pushed
	unreachable bool
}

// funcValidator runs the symbolic operand-type-stack / control-frame-stack
// algorithm of spec.md §4.2 over one function body.
type funcValidator struct {
	m       *Module
	fn      *FunctionType
	locals  []ValueType // params followed by declared locals
	stack   []ValueType
	frames  []ctrlFrame
	r       *reader
	maxStack int
}

// ValidateModule runs every module-level and per-function validation rule
// of spec.md §4.2, returning the first ValidationError encountered.
func ValidateModule(m *Module) error {
	if err := validateGlobals(m); err != nil {
		return err
	}
	if err := validateStart(m); err != nil {
		return err
	}
	declared := declaredFuncRefs(m)
	for _, ce := range constExprsReferencingFuncs(m) {
		if ce.Opcode == OpcodeRefFunc && !declared[ce.FuncIndex] {
			return api.ValidationError(api.ReasonFuncRefUndeclared, "undeclared function reference: %d", ce.FuncIndex)
		}
	}
	for i, code := range m.CodeSection {
		funcIdx := uint32(m.NumFuncImports() + i)
		ft := m.TypeOfFunc(funcIdx)
		if err := validateFunction(m, ft, code, declared); err != nil {
			return err
		}
	}
	return nil
}

func validateGlobals(m *Module) error {
	numImportGlobals := m.NumGlobalImports()
	for _, g := range m.GlobalSection {
		if err := validateConstantExpression(m, g.Init, g.Type.ValType, numImportGlobals); err != nil {
			return err
		}
	}
	for _, seg := range m.ElementSection {
		if seg.Mode == ElementModeActive {
			if err := validateConstantExpression(m, seg.Offset, ValueTypeI32, numImportGlobals); err != nil {
				return err
			}
		}
	}
	for _, seg := range m.DataSection {
		if seg.Mode == DataModeActive {
			if err := validateConstantExpression(m, seg.Offset, ValueTypeI32, numImportGlobals); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateConstantExpression enforces that a constant expression's global.get
// only ever references an immutable import, and that its produced type
// matches want.
func validateConstantExpression(m *Module, ce ConstantExpression, want ValueType, numImportGlobals int) error {
	if ce.Opcode == OpcodeGlobalGet {
		if int(ce.GlobalIndex) >= numImportGlobals {
			return api.ValidationError(api.ReasonConstantExpressionGlobalMustBeImport, "")
		}
		gt := importedGlobalType(m, ce.GlobalIndex)
		if gt.Mutable {
			return api.ValidationError(api.ReasonConstantExpressionGlobalMustBeImmutable, "")
		}
	}
	var globalTypes []*GlobalType
	for _, imp := range m.ImportSection {
		if imp.Type == ExternTypeGlobal {
			globalTypes = append(globalTypes, imp.DescGlobal)
		}
	}
	for _, g := range m.GlobalSection {
		globalTypes = append(globalTypes, g.Type)
	}
	if got := ce.ResultType(globalTypes); got != want {
		return api.ValidationError(api.ReasonTypeMismatch, "")
	}
	return nil
}

func importedGlobalType(m *Module, idx uint32) *GlobalType {
	i := 0
	for _, imp := range m.ImportSection {
		if imp.Type == ExternTypeGlobal {
			if uint32(i) == idx {
				return imp.DescGlobal
			}
			i++
		}
	}
	return nil
}

func validateStart(m *Module) error {
	if m.StartSection == nil {
		return nil
	}
	ft := m.TypeOfFunc(*m.StartSection)
	if len(ft.Params) != 0 || len(ft.Results) != 0 {
		return api.ValidationError(api.ReasonStartFunctionType, "")
	}
	return nil
}

// declaredFuncRefs computes the set of function indices legally targetable
// by ref.func: exported functions, imported functions, and any function
// named by a declarative (or any) element segment (spec.md §4.2).
func declaredFuncRefs(m *Module) map[uint32]bool {
	declared := map[uint32]bool{}
	for i := 0; i < m.NumFuncImports(); i++ {
		declared[uint32(i)] = true
	}
	for _, exp := range m.ExportSection {
		if exp.Type == ExternTypeFunc {
			declared[exp.Index] = true
		}
	}
	for _, seg := range m.ElementSection {
		for _, idx := range seg.Init {
			if idx != RefNull {
				declared[idx] = true
			}
		}
	}
	return declared
}

// constExprsReferencingFuncs collects every constant expression in the
// module that might be a ref.func, for the undeclared-reference check
// above; code bodies' own ref.func instructions are checked inline by
// validateFunction.
func constExprsReferencingFuncs(m *Module) []ConstantExpression {
	var out []ConstantExpression
	for _, g := range m.GlobalSection {
		out = append(out, g.Init)
	}
	return out
}

func validateFunction(m *Module, ft *FunctionType, code *Code, declared map[uint32]bool) error {
	v := &funcValidator{
		m:      m,
		fn:     ft,
		locals: append(append([]ValueType{}, ft.Params...), code.LocalTypes...),
		r:      newReader(code.Body),
	}
	v.pushFrame(OpcodeBlock, nil, ft.Results)

	for {
		if v.r.remaining() == 0 {
			break
		}
		offset := uint32(v.r.pos)
		op, err := v.r.byte()
		if err != nil {
			return err
		}
		if err := v.step(op, offset, declared); err != nil {
			return err
		}
		if len(v.frames) == 0 {
			break // the function-level frame was just popped by `end`
		}
	}
	return nil
}

func (v *funcValidator) pushFrame(op Opcode, start, end []ValueType) {
	v.frames = append(v.frames, ctrlFrame{opcode: op, startTypes: start, endTypes: end, height: len(v.stack)})
}

func (v *funcValidator) curFrame() *ctrlFrame { return &v.frames[len(v.frames)-1] }

func (v *funcValidator) push(t ValueType) { v.stack = append(v.stack, t) }

func (v *funcValidator) pop(want ValueType) error {
	f := v.curFrame()
	if len(v.stack) == f.height {
		if f.unreachable {
			return nil // polymorphic: pretend we popped `want`
		}
		return api.ValidationError(api.ReasonTypeMismatch, "")
	}
	got := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	if got != valueTypeUnknown && want != valueTypeUnknown && got != want {
		return api.ValidationError(api.ReasonTypeMismatch, "")
	}
	return nil
}

func (v *funcValidator) popAny() (ValueType, error) {
	f := v.curFrame()
	if len(v.stack) == f.height {
		if f.unreachable {
			return valueTypeUnknown, nil
		}
		return 0, api.ValidationError(api.ReasonTypeMismatch, "")
	}
	got := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return got, nil
}

func (v *funcValidator) setUnreachable() {
	f := v.curFrame()
	v.stack = v.stack[:f.height]
	f.unreachable = true
}

// labelTypes returns the branch-target arity types of frame: a loop's start
// types (its params), every other construct's end types (its results).
func labelTypes(f ctrlFrame) []ValueType {
	if f.opcode == OpcodeLoop {
		return f.startTypes
	}
	return f.endTypes
}

func (v *funcValidator) branchTo(depth uint32) error {
	if int(depth) >= len(v.frames) {
		return api.ValidationError(api.ReasonUnknownLabel, "unknown label: %d", depth)
	}
	f := v.frames[len(v.frames)-1-int(depth)]
	for _, t := range labelTypes(f) {
		if err := v.pop(t); err != nil {
			return err
		}
	}
	for i := len(labelTypes(f)) - 1; i >= 0; i-- {
		v.push(labelTypes(f)[i])
	}
	return nil
}

func (v *funcValidator) step(op Opcode, offset uint32, declared map[uint32]bool) error {
	r := v.r
	switch op {
	case OpcodeUnreachable:
		v.setUnreachable()
	case OpcodeNop:

	case OpcodeBlock, OpcodeLoop, OpcodeIf:
		bt, err := decodeBlockType(r)
		if err != nil {
			return err
		}
		params, results := bt.ParamResultTypes(v.m.TypeSection)
		if op == OpcodeIf {
			if err := v.pop(ValueTypeI32); err != nil {
				return err
			}
		}
		for i := len(params) - 1; i >= 0; i-- {
			if err := v.pop(params[i]); err != nil {
				return err
			}
		}
		v.pushFrame(op, params, results)
		for _, p := range params {
			v.push(p)
		}

	case OpcodeElse:
		if len(v.frames) == 0 || v.curFrame().opcode != OpcodeIf {
			return api.ValidationError(api.ReasonIfElseMismatch, "else without matching if")
		}
		f := *v.curFrame()
		for _, t := range f.endTypes {
			if err := v.pop(t); err != nil {
				return err
			}
		}
		if len(v.stack) != f.height {
			return api.ValidationError(api.ReasonTypeMismatch, "")
		}
		v.frames = v.frames[:len(v.frames)-1]
		v.pushFrame(OpcodeElse, f.startTypes, f.endTypes)
		for _, p := range f.startTypes {
			v.push(p)
		}

	case OpcodeEnd:
		f := *v.curFrame()
		if f.opcode == OpcodeIf && len(f.endTypes) > 0 {
			return api.ValidationError(api.ReasonIfElseMismatch, "if without matching else has non-empty result type")
		}
		for _, t := range f.endTypes {
			if err := v.pop(t); err != nil {
				return err
			}
		}
		if len(v.stack) != f.height {
			return api.ValidationError(api.ReasonTypeMismatch, "")
		}
		v.frames = v.frames[:len(v.frames)-1]
		for _, t := range f.endTypes {
			v.push(t)
		}

	case OpcodeBr:
		depth, err := r.u32()
		if err != nil {
			return err
		}
		if err := v.branchTo(depth); err != nil {
			return err
		}
		v.setUnreachable()

	case OpcodeBrIf:
		depth, err := r.u32()
		if err != nil {
			return err
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		if err := v.branchTo(depth); err != nil {
			return err
		}

	case OpcodeBrTable:
		n, err := r.u32()
		if err != nil {
			return err
		}
		targets := make([]uint32, n)
		for i := range targets {
			if targets[i], err = r.u32(); err != nil {
				return err
			}
		}
		def, err := r.u32()
		if err != nil {
			return err
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		for _, t := range targets {
			if err := v.branchTo(t); err != nil {
				return err
			}
		}
		if err := v.branchTo(def); err != nil {
			return err
		}
		v.setUnreachable()

	case OpcodeReturn:
		root := v.frames[0]
		for _, t := range root.endTypes {
			if err := v.pop(t); err != nil {
				return err
			}
		}
		v.setUnreachable()

	case OpcodeCall:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		if int(idx) >= v.m.NumFuncs() {
			return api.ValidationError(api.ReasonUnknownFunction, "unknown function: %d", idx)
		}
		ft := v.m.TypeOfFunc(idx)
		for i := len(ft.Params) - 1; i >= 0; i-- {
			if err := v.pop(ft.Params[i]); err != nil {
				return err
			}
		}
		for _, rt := range ft.Results {
			v.push(rt)
		}

	case OpcodeCallIndirect:
		typeIdx, err := r.u32()
		if err != nil {
			return err
		}
		tblIdx, err := r.u32()
		if err != nil {
			return err
		}
		if int(tblIdx) >= len(v.m.TableSection)+v.m.NumTableImports() {
			return api.ValidationError(api.ReasonUnknownTable, "unknown table: %d", tblIdx)
		}
		if int(typeIdx) >= len(v.m.TypeSection) {
			return api.ValidationError(api.ReasonUnknownFunction, "unknown type: %d", typeIdx)
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		ft := v.m.TypeSection[typeIdx]
		for i := len(ft.Params) - 1; i >= 0; i-- {
			if err := v.pop(ft.Params[i]); err != nil {
				return err
			}
		}
		for _, rt := range ft.Results {
			v.push(rt)
		}

	case OpcodeDrop:
		if _, err := v.popAny(); err != nil {
			return err
		}

	case OpcodeSelect:
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		a, err := v.popAny()
		if err != nil {
			return err
		}
		if a != valueTypeUnknown && a != ValueTypeI32 && a != ValueTypeI64 && a != ValueTypeF32 && a != ValueTypeF64 {
			return api.ValidationError(api.ReasonTypeMustBeNumeric, "")
		}
		if err := v.pop(a); err != nil {
			return err
		}
		v.push(a)

	case OpcodeSelectT:
		n, err := r.u32()
		if err != nil {
			return err
		}
		types := make([]ValueType, n)
		for i := range types {
			if types[i], err = r.valueType(); err != nil {
				return err
			}
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		var t ValueType
		if len(types) > 0 {
			t = types[0]
		}
		if err := v.pop(t); err != nil {
			return err
		}
		if err := v.pop(t); err != nil {
			return err
		}
		v.push(t)

	case OpcodeLocalGet:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.locals) {
			return api.ValidationError(api.ReasonUnknownLocal, "unknown local: %d", idx)
		}
		v.push(v.locals[idx])

	case OpcodeLocalSet, OpcodeLocalTee:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.locals) {
			return api.ValidationError(api.ReasonUnknownLocal, "unknown local: %d", idx)
		}
		if err := v.pop(v.locals[idx]); err != nil {
			return err
		}
		if op == OpcodeLocalTee {
			v.push(v.locals[idx])
		}

	case OpcodeGlobalGet:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		gt := globalTypeAt(v.m, idx)
		if gt == nil {
			return api.ValidationError(api.ReasonUnknownGlobal, "unknown global: %d", idx)
		}
		v.push(gt.ValType)

	case OpcodeGlobalSet:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		gt := globalTypeAt(v.m, idx)
		if gt == nil {
			return api.ValidationError(api.ReasonUnknownGlobal, "unknown global: %d", idx)
		}
		if !gt.Mutable {
			return api.ValidationError(api.ReasonImmutableGlobal, "")
		}
		if err := v.pop(gt.ValType); err != nil {
			return err
		}

	case OpcodeTableGet, OpcodeTableSet:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		tt := tableTypeAt(v.m, idx)
		if tt == nil {
			return api.ValidationError(api.ReasonUnknownTable, "unknown table: %d", idx)
		}
		if op == OpcodeTableSet {
			if err := v.pop(tt.ElemType); err != nil {
				return err
			}
			if err := v.pop(ValueTypeI32); err != nil {
				return err
			}
		} else {
			if err := v.pop(ValueTypeI32); err != nil {
				return err
			}
			v.push(tt.ElemType)
		}

	case OpcodeMemorySize:
		if _, err := r.u32(); err != nil {
			return err
		}
		if !v.m.HasMemory() {
			return api.ValidationError(api.ReasonUnknownMemory, "")
		}
		v.push(ValueTypeI32)

	case OpcodeMemoryGrow:
		if _, err := r.u32(); err != nil {
			return err
		}
		if !v.m.HasMemory() {
			return api.ValidationError(api.ReasonUnknownMemory, "")
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		v.push(ValueTypeI32)

	case OpcodeI32Const:
		if _, err := r.i32(); err != nil {
			return err
		}
		v.push(ValueTypeI32)
	case OpcodeI64Const:
		if _, err := r.i64(); err != nil {
			return err
		}
		v.push(ValueTypeI64)
	case OpcodeF32Const:
		if _, err := r.f32(); err != nil {
			return err
		}
		v.push(ValueTypeF32)
	case OpcodeF64Const:
		if _, err := r.f64(); err != nil {
			return err
		}
		v.push(ValueTypeF64)

	case OpcodeRefNull:
		rt, err := r.refType()
		if err != nil {
			return err
		}
		v.push(rt)
	case OpcodeRefIsNull:
		if _, err := v.popAny(); err != nil {
			return err
		}
		v.push(ValueTypeI32)
	case OpcodeRefFunc:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		if !declared[idx] {
			return api.ValidationError(api.ReasonFuncRefUndeclared, "undeclared function reference: %d", idx)
		}
		v.push(ValueTypeFuncref)

	case OpcodeMiscPrefix:
		return v.stepMisc(r)

	default:
		if err := v.stepNumericOrMemory(op, r); err != nil {
			return err
		}
	}
	return nil
}

// tableTypeAt resolves a table index to its declared type, searching
// imports before module-defined tables, the same way globalTypeAt resolves
// globals. Returns nil if idx is out of range.
func tableTypeAt(m *Module, idx uint32) *TableType {
	n := m.NumTableImports()
	if int(idx) < n {
		i := 0
		for _, imp := range m.ImportSection {
			if imp.Type == ExternTypeTable {
				if i == int(idx) {
					return imp.DescTable
				}
				i++
			}
		}
	}
	local := int(idx) - n
	if local >= 0 && local < len(m.TableSection) {
		return m.TableSection[local]
	}
	return nil
}

func globalTypeAt(m *Module, idx uint32) *GlobalType {
	n := m.NumGlobalImports()
	if int(idx) < n {
		i := 0
		for _, imp := range m.ImportSection {
			if imp.Type == ExternTypeGlobal {
				if i == int(idx) {
					return imp.DescGlobal
				}
				i++
			}
		}
	}
	local := int(idx) - n
	if local >= 0 && local < len(m.GlobalSection) {
		return m.GlobalSection[local].Type
	}
	return nil
}

// stepNumericOrMemory validates every remaining fixed-arity instruction:
// comparisons, arithmetic, conversions, and load/store. These have no
// control-flow effect, so their type signatures are looked up in a table
// rather than hand-written per opcode.
func (v *funcValidator) stepNumericOrMemory(op Opcode, r *reader) error {
	sig, ok := numericSignature(op)
	if ok {
		for i := len(sig.params) - 1; i >= 0; i-- {
			if err := v.pop(sig.params[i]); err != nil {
				return err
			}
		}
		for _, rt := range sig.results {
			v.push(rt)
		}
		return nil
	}
	if isLoadOpcode(op) {
		align, err := decodeMemarg(r)
		if err != nil {
			return err
		}
		if !v.m.HasMemory() {
			return api.ValidationError(api.ReasonUnknownMemory, "")
		}
		if err := checkAlignment(align.Align, naturalAlignment(op)); err != nil {
			return err
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		v.push(loadResultType(op))
		return nil
	}
	if isStoreOpcode(op) {
		align, err := decodeMemarg(r)
		if err != nil {
			return err
		}
		if !v.m.HasMemory() {
			return api.ValidationError(api.ReasonUnknownMemory, "")
		}
		if err := checkAlignment(align.Align, naturalAlignment(op)); err != nil {
			return err
		}
		if err := v.pop(storeValueType(op)); err != nil {
			return err
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		return nil
	}
	return api.MalformedError(api.ReasonIllegalOpcode, "invalid opcode: %#x", op)
}

func checkAlignment(align, natural uint32) error {
	if align > natural {
		return api.ValidationError(api.ReasonBadAlignment, "")
	}
	return nil
}

func (v *funcValidator) stepMisc(r *reader) error {
	sub, err := r.u32()
	if err != nil {
		return err
	}
	switch sub {
	case MiscOpcodeI32TruncSatF32S, MiscOpcodeI32TruncSatF32U:
		return v.unaryConvert(ValueTypeF32, ValueTypeI32)
	case MiscOpcodeI32TruncSatF64S, MiscOpcodeI32TruncSatF64U:
		return v.unaryConvert(ValueTypeF64, ValueTypeI32)
	case MiscOpcodeI64TruncSatF32S, MiscOpcodeI64TruncSatF32U:
		return v.unaryConvert(ValueTypeF32, ValueTypeI64)
	case MiscOpcodeI64TruncSatF64S, MiscOpcodeI64TruncSatF64U:
		return v.unaryConvert(ValueTypeF64, ValueTypeI64)
	case MiscOpcodeMemoryInit:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		if _, err := r.byte(); err != nil {
			return err
		}
		if int(idx) >= len(v.m.DataSection) {
			return api.ValidationError(api.ReasonUnknownData, "unknown data segment: %d", idx)
		}
		if !v.m.HasMemory() {
			return api.ValidationError(api.ReasonUnknownMemory, "")
		}
		return v.popN(ValueTypeI32, ValueTypeI32, ValueTypeI32)
	case MiscOpcodeDataDrop:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.m.DataSection) {
			return api.ValidationError(api.ReasonUnknownData, "unknown data segment: %d", idx)
		}
		return nil
	case MiscOpcodeMemoryCopy:
		if _, err := r.byte(); err != nil {
			return err
		}
		if _, err := r.byte(); err != nil {
			return err
		}
		if !v.m.HasMemory() {
			return api.ValidationError(api.ReasonUnknownMemory, "")
		}
		return v.popN(ValueTypeI32, ValueTypeI32, ValueTypeI32)
	case MiscOpcodeMemoryFill:
		if _, err := r.byte(); err != nil {
			return err
		}
		if !v.m.HasMemory() {
			return api.ValidationError(api.ReasonUnknownMemory, "")
		}
		return v.popN(ValueTypeI32, ValueTypeI32, ValueTypeI32)
	case MiscOpcodeTableInit:
		elemIdx, err := r.u32()
		if err != nil {
			return err
		}
		tblIdx, err := r.u32()
		if err != nil {
			return err
		}
		if int(elemIdx) >= len(v.m.ElementSection) {
			return api.ValidationError(api.ReasonUnknownElement, "unknown element segment: %d", elemIdx)
		}
		if int(tblIdx) >= len(v.m.TableSection)+v.m.NumTableImports() {
			return api.ValidationError(api.ReasonUnknownTable, "unknown table: %d", tblIdx)
		}
		return v.popN(ValueTypeI32, ValueTypeI32, ValueTypeI32)
	case MiscOpcodeElemDrop:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.m.ElementSection) {
			return api.ValidationError(api.ReasonUnknownElement, "unknown element segment: %d", idx)
		}
		return nil
	case MiscOpcodeTableCopy:
		dst, err := r.u32()
		if err != nil {
			return err
		}
		src, err := r.u32()
		if err != nil {
			return err
		}
		n := len(v.m.TableSection) + v.m.NumTableImports()
		if int(dst) >= n || int(src) >= n {
			return api.ValidationError(api.ReasonUnknownTable, "unknown table")
		}
		return v.popN(ValueTypeI32, ValueTypeI32, ValueTypeI32)
	case MiscOpcodeTableGrow:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		tt := tableTypeAt(v.m, idx)
		if tt == nil {
			return api.ValidationError(api.ReasonUnknownTable, "unknown table: %d", idx)
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		if err := v.pop(tt.ElemType); err != nil {
			return err
		}
		v.push(ValueTypeI32)
		return nil
	case MiscOpcodeTableSize:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		if int(idx) >= len(v.m.TableSection)+v.m.NumTableImports() {
			return api.ValidationError(api.ReasonUnknownTable, "unknown table: %d", idx)
		}
		v.push(ValueTypeI32)
		return nil
	case MiscOpcodeTableFill:
		idx, err := r.u32()
		if err != nil {
			return err
		}
		tt := tableTypeAt(v.m, idx)
		if tt == nil {
			return api.ValidationError(api.ReasonUnknownTable, "unknown table: %d", idx)
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		if err := v.pop(tt.ElemType); err != nil {
			return err
		}
		return v.pop(ValueTypeI32)
	default:
		return api.MalformedError(api.ReasonIllegalOpcode, "invalid 0xFC sub-opcode: %d", sub)
	}
}

func (v *funcValidator) popN(types ...ValueType) error {
	for i := len(types) - 1; i >= 0; i-- {
		if err := v.pop(types[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *funcValidator) unaryConvert(from, to ValueType) error {
	if err := v.pop(from); err != nil {
		return err
	}
	v.push(to)
	return nil
}
