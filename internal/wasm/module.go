package wasm

// Module is the decoded, immutable representation of a WebAssembly binary:
// every section's contents plus the control-flow metadata precomputed once
// at decode time (spec.md §3 "Continuation tables", §4.1).
type Module struct {
	TypeSection     []*FunctionType
	ImportSection   []*Import
	FunctionSection []uint32 // type index per defined (non-imported) function
	TableSection    []*TableType
	MemorySection   []*MemoryType
	GlobalSection   []*Global
	ExportSection   []*Export
	StartSection    *uint32
	ElementSection  []*ElementSegment
	CodeSection     []*Code
	DataSection     []*DataSegment

	// DataCountSection is non-nil when a data-count section was present;
	// its value must equal len(DataSection) per spec.md §4.1.
	DataCountSection *uint32

	NameSection *NameSection

	// indexSpace caches derived lookups built once after decode.
	indexSpace moduleIndexSpace
}

// NameSection holds the (optional, best-effort) debug names from the custom
// "name" section. Decoding tolerates but may ignore malformed sub-sections
// per spec.md §9(c).
type NameSection struct {
	ModuleName    string
	FunctionNames map[uint32]string
	LocalNames    map[uint32]map[uint32]string
}

// Import describes one import declaration: a (module, name) pair and a
// kind-specific descriptor.
type Import struct {
	Module, Name string
	Type         ExternType

	DescFunc   uint32 // type index, when Type == ExternTypeFunc
	DescTable  *TableType
	DescMem    *MemoryType
	DescGlobal *GlobalType
}

// Export associates a name with an index into the corresponding index
// space. Export names are unique within a module (spec.md §3, §4.2).
type Export struct {
	Name  string
	Type  ExternType
	Index uint32
}

// Global is a module-defined global: its type plus the constant expression
// that produces its initial value.
type Global struct {
	Type *GlobalType
	Init ConstantExpression
}

// ConstantExpression is a constant-producing instruction sequence: one of
// {i32,i64,f32,f64}.const, ref.null, ref.func, or global.get of an immutable
// imported global, terminated by `end` (spec.md §4.2, §4.4, §9). Decoding
// evaluates the single permitted instruction eagerly into one of the typed
// fields below; which field is meaningful is determined by Opcode.
type ConstantExpression struct {
	Opcode      Opcode
	I32         int32
	I64         int64
	F32         float32
	F64         float64
	GlobalIndex uint32
	FuncIndex   uint32
	RefType     RefType // meaningful when Opcode == OpcodeRefNull
}

// ElementMode distinguishes how an element segment is applied.
type ElementMode byte

const (
	ElementModeActive ElementMode = iota
	ElementModePassive
	ElementModeDeclarative
)

// ElementSegment initializes a table (active), is referenced by table.init
// (passive), or exists solely to whitelist ref.func validation targets
// (declarative).
type ElementSegment struct {
	Type   RefType
	Mode   ElementMode
	Table  uint32 // meaningful only when Mode == ElementModeActive
	Offset ConstantExpression
	Init   []uint32 // function indices; null entries encoded as ^uint32(0)
}

// RefNull is the sentinel function index denoting a null funcref entry in
// an element segment's init list.
const RefNull = ^uint32(0)

// DataMode distinguishes active (copied at instantiation) from passive
// (awaiting an explicit memory.init) data segments.
type DataMode byte

const (
	DataModeActive DataMode = iota
	DataModePassive
)

// DataSegment initializes memory bytes.
type DataSegment struct {
	Mode   DataMode
	Memory uint32 // meaningful only when Mode == DataModeActive
	Offset ConstantExpression
	Init   []byte
}

// Code is one function body: its locals declaration and the byte range of
// its instructions within that function's own body slice (bodies are
// decoded independently, each keeping its own byte-offset space starting at
// 0 for its first instruction after the locals vector).
type Code struct {
	LocalTypes []ValueType // parameters are not included; see FunctionType.Params
	Body       []byte      // instructions, starting immediately after locals, up to and including the final `end`

	// Continuation tables, keyed by byte offset into Body. Populated once
	// by decodeFunctionBody's structured scan (spec.md §4.1).
	LabelEnd    map[uint32]uint32
	IfElse      map[uint32]uint32
	FunctionEnd uint32 // offset, within Body, of the body's own matching `end`
}

// moduleIndexSpace caches the function/table/memory/global index spaces
// (imports first, then module-defined), avoiding recomputation on every
// validation or instantiation lookup.
type moduleIndexSpace struct {
	built bool

	// funcTypeIndex[i] is the TypeSection index of function i in the
	// combined (imports-then-defined) function index space.
	funcTypeIndex []uint32
	numImportFunc   int
	numImportTable  int
	numImportMemory int
	numImportGlobal int
}

func (m *Module) buildIndexSpace() {
	if m.indexSpace.built {
		return
	}
	is := &m.indexSpace
	for _, imp := range m.ImportSection {
		switch imp.Type {
		case ExternTypeFunc:
			is.funcTypeIndex = append(is.funcTypeIndex, imp.DescFunc)
			is.numImportFunc++
		case ExternTypeTable:
			is.numImportTable++
		case ExternTypeMemory:
			is.numImportMemory++
		case ExternTypeGlobal:
			is.numImportGlobal++
		}
	}
	is.funcTypeIndex = append(is.funcTypeIndex, m.FunctionSection...)
	is.built = true
}

// NumFuncImports, NumTableImports, NumMemoryImports, NumGlobalImports return
// the count of each import kind, in declaration order within ImportSection.
func (m *Module) NumFuncImports() int {
	m.buildIndexSpace()
	return m.indexSpace.numImportFunc
}

func (m *Module) NumTableImports() int {
	m.buildIndexSpace()
	return m.indexSpace.numImportTable
}

func (m *Module) NumMemoryImports() int {
	m.buildIndexSpace()
	return m.indexSpace.numImportMemory
}

func (m *Module) NumGlobalImports() int {
	m.buildIndexSpace()
	return m.indexSpace.numImportGlobal
}

// TypeOfFunc returns the FunctionType of the funcIdx-th function in the
// combined (imports-then-defined) function index space.
func (m *Module) TypeOfFunc(funcIdx uint32) *FunctionType {
	m.buildIndexSpace()
	return m.TypeSection[m.indexSpace.funcTypeIndex[funcIdx]]
}

// NumFuncs is the total count of functions (imported plus defined).
func (m *Module) NumFuncs() int {
	m.buildIndexSpace()
	return len(m.indexSpace.funcTypeIndex)
}

// HasMemory reports whether the module declares or imports a memory.
func (m *Module) HasMemory() bool {
	return len(m.MemorySection) > 0 || m.NumMemoryImports() > 0
}

// HasTable reports whether the module declares or imports a table.
func (m *Module) HasTable() bool {
	return len(m.TableSection) > 0 || m.NumTableImports() > 0
}
