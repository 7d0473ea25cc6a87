package wasm

// TableInstance is a table's runtime representation: a growable vector of
// opaque references (function indices for funcref tables, external object
// handles for externref tables). A null entry is represented by RefNullValue.
type TableInstance struct {
	References []uint64
	Type       RefType
	Max        uint32 // resolved hard cap: declared max, or 1<<32-1 if unbounded
}

const tableHardMax = 1<<32 - 1

func NewTableInstance(tt *TableType) *TableInstance {
	max := uint32(tableHardMax)
	if tt.Limits.Max != nil {
		max = *tt.Limits.Max
	}
	refs := make([]uint64, tt.Limits.Min)
	for i := range refs {
		refs[i] = RefNullValue
	}
	return &TableInstance{References: refs, Type: tt.ElemType, Max: max}
}

func (t *TableInstance) Size() uint32 { return uint32(len(t.References)) }

// Grow attempts to grow the table by delta entries, filling new entries
// with init, returning the previous size, or false if growth would exceed
// Max.
func (t *TableInstance) Grow(delta uint32, init uint64) (previousSize uint32, ok bool) {
	previousSize = t.Size()
	newSize := previousSize + delta
	if delta == 0 {
		return previousSize, true
	}
	if newSize < previousSize || newSize > t.Max {
		return previousSize, false
	}
	grown := make([]uint64, delta)
	for i := range grown {
		grown[i] = init
	}
	t.References = append(t.References, grown...)
	return previousSize, true
}
