package wasm

import "github.com/tetrawasm/wazerolite/api"

// MemoryInstance is a linear memory's runtime representation: a contiguous
// byte buffer sized in MemoryPageSize (64KiB) pages, growable up to Max.
type MemoryInstance struct {
	Buffer []byte
	Min    uint32
	Max    uint32 // resolved hard cap: declared max, or MemoryMaxPages if unbounded
}

func NewMemoryInstance(mt *MemoryType) *MemoryInstance {
	max := MemoryMaxPages
	if mt.Limits.Max != nil {
		max = int(*mt.Limits.Max)
	}
	return &MemoryInstance{
		Buffer: make([]byte, uint64(mt.Limits.Min)*MemoryPageSize),
		Min:    mt.Limits.Min,
		Max:    uint32(max),
	}
}

// PageSize returns the current size of the memory, in pages.
func (m *MemoryInstance) PageSize() uint32 {
	return uint32(len(m.Buffer) / MemoryPageSize)
}

// Grow attempts to grow the memory by delta pages, returning the previous
// page count, or false if growth would exceed Max.
func (m *MemoryInstance) Grow(delta uint32) (previousPages uint32, ok bool) {
	previousPages = m.PageSize()
	newPages := previousPages + delta
	if delta == 0 {
		return previousPages, true
	}
	if newPages < previousPages || newPages > m.Max {
		return previousPages, false
	}
	m.Buffer = append(m.Buffer, make([]byte, uint64(delta)*MemoryPageSize)...)
	return previousPages, true
}

// boundsCheck reports whether [offset, offset+n) lies within the buffer,
// using 64-bit arithmetic throughout to avoid wraparound false negatives.
func (m *MemoryInstance) boundsCheck(offset uint64, n uint64) bool {
	end := offset + n
	return end >= offset && end <= uint64(len(m.Buffer))
}

func (m *MemoryInstance) Read(offset, n uint32) ([]byte, bool) {
	if !m.boundsCheck(uint64(offset), uint64(n)) {
		return nil, false
	}
	return m.Buffer[offset : offset+n], true
}

func (m *MemoryInstance) Write(offset uint32, data []byte) bool {
	if !m.boundsCheck(uint64(offset), uint64(len(data))) {
		return false
	}
	copy(m.Buffer[offset:], data)
	return true
}

// trapOutOfBounds constructs the standard out-of-bounds memory access trap.
func (m *MemoryInstance) trapOutOfBounds() error {
	return api.NewTrap(api.ReasonOutOfBoundsMemoryAccess, "")
}
