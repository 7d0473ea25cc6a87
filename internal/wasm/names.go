package wasm

// Name sub-section ids within the custom "name" section.
const (
	nameSubsectionModule   = 0
	nameSubsectionFunction = 1
	nameSubsectionLocal    = 2
)

// decodeNameSection best-effort decodes the custom "name" section's module,
// function, and local name maps. Any malformed sub-section is skipped
// rather than failing the whole decode (spec.md §9(c)): debug names carry
// no semantic weight.
func decodeNameSection(b []byte) (*NameSection, error) {
	r := newReader(b)
	ns := &NameSection{
		FunctionNames: map[uint32]string{},
		LocalNames:    map[uint32]map[uint32]string{},
	}
	for r.remaining() > 0 {
		id, err := r.byte()
		if err != nil {
			return ns, nil
		}
		size, err := r.u32()
		if err != nil {
			return ns, nil
		}
		payload, err := r.bytes(int(size))
		if err != nil {
			return ns, nil
		}
		sr := newReader(payload)
		switch id {
		case nameSubsectionModule:
			if name, err := sr.name(); err == nil {
				ns.ModuleName = name
			}
		case nameSubsectionFunction:
			decodeNameMap(sr, ns.FunctionNames)
		case nameSubsectionLocal:
			count, err := sr.u32()
			if err != nil {
				continue
			}
			for i := uint32(0); i < count; i++ {
				funcIdx, err := sr.u32()
				if err != nil {
					break
				}
				locals := map[uint32]string{}
				decodeNameMap(sr, locals)
				ns.LocalNames[funcIdx] = locals
			}
		}
	}
	return ns, nil
}

func decodeNameMap(r *reader, out map[uint32]string) {
	count, err := r.u32()
	if err != nil {
		return
	}
	for i := uint32(0); i < count; i++ {
		idx, err := r.u32()
		if err != nil {
			return
		}
		name, err := r.name()
		if err != nil {
			return
		}
		out[idx] = name
	}
}
