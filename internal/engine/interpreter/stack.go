// Package interpreter implements the stack-machine execution engine:
// decode-time continuation tables (internal/wasm) drive O(1) label
// resolution at run time instead of a just-in-time compilation pass.
package interpreter

import "github.com/tetrawasm/wazerolite/internal/wasm"

// valueStack is the operand stack: every Wasm value is carried as its
// 64-bit encoding (api.EncodeI32 et al.), matching internal/wasm's
// GlobalInstance/ConstantExpression convention.
type valueStack struct {
	values []uint64
}

func (s *valueStack) push(v uint64) { s.values = append(s.values, v) }

func (s *valueStack) pop() uint64 {
	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]
	return v
}

func (s *valueStack) popN(n int) []uint64 {
	out := make([]uint64, n)
	copy(out, s.values[len(s.values)-n:])
	s.values = s.values[:len(s.values)-n]
	return out
}

func (s *valueStack) pushN(vs []uint64) {
	s.values = append(s.values, vs...)
}

func (s *valueStack) peek() uint64 { return s.values[len(s.values)-1] }

func (s *valueStack) height() int { return len(s.values) }

func (s *valueStack) truncate(height int) { s.values = s.values[:height] }

// label is one entry of the current call frame's control-flow stack: the
// continuation byte offset a branch to this label seeks to, how many
// result (or, for a loop, parameter) values it carries across the branch,
// and the value-stack height to unwind to.
type label struct {
	arity        int
	continuation uint32
	isLoop       bool
	stackHeight  int
}

// callFrame is one activation record: the executing function, its locals
// (parameters followed by declared locals), the program counter (a byte
// offset into fn.Body), and this call's own label stack. The first label
// pushed is always the function body itself (see callWasm), so a branch
// depth can address it like any other label.
type callFrame struct {
	fn     *wasm.FunctionInstance
	locals []uint64
	pc     uint32
	labels []label
}

func (f *callFrame) pushLabel(l label) { f.labels = append(f.labels, l) }

func (f *callFrame) popLabel() label {
	l := f.labels[len(f.labels)-1]
	f.labels = f.labels[:len(f.labels)-1]
	return l
}

func (f *callFrame) labelAt(depth uint32) label {
	return f.labels[len(f.labels)-1-int(depth)]
}
