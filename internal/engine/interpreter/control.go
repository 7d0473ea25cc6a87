package interpreter

import (
	"context"

	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/wasm"
)

// branchTo resolves a branch of the given relative depth against f's label
// stack: it reads the label's arity worth of values off the top of vs,
// unwinds vs down to the height recorded when the label was entered, pushes
// those values back, and returns the byte offset execution resumes at.
// Branching to a loop label also pops that label itself, since re-entering
// the loop opcode at its continuation will push a fresh one (spec.md §4.4
// "Branch semantics").
func branchTo(f *callFrame, vs *valueStack, depth uint32) uint32 {
	l := f.labelAt(depth)
	scratch := vs.popN(l.arity)
	vs.truncate(l.stackHeight)
	vs.pushN(scratch)
	if l.isLoop {
		f.labels = f.labels[:len(f.labels)-int(depth)-1]
	} else {
		f.labels = f.labels[:len(f.labels)-int(depth)]
	}
	return l.continuation
}

// callWasm runs fn's body to completion, starting a fresh frame with params
// copied into the leading locals and declared locals zeroed (spec.md §4.4
// "Execution begins by entering a function").
func (e *Engine) callWasm(ctx context.Context, fn *wasm.FunctionInstance, params []uint64, depth int) ([]uint64, error) {
	locals := make([]uint64, len(fn.Type.Params)+len(fn.LocalTypes))
	copy(locals, params)

	f := &callFrame{fn: fn, locals: locals}
	vs := &valueStack{}
	types := fn.Module.Module.TypeSection

	// The function body itself is label 0 (spec.md §4.4 "push a label for
	// the function body whose continuation is function_end[body_offset]").
	// Branching to it behaves like a return once its own end is reached.
	f.pushLabel(label{arity: len(fn.Type.Results), continuation: fn.FunctionEnd, stackHeight: vs.height()})

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		offset := f.pc
		op := fn.Body[offset]
		c := &cursor{buf: fn.Body, pos: offset + 1}

		switch op {
		case wasm.OpcodeUnreachable:
			return nil, api.NewTrap(api.ReasonUnreachable, "")

		case wasm.OpcodeNop:
			f.pc = c.pos

		case wasm.OpcodeBlock, wasm.OpcodeLoop:
			bt := c.blockType()
			p, r := bt.ParamResultTypes(types)
			height := vs.height() - len(p)
			if op == wasm.OpcodeLoop {
				f.pushLabel(label{arity: len(p), continuation: fn.LabelEnd[offset], isLoop: true, stackHeight: height})
			} else {
				f.pushLabel(label{arity: len(r), continuation: fn.LabelEnd[offset], stackHeight: height})
			}
			f.pc = c.pos

		case wasm.OpcodeIf:
			bt := c.blockType()
			p, r := bt.ParamResultTypes(types)
			cond := uint32(vs.pop())
			height := vs.height() - len(p)
			f.pushLabel(label{arity: len(r), continuation: fn.LabelEnd[offset], stackHeight: height})
			switch {
			case cond != 0:
				f.pc = c.pos
			default:
				if elseOff, ok := fn.IfElse[offset]; ok {
					f.pc = elseOff + 1
				} else {
					f.pc = fn.LabelEnd[offset]
				}
			}

		case wasm.OpcodeElse:
			f.pc = f.labels[len(f.labels)-1].continuation

		case wasm.OpcodeEnd:
			f.popLabel()
			if len(f.labels) == 0 {
				return vs.popN(len(fn.Type.Results)), nil
			}
			f.pc = offset + 1

		case wasm.OpcodeBr:
			depthArg := c.u32()
			f.pc = branchTo(f, vs, depthArg)

		case wasm.OpcodeBrIf:
			depthArg := c.u32()
			if uint32(vs.pop()) != 0 {
				f.pc = branchTo(f, vs, depthArg)
			} else {
				f.pc = c.pos
			}

		case wasm.OpcodeBrTable:
			n := c.u32()
			targets := make([]uint32, n)
			for i := range targets {
				targets[i] = c.u32()
			}
			defaultTarget := c.u32()
			idx := uint32(vs.pop())
			depthArg := defaultTarget
			if idx < uint32(len(targets)) {
				depthArg = targets[idx]
			}
			f.pc = branchTo(f, vs, depthArg)

		case wasm.OpcodeReturn:
			return vs.popN(len(fn.Type.Results)), nil

		case wasm.OpcodeCall:
			fidx := c.u32()
			callee := fn.Module.Functions[fidx]
			args := vs.popN(len(callee.Type.Params))
			results, err := e.callFunction(ctx, callee, args, depth+1)
			if err != nil {
				return nil, err
			}
			vs.pushN(results)
			f.pc = c.pos

		case wasm.OpcodeCallIndirect:
			typeIdx := c.u32()
			tableIdx := c.u32()
			elemIdx := uint32(vs.pop())
			table := fn.Module.Tables[tableIdx]
			if elemIdx >= table.Size() {
				return nil, api.NewTrap(api.ReasonUndefinedElement, "")
			}
			ref := table.References[elemIdx]
			if ref == wasm.RefNullValue {
				return nil, api.NewTrap(api.ReasonUninitializedElement, "")
			}
			callee := fn.Module.Functions[uint32(ref)]
			expected := types[typeIdx]
			if !expected.Equals(callee.Type) {
				return nil, api.NewTrap(api.ReasonIndirectCallTypeMismatch, "")
			}
			args := vs.popN(len(callee.Type.Params))
			results, err := e.callFunction(ctx, callee, args, depth+1)
			if err != nil {
				return nil, err
			}
			vs.pushN(results)
			f.pc = c.pos

		case wasm.OpcodeDrop:
			vs.pop()
			f.pc = c.pos

		case wasm.OpcodeSelect:
			cond := uint32(vs.pop())
			v2, v1 := vs.pop(), vs.pop()
			if cond != 0 {
				vs.push(v1)
			} else {
				vs.push(v2)
			}
			f.pc = c.pos

		case wasm.OpcodeSelectT:
			n := c.u32()
			for i := uint32(0); i < n; i++ {
				c.byte()
			}
			cond := uint32(vs.pop())
			v2, v1 := vs.pop(), vs.pop()
			if cond != 0 {
				vs.push(v1)
			} else {
				vs.push(v2)
			}
			f.pc = c.pos

		case wasm.OpcodeLocalGet:
			idx := c.u32()
			vs.push(f.locals[idx])
			f.pc = c.pos

		case wasm.OpcodeLocalSet:
			idx := c.u32()
			f.locals[idx] = vs.pop()
			f.pc = c.pos

		case wasm.OpcodeLocalTee:
			idx := c.u32()
			f.locals[idx] = vs.peek()
			f.pc = c.pos

		case wasm.OpcodeGlobalGet:
			idx := c.u32()
			vs.push(fn.Module.Globals[idx].Get())
			f.pc = c.pos

		case wasm.OpcodeGlobalSet:
			idx := c.u32()
			fn.Module.Globals[idx].Set(vs.pop())
			f.pc = c.pos

		case wasm.OpcodeTableGet:
			idx := c.u32()
			elemIdx := uint32(vs.pop())
			table := fn.Module.Tables[idx]
			if elemIdx >= table.Size() {
				return nil, api.NewTrap(api.ReasonOutOfBoundsTableAccess, "")
			}
			vs.push(table.References[elemIdx])
			f.pc = c.pos

		case wasm.OpcodeTableSet:
			idx := c.u32()
			val := vs.pop()
			elemIdx := uint32(vs.pop())
			table := fn.Module.Tables[idx]
			if elemIdx >= table.Size() {
				return nil, api.NewTrap(api.ReasonOutOfBoundsTableAccess, "")
			}
			table.References[elemIdx] = val
			f.pc = c.pos

		case wasm.OpcodeI32Load, wasm.OpcodeI64Load, wasm.OpcodeF32Load, wasm.OpcodeF64Load,
			wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U,
			wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U,
			wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U:
			_, memOff := c.memarg()
			if err := execLoad(op, memOff, fn.Module, vs); err != nil {
				return nil, err
			}
			f.pc = c.pos

		case wasm.OpcodeI32Store, wasm.OpcodeI64Store, wasm.OpcodeF32Store, wasm.OpcodeF64Store,
			wasm.OpcodeI32Store8, wasm.OpcodeI32Store16, wasm.OpcodeI64Store8, wasm.OpcodeI64Store16, wasm.OpcodeI64Store32:
			_, memOff := c.memarg()
			if err := execStore(op, memOff, fn.Module, vs); err != nil {
				return nil, err
			}
			f.pc = c.pos

		case wasm.OpcodeMemorySize:
			vs.push(uint64(fn.Module.Memory.PageSize()))
			f.pc = c.pos

		case wasm.OpcodeMemoryGrow:
			delta := uint32(vs.pop())
			prev, ok := fn.Module.Memory.Grow(delta)
			if !ok {
				vs.push(uint64(uint32(0xffffffff)))
			} else {
				vs.push(uint64(prev))
			}
			f.pc = c.pos

		case wasm.OpcodeI32Const:
			vs.push(uint64(uint32(c.i32())))
			f.pc = c.pos
		case wasm.OpcodeI64Const:
			vs.push(uint64(c.i64()))
			f.pc = c.pos
		case wasm.OpcodeF32Const:
			vs.push(pushF32(c.f32()))
			f.pc = c.pos
		case wasm.OpcodeF64Const:
			vs.push(pushF64(c.f64()))
			f.pc = c.pos

		case wasm.OpcodeRefNull:
			c.byte()
			vs.push(wasm.RefNullValue)
			f.pc = c.pos
		case wasm.OpcodeRefIsNull:
			vs.push(b2u(vs.pop() == wasm.RefNullValue))
			f.pc = c.pos
		case wasm.OpcodeRefFunc:
			idx := c.u32()
			vs.push(uint64(idx))
			f.pc = c.pos

		case wasm.OpcodeMiscPrefix:
			sub := c.u32()
			if err := execMisc(sub, c, fn.Module, vs); err != nil {
				return nil, err
			}
			f.pc = c.pos

		default:
			if err := execNumeric(op, vs); err != nil {
				return nil, err
			}
			f.pc = c.pos
		}
	}
}
