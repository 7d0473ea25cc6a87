package interpreter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/wasm"
)

// Wrap returns the api.Module view of mi, the same adapter type used
// internally when a host function requests the calling module as a
// parameter. The root package's Runtime uses this to hand callers an
// api.Module for every instantiation result instead of maintaining a
// second, parallel adapter.
func (e *Engine) Wrap(mi *wasm.ModuleInstance) api.Module {
	return &hostModule{mi: mi, e: e}
}

// hostModule is the api.Module view handed to a host function whose GoFunc
// signature requests one (FunctionInstance.PassesModule), letting the host
// read memory, look up other exports, or re-enter a different exported
// function of the module that is calling it.
type hostModule struct {
	mi *wasm.ModuleInstance
	e  *Engine
}

func (h *hostModule) String() string { return fmt.Sprintf("module[%s]", h.mi.Name) }
func (h *hostModule) Name() string   { return h.mi.Name }

func (h *hostModule) Memory() api.Memory {
	if h.mi.Memory == nil {
		return nil
	}
	return &hostMemory{h.mi.Memory}
}

func (h *hostModule) ExportedFunction(name string) api.Function {
	fn := h.mi.ExportedFunction(name)
	if fn == nil {
		return nil
	}
	return &hostFunction{fn, h.e}
}

func (h *hostModule) ExportedMemory(name string) api.Memory {
	m := h.mi.ExportedMemory(name)
	if m == nil {
		return nil
	}
	return &hostMemory{m}
}

func (h *hostModule) ExportedGlobal(name string) api.Global {
	g := h.mi.ExportedGlobal(name)
	if g == nil {
		return nil
	}
	if g.Type.Mutable {
		return &hostMutableGlobal{hostGlobal{g}}
	}
	return &hostGlobal{g}
}

func (h *hostModule) Close(context.Context) error { return nil }

type hostFunction struct {
	fn *wasm.FunctionInstance
	e  *Engine
}

func (h *hostFunction) Definition() api.FunctionDefinition { return &hostFuncDef{h.fn} }

func (h *hostFunction) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return h.e.Call(ctx, h.fn, params)
}

// hostFuncDef describes an exported function after instantiation. Import
// always reports false: a FunctionInstance does not record whether the
// module exporting it imported it.
type hostFuncDef struct{ fn *wasm.FunctionInstance }

func (d *hostFuncDef) ModuleName() string {
	if d.fn.Module == nil {
		return ""
	}
	return d.fn.Module.Name
}
func (d *hostFuncDef) Index() uint32       { return d.fn.Idx }
func (d *hostFuncDef) Name() string        { return d.fn.DebugName }
func (d *hostFuncDef) DebugName() string   { return d.fn.DebugName }
func (d *hostFuncDef) Import() (string, string, bool) {
	return "", "", false
}
func (d *hostFuncDef) ExportNames() []string {
	if d.fn.Module == nil {
		return nil
	}
	var names []string
	for name, exp := range d.fn.Module.Exports {
		if exp.Type == api.ExternTypeFunc && exp.Function == d.fn {
			names = append(names, name)
		}
	}
	return names
}
func (d *hostFuncDef) GoFunc() *reflect.Value { return d.fn.GoFunc }
func (d *hostFuncDef) ParamTypes() []api.ValueType  { return d.fn.Type.Params }
func (d *hostFuncDef) ResultTypes() []api.ValueType { return d.fn.Type.Results }

type hostMemory struct{ m *wasm.MemoryInstance }

func (h *hostMemory) Size(context.Context) uint32 { return h.m.PageSize() }
func (h *hostMemory) Grow(_ context.Context, delta uint32) (uint32, bool) {
	return h.m.Grow(delta)
}
func (h *hostMemory) ReadByte(_ context.Context, offset uint32) (byte, bool) {
	b, ok := h.m.Read(offset, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}
func (h *hostMemory) ReadUint16Le(_ context.Context, offset uint32) (uint16, bool) {
	b, ok := h.m.Read(offset, 2)
	if !ok {
		return 0, false
	}
	return le16(b), true
}
func (h *hostMemory) ReadUint32Le(_ context.Context, offset uint32) (uint32, bool) {
	b, ok := h.m.Read(offset, 4)
	if !ok {
		return 0, false
	}
	return le32(b), true
}
func (h *hostMemory) ReadFloat32Le(ctx context.Context, offset uint32) (float32, bool) {
	v, ok := h.ReadUint32Le(ctx, offset)
	return api.DecodeF32(uint64(v)), ok
}
func (h *hostMemory) ReadUint64Le(_ context.Context, offset uint32) (uint64, bool) {
	b, ok := h.m.Read(offset, 8)
	if !ok {
		return 0, false
	}
	return le64(b), true
}
func (h *hostMemory) ReadFloat64Le(ctx context.Context, offset uint32) (float64, bool) {
	v, ok := h.ReadUint64Le(ctx, offset)
	return api.DecodeF64(v), ok
}
func (h *hostMemory) Read(_ context.Context, offset, byteCount uint32) ([]byte, bool) {
	return h.m.Read(offset, byteCount)
}
func (h *hostMemory) WriteByte(_ context.Context, offset uint32, v byte) bool {
	return h.m.Write(offset, []byte{v})
}
func (h *hostMemory) WriteUint16Le(_ context.Context, offset uint32, v uint16) bool {
	return h.m.Write(offset, []byte{byte(v), byte(v >> 8)})
}
func (h *hostMemory) WriteUint32Le(_ context.Context, offset, v uint32) bool {
	return h.m.Write(offset, []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}
func (h *hostMemory) WriteFloat32Le(ctx context.Context, offset uint32, v float32) bool {
	return h.WriteUint32Le(ctx, offset, uint32(api.EncodeF32(v)))
}
func (h *hostMemory) WriteUint64Le(_ context.Context, offset uint32, v uint64) bool {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return h.m.Write(offset, out)
}
func (h *hostMemory) WriteFloat64Le(ctx context.Context, offset uint32, v float64) bool {
	return h.WriteUint64Le(ctx, offset, api.EncodeF64(v))
}
func (h *hostMemory) Write(_ context.Context, offset uint32, v []byte) bool {
	return h.m.Write(offset, v)
}

type hostGlobal struct{ g *wasm.GlobalInstance }

func (h *hostGlobal) String() string             { return fmt.Sprintf("global(%v)", h.g.Get()) }
func (h *hostGlobal) Type() api.ValueType         { return h.g.Type.ValType }
func (h *hostGlobal) Get(context.Context) uint64  { return h.g.Get() }

// hostMutableGlobal additionally satisfies api.MutableGlobal; only returned
// by ExportedGlobal when the Wasm global declares itself mutable.
type hostMutableGlobal struct{ hostGlobal }

func (h *hostMutableGlobal) Set(_ context.Context, v uint64) { h.g.Set(v) }
