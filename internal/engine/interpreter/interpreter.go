// Package interpreter is the stack-machine execution engine: it implements
// internal/wasm.Engine, the sole extension point internal/wasm depends on.
package interpreter

import (
	"context"
	"reflect"

	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/wasm"
)

// defaultMaxCallDepth bounds Wasm-to-Wasm call nesting; exceeding it traps
// with ReasonStackExhausted rather than risking a Go stack overflow, since
// callWasm recurses into e.callFunction for every call/call_indirect
// (spec.md §4.4 "call-stack-depth guard").
const defaultMaxCallDepth = 1 << 16

// Engine is internal/wasm.Engine's concrete implementation: a Wasm 1.0
// interpreter driven entirely by the continuation tables computed once at
// decode time, with no separate bytecode-compilation pass.
type Engine struct {
	maxCallDepth int
}

// New constructs an Engine with the default call-stack-depth guard.
func New() *Engine {
	return &Engine{maxCallDepth: defaultMaxCallDepth}
}

// Call invokes fn with params, dispatching to the interpreter loop for a
// Wasm-defined function or to reflect-based host dispatch for one the host
// provided (spec.md §4.4, §4.5).
func (e *Engine) Call(ctx context.Context, fn *wasm.FunctionInstance, params []uint64) ([]uint64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return e.callFunction(ctx, fn, params, 0)
}

func (e *Engine) callFunction(ctx context.Context, fn *wasm.FunctionInstance, params []uint64, depth int) ([]uint64, error) {
	if depth > e.maxCallDepth {
		return nil, api.NewTrap(api.ReasonStackExhausted, "")
	}
	if fn.Kind == wasm.FunctionKindGoFunc {
		return e.callHost(ctx, fn, params)
	}
	return e.callWasm(ctx, fn, params, depth)
}

// callHost invokes a host function via reflection: GoFunc's signature is
// (context.Context[, api.Module], <params>...) (<results>...), matching
// FunctionInstance.PassesModule and fn.Type element-wise.
func (e *Engine) callHost(ctx context.Context, fn *wasm.FunctionInstance, params []uint64) (results []uint64, err error) {
	fv := *fn.GoFunc
	ft := fv.Type()

	argOffset := 1 // skip leading context.Context
	in := make([]reflect.Value, ft.NumIn())
	in[0] = reflect.ValueOf(ctx)
	if fn.PassesModule {
		in[1] = reflect.ValueOf(&hostModule{mi: fn.Module, e: e})
		argOffset = 2
	}
	for i, vt := range fn.Type.Params {
		in[argOffset+i] = decodeArg(ft.In(argOffset+i), vt, params[i])
	}

	defer func() {
		if r := recover(); r != nil {
			err = api.NewTrap(api.ReasonUnreachable, "host function panicked: %v", r)
		}
	}()
	out := fv.Call(in)

	results = make([]uint64, len(out))
	for i, v := range out {
		results[i] = encodeResult(fn.Type.Results[i], v)
	}
	return results, nil
}

func decodeArg(goType reflect.Type, vt wasm.ValueType, raw uint64) reflect.Value {
	switch vt {
	case wasm.ValueTypeF32:
		return reflect.ValueOf(api.DecodeF32(raw)).Convert(goType)
	case wasm.ValueTypeF64:
		return reflect.ValueOf(api.DecodeF64(raw)).Convert(goType)
	case wasm.ValueTypeFuncref, wasm.ValueTypeExternref:
		return reflect.ValueOf(uintptr(raw)).Convert(goType)
	default: // i32/i64
		switch goType.Kind() {
		case reflect.Int32:
			return reflect.ValueOf(int32(uint32(raw))).Convert(goType)
		case reflect.Uint32:
			return reflect.ValueOf(uint32(raw)).Convert(goType)
		case reflect.Int64, reflect.Int:
			return reflect.ValueOf(int64(raw)).Convert(goType)
		default:
			return reflect.ValueOf(raw).Convert(goType)
		}
	}
}

func encodeResult(vt wasm.ValueType, v reflect.Value) uint64 {
	switch vt {
	case wasm.ValueTypeF32:
		return api.EncodeF32(float32(v.Float()))
	case wasm.ValueTypeF64:
		return api.EncodeF64(v.Float())
	case wasm.ValueTypeFuncref, wasm.ValueTypeExternref:
		return uint64(v.Uint())
	default:
		switch v.Kind() {
		case reflect.Int32, reflect.Int64, reflect.Int:
			return uint64(v.Int())
		default:
			return v.Uint()
		}
	}
}
