package wazerolite

import (
	"context"
	"fmt"
	"reflect"

	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/wasm"
)

// HostFunctionBuilder defines one host function (in Go) for export from a
// HostModuleBuilder, so that an instantiated Wasm module can import and
// call it.
//
// Here's an example addition function:
//
//	hostModuleBuilder.NewFunctionBuilder().
//		WithFunc(func(ctx context.Context, x, y uint32) uint32 {
//			return x + y
//		}).
//		Export("add")
//
// Except for the leading context.Context and an optional api.Module as the
// second parameter, every parameter and result type must map to a
// WebAssembly numeric value type: uint32, int32, uint64, int64, float32, or
// float64.
type HostFunctionBuilder interface {
	// WithFunc uses reflect.Value to map a go func to a WebAssembly
	// compatible signature. Supplying a non-func fails at Export.
	WithFunc(fn interface{}) HostFunctionBuilder

	// WithName defines the optional module-local name of this function,
	// used in debug output. Defaults to the export name.
	WithName(name string) HostFunctionBuilder

	// Export exports this function from the HostModuleBuilder under name.
	Export(name string) HostModuleBuilder
}

// HostModuleBuilder defines host functions (in Go), so that a WebAssembly
// binary can import and use them.
//
//	ctx := context.Background()
//	r := wazerolite.NewRuntime(ctx)
//	defer r.Close(ctx)
//
//	env, _ := r.NewHostModuleBuilder("env").
//		NewFunctionBuilder().WithFunc(func() { println("hello!") }).Export("hello").
//		Instantiate(ctx)
type HostModuleBuilder interface {
	// ExportMemory adds linear memory, which a WebAssembly module can
	// import and become available via api.Memory.
	ExportMemory(name string, minPages uint32) HostModuleBuilder

	// ExportMemoryWithMax is like ExportMemory, but bounds how far the
	// memory can grow.
	ExportMemoryWithMax(name string, minPages, maxPages uint32) HostModuleBuilder

	// NewFunctionBuilder begins the definition of a host function.
	NewFunctionBuilder() HostFunctionBuilder

	// Compile returns a CompiledModule that Runtime.InstantiateModule can
	// instantiate, possibly more than once.
	Compile(ctx context.Context) (CompiledModule, error)

	// Instantiate is a convenience that calls Compile, then
	// Runtime.InstantiateModule with NewModuleConfig().
	Instantiate(ctx context.Context) (api.Module, error)
}

type hostModuleBuilder struct {
	r           *runtime
	moduleName  string
	exportNames []string
	functions   map[string]*wasm.FunctionInstance
	memories    map[string]*wasm.MemoryType
}

func (r *runtime) NewHostModuleBuilder(moduleName string) HostModuleBuilder {
	return &hostModuleBuilder{
		r:          r,
		moduleName: moduleName,
		functions:  map[string]*wasm.FunctionInstance{},
		memories:   map[string]*wasm.MemoryType{},
	}
}

func (b *hostModuleBuilder) ExportMemory(name string, minPages uint32) HostModuleBuilder {
	b.memories[name] = &wasm.MemoryType{Limits: wasm.Limits{Min: minPages}}
	return b
}

func (b *hostModuleBuilder) ExportMemoryWithMax(name string, minPages, maxPages uint32) HostModuleBuilder {
	max := maxPages
	b.memories[name] = &wasm.MemoryType{Limits: wasm.Limits{Min: minPages, Max: &max}}
	return b
}

func (b *hostModuleBuilder) NewFunctionBuilder() HostFunctionBuilder {
	return &hostFunctionBuilder{b: b}
}

func (b *hostModuleBuilder) addExport(name string, fn *wasm.FunctionInstance) {
	if _, ok := b.functions[name]; !ok {
		b.exportNames = append(b.exportNames, name)
	}
	b.functions[name] = fn
}

func (b *hostModuleBuilder) Compile(ctx context.Context) (CompiledModule, error) {
	mi := &wasm.ModuleInstance{
		Name:    b.moduleName,
		Exports: map[string]*wasm.ExportInstance{},
	}
	for i, name := range b.exportNames {
		fn := b.functions[name]
		fn.Idx = uint32(i)
		fn.Module = mi
		mi.Functions = append(mi.Functions, fn)
		mi.Exports[name] = &wasm.ExportInstance{Type: api.ExternTypeFunc, Function: fn}
	}
	for name, mt := range b.memories {
		if mi.Memory == nil { // spec.md §3: at most one memory per module
			mi.Memory = wasm.NewMemoryInstance(mt)
		}
		mi.Exports[name] = &wasm.ExportInstance{Type: api.ExternTypeMemory, Memory: mi.Memory}
	}
	return &hostCompiledModule{instance: mi}, nil
}

func (b *hostModuleBuilder) Instantiate(ctx context.Context) (api.Module, error) {
	compiled, err := b.Compile(ctx)
	if err != nil {
		return nil, err
	}
	return b.r.InstantiateModule(ctx, compiled, NewModuleConfig().WithName(b.moduleName))
}

type hostFunctionBuilder struct {
	b    *hostModuleBuilder
	fn   interface{}
	name string
}

func (h *hostFunctionBuilder) WithFunc(fn interface{}) HostFunctionBuilder {
	h.fn = fn
	return h
}

func (h *hostFunctionBuilder) WithName(name string) HostFunctionBuilder {
	h.name = name
	return h
}

func (h *hostFunctionBuilder) Export(exportName string) HostModuleBuilder {
	fn, err := newHostFunctionInstance(h.fn, h.name, exportName)
	if err != nil {
		panic(fmt.Sprintf("wazerolite: %s.%s: %v", h.b.moduleName, exportName, err))
	}
	h.b.addExport(exportName, fn)
	return h.b
}

var moduleInterfaceType = reflect.TypeOf((*api.Module)(nil)).Elem()

// newHostFunctionInstance reflects fn's signature into a FunctionInstance:
// the leading context.Context is mandatory, an optional api.Module comes
// next, and every remaining parameter/result must map to a numeric Wasm
// value type.
func newHostFunctionInstance(fn interface{}, name, exportName string) (*wasm.FunctionInstance, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("not a function: %T", fn)
	}
	t := v.Type()
	if t.NumIn() < 1 || t.In(0) != reflect.TypeOf((*context.Context)(nil)).Elem() {
		return nil, fmt.Errorf("first parameter must be context.Context")
	}

	paramOffset := 1
	passesModule := false
	if t.NumIn() > 1 && t.In(1).Implements(moduleInterfaceType) {
		passesModule = true
		paramOffset = 2
	}

	params := make([]api.ValueType, t.NumIn()-paramOffset)
	for i := range params {
		vt, err := valueTypeOf(t.In(paramOffset + i))
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", paramOffset+i, err)
		}
		params[i] = vt
	}
	results := make([]api.ValueType, t.NumOut())
	for i := range results {
		vt, err := valueTypeOf(t.Out(i))
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		results[i] = vt
	}

	debugName := name
	if debugName == "" {
		debugName = exportName
	}
	return &wasm.FunctionInstance{
		DebugName:    debugName,
		Kind:         wasm.FunctionKindGoFunc,
		Type:         &wasm.FunctionType{Params: params, Results: results},
		GoFunc:       &v,
		PassesModule: passesModule,
	}, nil
}

func valueTypeOf(t reflect.Type) (api.ValueType, error) {
	switch t.Kind() {
	case reflect.Int32, reflect.Uint32:
		return api.ValueTypeI32, nil
	case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint:
		return api.ValueTypeI64, nil
	case reflect.Float32:
		return api.ValueTypeF32, nil
	case reflect.Float64:
		return api.ValueTypeF64, nil
	case reflect.Uintptr:
		return api.ValueTypeExternref, nil
	default:
		return 0, fmt.Errorf("unsupported Go type %s", t)
	}
}

// hostCompiledModule is the CompiledModule produced by HostModuleBuilder:
// its ModuleInstance is already fully built (host functions have no Wasm
// bytecode to decode/validate), so InstantiateModule only needs to clone it
// under the requested name and register it.
type hostCompiledModule struct {
	instance *wasm.ModuleInstance
}

func (c *hostCompiledModule) ImportedFunctions() []api.FunctionDefinition { return nil }

func (c *hostCompiledModule) ExportedFunctions() []api.FunctionDefinition {
	defs := make([]api.FunctionDefinition, 0, len(c.instance.Functions))
	for _, fn := range c.instance.Functions {
		defs = append(defs, &hostFuncDefinition{fn})
	}
	return defs
}

func (c *hostCompiledModule) Close(context.Context) error { return nil }

type hostFuncDefinition struct{ fn *wasm.FunctionInstance }

func (d *hostFuncDefinition) ModuleName() string { return d.fn.Module.Name }
func (d *hostFuncDefinition) Index() uint32      { return d.fn.Idx }
func (d *hostFuncDefinition) Name() string       { return d.fn.DebugName }
func (d *hostFuncDefinition) DebugName() string  { return d.fn.DebugName }
func (d *hostFuncDefinition) Import() (string, string, bool) {
	return "", "", false
}
func (d *hostFuncDefinition) ExportNames() []string {
	var names []string
	for name, exp := range d.fn.Module.Exports {
		if exp.Type == api.ExternTypeFunc && exp.Function == d.fn {
			names = append(names, name)
		}
	}
	return names
}
func (d *hostFuncDefinition) GoFunc() *reflect.Value       { return d.fn.GoFunc }
func (d *hostFuncDefinition) ParamTypes() []api.ValueType  { return d.fn.Type.Params }
func (d *hostFuncDefinition) ResultTypes() []api.ValueType { return d.fn.Type.Results }
