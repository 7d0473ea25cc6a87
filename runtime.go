// Package wazerolite is a standalone WebAssembly 1.0 runtime: a decoder,
// validator, and stack-machine interpreter, with linking against host- and
// module-provided imports.
package wazerolite

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/engine/interpreter"
	"github.com/tetrawasm/wazerolite/internal/rtlog"
	"github.com/tetrawasm/wazerolite/internal/wasm"
)

// Runtime compiles and instantiates WebAssembly modules, and builds host
// modules for them to import.
//
//	ctx := context.Background()
//	r := wazerolite.NewRuntime(ctx)
//	defer r.Close(ctx)
//
//	module, err := r.Instantiate(ctx, binary)
type Runtime interface {
	// NewHostModuleBuilder begins definition of a host module, so that a
	// WebAssembly binary can import its functions and memory.
	NewHostModuleBuilder(moduleName string) HostModuleBuilder

	// CompileModule decodes and validates a WebAssembly 1.0 binary, without
	// instantiating it. The result may be instantiated more than once.
	CompileModule(ctx context.Context, binary []byte) (CompiledModule, error)

	// InstantiateModule links compiled against every module previously
	// instantiated by this Runtime (by name), runs its start function if
	// declared, and registers the result under mc's name for later
	// imports.
	InstantiateModule(ctx context.Context, compiled CompiledModule, mc *ModuleConfig) (api.Module, error)

	// Instantiate is a convenience that calls CompileModule then
	// InstantiateModule with NewModuleConfig().
	Instantiate(ctx context.Context, binary []byte) (api.Module, error)

	// Close closes every module this Runtime instantiated.
	Close(ctx context.Context) error
}

// CompiledModule is a WebAssembly 1.0 module decoded and validated, ready
// to be instantiated by Runtime.InstantiateModule.
type CompiledModule interface {
	// ImportedFunctions lists the functions this module imports, in
	// import-section order.
	ImportedFunctions() []api.FunctionDefinition

	// ExportedFunctions lists the functions this module exports, in
	// export-section order.
	ExportedFunctions() []api.FunctionDefinition

	// Close releases resources held by this CompiledModule.
	Close(ctx context.Context) error
}

type runtime struct {
	mux            sync.Mutex
	memoryMaxPages uint32
	ctx            context.Context
	logger         *rtlog.Logger
	engine         *interpreter.Engine

	// instances is every module this Runtime has instantiated, in
	// registration order; later entries shadow earlier ones of the same
	// name when resolving an import (spec.md §4.3.1).
	instances []*wasm.ModuleInstance
	modules   []api.Module
}

// NewRuntime constructs a Runtime with NewRuntimeConfig's defaults.
func NewRuntime(ctx context.Context) Runtime {
	return NewRuntimeWithConfig(ctx, NewRuntimeConfig())
}

// NewRuntimeWithConfig constructs a Runtime per the given RuntimeConfig.
func NewRuntimeWithConfig(ctx context.Context, cfg *RuntimeConfig) Runtime {
	if cfg == nil {
		cfg = NewRuntimeConfig()
	}
	if ctx == nil {
		ctx = cfg.ctx
	}
	return &runtime{
		ctx:            ctx,
		memoryMaxPages: cfg.memoryMaxPages,
		logger:         cfg.logger,
		engine:         interpreter.New(),
	}
}

func (r *runtime) CompileModule(ctx context.Context, binary []byte) (CompiledModule, error) {
	m, err := wasm.DecodeModule(binary)
	if err != nil {
		return nil, err
	}
	if err := wasm.ValidateModule(m); err != nil {
		return nil, err
	}
	return &wasmCompiledModule{module: m}, nil
}

func (r *runtime) Instantiate(ctx context.Context, binary []byte) (api.Module, error) {
	compiled, err := r.CompileModule(ctx, binary)
	if err != nil {
		return nil, err
	}
	return r.InstantiateModule(ctx, compiled, NewModuleConfig())
}

func (r *runtime) InstantiateModule(ctx context.Context, compiled CompiledModule, mc *ModuleConfig) (api.Module, error) {
	if ctx == nil {
		ctx = r.ctx
	}
	if mc == nil {
		mc = NewModuleConfig()
	}

	switch c := compiled.(type) {
	case *hostCompiledModule:
		return r.registerHostModule(c, mc)
	case *wasmCompiledModule:
		return r.instantiateWasm(ctx, c, mc)
	default:
		return nil, fmt.Errorf("wazerolite: unsupported CompiledModule implementation %T", compiled)
	}
}

func (r *runtime) registerHostModule(c *hostCompiledModule, mc *ModuleConfig) (api.Module, error) {
	name := mc.name
	if name == "" {
		name = c.instance.Name
	}
	clone := *c.instance
	clone.Name = name
	mi := &clone

	r.mux.Lock()
	r.instances = append(r.instances, mi)
	r.mux.Unlock()

	mod := r.engine.Wrap(mi)
	r.modules = append(r.modules, mod)
	r.logger.ModuleInstantiated(name)
	return mod, nil
}

func (r *runtime) instantiateWasm(ctx context.Context, c *wasmCompiledModule, mc *ModuleConfig) (api.Module, error) {
	name := mc.name
	if name == "" && c.module.NameSection != nil {
		name = c.module.NameSection.ModuleName
	}

	r.mux.Lock()
	sets := make([]*wasm.ImportSet, len(r.instances))
	for i, mi := range r.instances {
		sets[i] = wasm.AsImportSet(mi, mi.Name)
	}
	r.mux.Unlock()

	boundedModule := c.module
	if c.module.HasMemory() {
		boundedModule = boundMemoryMax(c.module, r.memoryMaxPages)
	}

	mi, err := wasm.Instantiate(ctx, boundedModule, name, sets, r.engine)
	if err != nil {
		return nil, err
	}

	r.mux.Lock()
	r.instances = append(r.instances, mi)
	r.mux.Unlock()

	mod := r.engine.Wrap(mi)
	r.modules = append(r.modules, mod)
	r.logger.ModuleInstantiated(name)
	if c.module.StartSection != nil {
		r.logger.StartFunctionInvoked(name)
	}
	return mod, nil
}

// boundMemoryMax shallow-copies module's memory section, defaulting any
// memory with no declared max to the runtime's configured ceiling rather
// than the hard 65536-page limit.
func boundMemoryMax(module *wasm.Module, memoryMaxPages uint32) *wasm.Module {
	if memoryMaxPages == wasm.MemoryMaxPages || len(module.MemorySection) == 0 {
		return module
	}
	mt := *module.MemorySection[0]
	if mt.Limits.Max == nil {
		max := memoryMaxPages
		mt.Limits.Max = &max
	}
	ret := *module
	ret.MemorySection = []*wasm.MemoryType{&mt}
	return &ret
}

func (r *runtime) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = r.ctx
	}
	r.mux.Lock()
	modules := r.modules
	r.modules = nil
	r.instances = nil
	r.mux.Unlock()

	for _, m := range modules {
		name := m.Name()
		if err := m.Close(ctx); err != nil {
			return err
		}
		r.logger.Closed(name)
	}
	return nil
}

// wasmCompiledModule is the CompiledModule produced by CompileModule: a
// decoded and validated *wasm.Module, not yet bound to any imports.
type wasmCompiledModule struct {
	module *wasm.Module
}

func (c *wasmCompiledModule) ImportedFunctions() []api.FunctionDefinition {
	var defs []api.FunctionDefinition
	funcIdx := uint32(0)
	for _, imp := range c.module.ImportSection {
		if imp.Type != api.ExternTypeFunc {
			continue
		}
		defs = append(defs, &preInstanceFuncDefinition{
			module: c.module, imp: imp, idx: funcIdx,
		})
		funcIdx++
	}
	return defs
}

func (c *wasmCompiledModule) ExportedFunctions() []api.FunctionDefinition {
	var defs []api.FunctionDefinition
	for _, exp := range c.module.ExportSection {
		if exp.Type != api.ExternTypeFunc {
			continue
		}
		defs = append(defs, &preInstanceFuncDefinition{module: c.module, idx: exp.Index, exportName: exp.Name})
	}
	return defs
}

func (c *wasmCompiledModule) Close(context.Context) error { return nil }

// preInstanceFuncDefinition describes a function by its position in a
// decoded (not yet instantiated) Module's function index space: there is
// no FunctionInstance yet to wrap, so this reads directly from the Module
// and its ExportSection/ImportSection.
type preInstanceFuncDefinition struct {
	module     *wasm.Module
	imp        *wasm.Import // non-nil when this entry came from ImportedFunctions
	idx        uint32
	exportName string
}

func (d *preInstanceFuncDefinition) ModuleName() string {
	if d.imp != nil {
		return d.imp.Module
	}
	return ""
}

func (d *preInstanceFuncDefinition) Index() uint32 { return d.idx }

func (d *preInstanceFuncDefinition) Name() string {
	if d.imp != nil {
		return d.imp.Name
	}
	if d.module.NameSection != nil {
		if n, ok := d.module.NameSection.FunctionNames[d.idx]; ok {
			return n
		}
	}
	return d.exportName
}

func (d *preInstanceFuncDefinition) DebugName() string {
	if name := d.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("func[%d]", d.idx)
}

func (d *preInstanceFuncDefinition) Import() (string, string, bool) {
	if d.imp != nil {
		return d.imp.Module, d.imp.Name, true
	}
	return "", "", false
}

func (d *preInstanceFuncDefinition) ExportNames() []string {
	var names []string
	for _, exp := range d.module.ExportSection {
		if exp.Type == api.ExternTypeFunc && exp.Index == d.idx {
			names = append(names, exp.Name)
		}
	}
	return names
}

func (d *preInstanceFuncDefinition) GoFunc() *reflect.Value { return nil }

func (d *preInstanceFuncDefinition) ParamTypes() []api.ValueType {
	return d.module.TypeOfFunc(d.idx).Params
}

func (d *preInstanceFuncDefinition) ResultTypes() []api.ValueType {
	return d.module.TypeOfFunc(d.idx).Results
}
