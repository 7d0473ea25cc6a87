package wazerolite

import (
	"context"

	"go.uber.org/zap"

	"github.com/tetrawasm/wazerolite/internal/rtlog"
	"github.com/tetrawasm/wazerolite/internal/wasm"
)

// RuntimeConfig controls Runtime behavior. The zero value is not usable;
// construct one with NewRuntimeConfig.
type RuntimeConfig struct {
	ctx            context.Context
	memoryMaxPages uint32
	logger         *rtlog.Logger
}

// NewRuntimeConfig returns the default configuration: every proposal
// SPEC_FULL.md folds into the baseline format is enabled unconditionally
// (mutable-globals, bulk-memory, reference-types, multi-value,
// sign-extension, non-trapping-float-to-int all apply; there is no
// feature-gating knob because the decoder/validator/interpreter treat them
// as part of the binary format, not an opt-in proposal).
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		ctx:            context.Background(),
		memoryMaxPages: wasm.MemoryMaxPages,
		logger:         rtlog.Nop(),
	}
}

func (c *RuntimeConfig) clone() *RuntimeConfig {
	ret := *c
	return &ret
}

// WithContext sets the default context used for instantiation and the
// start function, when a caller passes nil. Defaults to context.Background.
func (c *RuntimeConfig) WithContext(ctx context.Context) *RuntimeConfig {
	if ctx == nil {
		ctx = context.Background()
	}
	ret := c.clone()
	ret.ctx = ctx
	return ret
}

// WithMemoryMaxPages reduces the maximum number of pages a module's memory
// can grow to from 65536 pages (4GiB) to a lower value, applied whenever a
// memory declares no explicit max.
func (c *RuntimeConfig) WithMemoryMaxPages(memoryMaxPages uint32) *RuntimeConfig {
	ret := c.clone()
	ret.memoryMaxPages = memoryMaxPages
	return ret
}

// WithLogger attaches a *zap.Logger for instantiation/invocation lifecycle
// events (module instantiated, start function invoked, trap surfaced).
// Defaults to a no-op logger, so library use without an embedder-supplied
// logger stays silent.
func (c *RuntimeConfig) WithLogger(z *zap.Logger) *RuntimeConfig {
	ret := c.clone()
	ret.logger = rtlog.New(z)
	return ret
}

// ModuleConfig configures a single Runtime.InstantiateModule call.
type ModuleConfig struct {
	name string
}

// NewModuleConfig returns a ModuleConfig with no name override: the
// instantiated module keeps whatever name DecodeModule's custom name
// section produced, or "" for a host module built without WithName.
func NewModuleConfig() *ModuleConfig {
	return &ModuleConfig{}
}

// WithName overrides the name the module is instantiated and registered
// under, which is also the module name other modules import it by.
func (c *ModuleConfig) WithName(name string) *ModuleConfig {
	ret := *c
	ret.name = name
	return &ret
}
