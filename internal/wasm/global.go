package wasm

// GlobalInstance is a global variable's runtime representation: its type
// plus its current 64-bit encoded value (spec.md §5, global-instances).
// Mutation is only permitted when Type.Mutable is true; validate.go
// enforces that statically for module code, and neither the interpreter's
// global.set nor Set checks it at run time.
type GlobalInstance struct {
	Type *GlobalType
	Val  uint64
}

// Get and Set back the api.Global and api.MutableGlobal adapters in
// internal/engine/interpreter, which expose a GlobalInstance publicly
// without exposing the internal package.

func (g *GlobalInstance) Get() uint64 { return g.Val }

func (g *GlobalInstance) Set(v uint64) {
	g.Val = v
}
