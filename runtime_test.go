package wazerolite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetrawasm/wazerolite"
	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/leb128"
)

// The following byte-slice helpers build a minimal WebAssembly binary by
// hand, the same way wasm/binary's own tests avoid checked-in .wasm fixture
// files. This is independent of internal/wasm's own unexported test
// helpers, which are not visible from this package.

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionExport   = 7
	sectionCode     = 10

	valTypeI32 = 0x7f
	externFunc = 0x00

	voidBlockType = 0x40

	opBlock    = 0x02
	opIf       = 0x04
	opElse     = 0x05
	opEnd      = 0x0b
	opBr       = 0x0c
	opBrTable  = 0x0e
	opReturn   = 0x0f
	opCall     = 0x10
	opLocalGet = 0x20
	opI32Const = 0x41
	opI32Eqz   = 0x45
	opI32Add   = 0x6a
	opI32Sub   = 0x6b
	opI32Mul   = 0x6c
	opI32DivS  = 0x6d
)

func i32Const(v int32) []byte { return append([]byte{opI32Const}, leb128.EncodeInt32(v)...) }

// funcType encodes a single (params...) -> (results...) entry for a type
// section, following addModule's inline pattern.
func funcType(params, results []byte) []byte {
	out := append([]byte{0x60}, u32(uint32(len(params)))...)
	out = append(out, params...)
	out = append(out, u32(uint32(len(results)))...)
	return append(out, results...)
}

// oneFuncModule wires a single function of the given signature and body as
// both the sole function and the module's "run" export.
func oneFuncModule(params, results, body []byte) []byte {
	typeSec := wasmSection(sectionType, append(u32(1), funcType(params, results)...))
	funcSec := wasmSection(sectionFunction, append(u32(1), u32(0)...))
	codePayload := append(u32(1), append(u32(uint32(len(body)+1)), append(u32(0), body...)...)...)
	codeSec := wasmSection(sectionCode, codePayload)
	exportPayload := append(u32(1), append(name("run"), externFunc)...)
	exportPayload = append(exportPayload, u32(0)...)
	exportSec := wasmSection(sectionExport, exportPayload)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, typeSec...)
	out = append(out, funcSec...)
	out = append(out, exportSec...)
	out = append(out, codeSec...)
	return out
}

func u32(v uint32) []byte { return leb128.EncodeUint32(v) }

func name(s string) []byte { return append(u32(uint32(len(s))), s...) }

func wasmSection(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, u32(uint32(len(payload)))...)
	return append(out, payload...)
}

// addModule encodes a module exporting a single function "add" of type
// (i32, i32) -> i32 that returns the sum of its parameters.
func addModule() []byte {
	typeSec := wasmSection(sectionType, append(
		append(u32(1), 0x60),
		append(append(u32(2), valTypeI32, valTypeI32), append(u32(1), valTypeI32)...)...,
	))
	funcSec := wasmSection(sectionFunction, append(u32(1), u32(0)...))
	body := []byte{opLocalGet, 0x00, opLocalGet, 0x01, opI32Add, opEnd}
	codePayload := append(u32(1), append(u32(uint32(len(body)+1)), append(u32(0), body...)...)...)
	codeSec := wasmSection(sectionCode, codePayload)
	exportPayload := append(u32(1), append(name("add"), externFunc)...)
	exportPayload = append(exportPayload, u32(0)...)
	exportSec := wasmSection(sectionExport, exportPayload)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, typeSec...)
	out = append(out, funcSec...)
	out = append(out, exportSec...)
	out = append(out, codeSec...)
	return out
}

func TestRuntime_InstantiateAndCall(t *testing.T) {
	ctx := context.Background()
	rt := wazerolite.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, addModule())
	require.NoError(t, err)

	fn := mod.ExportedFunction("add")
	require.NotNil(t, fn)
	results, err := fn.Call(ctx, 2, 3)
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, results)
}

func TestRuntime_HostModuleImportedByWasm(t *testing.T) {
	ctx := context.Background()
	rt := wazerolite.NewRuntime(ctx)
	defer rt.Close(ctx)

	var called int32
	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, x, y int32) int32 {
			called = x + y
			return x + y
		}).
		Export("add").
		Instantiate(ctx)
	require.NoError(t, err)

	compiled, err := rt.CompileModule(ctx, importAddModule())
	require.NoError(t, err)

	mc := wazerolite.NewModuleConfig().WithName("caller")
	mod, err := rt.InstantiateModule(ctx, compiled, mc)
	require.NoError(t, err)

	fn := mod.ExportedFunction("call_add")
	require.NotNil(t, fn)
	results, err := fn.Call(ctx, 4, 6)
	require.NoError(t, err)
	require.Equal(t, []uint64{10}, results)
	require.Equal(t, int32(10), called)
}

// importAddModule encodes a module that imports env.add (i32,i32)->i32 and
// re-exports it verbatim as "call_add".
func importAddModule() []byte {
	typeSec := wasmSection(sectionType, append(
		append(u32(1), 0x60),
		append(append(u32(2), valTypeI32, valTypeI32), append(u32(1), valTypeI32)...)...,
	))
	importPayload := append(append(u32(1), name("env")...), name("add")...)
	importPayload = append(importPayload, externFunc)
	importPayload = append(importPayload, u32(0)...)
	importSec := wasmSection(sectionImport, importPayload)
	exportPayload := append(u32(1), append(name("call_add"), externFunc)...)
	exportPayload = append(exportPayload, u32(0)...)
	exportSec := wasmSection(sectionExport, exportPayload)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, typeSec...)
	out = append(out, importSec...)
	out = append(out, exportSec...)
	return out
}

// TestRuntime_RecursiveFactorial exercises self-recursive Wasm-to-Wasm calls
// through if/else, matching spec.md §8 scenario 2.
//
//	fac(n) = n == 0 ? 1 : n * fac(n - 1)
func TestRuntime_RecursiveFactorial(t *testing.T) {
	body := []byte{opLocalGet, 0x00}
	body = append(body, opI32Eqz)
	body = append(body, opIf, valTypeI32)
	body = append(body, i32Const(1)...)
	body = append(body, opElse)
	body = append(body, opLocalGet, 0x00)
	body = append(body, opLocalGet, 0x00)
	body = append(body, i32Const(1)...)
	body = append(body, opI32Sub)
	body = append(body, opCall)
	body = append(body, u32(0)...)
	body = append(body, opI32Mul)
	body = append(body, opEnd) // end if
	body = append(body, opEnd) // end function

	ctx := context.Background()
	rt := wazerolite.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, oneFuncModule([]byte{valTypeI32}, []byte{valTypeI32}, body))
	require.NoError(t, err)

	fn := mod.ExportedFunction("run")
	results, err := fn.Call(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, []uint64{120}, results)
}

// TestRuntime_BrTableFallback matches spec.md §8 scenario 3: operand 0
// branches to the innermost label (result 0x1337), operand 1 branches to
// the outer label (result 0xBEEF), and any out-of-range operand takes the
// table's default target, which is also the innermost label.
func TestRuntime_BrTableFallback(t *testing.T) {
	body := []byte{opBlock, voidBlockType}
	body = append(body, opBlock, voidBlockType)
	body = append(body, opLocalGet, 0x00)
	body = append(body, opBrTable)
	body = append(body, u32(2)...)
	body = append(body, u32(0)...)
	body = append(body, u32(1)...)
	body = append(body, u32(0)...) // default target: depth 0
	body = append(body, opEnd)     // end of inner label (depth 0)
	body = append(body, i32Const(0x1337)...)
	body = append(body, opReturn)
	body = append(body, opEnd) // end of outer label (depth 1)
	body = append(body, i32Const(0xBEEF)...)
	body = append(body, opEnd) // end of function

	ctx := context.Background()
	rt := wazerolite.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, oneFuncModule([]byte{valTypeI32}, []byte{valTypeI32}, body))
	require.NoError(t, err)
	fn := mod.ExportedFunction("run")

	results, err := fn.Call(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []uint64{0x1337}, results)

	results, err = fn.Call(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []uint64{0xBEEF}, results)

	results, err = fn.Call(ctx, 99) // out of table range, hits the default
	require.NoError(t, err)
	require.Equal(t, []uint64{0x1337}, results)
}

// TestRuntime_TrapIntegerDivisionByZero matches spec.md §8 scenario 5.
func TestRuntime_TrapIntegerDivisionByZero(t *testing.T) {
	body := []byte{opLocalGet, 0x00, opLocalGet, 0x01, opI32DivS, opEnd}

	ctx := context.Background()
	rt := wazerolite.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.Instantiate(ctx, oneFuncModule([]byte{valTypeI32, valTypeI32}, []byte{valTypeI32}, body))
	require.NoError(t, err)

	fn := mod.ExportedFunction("run")
	_, err = fn.Call(ctx, 1, 0)
	require.Error(t, err)
	trap, ok := err.(*api.Trap)
	require.Truef(t, ok, "expected *api.Trap, got %T", err)
	require.Equal(t, api.KindTrap, trap.Kind)
	require.Equal(t, api.ReasonIntegerDivisionByZero, trap.Reason)
	require.Equal(t, "integer divide by zero", trap.Error())
}

// TestRuntime_UnlinkableImport matches spec.md §8 scenario 6: an unresolved
// import fails with ReasonUnknownImport, and one resolved against a
// mismatched signature fails with ReasonIncompatibleImportType.
func TestRuntime_UnlinkableImport(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown import", func(t *testing.T) {
		rt := wazerolite.NewRuntime(ctx)
		defer rt.Close(ctx)

		_, err := rt.Instantiate(ctx, importFModule())
		require.Error(t, err)
		e, ok := err.(*api.Error)
		require.Truef(t, ok, "expected *api.Error, got %T", err)
		require.Equal(t, api.KindUnlinkable, e.Kind)
		require.Equal(t, api.ReasonUnknownImport, e.Reason)
	})

	t.Run("incompatible signature", func(t *testing.T) {
		rt := wazerolite.NewRuntime(ctx)
		defer rt.Close(ctx)

		_, err := rt.NewHostModuleBuilder("env").
			NewFunctionBuilder().
			WithFunc(func(ctx context.Context, x int32) int32 { return x }).
			Export("f").
			Instantiate(ctx)
		require.NoError(t, err)

		_, err = rt.Instantiate(ctx, importFModule())
		require.Error(t, err)
		e, ok := err.(*api.Error)
		require.Truef(t, ok, "expected *api.Error, got %T", err)
		require.Equal(t, api.KindUnlinkable, e.Kind)
		require.Equal(t, api.ReasonIncompatibleImportType, e.Reason)
	})
}

// importFModule encodes a module declaring a single nullary import
// "env"."f", with no other sections.
func importFModule() []byte {
	typeSec := wasmSection(sectionType, append(u32(1), funcType(nil, nil)...))
	importPayload := append(append(u32(1), name("env")...), name("f")...)
	importPayload = append(importPayload, externFunc)
	importPayload = append(importPayload, u32(0)...)
	importSec := wasmSection(sectionImport, importPayload)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, typeSec...)
	out = append(out, importSec...)
	return out
}
