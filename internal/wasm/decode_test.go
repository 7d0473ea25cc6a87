package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetrawasm/wazerolite/api"
	"github.com/tetrawasm/wazerolite/internal/leb128"
)

// section builds one section: id, leb128 size, then payload.
func section(id SectionID, payload []byte) []byte {
	out := []byte{id}
	out = append(out, leb128.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

func u32(v uint32) []byte { return leb128.EncodeUint32(v) }

func name(s string) []byte { return append(u32(uint32(len(s))), s...) }

func encodeModule(sections ...[]byte) []byte {
	out := append([]byte{}, wasmMagic...)
	out = append(out, byte(wasmVersion), 0, 0, 0)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func addFuncType() []byte {
	payload := append([]byte{}, u32(1)...) // one type
	payload = append(payload, funcTypeSentinel)
	payload = append(payload, u32(2)...) // two params
	payload = append(payload, ValueTypeI32, ValueTypeI32)
	payload = append(payload, u32(1)...) // one result
	payload = append(payload, ValueTypeI32)
	return section(SectionIDType, payload)
}

func importAddSection() []byte {
	payload := append([]byte{}, u32(1)...) // one import
	payload = append(payload, name("env")...)
	payload = append(payload, name("add")...)
	payload = append(payload, ExternTypeFunc)
	payload = append(payload, u32(0)...) // type index 0
	return section(SectionIDImport, payload)
}

func exportAddSection() []byte {
	payload := append([]byte{}, u32(1)...) // one export
	payload = append(payload, name("add")...)
	payload = append(payload, ExternTypeFunc)
	payload = append(payload, u32(0)...) // func index 0 (the import)
	return section(SectionIDExport, payload)
}

func memorySection(limits ...uint32) []byte {
	payload := append([]byte{}, u32(uint32(len(limits)))...)
	for _, min := range limits {
		payload = append(payload, 0x00) // no max
		payload = append(payload, u32(min)...)
	}
	return section(SectionIDMemory, payload)
}

func tableSection(count uint32) []byte {
	payload := append([]byte{}, u32(count)...)
	for i := uint32(0); i < count; i++ {
		payload = append(payload, ValueTypeFuncref)
		payload = append(payload, 0x00)
		payload = append(payload, u32(0)...)
	}
	return section(SectionIDTable, payload)
}

func startSection(idx uint32) []byte {
	return section(SectionIDStart, u32(idx))
}

func TestDecodeModule_MagicAndVersion(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		_, err := DecodeModule([]byte{0x00})
		requireReason(t, err, api.KindMalformed, api.ReasonMagicSignature)
	})
	t.Run("bad magic", func(t *testing.T) {
		_, err := DecodeModule([]byte{1, 2, 3, 4, 1, 0, 0, 0})
		requireReason(t, err, api.KindMalformed, api.ReasonMagicSignature)
	})
	t.Run("bad version", func(t *testing.T) {
		buf := append([]byte{}, wasmMagic...)
		buf = append(buf, 2, 0, 0, 0)
		_, err := DecodeModule(buf)
		requireReason(t, err, api.KindMalformed, api.ReasonUnsupportedVersion)
	})
}

func TestDecodeModule_ImportAndExport(t *testing.T) {
	bin := encodeModule(addFuncType(), importAddSection(), exportAddSection())
	m, err := DecodeModule(bin)
	require.NoError(t, err)
	require.NoError(t, ValidateModule(m))

	require.Len(t, m.ImportSection, 1)
	require.Equal(t, "env", m.ImportSection[0].Module)
	require.Equal(t, "add", m.ImportSection[0].Name)

	require.Len(t, m.ExportSection, 1)
	require.Equal(t, "add", m.ExportSection[0].Name)

	ft := m.TypeOfFunc(0)
	require.Equal(t, []ValueType{ValueTypeI32, ValueTypeI32}, ft.Params)
	require.Equal(t, []ValueType{ValueTypeI32}, ft.Results)
}

func TestDecodeModule_MultipleMemories(t *testing.T) {
	bin := encodeModule(memorySection(1, 1))
	_, err := DecodeModule(bin)
	requireReason(t, err, api.KindValidation, api.ReasonMultipleMemories)
}

func TestDecodeModule_MultipleTables(t *testing.T) {
	bin := encodeModule(tableSection(2))
	_, err := DecodeModule(bin)
	requireReason(t, err, api.KindValidation, api.ReasonMultipleTables)
}

func TestDecodeModule_MultipleStartSections(t *testing.T) {
	bin := encodeModule(addFuncType(), importAddSection(), startSection(0), startSection(0))
	_, err := DecodeModule(bin)
	requireReason(t, err, api.KindMalformed, api.ReasonMultipleStartSections)
}

func TestDecodeModule_SectionOutOfOrder(t *testing.T) {
	// Export section before import section violates canonical ordering.
	bin := encodeModule(exportAddSection(), importAddSection())
	_, err := DecodeModule(bin)
	requireReason(t, err, api.KindMalformed, api.ReasonSectionID)
}

func requireReason(t *testing.T, err error, kind api.ErrorKind, reason api.Reason) {
	t.Helper()
	require.Error(t, err)
	e, ok := err.(*api.Error)
	require.Truef(t, ok, "expected *api.Error, got %T", err)
	require.Equal(t, kind, e.Kind)
	require.Equal(t, reason, e.Reason)
}
