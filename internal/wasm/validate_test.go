package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetrawasm/wazerolite/api"
)

// addFunctionSection declares one function of type index 0.
func addFunctionSection() []byte {
	return section(SectionIDFunction, append(u32(1), u32(0)...))
}

// addCodeSection encodes a single function body: local.get 0, local.get 1,
// i32.add, end. No declared locals beyond the two parameters.
func addCodeSection() []byte {
	body := []byte{
		byte(OpcodeLocalGet), 0x00,
		byte(OpcodeLocalGet), 0x01,
		byte(OpcodeI32Add),
		byte(OpcodeEnd),
	}
	fn := append(u32(0), body...) // zero local declarations
	payload := append(u32(1), u32(uint32(len(fn)))...)
	payload = append(payload, fn...)
	return section(SectionIDCode, payload)
}

func addModuleBinary() []byte {
	return encodeModule(addFuncType(), addFunctionSection(), exportAddSection(), addCodeSection())
}

func TestValidateModule_AddFunction(t *testing.T) {
	m, err := DecodeModule(addModuleBinary())
	require.NoError(t, err)
	require.NoError(t, ValidateModule(m))
}

func TestValidateModule_StartFunctionMustBeNullary(t *testing.T) {
	bin := encodeModule(addFuncType(), addFunctionSection(), startSection(0), addCodeSection())
	m, err := DecodeModule(bin)
	require.NoError(t, err)
	err = ValidateModule(m)
	requireReason(t, err, api.KindValidation, api.ReasonStartFunctionType)
}

func TestValidateModule_TypeMismatch(t *testing.T) {
	// local.get 0, local.get 1, i32.add, but declare the function as
	// returning two values: the single i32 result is a type mismatch.
	badType := func() []byte {
		payload := append([]byte{}, u32(1)...)
		payload = append(payload, funcTypeSentinel)
		payload = append(payload, u32(2)...)
		payload = append(payload, ValueTypeI32, ValueTypeI32)
		payload = append(payload, u32(2)...)
		payload = append(payload, ValueTypeI32, ValueTypeI32)
		return section(SectionIDType, payload)
	}
	bin := encodeModule(badType(), addFunctionSection(), addCodeSection())
	m, err := DecodeModule(bin)
	require.NoError(t, err)
	err = ValidateModule(m)
	requireReason(t, err, api.KindValidation, api.ReasonTypeMismatch)
}
