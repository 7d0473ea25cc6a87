package wazerolite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetrawasm/wazerolite"
)

func TestHostFunctionBuilder_RequiresLeadingContext(t *testing.T) {
	ctx := context.Background()
	rt := wazerolite.NewRuntime(ctx)
	defer rt.Close(ctx)

	require.Panics(t, func() {
		rt.NewHostModuleBuilder("env").
			NewFunctionBuilder().
			WithFunc(func(x, y int32) int32 { return x + y }).
			Export("add")
	})
}

func TestHostModuleBuilder_ExportMemory(t *testing.T) {
	ctx := context.Background()
	rt := wazerolite.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.NewHostModuleBuilder("env").
		ExportMemory("memory", 1).
		Instantiate(ctx)
	require.NoError(t, err)

	mem := mod.ExportedMemory("memory")
	require.NotNil(t, mem)
	require.Equal(t, uint32(1), mem.Size(ctx))
}
