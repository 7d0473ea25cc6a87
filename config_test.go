package wazerolite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetrawasm/wazerolite"
)

func TestRuntimeConfig_WithersDoNotMutateReceiver(t *testing.T) {
	base := wazerolite.NewRuntimeConfig()
	withPages := base.WithMemoryMaxPages(16)
	withCtx := base.WithContext(context.Background())

	// Each With* returns a new value; the original base is unaffected by
	// either derived config (no shared mutable state between them).
	require.NotSame(t, base, withPages)
	require.NotSame(t, base, withCtx)
	require.NotSame(t, withPages, withCtx)
}

func TestModuleConfig_WithName(t *testing.T) {
	base := wazerolite.NewModuleConfig()
	named := base.WithName("mymodule")
	require.NotSame(t, base, named)
}
