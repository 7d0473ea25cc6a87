// Command wasmrun is a thin CLI collaborator around the wazerolite runtime:
// it validates and runs WebAssembly 1.0 binaries, but carries none of the
// runtime's own decision-making. Everything it does is reachable through the
// public wazerolite API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tetrawasm/wazerolite"
	"github.com/tetrawasm/wazerolite/api"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wasmrun",
		Short:         "Validate and run WebAssembly 1.0 binaries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newRunCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path to wasm file>",
		Short: "Decodes and validates a WebAssembly binary without instantiating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			binary, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading wasm binary: %w", err)
			}

			ctx := context.Background()
			rt := wazerolite.NewRuntime(ctx)
			defer rt.Close(ctx)

			compiled, err := rt.CompileModule(ctx, binary)
			if err != nil {
				return fmt.Errorf("invalid module: %w", err)
			}
			defer compiled.Close(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ok: %s\n", args[0])
			for _, f := range compiled.ImportedFunctions() {
				mod, name, _ := f.Import()
				fmt.Fprintf(out, "  import func %s.%s %s\n", mod, name, signature(f))
			}
			for _, f := range compiled.ExportedFunctions() {
				for _, name := range f.ExportNames() {
					fmt.Fprintf(out, "  export func %s %s\n", name, signature(f))
				}
			}
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		invoke string
		args   []string
		name   string
		logRun bool
	)

	cmd := &cobra.Command{
		Use:   "run <path to wasm file>",
		Short: "Instantiates a WebAssembly binary, running its start function if declared",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			binary, err := os.ReadFile(cmdArgs[0])
			if err != nil {
				return fmt.Errorf("reading wasm binary: %w", err)
			}

			rtc := wazerolite.NewRuntimeConfig()
			if logRun {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				rtc = rtc.WithLogger(logger)
			}

			ctx := context.Background()
			rt := wazerolite.NewRuntimeWithConfig(ctx, rtc)
			defer rt.Close(ctx)

			compiled, err := rt.CompileModule(ctx, binary)
			if err != nil {
				return fmt.Errorf("invalid module: %w", err)
			}

			mc := wazerolite.NewModuleConfig()
			if name != "" {
				mc = mc.WithName(name)
			}

			mod, err := rt.InstantiateModule(ctx, compiled, mc)
			if err != nil {
				return fmt.Errorf("instantiating module: %w", err)
			}

			if invoke == "" {
				return nil
			}

			fn := mod.ExportedFunction(invoke)
			if fn == nil {
				return fmt.Errorf("no exported function %q", invoke)
			}
			params, err := parseParams(args, fn.Definition().ParamTypes())
			if err != nil {
				return err
			}
			results, err := fn.Call(ctx, params...)
			if err != nil {
				return fmt.Errorf("calling %s: %w", invoke, err)
			}
			printResults(cmd.OutOrStdout(), results, fn.Definition().ResultTypes())
			return nil
		},
	}

	cmd.Flags().StringVar(&invoke, "invoke", "", "Name of an exported function to call after instantiation")
	cmd.Flags().StringSliceVar(&args, "arg", nil, "Argument to the invoked function, may be repeated; order matters")
	cmd.Flags().StringVar(&name, "name", "", "Name to register the module under, overriding its custom name section")
	cmd.Flags().BoolVar(&logRun, "log", false, "Log instantiation and invocation lifecycle events to stderr")
	return cmd
}

func signature(f api.FunctionDefinition) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, t := range f.ParamTypes() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(api.ValueTypeName(t))
	}
	b.WriteString(") -> (")
	for i, t := range f.ResultTypes() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(api.ValueTypeName(t))
	}
	b.WriteByte(')')
	return b.String()
}

// parseParams decodes --arg values as decimal integers or floats according
// to each parameter's declared value type.
func parseParams(args []string, paramTypes []api.ValueType) ([]uint64, error) {
	if len(args) != len(paramTypes) {
		return nil, fmt.Errorf("expected %d args, got %d", len(paramTypes), len(args))
	}
	out := make([]uint64, len(args))
	for i, a := range args {
		switch paramTypes[i] {
		case api.ValueTypeI32:
			v, err := strconv.ParseUint(a, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("arg %d: %w", i, err)
			}
			out[i] = uint64(uint32(v))
		case api.ValueTypeI64:
			v, err := strconv.ParseUint(a, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("arg %d: %w", i, err)
			}
			out[i] = v
		case api.ValueTypeF32:
			v, err := strconv.ParseFloat(a, 32)
			if err != nil {
				return nil, fmt.Errorf("arg %d: %w", i, err)
			}
			out[i] = api.EncodeF32(float32(v))
		case api.ValueTypeF64:
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return nil, fmt.Errorf("arg %d: %w", i, err)
			}
			out[i] = api.EncodeF64(v)
		default:
			return nil, fmt.Errorf("arg %d: unsupported value type %s", i, api.ValueTypeName(paramTypes[i]))
		}
	}
	return out, nil
}

func printResults(out io.Writer, results []uint64, resultTypes []api.ValueType) {
	for i, r := range results {
		switch resultTypes[i] {
		case api.ValueTypeF32:
			fmt.Fprintf(out, "%v\n", api.DecodeF32(r))
		case api.ValueTypeF64:
			fmt.Fprintf(out, "%v\n", api.DecodeF64(r))
		case api.ValueTypeI32:
			fmt.Fprintf(out, "%d\n", uint32(r))
		default:
			fmt.Fprintf(out, "%d\n", r)
		}
	}
}
