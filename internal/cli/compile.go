package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/strobe/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationStats summarizes a compiled program.
type CompilationStats struct {
	Nodes       int      `json:"nodes"`
	Consts      int      `json:"consts"`
	Buses       int      `json:"buses"`
	Chains      int      `json:"chains"`
	Operators   int      `json:"operators"`
	InputSlots  int      `json:"input_slots"`
	FloatSlots  int      `json:"float_slots"`
	IntSlots    int      `json:"int_slots"`
	Outputs     []string `json:"outputs"`
	ProgramHash string   `json:"program_hash"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <patch>",
		Short: "Compile a CUE patch document to a program",
		Long: `Compile a CUE patch document into an executable expression graph.

The compiler decodes the document, pools constants, lays out the state
arena, and validates the graph. With --output, the compiled program is
written as canonical JSON for inspection or later loading.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, patchPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	prog, loadErrors := LoadPatch(patchPath)
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, loadErrors)
	}

	formatter.VerboseLog("Compiled %d node(s), %d operator(s) from %s", len(prog.Nodes), len(prog.Operators), patchPath)

	if opts.Output != "" {
		if err := writeProgramFile(prog, opts.Output); err != nil {
			if ferr := formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil); ferr != nil {
				return ferr
			}
			return NewExitError(ExitCommandError, err.Error())
		}
		formatter.VerboseLog("Wrote program to %s", opts.Output)
	}

	stats := programStats(prog)
	if opts.Format == "json" {
		return formatter.Success(stats)
	}
	return formatter.Success(formatStatsText(stats))
}

func programStats(prog *ir.Program) CompilationStats {
	outputs := make([]string, 0, len(prog.Outputs))
	for name := range prog.Outputs {
		outputs = append(outputs, name)
	}
	sort.Strings(outputs)

	return CompilationStats{
		Nodes:       len(prog.Nodes),
		Consts:      len(prog.Consts),
		Buses:       len(prog.Buses),
		Chains:      len(prog.Chains),
		Operators:   len(prog.Operators),
		InputSlots:  len(prog.Slots),
		FloatSlots:  prog.Layout.FloatSlots,
		IntSlots:    prog.Layout.IntSlots,
		Outputs:     outputs,
		ProgramHash: ir.ProgramHash(prog),
	}
}

func formatStatsText(stats CompilationStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compiled: %d nodes, %d consts, %d buses, %d chains, %d operators\n",
		stats.Nodes, stats.Consts, stats.Buses, stats.Chains, stats.Operators)
	fmt.Fprintf(&b, "State arena: %d float slot(s), %d int slot(s)\n", stats.FloatSlots, stats.IntSlots)
	fmt.Fprintf(&b, "Inputs: %d, Outputs: %s\n", stats.InputSlots, strings.Join(stats.Outputs, ", "))
	fmt.Fprintf(&b, "Program hash: %s", stats.ProgramHash)
	return b.String()
}

// writeProgramFile writes the compiled program as indented JSON.
func writeProgramFile(prog *ir.Program, path string) error {
	data, err := json.MarshalIndent(prog, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// outputLoadErrors reports load/compile errors and returns the failure exit.
func outputLoadErrors(formatter *OutputFormatter, loadErrors []error) error {
	details := make([]string, 0, len(loadErrors))
	for _, e := range loadErrors {
		details = append(details, e.Error())
	}

	code := ErrCodeGeneric
	var loadErr *LoadError
	if errors.As(loadErrors[0], &loadErr) {
		code = loadErr.Code
	}

	msg := fmt.Sprintf("%d error(s)", len(loadErrors))
	if len(loadErrors) == 1 {
		msg = loadErrors[0].Error()
	}
	if err := formatter.Error(code, msg, details); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}
