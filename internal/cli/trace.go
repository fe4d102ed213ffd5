package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/strobe/internal/harness"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Output string // trace file path; empty means stdout
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <scenario>",
		Short: "Run a scenario and emit its output trace",
		Long: `Run a scenario file and emit the recorded per-frame output values as
JSON. The emitted document has the same shape as the harness golden
fixtures, so a trace can be captured once and diffed against later runs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write trace to file instead of stdout")

	return cmd
}

func runTrace(opts *TraceOptions, scenarioPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		if ferr := formatter.Error(ErrCodeInvalidDoc, err.Error(), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitCommandError, err.Error())
	}

	result, err := harness.Run(scenario)
	if err != nil {
		if ferr := formatter.Error(ErrCodeEvalFailed, err.Error(), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, err.Error())
	}

	formatter.VerboseLog("Recorded %d frame(s) for scenario %s (program %s)",
		len(result.Frames), result.ScenarioName, result.ProgramHash)

	snapshot := harness.TraceSnapshot{
		ScenarioName: result.ScenarioName,
		Frames:       result.Frames,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
			if ferr := formatter.Error(ErrCodeWriteFailed, err.Error(), nil); ferr != nil {
				return ferr
			}
			return NewExitError(ExitCommandError, err.Error())
		}
		formatter.VerboseLog("Wrote trace to %s", opts.Output)
		return nil
	}

	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}
