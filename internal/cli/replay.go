package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/strobe/internal/harness"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
}

// ReplayReport is the JSON payload for replay results.
type ReplayReport struct {
	Scenario      string `json:"scenario"`
	Deterministic bool   `json:"deterministic"`
	Error         string `json:"error,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario>",
		Short: "Verify a scenario replays deterministically",
		Long: `Run a scenario twice from a fresh session and require bit-identical
output traces. Any divergence between the two runs means the graph
depends on something outside the frame context and is reported as a
failure.

Exit codes:
  0 - Replay is deterministic
  1 - Runs diverged
  2 - Command error (scenario not found, compile error, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	return cmd
}

func runReplay(opts *ReplayOptions, scenarioPath string, cmd *cobra.Command) error {
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

	if err := harness.VerifyReplay(scenario); err != nil {
		report := ReplayReport{Scenario: scenario.Name, Deterministic: false, Error: err.Error()}
		if opts.Format == "json" {
			if ferr := formatter.Success(report); ferr != nil {
				return ferr
			}
		} else if ferr := formatter.Error(ErrCodeEvalFailed, err.Error(), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, err.Error())
	}

	if opts.Format == "json" {
		return formatter.Success(ReplayReport{Scenario: scenario.Name, Deterministic: true})
	}
	return formatter.Success("Deterministic: two runs produced identical traces")
}
