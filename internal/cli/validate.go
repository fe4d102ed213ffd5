package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationReport is the JSON payload for validate results.
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <patch>",
		Short: "Validate a patch document without producing output",
		Long: `Validate a CUE patch document.

All decode and graph validation errors are collected and reported, not
just the first one.

Exit codes:
  0 - Document is valid
  1 - Document has errors
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, patchPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	prog, loadErrors := LoadPatch(patchPath)
	if len(loadErrors) > 0 {
		report := ValidationReport{Valid: false}
		for _, e := range loadErrors {
			report.Errors = append(report.Errors, e.Error())
		}
		if opts.Format == "json" {
			if err := formatter.Success(report); err != nil {
				return err
			}
		} else {
			for _, msg := range report.Errors {
				fmt.Fprintln(formatter.Writer, msg)
			}
			fmt.Fprintf(formatter.Writer, "Invalid: %d error(s)\n", len(report.Errors))
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(report.Errors)))
	}

	formatter.VerboseLog("Validated %d node(s)", len(prog.Nodes))

	if opts.Format == "json" {
		return formatter.Success(ValidationReport{Valid: true})
	}
	return formatter.Success("Valid")
}
