package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/strobe/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on scenario name)
	Replay bool   // additionally verify each scenario replays deterministically
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files and report pass/fail",
		Long: `Run every scenario file in a directory, evaluating each scenario's
assertions against the recorded trace.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  strobe test ./scenarios
  strobe test ./scenarios --filter "delay-*"
  strobe test ./scenarios --replay --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on name")
	cmd.Flags().BoolVar(&opts.Replay, "replay", false, "also verify each scenario replays deterministically")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("scanning scenarios: %v", err))
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(scenarioFiles))}
	for _, file := range scenarioFiles {
		scenResult := runScenarioFile(file, opts, formatter)
		if scenResult == nil {
			continue // filtered out
		}
		result.Scenarios = append(result.Scenarios, *scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	result.Total = len(result.Scenarios)

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputTestText(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

func runScenarioFile(file string, opts *TestOptions, formatter *OutputFormatter) *ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return &ScenarioResult{Name: filepath.Base(file), File: file, Errors: []string{err.Error()}}
	}

	if opts.Filter != "" {
		matched, _ := filepath.Match(opts.Filter, scenario.Name)
		if !matched {
			return nil
		}
	}

	formatter.VerboseLog("Running scenario %s (%s)", scenario.Name, file)

	res := &ScenarioResult{Name: scenario.Name, File: file}
	result, err := harness.Run(scenario)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	res.Errors = append(res.Errors, result.Failures...)

	if opts.Replay {
		if err := harness.VerifyReplay(scenario); err != nil {
			res.Errors = append(res.Errors, err.Error())
		}
	}

	res.Pass = len(res.Errors) == 0
	return res
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func outputTestText(formatter *OutputFormatter, result TestResult) {
	for _, s := range result.Scenarios {
		if s.Pass {
			fmt.Fprintf(formatter.Writer, "PASS %s\n", s.Name)
			continue
		}
		fmt.Fprintf(formatter.Writer, "FAIL %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(formatter.Writer, "  %s\n", e)
		}
	}
	if result.Total == 0 {
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return
	}
	summary := fmt.Sprintf("%d passed, %d failed, %d total", result.Passed, result.Failed, result.Total)
	fmt.Fprintln(formatter.Writer, strings.Repeat("-", len(summary)))
	fmt.Fprintln(formatter.Writer, summary)
}
