package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/strobe/internal/engine"
	"github.com/roach88/strobe/internal/ir"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Frames  int
	Delta   float64
	Inputs  []string // name=value pairs
	Outputs []string // output names; empty means all
}

// EvalFrame is one frame of evaluated outputs in the JSON payload.
type EvalFrame struct {
	Frame  int64              `json:"frame"`
	Values map[string]float64 `json:"values"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <patch>",
		Short: "Evaluate a patch for N frames and print outputs",
		Long: `Compile a patch document and drive it for a number of frames with a
fixed delta time, printing each frame's output values.

External inputs are held constant across frames:

  strobe eval patch.cue --frames 10 --input x=0.5 --input gate=1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Frames, "frames", 1, "number of frames to evaluate")
	cmd.Flags().Float64Var(&opts.Delta, "dt", 0.1, "delta time per frame in seconds")
	cmd.Flags().StringArrayVar(&opts.Inputs, "input", nil, "external input as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Outputs, "output", nil, "output to evaluate (repeatable, default all)")

	return cmd
}

func runEval(opts *EvalOptions, patchPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Frames < 1 {
		return NewExitError(ExitCommandError, "--frames must be at least 1")
	}

	prog, loadErrors := LoadPatch(patchPath)
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, loadErrors)
	}

	resolver, err := parseInputs(prog, opts.Inputs)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	outputs := opts.Outputs
	if len(outputs) == 0 {
		for name := range prog.Outputs {
			outputs = append(outputs, name)
		}
		sort.Strings(outputs)
	}
	if len(outputs) == 0 {
		return NewExitError(ExitCommandError, "patch declares no outputs")
	}
	roots := make([]ir.NodeIndex, len(outputs))
	for i, name := range outputs {
		root, ok := prog.Output(name)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("patch declares no output %q", name))
		}
		roots[i] = root
	}

	session := engine.NewSession()
	session.Load(prog)

	formatter.VerboseLog("Evaluating %d frame(s) at dt=%g", opts.Frames, opts.Delta)

	clock := engine.NewFrameClock()
	frames := make([]EvalFrame, 0, opts.Frames)
	for f := 0; f < opts.Frames; f++ {
		stamp := clock.Next()
		ctx := &engine.FrameContext{
			TimeMS:       float64(stamp) * opts.Delta * 1000,
			DeltaSeconds: opts.Delta,
			Frame:        stamp,
			Inputs:       resolver,
		}
		frame := EvalFrame{Frame: ctx.Frame, Values: make(map[string]float64, len(roots))}
		for i, root := range roots {
			v, err := session.Evaluate(root, ctx)
			if err != nil {
				if ferr := formatter.Error(ErrCodeEvalFailed, err.Error(), nil); ferr != nil {
					return ferr
				}
				return NewExitError(ExitFailure, err.Error())
			}
			frame.Values[outputs[i]] = v
		}
		frames = append(frames, frame)
	}

	if opts.Format == "json" {
		return formatter.Success(frames)
	}
	return formatter.Success(formatEvalText(frames, outputs))
}

func formatEvalText(frames []EvalFrame, outputs []string) string {
	var b strings.Builder
	for i, frame := range frames {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "frame %d:", frame.Frame)
		for _, name := range outputs {
			fmt.Fprintf(&b, " %s=%s", name, strconv.FormatFloat(frame.Values[name], 'g', -1, 64))
		}
	}
	return b.String()
}

// parseInputs turns name=value flags into a slot resolver.
func parseInputs(prog *ir.Program, pairs []string) (engine.MapResolver, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	resolver := make(engine.MapResolver, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --input %q: expected name=value", pair)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --input %q: %v", pair, err)
		}
		key, found := prog.Slot(name)
		if !found {
			return nil, fmt.Errorf("patch declares no input %q", name)
		}
		resolver[key] = value
	}
	return resolver, nil
}
