package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/strobe/internal/engine"
	"github.com/roach88/strobe/internal/store"
)

// SnapshotOptions holds flags shared by the snapshot subcommands.
type SnapshotOptions struct {
	*RootOptions
	DBPath  string
	Session string
}

// SnapshotSaveReport is the JSON payload for snapshot save.
type SnapshotSaveReport struct {
	SnapshotID  int64  `json:"snapshot_id"`
	Session     string `json:"session"`
	ProgramHash string `json:"program_hash"`
	ContentHash string `json:"content_hash"`
	Cells       int    `json:"cells"`
	Frames      int    `json:"frames"`
}

// staticToken is a TokenGenerator yielding a caller-chosen session token,
// so repeated saves can append to the same persisted session.
type staticToken string

func (t staticToken) Generate() string { return string(t) }

// NewSnapshotCommand creates the snapshot command and its subcommands.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Persist and inspect session state snapshots",
		Long: `Capture identity-keyed operator state into a SQLite store and inspect
what has been captured. Snapshots survive process restarts: a later run
can restore the cells into a freshly compiled program as long as the
document keeps its node ids.`,
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "strobe.db", "path to the snapshot store")
	cmd.PersistentFlags().StringVar(&opts.Session, "session", "", "session token (save: empty generates one)")

	cmd.AddCommand(newSnapshotSaveCommand(opts))
	cmd.AddCommand(newSnapshotListCommand(opts))

	return cmd
}

func newSnapshotSaveCommand(opts *SnapshotOptions) *cobra.Command {
	var (
		frames int
		delta  float64
		inputs []string
	)

	cmd := &cobra.Command{
		Use:   "save <patch>",
		Short: "Run a patch and persist its operator state",
		Long: `Compile a patch, evaluate every output for a number of frames, then
capture the operator state and write it to the store along with the
compiled program.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotSave(opts, args[0], frames, delta, inputs, cmd)
		},
	}

	cmd.Flags().IntVar(&frames, "frames", 1, "number of frames to evaluate before capturing")
	cmd.Flags().Float64Var(&delta, "dt", 0.1, "delta time per frame in seconds")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "external input as name=value (repeatable)")

	return cmd
}

func runSnapshotSave(opts *SnapshotOptions, patchPath string, frames int, delta float64, inputs []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if frames < 1 {
		return NewExitError(ExitCommandError, "--frames must be at least 1")
	}

	prog, loadErrors := LoadPatch(patchPath)
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, loadErrors)
	}

	resolver, err := parseInputs(prog, inputs)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	var sessionOpts []engine.SessionOption
	if opts.Session != "" {
		sessionOpts = append(sessionOpts, engine.WithTokenGenerator(staticToken(opts.Session)))
	}
	session := engine.NewSession(sessionOpts...)
	session.Load(prog)

	clock := engine.NewFrameClock()
	for f := 0; f < frames; f++ {
		stamp := clock.Next()
		ctx := &engine.FrameContext{
			TimeMS:       float64(stamp) * delta * 1000,
			DeltaSeconds: delta,
			Frame:        stamp,
			Inputs:       resolver,
		}
		for name := range prog.Outputs {
			if _, err := session.EvaluateOutput(name, ctx); err != nil {
				if ferr := formatter.Error(ErrCodeEvalFailed, err.Error(), nil); ferr != nil {
					return ferr
				}
				return NewExitError(ExitFailure, err.Error())
			}
		}
	}

	snap, err := session.Snapshot()
	if err != nil {
		return NewExitError(ExitFailure, err.Error())
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer st.Close()

	storeCtx := context.Background()
	if _, err := st.SaveProgram(storeCtx, prog); err != nil {
		return WrapExitError(ExitCommandError, "saving program", err)
	}
	id, err := st.SaveSnapshot(storeCtx, snap)
	if err != nil {
		return WrapExitError(ExitCommandError, "saving snapshot", err)
	}

	report := SnapshotSaveReport{
		SnapshotID:  id,
		Session:     snap.SessionToken,
		ProgramHash: snap.ProgramHash,
		ContentHash: snap.Hash,
		Cells:       len(snap.Cells),
		Frames:      frames,
	}
	if opts.Format == "json" {
		return formatter.Success(report)
	}
	return formatter.Success(fmt.Sprintf("Saved snapshot %d (session %s, %d cell(s), after %d frame(s))",
		report.SnapshotID, report.Session, report.Cells, report.Frames))
}

func newSnapshotListCommand(opts *SnapshotOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List snapshots for a session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(opts, cmd)
		},
	}
	return cmd
}

func runSnapshotList(opts *SnapshotOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Session == "" {
		return NewExitError(ExitCommandError, "--session is required for list")
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer st.Close()

	infos, err := st.ListSnapshots(context.Background(), opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "listing snapshots", err)
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}

	if len(infos) == 0 {
		return formatter.Success("No snapshots.")
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%d\t%s\tprogram %.12s\t%s\n",
			info.ID, info.CreatedAt, info.ProgramHash, info.ContentHash[:12])
	}
	return nil
}
