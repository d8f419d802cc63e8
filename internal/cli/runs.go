package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/session"
	"github.com/roach88/sigma/internal/store"
)

// RunsOptions holds flags shared by the runs subcommands.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunSummary is one stored run in command output.
type RunSummary struct {
	ID        string   `json:"id"`
	Seq       int64    `json:"seq"`
	ModelHash string   `json:"model_hash"`
	Solver    string   `json:"solver"`
	Status    string   `json:"status"`
	Objective *float64 `json:"objective,omitempty"`
	Message   string   `json:"message,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

// RunDetail is a stored run with its model and values.
type RunDetail struct {
	RunSummary
	Model    string        `json:"model"`
	Values   []SolvedValue `json:"values,omitempty"`
	Verified *bool         `json:"verified,omitempty"`
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect solve runs recorded with --db",
		Long: `List and show solve runs recorded in a SQLite database by
"sigma solve --db".

Examples:
  sigma runs list --db runs.db
  sigma runs show 0192c3 --db runs.db
  sigma runs show 0192c3 --db runs.db --verify ./models/coverage.cue`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newRunsListCommand(opts))
	cmd.AddCommand(newRunsShowCommand(opts))

	return cmd
}

func newRunsListCommand(opts *RunsOptions) *cobra.Command {
	var (
		hash  string
		limit int
	)
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List recorded runs, oldest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(opts, hash, limit, cmd)
		},
	}
	cmd.Flags().StringVar(&hash, "hash", "", "only runs of this model hash")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of runs (0 means all)")
	return cmd
}

func newRunsShowCommand(opts *RunsOptions) *cobra.Command {
	var (
		verify string
		args   specArgs
	)
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its solved values",
		Long: `Show one recorded run. The id may be any unique prefix.

With --verify the given spec is compiled again and its model hash compared
with the hash the run was solved against; a mismatch means the notation
or data changed since (exit 1).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, argv []string) error {
			return runRunsShow(opts, argv[0], verify, args, cmd)
		},
	}
	cmd.Flags().StringVar(&verify, "verify", "", "spec to recompile and compare against the run's model")
	args.bind(cmd)
	return cmd
}

func openRunsSession(ctx context.Context, opts *RunsOptions, cmd *cobra.Command) (*session.Session, *store.Store, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = opts.formatter(cmd).Error(ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	sess, err := openSession(ctx, opts.RootOptions, cmd, st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return sess, st, nil
}

func runRunsList(opts *RunsOptions, hash string, limit int, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)
	sess, st, err := openRunsSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := sess.Runs(ctx, hash, limit)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = runSummary(r)
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}
	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, r := range summaries {
		obj := "-"
		if r.Objective != nil {
			obj = fmt.Sprintf("%g", *r.Objective)
		}
		fmt.Fprintf(w, "%4d  %s  %-10s %-8s %s  model %s\n", r.Seq, r.ID, r.Status, r.Solver, obj, shortHash(r.ModelHash))
	}
	return nil
}

func runRunsShow(opts *RunsOptions, id, verify string, args specArgs, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)
	sess, st, err := openRunsSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := sess.Run(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = formatter.Error(ErrCodeRunNotFound, fmt.Sprintf("no run matches %q", id), nil)
			return WrapExitError(ExitCommandError, "run not found", err)
		}
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	rec, err := st.ReadModel(ctx, run.ModelHash)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("reading model %s: %v", shortHash(run.ModelHash), err), nil)
		return WrapExitError(ExitCommandError, "failed to read model", err)
	}

	detail := RunDetail{RunSummary: runSummary(run), Model: rec.Name}
	for _, v := range run.Values {
		detail.Values = append(detail.Values, SolvedValue{
			Label: valueLabel(v.Name, v.Tuple),
			Name:  v.Name,
			Tuple: v.Tuple,
			Value: v.Value,
		})
	}

	var verifyErr error
	if verify != "" {
		compiled, err := loadCompiled(sess, formatter, verify, args)
		if err != nil {
			return err
		}
		_, verifyErr = st.VerifyRun(ctx, run.ID, compiled.Model)
		ok := verifyErr == nil
		detail.Verified = &ok
	}

	if err := outputRunDetail(formatter, detail, verifyErr); err != nil {
		return err
	}
	if verifyErr != nil {
		return WrapExitError(ExitFailure, "model changed since run", verifyErr)
	}
	return nil
}

func outputRunDetail(formatter *OutputFormatter, d RunDetail, verifyErr error) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: d}
		if verifyErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrorCode(verifyErr), Message: verifyErr.Error()}
		}
		return formatter.encode(resp)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "run %s\n", d.ID)
	fmt.Fprintf(w, "  model   %s (%s)\n", d.Model, shortHash(d.ModelHash))
	fmt.Fprintf(w, "  seq     %d\n", d.Seq)
	fmt.Fprintf(w, "  solver  %s\n", d.Solver)
	fmt.Fprintf(w, "  status  %s\n", d.Status)
	fmt.Fprintf(w, "  elapsed %dms\n", d.ElapsedMS)
	if d.Objective != nil {
		fmt.Fprintf(w, "  objective %g\n", *d.Objective)
	}
	if d.Message != "" {
		fmt.Fprintf(w, "  message %s\n", d.Message)
	}
	if len(d.Values) > 0 {
		fmt.Fprintln(w)
		for _, v := range d.Values {
			fmt.Fprintf(w, "  %s = %g\n", v.Label, v.Value)
		}
	}
	switch {
	case d.Verified == nil:
	case *d.Verified:
		fmt.Fprintln(w, "\n✓ Model unchanged since this run")
	default:
		fmt.Fprintf(w, "\n✗ %s: %v\n", ErrCodeModelMismatch, verifyErr)
	}
	return nil
}

func runSummary(r store.Run) RunSummary {
	return RunSummary{
		ID:        r.ID,
		Seq:       r.Seq,
		ModelHash: r.ModelHash,
		Solver:    r.Solver,
		Status:    r.Status,
		Objective: r.Objective,
		Message:   r.Message,
		ElapsedMS: r.Elapsed.Milliseconds(),
	}
}

func valueLabel(name string, t ir.Tuple) string {
	v := ir.Variable{Name: name, Tuple: t}
	return v.Label()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
