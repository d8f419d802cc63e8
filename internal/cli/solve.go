package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sigma/internal/builder"
	"github.com/roach88/sigma/internal/cbc"
	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/session"
	"github.com/roach88/sigma/internal/store"
)

// Solver names accepted by --solver.
const (
	SolverCBC    = "cbc"
	SolverDryRun = "dry-run"
)

// SolveOptions holds flags for the solve command.
type SolveOptions struct {
	*RootOptions
	specArgs
	Solver    string
	Database  string
	Timeout   time.Duration
	CBCBinary string
	All       bool

	// IDs overrides the run id generator (for testing). If nil, the
	// session uses UUIDv7 ids.
	IDs session.IDGenerator
}

// SolvedValue is one variable's value in command output.
type SolvedValue struct {
	Label string   `json:"label"`
	Name  string   `json:"name"`
	Tuple ir.Tuple `json:"tuple"`
	Value float64  `json:"value"`
}

// SolveResult is the output of a solve.
type SolveResult struct {
	RunID     string         `json:"run_id"`
	Seq       int64          `json:"seq"`
	Model     string         `json:"model"`
	ModelHash string         `json:"model_hash"`
	Solver    string         `json:"solver"`
	Status    builder.Status `json:"status"`
	Objective *float64       `json:"objective,omitempty"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Values    []SolvedValue  `json:"values,omitempty"`
}

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	return newSolveCommand(&SolveOptions{RootOptions: rootOpts})
}

func newSolveCommand(opts *SolveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve <spec>",
		Short: "Compile a model spec and solve it",
		Long: `Compile a model spec, hand the expanded model to a solver backend and
print the optimal value of every variable.

Backends:
  cbc      - COIN-OR CBC command line solver (must be on PATH or --cbc)
  dry-run  - records the model without solving; every variable is zero

With --db the compiled model and the run (status, objective, values) are
recorded in a SQLite database; see "sigma runs".

Exit codes:
  0 - Optimal solution found
  1 - Model is infeasible or unbounded
  2 - Command error (bad spec, solver failure, database error)

Examples:
  sigma solve ./models/coverage.cue
  sigma solve ./models --model powerplant --db runs.db --timeout 30s
  sigma solve ./models/coverage.yaml --solver dry-run --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(opts, args[0], cmd)
		},
	}

	opts.specArgs.bind(cmd)
	cmd.Flags().StringVar(&opts.Solver, "solver", SolverCBC, "solver backend (cbc|dry-run)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "solve time limit (0 means none)")
	cmd.Flags().StringVar(&opts.CBCBinary, "cbc", cbc.DefaultBinary, "path to the cbc executable")
	cmd.Flags().BoolVar(&opts.All, "all", false, "print zero-valued variables too")

	return cmd
}

func runSolve(opts *SolveOptions, path string, cmd *cobra.Command) error {
	if opts.Solver != SolverCBC && opts.Solver != SolverDryRun {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown solver %q: must be %s or %s", opts.Solver, SolverCBC, SolverDryRun))
	}
	formatter := opts.formatter(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var st *store.Store
	if opts.Database != "" {
		var err error
		st, err = store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	logger := opts.NewLogger(cmd.ErrOrStderr())
	sess, err := session.New(ctx, session.Options{Store: st, IDs: opts.IDs, Logger: logger})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	compiled, err := loadCompiled(sess, formatter, path, opts.specArgs)
	if err != nil {
		return err
	}

	var b builder.Builder
	switch opts.Solver {
	case SolverCBC:
		b = cbc.New(compiled.Model.Name, cbc.Options{
			Binary:    opts.CBCBinary,
			TimeLimit: opts.Timeout,
			Logger:    logger,
		})
	case SolverDryRun:
		b = builder.NewRecorder(builder.StatusOptimal, nil)
	}

	formatter.VerboseLog("Solving %s with %s", compiled.Model.Name, opts.Solver)
	res, solveErr := sess.Solve(ctx, compiled, b, opts.Solver)
	out := solveResult(compiled, res, opts.All)

	if solveErr != nil {
		return outputSolveError(formatter, out, solveErr)
	}
	return outputSolveSuccess(formatter, compiled.Model, out)
}

func solveResult(c *session.Compiled, res *session.Result, all bool) SolveResult {
	out := SolveResult{
		RunID:     res.RunID,
		Seq:       res.Seq,
		Model:     c.Model.Name,
		ModelHash: res.ModelHash,
		Solver:    res.Solver,
		Status:    res.Status,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	if res.Solution == nil {
		return out
	}
	obj := res.Solution.Objective
	out.Objective = &obj
	for i, v := range res.Solution.Values {
		if v.Value == 0 && !all {
			continue
		}
		out.Values = append(out.Values, SolvedValue{
			Label: c.Model.Variables[i].Label(),
			Name:  v.Name,
			Tuple: v.Tuple,
			Value: v.Value,
		})
	}
	return out
}

func outputSolveSuccess(formatter *OutputFormatter, m *ir.Model, out SolveResult) error {
	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Solved %s: %s, objective %s %g\n", out.Model, out.Status, m.Objective.Sense, *out.Objective)
	fmt.Fprintf(w, "  run %s (seq %d, %s)\n\n", out.RunID, out.Seq, out.Solver)
	for _, v := range out.Values {
		fmt.Fprintf(w, "  %s = %g\n", v.Label, v.Value)
	}
	return nil
}

// outputSolveError reports a solve that did not end optimal. Infeasible
// and unbounded models are failures of the model (exit 1); a backend or
// store error is a command error (exit 2).
func outputSolveError(formatter *OutputFormatter, out SolveResult, err error) error {
	code := ErrorCode(err)
	if formatter.Format == "json" {
		if encErr := formatter.encode(CLIResponse{
			Status: "error",
			Data:   out,
			Error:  &CLIError{Code: code, Message: err.Error()},
		}); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Solve %s: %s\n", out.Model, out.Status)
		fmt.Fprintf(formatter.Writer, "  run %s (seq %d, %s)\n", out.RunID, out.Seq, out.Solver)
		fmt.Fprintf(formatter.Writer, "  %s: %v\n", code, err)
	}
	exit := ExitCommandError
	if code == ErrCodeInfeasible || code == ErrCodeUnbounded {
		exit = ExitFailure
	}
	return WrapExitError(exit, fmt.Sprintf("solve ended %s", out.Status), err)
}
