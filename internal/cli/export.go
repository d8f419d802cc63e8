package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sigma/internal/lpfile"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	specArgs
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <spec>",
		Short: "Write a compiled model as a CPLEX LP file",
		Long: `Compile a model spec and write it in CPLEX LP format, readable by CBC,
GLPK, HiGHS, Gurobi and CPLEX. Columns are named x0, x1, ... and a
comment block maps each one back to its subscripted label.

Examples:
  sigma export ./models/coverage.cue > coverage.lp
  sigma export ./models --model powerplant -o powerplant.lp`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	opts.specArgs.bind(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(opts *ExportOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	sess, err := openSession(context.Background(), opts.RootOptions, cmd, nil)
	if err != nil {
		return err
	}
	compiled, err := loadCompiled(sess, formatter, path, opts.specArgs)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("creating output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "creating output file", err)
		}
		defer f.Close()
		out = f
	}

	if err := lpfile.Export(out, compiled.Model); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing LP file: %v", err), nil)
		return WrapExitError(ExitCommandError, "writing LP file", err)
	}
	if opts.Output != "" {
		formatter.VerboseLog("Wrote %s", opts.Output)
		if formatter.Format == "json" {
			return formatter.Success(map[string]string{"model": compiled.Model.Name, "output": opts.Output})
		}
	}
	return nil
}
