package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/session"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	specArgs
	Output string // canonical JSON output path
}

// CompilationResult summarises a compiled model.
type CompilationResult struct {
	Name        string         `json:"name"`
	Hash        string         `json:"hash"`
	Sense       ir.Sense       `json:"sense"`
	Variables   int            `json:"variables"`
	Constraints int            `json:"constraints"`
	Issues      int            `json:"issues"`
	Model       map[string]any `json:"model"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <spec>",
		Short: "Compile a model spec to its expanded form",
		Long: `Compile a model spec (CUE directory, .cue or .yaml file) and print
every expanded constraint instance, the objective and the variable list.

With --output the canonical JSON of the compiled model is written to a
file. The model hash recorded with solve runs is computed from these bytes.

Examples:
  sigma compile ./models/coverage.cue
  sigma compile ./models --model powerplant
  sigma compile ./models/coverage.yaml --output coverage.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	opts.specArgs.bind(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical model JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	sess, err := openSession(context.Background(), opts.RootOptions, cmd, nil)
	if err != nil {
		return err
	}
	compiled, err := loadCompiled(sess, formatter, path, opts.specArgs)
	if err != nil {
		return err
	}

	if opts.Output != "" {
		if err := writeModelToFile(compiled.Model, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
		formatter.VerboseLog("Wrote canonical model to %s", opts.Output)
	}

	return outputCompileSuccess(formatter, compiled, opts.Output)
}

func compilationResult(c *session.Compiled) CompilationResult {
	return CompilationResult{
		Name:        c.Model.Name,
		Hash:        c.Hash,
		Sense:       c.Model.Objective.Sense,
		Variables:   len(c.Model.Variables),
		Constraints: len(c.Model.Constraints),
		Issues:      len(c.Issues),
		Model:       c.Model.CanonicalMap(),
	}
}

func outputCompileSuccess(formatter *OutputFormatter, c *session.Compiled, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(compilationResult(c))
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s: %d variable(s), %d constraint(s)\n",
		c.Model.Name, len(c.Model.Variables), len(c.Model.Constraints))
	fmt.Fprintf(w, "  hash %s\n\n", c.Hash)
	fmt.Fprint(w, c.Model.String())
	if len(c.Issues) > 0 {
		fmt.Fprintf(w, "\n%d issue(s), run validate for details\n", len(c.Issues))
	}
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote canonical model to %s\n", outputFile)
	}
	return nil
}

// writeModelToFile writes the model's canonical JSON, the same bytes that
// are hashed.
func writeModelToFile(m *ir.Model, filename string) error {
	data, err := ir.MarshalCanonical(m.CanonicalMap())
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
