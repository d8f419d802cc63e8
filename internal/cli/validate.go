package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sigma/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	specArgs
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Model  string                     `json:"model"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <spec>",
		Short: "Compile a model spec and lint the result",
		Long: `Compile a model spec and check the expanded model for likely mistakes:
no variables, a constant objective, constraints that always or never hold,
unused variables, declarations over empty sets.

Exit codes:
  0 - Model compiles with no issues
  1 - Model compiles but has lint issues
  2 - Spec could not be loaded or compiled`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	opts.specArgs.bind(cmd)

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	sess, err := openSession(context.Background(), opts.RootOptions, cmd, nil)
	if err != nil {
		return err
	}
	compiled, err := loadCompiled(sess, formatter, path, opts.specArgs)
	if err != nil {
		return err
	}

	if len(compiled.Issues) > 0 {
		return outputValidationErrors(formatter, compiled.Model.Name, compiled.Issues)
	}
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Model: compiled.Model.Name})
	}
	fmt.Fprintf(formatter.Writer, "✓ Model %s is valid\n", compiled.Model.Name)
	return nil
}

// outputValidationErrors outputs lint findings. The model compiled, so
// this is a failure (exit 1) rather than a command error.
func outputValidationErrors(formatter *OutputFormatter, model string, issues []compiler.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Model: model, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: fmt.Sprintf("%d validation issue(s)", len(issues)),
			},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Model %s has %d issue(s)\n\n", model, len(issues))
		for _, issue := range issues {
			fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", issue.Code, issue.Field, issue.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d issue(s)", len(issues)))
}
