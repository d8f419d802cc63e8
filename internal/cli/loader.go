package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sigma/internal/builder"
	"github.com/roach88/sigma/internal/compiler"
	"github.com/roach88/sigma/internal/modelspec"
	"github.com/roach88/sigma/internal/notation"
	"github.com/roach88/sigma/internal/session"
	"github.com/roach88/sigma/internal/store"
)

// Error code constants - unified across all CLI commands.
//
// E0xx codes come from the spec loader, E1xx from model lint
// (compiler.Validate), E2xx from compilation and E3xx from solving.
const (
	ErrCodeGeneric     = modelspec.CodeGeneric     // generic/unknown error
	ErrCodeNoFiles     = modelspec.CodeNoFiles     // no CUE files found
	ErrCodeLoadFailed  = modelspec.CodeLoadFailed  // spec load failed
	ErrCodeNotFound    = modelspec.CodeNotFound    // path or model not found
	ErrCodeBuildFailed = modelspec.CodeBuildFailed // CUE build failed
	ErrCodeWriteFailed = "E007"                    // file write error
	ErrCodeInvalid     = modelspec.CodeInvalid     // malformed spec field
	ErrCodeData        = modelspec.CodeData        // data file unreadable
	ErrCodeStore       = "E010"                    // database error

	// Compile errors
	ErrCodeSyntax         = "E201"
	ErrCodeUnboundIndex   = "E202"
	ErrCodeDuplicateIndex = "E203"
	ErrCodeUnknownName    = "E204"
	ErrCodeDomainMismatch = "E205"
	ErrCodeIndexRange     = "E206"
	ErrCodeMissingEntry   = "E207"
	ErrCodeCompile        = "E208"

	// Solve errors
	ErrCodeInfeasible    = "E301"
	ErrCodeUnbounded     = "E302"
	ErrCodeSolverError   = "E303"
	ErrCodeModelMismatch = "E304"
	ErrCodeRunNotFound   = "E305"
)

// ErrorCode maps a single diagnostic to its code. The most specific type
// wins; anything unrecognised is E001.
func ErrorCode(err error) string {
	var (
		loadErr     *modelspec.LoadError
		mismatchErr *store.ModelMismatchError
	)
	switch {
	case errors.As(err, &loadErr):
		return loadErr.Code
	case notation.IsSyntaxError(err):
		return ErrCodeSyntax
	case compiler.IsUnboundIndexError(err):
		return ErrCodeUnboundIndex
	case compiler.IsDuplicateIndexError(err):
		return ErrCodeDuplicateIndex
	case compiler.IsUnknownSetOrTableError(err):
		return ErrCodeUnknownName
	case compiler.IsDomainMismatchError(err):
		return ErrCodeDomainMismatch
	case compiler.IsIndexRangeError(err):
		return ErrCodeIndexRange
	case compiler.IsMissingEntryError(err):
		return ErrCodeMissingEntry
	case compiler.IsCompileError(err):
		return ErrCodeCompile
	case builder.IsInfeasible(err):
		return ErrCodeInfeasible
	case builder.IsUnbounded(err):
		return ErrCodeUnbounded
	case builder.IsSolverError(err):
		return ErrCodeSolverError
	case errors.As(err, &mismatchErr):
		return ErrCodeModelMismatch
	}
	return ErrCodeGeneric
}

// describeErrors flattens a joined error into one CLIError per diagnostic.
// Spec positions travel in Details so text output can print them above
// the message.
func describeErrors(err error) []CLIError {
	errs := modelspec.Errors(err)
	out := make([]CLIError, 0, len(errs))
	for _, e := range errs {
		ce := CLIError{Code: ErrorCode(e), Message: e.Error()}
		var loadErr *modelspec.LoadError
		if errors.As(e, &loadErr) {
			ce.Message = loadErr.Message
			if loadErr.Field != "" {
				ce.Message = loadErr.Field + ": " + loadErr.Message
			}
			if loadErr.Pos.IsValid() {
				ce.Details = loadErr.Pos.String()
			}
		}
		out = append(out, ce)
	}
	return out
}

// outputCompileErrors reports a load or compile failure. These are
// command-level errors (exit code 2).
func outputCompileErrors(f *OutputFormatter, err error) error {
	errs := describeErrors(err)
	if err := f.Errors("Compilation failed", errs); err != nil {
		return err
	}
	return WrapExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)), err)
}

// specArgs are the flags shared by every command that reads a model spec.
type specArgs struct {
	Model string
}

func (a *specArgs) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&a.Model, "model", "m", "", "model name when the spec defines several")
}

// openSession creates a session logging to stderr. st may be nil.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, st *store.Store) (*session.Session, error) {
	sess, err := session.New(ctx, session.Options{
		Store:  st,
		Logger: opts.NewLogger(cmd.ErrOrStderr()),
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start session", err)
	}
	return sess, nil
}

// loadCompiled reads and compiles the spec at path, reporting failures
// through f.
func loadCompiled(sess *session.Session, f *OutputFormatter, path string, args specArgs) (*session.Compiled, error) {
	f.VerboseLog("Loading %s", path)
	compiled, err := sess.Load(path, args.Model)
	if err != nil {
		return nil, outputCompileErrors(f, err)
	}
	f.VerboseLog("Compiled %s: %d variable(s), %d constraint(s)",
		compiled.Model.Name, len(compiled.Model.Variables), len(compiled.Model.Constraints))
	return compiled, nil
}
