package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sigma/internal/builder"
	"github.com/roach88/sigma/internal/compiler"
	"github.com/roach88/sigma/internal/modelspec"
	"github.com/roach88/sigma/internal/notation"
	"github.com/roach88/sigma/internal/session"
	"github.com/roach88/sigma/internal/store"
	"github.com/roach88/sigma/internal/testutil"
)

var errorKinds = map[string]func(error) bool{
	ErrorSyntax:         notation.IsSyntaxError,
	ErrorUnboundIndex:   compiler.IsUnboundIndexError,
	ErrorDuplicateIndex: compiler.IsDuplicateIndexError,
	ErrorUnknownName:    compiler.IsUnknownSetOrTableError,
	ErrorDomainMismatch: compiler.IsDomainMismatchError,
	ErrorIndexRange:     compiler.IsIndexRangeError,
	ErrorMissingEntry:   compiler.IsMissingEntryError,
	ErrorCompile:        compiler.IsCompileError,
	ErrorLoad:           modelspec.IsLoadError,
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory store and session
// 2. Load and compile the spec
// 3. Check the expected error, if any
// 4. Run the scripted solve, if any
// 5. Evaluate assertions
//
// The returned error reports harness failures (the store could not open,
// the spec could not be read when no error was expected); assertion
// failures are recorded in the Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	sess, err := session.New(ctx, session.Options{
		Store:  st,
		IDs:    testutil.NewFixedRunIDGenerator(scenario.RunID),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return nil, err
	}

	result := NewResult()
	compiled, err := sess.Load(scenario.Spec, scenario.Model)
	if scenario.ExpectError != "" {
		result.CompileErr = err
		switch {
		case err == nil:
			result.AddError(fmt.Sprintf("expected %s error, compilation succeeded", scenario.ExpectError))
		case !errorKinds[scenario.ExpectError](err):
			result.AddError(fmt.Sprintf("expected %s error, got: %v", scenario.ExpectError, err))
		}
		return result, nil
	}
	if err != nil {
		var le *modelspec.LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		result.CompileErr = err
		result.AddError(fmt.Sprintf("compilation failed: %v", err))
		return result, nil
	}
	result.Model = compiled.Model
	result.Issues = compiled.Issues

	if scenario.Solve != nil {
		rec := builder.NewRecorder(builder.Status(scenario.Solve.Status), scenario.Solve.Values)
		res, _ := sess.Solve(ctx, compiled, rec, "dry-run")
		result.Status = res.Status
		result.Solution = res.Solution
	}
	if result.Runs, err = st.ListRuns(ctx, "", 0); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
