package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sigma/internal/builder"
	"github.com/roach88/sigma/internal/compiler"
	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/modelspec"
	"github.com/roach88/sigma/internal/notation"
	"github.com/roach88/sigma/internal/store"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"load", &modelspec.LoadError{Code: modelspec.CodeNotFound, Message: "no such file"}, ErrCodeNotFound},
		{"syntax", &notation.SyntaxError{Template: "c", Message: "unexpected token"}, ErrCodeSyntax},
		{"unbound", &compiler.UnboundIndexError{Template: "c", Index: "k"}, ErrCodeUnboundIndex},
		{"duplicate", &compiler.DuplicateIndexError{Template: "c", Index: "i", Set: "S"}, ErrCodeDuplicateIndex},
		{"unknown", &compiler.UnknownSetOrTableError{Template: "c", Kind: "table", Name: "Cost"}, ErrCodeUnknownName},
		{"domain", &compiler.DomainMismatchError{Template: "c", Message: "not numeric"}, ErrCodeDomainMismatch},
		{"range", &compiler.IndexRangeError{Template: "c", Set: "H", Index: ir.IntIndex(3), Offset: 1}, ErrCodeIndexRange},
		{"missing", &compiler.MissingEntryError{Template: "c", Table: "Cost", Key: ir.Tuple{ir.StrIndex("x")}}, ErrCodeMissingEntry},
		{"compile", &compiler.CompileError{Template: "c", Message: "duplicate constraint name"}, ErrCodeCompile},
		{"infeasible", &builder.BuilderError{Status: builder.StatusInfeasible}, ErrCodeInfeasible},
		{"unbounded", &builder.BuilderError{Status: builder.StatusUnbounded}, ErrCodeUnbounded},
		{"solver", &builder.BuilderError{Status: builder.StatusError, Err: errors.New("cbc: not found")}, ErrCodeSolverError},
		{"mismatch", &store.ModelMismatchError{RunID: "r", Stored: "a", Compiled: "b"}, ErrCodeModelMismatch},
		{"wrapped", fmt.Errorf("session: %w", &compiler.MissingEntryError{Template: "c", Table: "T"}), ErrCodeMissingEntry},
		{"other", errors.New("boom"), ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestDescribeErrors_FlattensNestedJoins(t *testing.T) {
	err := errors.Join(
		&modelspec.LoadError{
			Code:    modelspec.CodeInvalid,
			Field:   "sets.S",
			Message: "must be a list",
			Pos:     modelspec.Position{File: "m.yaml", Line: 2, Column: 3},
		},
		errors.Join(
			&compiler.UnboundIndexError{Template: "limit", Index: "k", Fragment: "Cost_k"},
			&compiler.MissingEntryError{Template: "limit", Table: "Cost", Key: ir.Tuple{ir.IntIndex(9)}},
		),
	)

	got := describeErrors(err)
	require.Len(t, got, 3)
	assert.Equal(t, CLIError{Code: ErrCodeInvalid, Message: "sets.S: must be a list", Details: "m.yaml:2:3"}, got[0])
	assert.Equal(t, ErrCodeUnboundIndex, got[1].Code)
	assert.Contains(t, got[1].Message, `index "k"`)
	assert.Equal(t, ErrCodeMissingEntry, got[2].Code)
	assert.Nil(t, got[2].Details)
}
