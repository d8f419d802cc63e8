package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sigma/internal/ir"
)

func TestCompileText(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), coverageSpec)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled coverage: 5 variable(s), 4 constraint(s)")
	assert.Contains(t, out, "maximize 10*iscovered_0 + 20*iscovered_1 + 5*iscovered_2")
	assert.Contains(t, out, "budget_limit: 5*build_0 + 30*build_1 <= 20")
}

func TestCompileJSON(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), coverageYAML)
	require.NoError(t, err)

	var result CompilationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "coverage", result.Name)
	assert.Equal(t, ir.Maximize, result.Sense)
	assert.Equal(t, 5, result.Variables)
	assert.Equal(t, 4, result.Constraints)
	assert.Len(t, result.Hash, 64)
	assert.NotEmpty(t, result.Model)
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "coverage.json")

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), coverageSpec, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote canonical model to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Contains(t, string(data), `"name":"coverage"`)
	assert.NotContains(t, string(data), "\n", "canonical JSON has no indentation")
}

func TestCompileNonExistentPath(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestCompileInvalidSpecReportsEveryError(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), brokenSpec)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var all []CLIError
	resp := decodeResponse(t, out, &all)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)
	assert.GreaterOrEqual(t, len(all), 3)
	assert.Contains(t, resp.Error.Details, "broken.yaml:2:")
}

func TestCompileUnboundIndex(t *testing.T) {
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), unboundSpec)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeUnboundIndex)
}

func TestCompileVerboseOutput(t *testing.T) {
	cmd := NewCompileCommand(&RootOptions{Format: "text", Verbose: true})
	errOut := &bytes.Buffer{}
	cmd.SetErr(errOut)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{coverageSpec})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "Loading "+coverageSpec)
	assert.Contains(t, errOut.String(), "Compiled coverage: 5 variable(s)")
}
