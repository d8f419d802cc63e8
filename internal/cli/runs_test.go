package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedRuns records two dry-run solves of the coverage model.
func seedRuns(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	for _, id := range []string{"run-a", "run-b"} {
		_, err := execute(t, newSolveCommand(solveOptions("text", id)), coverageSpec, "--solver", "dry-run", "--db", dbPath)
		require.NoError(t, err)
	}
	return dbPath
}

func TestRunsRequiresDatabase(t *testing.T) {
	_, err := execute(t, NewRunsCommand(&RootOptions{Format: "text"}), "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestRunsListEmpty(t *testing.T) {
	out, err := execute(t, NewRunsCommand(&RootOptions{Format: "text"}), "list", "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")
}

func TestRunsListJSON(t *testing.T) {
	dbPath := seedRuns(t)

	out, err := execute(t, NewRunsCommand(&RootOptions{Format: "json"}), "list", "--db", dbPath)
	require.NoError(t, err)

	var runs []RunSummary
	resp := decodeResponse(t, out, &runs)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, int64(1), runs[0].Seq)
	assert.Equal(t, "run-b", runs[1].ID)
	assert.Equal(t, int64(2), runs[1].Seq)
	assert.Equal(t, runs[0].ModelHash, runs[1].ModelHash)

	out, err = execute(t, NewRunsCommand(&RootOptions{Format: "json"}), "list", "--db", dbPath, "--limit", "1")
	require.NoError(t, err)
	decodeResponse(t, out, &runs)
	assert.Len(t, runs, 1)
}

func TestRunsShowByPrefix(t *testing.T) {
	dbPath := seedRuns(t)

	out, err := execute(t, NewRunsCommand(&RootOptions{Format: "text"}), "show", "run-b", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run run-b")
	assert.Contains(t, out, "model   coverage")
	assert.Contains(t, out, "status  optimal")
	assert.Contains(t, out, "  iscovered_0 = 0")
}

func TestRunsShowAmbiguousAndMissing(t *testing.T) {
	dbPath := seedRuns(t)

	out, err := execute(t, NewRunsCommand(&RootOptions{Format: "text"}), "show", "run-", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "matches more than one run")

	out, err = execute(t, NewRunsCommand(&RootOptions{Format: "text"}), "show", "zzz", "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeRunNotFound)
}

func TestRunsShowVerify(t *testing.T) {
	dbPath := seedRuns(t)

	out, err := execute(t, NewRunsCommand(&RootOptions{Format: "text"}), "show", "run-a", "--db", dbPath, "--verify", coverageYAML)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Model unchanged since this run")

	out, err = execute(t, NewRunsCommand(&RootOptions{Format: "json"}), "show", "run-a", "--db", dbPath, "--verify", tightSpec)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var detail RunDetail
	resp := decodeResponse(t, out, &detail)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeModelMismatch, resp.Error.Code)
	require.NotNil(t, detail.Verified)
	assert.False(t, *detail.Verified)
}
