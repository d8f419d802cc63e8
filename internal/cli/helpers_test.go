package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	coverageSpec = filepath.Join("..", "modelspec", "testdata", "coverage.cue")
	coverageYAML = filepath.Join("..", "modelspec", "testdata", "coverage.yaml")
	brokenSpec   = filepath.Join("..", "modelspec", "testdata", "broken.yaml")
	tightSpec    = filepath.Join("..", "harness", "testdata", "specs", "tight.yaml")
	unboundSpec  = filepath.Join("..", "harness", "testdata", "specs", "unbound.yaml")
	scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")
)

// execute runs cmd with args and returns stdout and the command error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse parses a JSON CLIResponse and re-decodes its data into v.
func decodeResponse(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil && resp.Data != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, v))
	}
	return resp
}
