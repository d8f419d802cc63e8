package cli

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "sigma", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"compile", "validate", "export", "solve", "runs", "test"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"verbose", "format", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
	assert.Equal(t, "warn", cmd.PersistentFlags().Lookup("log-level").DefValue)
}

func TestSolveCommandFlags(t *testing.T) {
	cmd := NewSolveCommand(&RootOptions{})
	for _, name := range []string{"model", "solver", "db", "timeout", "cbc", "all"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, SolverCBC, cmd.Flags().Lookup("solver").DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, err := execute(t, NewRootCommand(), "--format", "xml", "compile", coverageSpec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLogLevelValidation(t *testing.T) {
	_, err := execute(t, NewRootCommand(), "--log-level", "loud", "compile", coverageSpec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		opts    RootOptions
		enabled slog.Level
		off     slog.Level
	}{
		{"default_warn", RootOptions{Format: "text"}, slog.LevelWarn, slog.LevelInfo},
		{"info", RootOptions{Format: "text", LogLevel: "info"}, slog.LevelInfo, slog.LevelDebug},
		{"error", RootOptions{Format: "text", LogLevel: "error"}, slog.LevelError, slog.LevelWarn},
		{"verbose_forces_debug", RootOptions{Format: "text", LogLevel: "error", Verbose: true}, slog.LevelDebug, slog.LevelDebug - 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := tt.opts.NewLogger(&bytes.Buffer{})
			assert.True(t, logger.Enabled(ctx, tt.enabled))
			assert.False(t, logger.Enabled(ctx, tt.off))
		})
	}
}

func TestNewLogger_JSONHandler(t *testing.T) {
	buf := &bytes.Buffer{}
	opts := RootOptions{Format: "json", LogLevel: "info"}
	opts.NewLogger(buf).Info("model compiled", "variables", 5)
	assert.Contains(t, buf.String(), `"msg":"model compiled"`)
	assert.Contains(t, buf.String(), `"variables":5`)
}
