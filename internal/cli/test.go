package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sigma/internal/builder"
	"github.com/roach88/sigma/internal/harness"
)

// ErrCodeTestFailed marks a test run with at least one failing scenario.
const ErrCodeTestFailed = "E_TEST_FAILED"

// Golden file states reported per scenario.
const (
	GoldenAbsent   = "absent"
	GoldenMatched  = "matched"
	GoldenMismatch = "mismatch"
	GoldenUpdated  = "updated"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool
	Filter string
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string         `json:"name"`
	File   string         `json:"file"`
	Pass   bool           `json:"pass"`
	Model  string         `json:"model,omitempty"`
	Solve  builder.Status `json:"solve,omitempty"`
	Golden string         `json:"golden"`
	Errors []string       `json:"errors,omitempty"`
}

// TestResult aggregates every scenario in a run of the test command.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) record(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run model scenarios",
		Long: `Run YAML scenarios against their model specs.

A scenario names a spec, may script a solve, and asserts on the compiled
model and the solution. A snapshot of the outcome is compared with
golden/<file>.golden next to the scenario when that file exists.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error

Examples:
  sigma test ./scenarios
  sigma test ./scenarios --filter "coverage*"
  sigma test ./scenarios --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden snapshots")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose file name matches this glob")

	return cmd
}

func runTests(cmd *cobra.Command, opts *TestOptions, dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "listing scenarios", err)
	}

	formatter := opts.formatter(cmd)
	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, path := range files {
		formatter.VerboseLog("Running %s", path)
		sr := runScenario(path, opts.Update)
		result.record(sr)
		if opts.Format != "json" {
			printScenario(cmd.OutOrStdout(), sr)
		}
	}

	var failure error
	if result.Failed > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeTestFailed, Message: failure.Error()}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
		return failure
	}

	w := cmd.OutOrStdout()
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if failure == nil {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return failure
}

// findScenarioFiles lists .yaml and .yml files under dir in lexical order.
// A non-empty filter is matched against the file name without extension.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func runScenario(path string, update bool) ScenarioResult {
	sr := ScenarioResult{
		Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		File:   path,
		Golden: GoldenAbsent,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("load: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	res, err := harness.Run(scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("run: %v", err)}
		return sr
	}
	if res.Model != nil {
		sr.Model = res.Model.Name
	}
	sr.Solve = res.Status

	state, err := checkGolden(goldenFilePath(path), harness.Snapshot(scenario.Name, res), update)
	sr.Golden = state
	if err != nil {
		res.AddError(err.Error())
	}

	sr.Pass = res.Pass
	sr.Errors = res.Errors
	return sr
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// checkGolden compares snapshot with the file at path, or rewrites the file
// when update is set. A missing golden file is not a failure.
func checkGolden(path string, snapshot []byte, update bool) (string, error) {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return GoldenAbsent, fmt.Errorf("create golden directory: %w", err)
		}
		if err := os.WriteFile(path, snapshot, 0o644); err != nil {
			return GoldenAbsent, fmt.Errorf("write golden file: %w", err)
		}
		return GoldenUpdated, nil
	}

	want, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return GoldenAbsent, nil
	case err != nil:
		return GoldenAbsent, fmt.Errorf("read golden file: %w", err)
	case !bytes.Equal(want, snapshot):
		return GoldenMismatch, errors.New("snapshot does not match golden file (run with --update to regenerate)")
	}
	return GoldenMatched, nil
}

func printScenario(w io.Writer, s ScenarioResult) {
	var detail []string
	if s.Model != "" {
		detail = append(detail, "model "+s.Model)
	}
	if s.Solve != "" {
		detail = append(detail, string(s.Solve))
	}
	if s.Golden != GoldenAbsent {
		detail = append(detail, "golden "+s.Golden)
	}
	suffix := ""
	if len(detail) > 0 {
		suffix = " (" + strings.Join(detail, ", ") + ")"
	}

	if s.Pass {
		fmt.Fprintf(w, "✓ %s%s\n", s.Name, suffix)
		return
	}
	fmt.Fprintf(w, "✗ %s%s\n", s.Name, suffix)
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
