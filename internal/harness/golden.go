package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a scenario outcome as stable text: the compiled model,
// then the solve status and every solved value in variable order.
func Snapshot(name string, r *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	if r.Model == nil {
		fmt.Fprintf(&b, "error: %v\n", r.CompileErr)
		return []byte(b.String())
	}
	fmt.Fprintf(&b, "model: %s\n", r.Model.Name)
	b.WriteString(r.Model.String())
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "issue %s %s: %s\n", issue.Code, issue.Field, issue.Message)
	}
	if r.Status == "" {
		return []byte(b.String())
	}
	fmt.Fprintf(&b, "solve: %s\n", r.Status)
	if r.Solution != nil {
		fmt.Fprintf(&b, "objective: %s\n", formatValue(r.Solution.Objective))
		for i, v := range r.Solution.Values {
			fmt.Fprintf(&b, "  %s = %s\n", r.Model.Variables[i].Label(), formatValue(v.Value))
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario.Name, result))
	return result, nil
}
