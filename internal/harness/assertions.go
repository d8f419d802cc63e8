package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/sigma/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	// Model is the rendered model for context, empty if none compiled.
	Model string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Model != "" {
		fmt.Fprintf(&buf, "\nModel:\n%s", e.Model)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(r *Result, a Assertion) error {
	if r.Model == nil && a.Type != AssertStoredRuns {
		return &AssertionError{Type: a.Type, Expected: "a compiled model", Actual: "no model"}
	}
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Model: r.Model.String()}
	}

	switch a.Type {
	case AssertVariableCount:
		n := len(r.Model.Variables)
		if a.Name != "" {
			n = len(r.Model.VariablesOf(a.Name))
		}
		if n != a.Count {
			return fail(countOf(a.Count, "variables", a.Name), strconv.Itoa(n))
		}

	case AssertConstraintCount:
		n := len(r.Model.Constraints)
		if a.Name != "" {
			n = len(r.Model.ConstraintsOf(a.Name))
		}
		if n != a.Count {
			return fail(countOf(a.Count, "constraints", a.Name), strconv.Itoa(n))
		}

	case AssertConstraint:
		for _, c := range r.Model.Constraints {
			if c.Label() != a.Label {
				continue
			}
			if got := r.Model.FormatConstraint(c); got != a.Text {
				return fail(a.Label+": "+a.Text, a.Label+": "+got)
			}
			return nil
		}
		return fail("constraint "+a.Label, "not found")

	case AssertObjective:
		if a.Sense != "" {
			want, err := ir.ParseSense(a.Sense)
			if err != nil {
				return err
			}
			if r.Model.Objective.Sense != want {
				return fail("sense "+string(want), "sense "+string(r.Model.Objective.Sense))
			}
		}
		if got := r.Model.FormatExpr(r.Model.Objective.Expr); a.Text != "" && got != a.Text {
			return fail(a.Text, got)
		}

	case AssertSolveStatus:
		if string(r.Status) != a.Status {
			return fail("status "+a.Status, "status "+string(r.Status))
		}

	case AssertSolutionValue:
		if r.Solution == nil {
			return fail(a.Label+" = "+formatValue(a.Value), "no solution (status "+string(r.Status)+")")
		}
		for i, v := range r.Model.Variables {
			if v.Label() == a.Label {
				if got := r.Solution.Values[i].Value; got != a.Value {
					return fail(a.Label+" = "+formatValue(a.Value), a.Label+" = "+formatValue(got))
				}
				return nil
			}
		}
		return fail("variable "+a.Label, "not found")

	case AssertObjectiveValue:
		if r.Solution == nil {
			return fail("objective "+formatValue(a.Value), "no solution (status "+string(r.Status)+")")
		}
		if r.Solution.Objective != a.Value {
			return fail("objective "+formatValue(a.Value), "objective "+formatValue(r.Solution.Objective))
		}

	case AssertIssue:
		var codes []string
		for _, issue := range r.Issues {
			if issue.Code == a.Code {
				return nil
			}
			codes = append(codes, issue.Code)
		}
		return fail("issue "+a.Code, "issues ["+strings.Join(codes, ", ")+"]")

	case AssertStoredRuns:
		if len(r.Runs) != a.Count {
			return &AssertionError{Type: a.Type, Expected: strconv.Itoa(a.Count) + " stored runs", Actual: strconv.Itoa(len(r.Runs))}
		}
	}
	return nil
}

func countOf(n int, what, name string) string {
	if name == "" {
		return fmt.Sprintf("%d %s", n, what)
	}
	return fmt.Sprintf("%d %s of %s", n, what, name)
}

func formatValue(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
