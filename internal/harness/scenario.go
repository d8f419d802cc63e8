package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sigma/internal/builder"
)

// Scenario defines a model conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Spec is the path to the model spec, relative to the scenario file.
	Spec string `yaml:"spec"`

	// Model selects one model when the spec defines several.
	Model string `yaml:"model,omitempty"`

	// Solve scripts a recording-builder solve after compilation.
	Solve *SolveStep `yaml:"solve,omitempty"`

	// ExpectError names the error kind compilation must fail with.
	// See the Error* constants.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the compiled model and solve.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is a fixed run id for deterministic output. Defaults to
	// "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// SolveStep scripts the recording builder.
type SolveStep struct {
	// Status the builder reports; empty means optimal.
	Status string `yaml:"status,omitempty"`
	// Values by variable label; missing labels solve to zero.
	Values map[string]float64 `yaml:"values,omitempty"`
}

// Assertion validates one property of the outcome.
type Assertion struct {
	// Type specifies the assertion type; see the Assert* constants.
	Type string `yaml:"type"`

	// Name filters variable_count and constraint_count to one family.
	Name string `yaml:"name,omitempty"`

	// Label is a constraint label (constraint) or variable label
	// (solution_value).
	Label string `yaml:"label,omitempty"`

	// Text is the expected rendering (constraint, objective).
	Text string `yaml:"text,omitempty"`

	// Sense is the expected objective sense (objective).
	Sense string `yaml:"sense,omitempty"`

	// Count is the expected number (variable_count, constraint_count,
	// stored_runs).
	Count int `yaml:"count,omitempty"`

	// Value is the expected solved value (solution_value, objective_value).
	Value float64 `yaml:"value,omitempty"`

	// Status is the expected solve status (solve_status).
	Status string `yaml:"status,omitempty"`

	// Code is a validation issue code (issue).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertVariableCount   = "variable_count"
	AssertConstraintCount = "constraint_count"
	AssertConstraint      = "constraint"
	AssertObjective       = "objective"
	AssertSolutionValue   = "solution_value"
	AssertObjectiveValue  = "objective_value"
	AssertSolveStatus     = "solve_status"
	AssertIssue           = "issue"
	AssertStoredRuns      = "stored_runs"
)

// Expected error kinds.
const (
	ErrorSyntax         = "syntax"
	ErrorUnboundIndex   = "unbound_index"
	ErrorDuplicateIndex = "duplicate_index"
	ErrorUnknownName    = "unknown_name"
	ErrorDomainMismatch = "domain_mismatch"
	ErrorIndexRange     = "index_range"
	ErrorMissingEntry   = "missing_entry"
	ErrorCompile        = "compile"
	ErrorLoad           = "load"
)

// LoadScenario reads and parses a scenario YAML file, resolving the spec
// path relative to the file. Returns an error if the file doesn't exist,
// is malformed, contains unknown fields (typos), or is missing required
// fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Spec != "" && !filepath.IsAbs(scenario.Spec) {
		scenario.Spec = filepath.Join(filepath.Dir(path), scenario.Spec)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarioDir loads every *.yaml scenario in dir, sorted by file
// name. Scenario names must be unique.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	seen := make(map[string]string, len(paths))
	var out []*Scenario
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(p), s.Name, prev)
		}
		seen[s.Name] = filepath.Base(p)
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Spec == "" {
		return fmt.Errorf("spec is required")
	}
	if _, err := os.Stat(s.Spec); os.IsNotExist(err) {
		return fmt.Errorf("spec file not found: %s", s.Spec)
	}
	if len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}
	if s.ExpectError != "" {
		if _, ok := errorKinds[s.ExpectError]; !ok {
			return fmt.Errorf("unknown expect_error %q", s.ExpectError)
		}
		if s.Solve != nil {
			return fmt.Errorf("solve cannot run when compilation is expected to fail")
		}
	}
	if s.Solve != nil {
		switch builder.Status(s.Solve.Status) {
		case "", builder.StatusOptimal, builder.StatusInfeasible, builder.StatusUnbounded, builder.StatusError:
		default:
			return fmt.Errorf("solve: unknown status %q", s.Solve.Status)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, s.Solve != nil); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, solves bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertVariableCount, AssertConstraintCount, AssertStoredRuns:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertConstraint:
		if a.Label == "" || a.Text == "" {
			return fmt.Errorf("assertions[%d]: label and text are required for constraint", index)
		}
	case AssertObjective:
		if a.Text == "" && a.Sense == "" {
			return fmt.Errorf("assertions[%d]: text or sense is required for objective", index)
		}
	case AssertSolutionValue:
		if a.Label == "" {
			return fmt.Errorf("assertions[%d]: label is required for solution_value", index)
		}
	case AssertSolveStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for solve_status", index)
		}
	case AssertIssue:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for issue", index)
		}
	case AssertObjectiveValue:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	switch a.Type {
	case AssertSolutionValue, AssertObjectiveValue, AssertSolveStatus:
		if !solves {
			return fmt.Errorf("assertions[%d]: %s needs a solve step", index, a.Type)
		}
	}
	return nil
}
