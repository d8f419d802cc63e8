package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/sigma/internal/ir"
)

// VariableValue is the solved value of one variable.
type VariableValue struct {
	Name  string   `json:"name"`
	Tuple ir.Tuple `json:"tuple"`
	Value float64  `json:"value"`
}

// Solution is the result of an optimal solve.
type Solution struct {
	Status    Status          `json:"status"`
	Objective float64         `json:"objective"`
	Values    []VariableValue `json:"values"`
}

// Value returns the solved value of name at tuple t.
func (s *Solution) Value(name string, t ir.Tuple) (float64, bool) {
	for _, v := range s.Values {
		if v.Name == name && v.Tuple.Equal(t) {
			return v.Value, true
		}
	}
	return 0, false
}

// BuilderError reports a solve that did not end optimal.
type BuilderError struct {
	Status Status
	Err    error
}

func (e *BuilderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("solve: %s", e.Status)
	}
	return fmt.Sprintf("solve: %s: %v", e.Status, e.Err)
}

func (e *BuilderError) Unwrap() error { return e.Err }

// IsInfeasible returns true if err reports an infeasible model.
func IsInfeasible(err error) bool {
	return hasStatus(err, StatusInfeasible)
}

// IsUnbounded returns true if err reports an unbounded model.
func IsUnbounded(err error) bool {
	return hasStatus(err, StatusUnbounded)
}

// IsSolverError returns true if err reports a backend failure rather than
// a property of the model.
func IsSolverError(err error) bool {
	return hasStatus(err, StatusError)
}

func hasStatus(err error, s Status) bool {
	var be *BuilderError
	return errors.As(err, &be) && be.Status == s
}

// Solve submits m to b, runs the backend once and collects values. A
// status other than optimal comes back as a *BuilderError.
func Solve(ctx context.Context, b Builder, m *ir.Model) (*Solution, error) {
	sub, err := Submit(b, m)
	if err != nil {
		return nil, &BuilderError{Status: StatusError, Err: err}
	}
	status, err := b.Solve(ctx)
	if err != nil {
		return nil, &BuilderError{Status: StatusError, Err: err}
	}
	switch status {
	case StatusOptimal:
	case StatusInfeasible, StatusUnbounded:
		return nil, &BuilderError{Status: status}
	case StatusError:
		return nil, &BuilderError{Status: StatusError, Err: errors.New("backend reported an error")}
	default:
		return nil, &BuilderError{Status: StatusError, Err: fmt.Errorf("unknown status %q", status)}
	}

	values := make([]float64, len(m.Variables))
	sol := &Solution{Status: StatusOptimal, Values: make([]VariableValue, len(m.Variables))}
	for i, v := range m.Variables {
		x, err := b.ValueOf(sub.Handles[i])
		if err != nil {
			return nil, &BuilderError{Status: StatusError, Err: fmt.Errorf("value of %s: %w", v.Label(), err)}
		}
		values[i] = x
		sol.Values[i] = VariableValue{Name: v.Name, Tuple: v.Tuple, Value: x}
	}
	sol.Objective = m.Objective.Expr.Eval(func(id int) float64 { return values[id] })
	return sol, nil
}
