package store

import (
	"context"
	"fmt"

	"github.com/roach88/sigma/internal/builder"
	"github.com/roach88/sigma/internal/ir"
)

// Solution rebuilds the solution a run recorded. Runs that did not end
// optimal come back as the same *builder.BuilderError the solve returned.
func (r Run) Solution() (*builder.Solution, error) {
	status := builder.Status(r.Status)
	if status != builder.StatusOptimal {
		var err error
		if r.Message != "" {
			err = fmt.Errorf("%s", r.Message)
		}
		return nil, &builder.BuilderError{Status: status, Err: err}
	}
	sol := &builder.Solution{Status: status, Values: make([]builder.VariableValue, len(r.Values))}
	if r.Objective != nil {
		sol.Objective = *r.Objective
	}
	for i, v := range r.Values {
		sol.Values[i] = builder.VariableValue{Name: v.Name, Tuple: v.Tuple, Value: v.Value}
	}
	return sol, nil
}

// ModelMismatchError reports that a run was recorded against a different
// compiled model than the one being checked.
type ModelMismatchError struct {
	RunID    string
	Stored   string
	Compiled string
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("run %s was solved against model %s, current compilation is %s",
		e.RunID, short(e.Stored), short(e.Compiled))
}

// VerifyRun checks that run id was recorded against the model m compiles
// to today. Any drift in notation or data changes the hash.
func (s *Store) VerifyRun(ctx context.Context, id string, m *ir.Model) (Run, error) {
	run, err := s.ReadRun(ctx, id)
	if err != nil {
		return Run{}, err
	}
	hash, err := ir.ModelHash(m)
	if err != nil {
		return Run{}, fmt.Errorf("verify run: %w", err)
	}
	if hash != run.ModelHash {
		return run, &ModelMismatchError{RunID: run.ID, Stored: run.ModelHash, Compiled: hash}
	}
	return run, nil
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
