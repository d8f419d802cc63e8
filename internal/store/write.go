package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/sigma/internal/ir"
)

// Run is one stored solve.
type Run struct {
	ID        string
	ModelHash string
	Seq       int64
	Solver    string
	Status    string
	// Objective is nil unless the solve ended optimal.
	Objective *float64
	Message   string
	// Elapsed is the wall time the solve took, stored at millisecond
	// resolution. It is informational; runs are ordered by Seq.
	Elapsed time.Duration
	Values  []Value
}

// Value is the stored solution value of one variable.
type Value struct {
	VariableID int
	Name       string
	Tuple      ir.Tuple
	Value      float64
}

// WriteModel stores a compiled model under its content hash and returns
// the hash. Uses ON CONFLICT(hash) DO NOTHING for idempotency - writing
// the same model twice keeps one row.
func (s *Store) WriteModel(ctx context.Context, m *ir.Model) (string, error) {
	hash, err := ir.ModelHash(m)
	if err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}
	body, err := marshalModel(m)
	if err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO models
		(hash, name, sense, variable_count, constraint_count, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		hash,
		m.Name,
		string(m.Objective.Sense),
		len(m.Variables),
		len(m.Constraints),
		body,
	)
	if err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}
	return hash, nil
}

// WriteRun inserts a run and its values in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - rewriting a run ID
// leaves the first write in place.
//
// Note: The model referenced by ModelHash must exist (foreign key constraint).
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: id is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var objective sql.NullFloat64
	if run.Objective != nil {
		objective = sql.NullFloat64{Float64: *run.Objective, Valid: true}
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, model_hash, seq, solver, status, objective, message, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ModelHash,
		run.Seq,
		run.Solver,
		run.Status,
		objective,
		run.Message,
		run.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_values (run_id, variable_id, name, tuple, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run values: %w", err)
	}
	defer stmt.Close()
	for _, v := range run.Values {
		tuple, err := marshalTuple(v.Tuple)
		if err != nil {
			return fmt.Errorf("write run values: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, v.VariableID, v.Name, tuple, v.Value); err != nil {
			return fmt.Errorf("write run values: %s: %w", v.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}
