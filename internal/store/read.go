package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ModelRecord is a stored model's summary and canonical body.
type ModelRecord struct {
	Hash            string
	Name            string
	Sense           string
	VariableCount   int
	ConstraintCount int
	Body            string
}

// ReadModel retrieves a model by hash.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadModel(ctx context.Context, hash string) (ModelRecord, error) {
	var m ModelRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, name, sense, variable_count, constraint_count, body
		FROM models WHERE hash = ?
	`, hash).Scan(&m.Hash, &m.Name, &m.Sense, &m.VariableCount, &m.ConstraintCount, &m.Body)
	if err != nil {
		return ModelRecord{}, err
	}
	return m, nil
}

// ReadRun retrieves a run and its values. id may be a unique prefix.
// Returns sql.ErrNoRows if nothing matches.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model_hash, seq, solver, status, objective, message, elapsed_ms
		FROM runs WHERE id = ? OR id LIKE ? || '%'
		ORDER BY id = ? DESC, seq ASC, id COLLATE BINARY ASC
		LIMIT 2
	`, id, id, id)
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	switch {
	case len(runs) == 0:
		return Run{}, sql.ErrNoRows
	case len(runs) > 1 && runs[0].ID != id:
		return Run{}, fmt.Errorf("read run: prefix %q matches more than one run", id)
	}
	run := runs[0]
	if run.Values, err = s.readValues(ctx, run.ID); err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns runs without their values, oldest first. An empty
// modelHash lists every run. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, modelHash string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model_hash, seq, solver, status, objective, message, elapsed_ms
		FROM runs WHERE ? = '' OR model_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT ?
	`, modelHash, modelHash, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LastSeq returns the highest run seq, or 0 for an empty store.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) readValues(ctx context.Context, runID string) ([]Value, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT variable_id, name, tuple, value
		FROM run_values WHERE run_id = ?
		ORDER BY variable_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read run values: %w", err)
	}
	defer rows.Close()

	var values []Value
	for rows.Next() {
		var (
			v     Value
			tuple string
		)
		if err := rows.Scan(&v.VariableID, &v.Name, &tuple, &v.Value); err != nil {
			return nil, fmt.Errorf("read run values: %w", err)
		}
		if v.Tuple, err = unmarshalTuple(tuple); err != nil {
			return nil, fmt.Errorf("read run values: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var (
			r         Run
			objective sql.NullFloat64
			elapsedMS int64
		)
		if err := rows.Scan(&r.ID, &r.ModelHash, &r.Seq, &r.Solver, &r.Status, &objective, &r.Message, &elapsedMS); err != nil {
			return nil, err
		}
		if objective.Valid {
			v := objective.Float64
			r.Objective = &v
		}
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
