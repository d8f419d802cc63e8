// Package session runs the full pipeline for one model: load the spec,
// compile it, solve it with a builder and record the run.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/sigma/internal/builder"
	"github.com/roach88/sigma/internal/compiler"
	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/modelspec"
	"github.com/roach88/sigma/internal/store"
)

// Options configures a Session. Every field is optional.
type Options struct {
	// Store records models and runs. Nil disables persistence.
	Store *store.Store
	// IDs generates run IDs. Defaults to UUIDv7Generator.
	IDs IDGenerator
	// Logger receives progress logs. Defaults to a discard logger.
	Logger *slog.Logger
}

// Session owns the run clock and the optional store.
type Session struct {
	store  *store.Store
	ids    IDGenerator
	clock  *Clock
	logger *slog.Logger
}

// New creates a session. With a store, the run clock resumes after the
// last stored run.
func New(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{store: opts.Store, ids: opts.IDs, logger: opts.Logger}
	if s.ids == nil {
		s.ids = UUIDv7Generator{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var last int64
	if s.store != nil {
		var err error
		if last, err = s.store.LastSeq(ctx); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}
	s.clock = NewClockAt(last)
	return s, nil
}

// Compiled is a spec compiled against its data.
type Compiled struct {
	Spec   *modelspec.Spec
	Model  *ir.Model
	Hash   string
	Issues []compiler.ValidationError
}

// Load reads the spec at path and compiles it.
func (s *Session) Load(path, model string) (*Compiled, error) {
	spec, err := modelspec.Load(path, model)
	if err != nil {
		return nil, err
	}
	return s.Compile(spec)
}

// Compile builds the spec's context, expands the model and runs the
// structural checks. Validation issues are reported, not returned as an
// error.
func (s *Session) Compile(spec *modelspec.Spec) (*Compiled, error) {
	start := time.Now()
	ctx, err := spec.Context()
	if err != nil {
		return nil, err
	}
	m, err := compiler.Compile(ctx, spec.Source())
	if err != nil {
		s.logger.Warn("compile failed", "model", spec.Name, "error", err)
		return nil, err
	}
	hash, err := ir.ModelHash(m)
	if err != nil {
		return nil, err
	}
	issues := compiler.Validate(m)
	s.logger.Info("model compiled",
		"model", m.Name,
		"hash", hash[:12],
		"variables", len(m.Variables),
		"constraints", len(m.Constraints),
		"issues", len(issues),
		"elapsed", time.Since(start),
	)
	for _, issue := range issues {
		s.logger.Debug("validation issue", "code", issue.Code, "field", issue.Field, "message", issue.Message)
	}
	return &Compiled{Spec: spec, Model: m, Hash: hash, Issues: issues}, nil
}

// Result is one solve attempt.
type Result struct {
	RunID     string
	Seq       int64
	ModelHash string
	Solver    string
	Status    builder.Status
	Elapsed   time.Duration
	// Solution is nil unless Status is optimal.
	Solution *builder.Solution
}

// Solve runs b on the compiled model and records the run. A solve that
// does not end optimal returns the Result alongside the *builder.BuilderError,
// and is still recorded.
func (s *Session) Solve(ctx context.Context, c *Compiled, b builder.Builder, solver string) (*Result, error) {
	res := &Result{RunID: s.ids.Generate(), ModelHash: c.Hash, Solver: solver}
	log := s.logger.With("run", res.RunID, "model", c.Model.Name, "solver", solver)
	log.Info("solve starting", "variables", len(c.Model.Variables), "constraints", len(c.Model.Constraints))

	start := time.Now()
	sol, solveErr := builder.Solve(ctx, b, c.Model)
	res.Solution = sol
	res.Status = builder.StatusOptimal
	if solveErr != nil {
		res.Status = builder.StatusError
		var be *builder.BuilderError
		if errors.As(solveErr, &be) {
			res.Status = be.Status
		}
	}
	res.Seq = s.clock.Next()
	res.Elapsed = time.Since(start)

	if solveErr != nil {
		log.Warn("solve did not reach optimal", "status", res.Status, "error", solveErr, "elapsed", res.Elapsed)
	} else {
		log.Info("solve finished", "status", res.Status, "objective", sol.Objective, "elapsed", res.Elapsed)
	}

	if s.store != nil {
		if err := s.record(ctx, c, res, solveErr); err != nil {
			log.Error("recording run failed", "error", err)
			return res, errors.Join(solveErr, err)
		}
		log.Debug("run recorded", "seq", res.Seq)
	}
	return res, solveErr
}

func (s *Session) record(ctx context.Context, c *Compiled, res *Result, solveErr error) error {
	hash, err := s.store.WriteModel(ctx, c.Model)
	if err != nil {
		return err
	}
	run := store.Run{
		ID:        res.RunID,
		ModelHash: hash,
		Seq:       res.Seq,
		Solver:    res.Solver,
		Status:    string(res.Status),
		Elapsed:   res.Elapsed,
	}
	if solveErr != nil {
		var be *builder.BuilderError
		if errors.As(solveErr, &be) && be.Err != nil {
			run.Message = be.Err.Error()
		} else if !errors.As(solveErr, &be) {
			run.Message = solveErr.Error()
		}
	}
	if res.Solution != nil {
		obj := res.Solution.Objective
		run.Objective = &obj
		run.Values = make([]store.Value, len(res.Solution.Values))
		for i, v := range res.Solution.Values {
			run.Values[i] = store.Value{VariableID: i, Name: v.Name, Tuple: v.Tuple, Value: v.Value}
		}
	}
	return s.store.WriteRun(ctx, run)
}

// Runs lists recorded runs, optionally for one model hash.
func (s *Session) Runs(ctx context.Context, modelHash string, limit int) ([]store.Run, error) {
	if s.store == nil {
		return nil, errors.New("session: no store configured")
	}
	return s.store.ListRuns(ctx, modelHash, limit)
}

// Run reads one recorded run by id or unique id prefix.
func (s *Session) Run(ctx context.Context, id string) (store.Run, error) {
	if s.store == nil {
		return store.Run{}, errors.New("session: no store configured")
	}
	return s.store.ReadRun(ctx, id)
}
