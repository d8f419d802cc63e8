package builder

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/sigma/internal/ir"
)

// CallKind names a recorded Emitter call.
type CallKind string

const (
	CallDeclare    CallKind = "declare"
	CallConstraint CallKind = "constraint"
	CallObjective  CallKind = "objective"
	CallSolve      CallKind = "solve"
)

// Call is one recorded call.
type Call struct {
	Kind   CallKind
	Name   string
	Domain ir.Domain
	Lower  *float64
	Upper  *float64
	LHS    Expr
	Op     ir.Op
	RHS    Expr
	Sense  ir.Sense
}

// Recorder is an in-memory Builder. It records every call and answers Solve
// with a scripted status and values. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	names  []string
	rows   int
	solved bool

	// Status is returned by Solve; empty means StatusOptimal.
	Status Status
	// Err is returned by Solve when set.
	Err error
	// Values are reported by ValueOf, keyed by variable label. Missing
	// labels solve to zero.
	Values map[string]float64
}

// NewRecorder returns a recorder that reports status and values.
func NewRecorder(status Status, values map[string]float64) *Recorder {
	return &Recorder{Status: status, Values: values}
}

// DeclareVariable implements Emitter.
func (r *Recorder) DeclareVariable(name string, domain ir.Domain, lower, upper *float64) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Kind: CallDeclare, Name: name, Domain: domain, Lower: lower, Upper: upper})
	r.names = append(r.names, name)
	return Handle(len(r.names) - 1), nil
}

// AddConstraint implements Emitter.
func (r *Recorder) AddConstraint(lhs Expr, op ir.Op, rhs Expr) (ConstraintID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkHandles(lhs, rhs); err != nil {
		return 0, err
	}
	id := ConstraintID(r.rows)
	r.rows++
	r.calls = append(r.calls, Call{Kind: CallConstraint, LHS: lhs, Op: op, RHS: rhs})
	return id, nil
}

// SetObjective implements Emitter.
func (r *Recorder) SetObjective(expr Expr, sense ir.Sense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkHandles(expr); err != nil {
		return err
	}
	r.calls = append(r.calls, Call{Kind: CallObjective, LHS: expr, Sense: sense})
	return nil
}

// Solve implements Builder.
func (r *Recorder) Solve(ctx context.Context) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Kind: CallSolve})
	if err := ctx.Err(); err != nil {
		return StatusError, err
	}
	if r.Err != nil {
		return StatusError, r.Err
	}
	r.solved = true
	if r.Status == "" {
		return StatusOptimal, nil
	}
	return r.Status, nil
}

// ValueOf implements Builder.
func (r *Recorder) ValueOf(h Handle) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.solved || (r.Status != "" && r.Status != StatusOptimal) {
		return 0, fmt.Errorf("no solution available")
	}
	if int(h) < 0 || int(h) >= len(r.names) {
		return 0, fmt.Errorf("unknown handle %d", h)
	}
	return r.Values[r.names[h]], nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Name returns the label a handle was declared with.
func (r *Recorder) Name(h Handle) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(h) < 0 || int(h) >= len(r.names) {
		return ""
	}
	return r.names[h]
}

func (r *Recorder) checkHandles(exprs ...Expr) error {
	for _, e := range exprs {
		for _, t := range e.Terms {
			if t.Var < 0 || int(t.Var) >= len(r.names) {
				return fmt.Errorf("unknown handle %d", t.Var)
			}
		}
		for _, q := range e.Quad {
			if q.A < 0 || q.B < 0 || int(q.A) >= len(r.names) || int(q.B) >= len(r.names) {
				return fmt.Errorf("unknown handle %d/%d", q.A, q.B)
			}
		}
	}
	return nil
}
