package builder

import (
	"context"
	"fmt"

	"github.com/roach88/sigma/internal/ir"
)

// Handle identifies a variable declared through an Emitter.
type Handle int

// ConstraintID identifies a constraint added through an Emitter.
type ConstraintID int

// Status is the outcome a backend reports for a solve.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusError      Status = "error"
)

// Term is coef * variable.
type Term struct {
	Var  Handle
	Coef float64
}

// QuadTerm is coef * a * b.
type QuadTerm struct {
	A, B Handle
	Coef float64
}

// Expr is an expression over backend handles.
type Expr struct {
	Constant float64
	Terms    []Term
	Quad     []QuadTerm
}

// Emitter receives a model one call at a time.
type Emitter interface {
	DeclareVariable(name string, domain ir.Domain, lower, upper *float64) (Handle, error)
	AddConstraint(lhs Expr, op ir.Op, rhs Expr) (ConstraintID, error)
	SetObjective(expr Expr, sense ir.Sense) error
}

// Builder is an Emitter that can also solve.
type Builder interface {
	Emitter
	// Solve blocks until the backend finishes or ctx is done.
	Solve(ctx context.Context) (Status, error)
	// ValueOf is only valid after Solve reported StatusOptimal.
	ValueOf(h Handle) (float64, error)
}

// Submission maps model variable ids to the handles a backend returned.
type Submission struct {
	Handles     []Handle
	Constraints []ConstraintID
}

// Submit issues DeclareVariable for every variable, AddConstraint for every
// constraint instance and then SetObjective, in model order.
func Submit(e Emitter, m *ir.Model) (*Submission, error) {
	sub := &Submission{
		Handles:     make([]Handle, len(m.Variables)),
		Constraints: make([]ConstraintID, 0, len(m.Constraints)),
	}
	for i, v := range m.Variables {
		h, err := e.DeclareVariable(v.Label(), v.Domain, v.Lower, v.Upper)
		if err != nil {
			return nil, fmt.Errorf("declare %s: %w", v.Label(), err)
		}
		sub.Handles[i] = h
	}
	for _, c := range m.Constraints {
		id, err := e.AddConstraint(sub.expr(c.LHS), c.Op, sub.expr(c.RHS))
		if err != nil {
			return nil, fmt.Errorf("add constraint %s: %w", c.Label(), err)
		}
		sub.Constraints = append(sub.Constraints, id)
	}
	if err := e.SetObjective(sub.expr(m.Objective.Expr), m.Objective.Sense); err != nil {
		return nil, fmt.Errorf("set objective: %w", err)
	}
	return sub, nil
}

func (s *Submission) expr(e ir.LinExpr) Expr {
	out := Expr{Constant: e.Constant}
	if len(e.Terms) > 0 {
		out.Terms = make([]Term, len(e.Terms))
		for i, t := range e.Terms {
			out.Terms[i] = Term{Var: s.Handles[t.Var], Coef: t.Coef}
		}
	}
	if len(e.Quad) > 0 {
		out.Quad = make([]QuadTerm, len(e.Quad))
		for i, q := range e.Quad {
			out.Quad[i] = QuadTerm{A: s.Handles[q.A], B: s.Handles[q.B], Coef: q.Coef}
		}
	}
	return out
}
