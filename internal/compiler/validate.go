package compiler

import (
	"fmt"

	"github.com/roach88/sigma/internal/ir"
)

// Model lint codes (E100-E199). These flag models that compile but are
// probably not what the author meant; none of them stop a solve.
const (
	ErrEmptyModel          = "E101" // no decision variables
	ErrConstantObjective   = "E102" // objective has no decision variables
	ErrConstantConstraint  = "E103" // constraint instance has no decision variables
	ErrViolatedConstant    = "E104" // constant constraint instance can never hold
	ErrUnusedVariable      = "E105" // variable appears in no constraint or objective
	ErrEmptyDeclaration    = "E106" // declaration over an empty set
	ErrIntegralBoundsFloat = "E107" // integer variable with fractional bounds
)

// ValidationError is one lint finding on a compiled model.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate lints a compiled model. Returns all findings (does not fail-fast).
func Validate(m *ir.Model) []ValidationError {
	var errs []ValidationError

	// E101: a model needs something to decide
	if len(m.Variables) == 0 {
		errs = append(errs, ValidationError{
			Field:   "variables",
			Message: "model declares no decision variables",
			Code:    ErrEmptyModel,
		})
	}

	// E102: objective should depend on the decision
	if len(m.Objective.Expr.Vars()) == 0 {
		errs = append(errs, ValidationError{
			Field:   ObjectiveTemplate,
			Message: fmt.Sprintf("objective is the constant %s", m.FormatExpr(m.Objective.Expr)),
			Code:    ErrConstantObjective,
		})
	}

	used := make(map[int]bool, len(m.Variables))
	for _, id := range m.Objective.Expr.Vars() {
		used[id] = true
	}
	for _, c := range m.Constraints {
		diff := c.LHS.Sub(c.RHS)
		vars := diff.Vars()
		for _, id := range vars {
			used[id] = true
		}
		if len(vars) > 0 {
			continue
		}
		// E103/E104: constant instances are trivially true or false
		if holds(-diff.Constant, c.Op) {
			errs = append(errs, ValidationError{
				Field:   c.Label(),
				Message: fmt.Sprintf("%s always holds", m.FormatConstraint(c)),
				Code:    ErrConstantConstraint,
			})
		} else {
			errs = append(errs, ValidationError{
				Field:   c.Label(),
				Message: fmt.Sprintf("%s can never hold", m.FormatConstraint(c)),
				Code:    ErrViolatedConstant,
			})
		}
	}

	// E105: variables nothing refers to
	for _, v := range m.Variables {
		if !used[v.ID] {
			errs = append(errs, ValidationError{
				Field:   v.Label(),
				Message: "variable appears in no constraint and not in the objective",
				Code:    ErrUnusedVariable,
			})
		}
	}

	for _, d := range m.Decls {
		// E106: declaration materialized nothing
		if len(d.Sets) > 0 && len(m.VariablesOf(d.Name)) == 0 {
			errs = append(errs, ValidationError{
				Field:   d.Name,
				Message: "declared over an empty set",
				Code:    ErrEmptyDeclaration,
			})
		}
		// E107: integer bounds must be integral
		if d.Domain == ir.DomainInteger && (fractional(d.Lower) || fractional(d.Upper)) {
			errs = append(errs, ValidationError{
				Field:   d.Name,
				Message: "integer variable has fractional bounds",
				Code:    ErrIntegralBoundsFloat,
			})
		}
	}
	return errs
}

// holds reports whether 0 op rhs, the form lhs-rhs op 0 reduces to.
func holds(rhs float64, op ir.Op) bool {
	switch op {
	case ir.OpLE:
		return 0 <= rhs
	case ir.OpGE:
		return 0 >= rhs
	default:
		return rhs == 0
	}
}

func fractional(b *float64) bool {
	return b != nil && *b != float64(int64(*b))
}
