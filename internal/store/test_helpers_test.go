package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sigma/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestModel builds a two-variable knapsack model by hand.
func createTestModel(t *testing.T, name string, budget float64) *ir.Model {
	t.Helper()
	one, zero := 1.0, 0.0
	decls := []ir.VariableDecl{
		{Name: "pick", Sets: []string{"Item"}, Domain: ir.DomainBinary, Lower: &zero, Upper: &one},
	}
	vars := []ir.Variable{
		{ID: 0, Name: "pick", Tuple: ir.Tuple{ir.StrIndex("a")}, Domain: ir.DomainBinary, Lower: &zero, Upper: &one},
		{ID: 1, Name: "pick", Tuple: ir.Tuple{ir.IntIndex(2)}, Domain: ir.DomainBinary, Lower: &zero, Upper: &one},
	}
	cons := []ir.Constraint{{
		Name: "budget",
		LHS:  ir.LinExpr{Terms: []ir.Term{{Var: 0, Coef: 5}, {Var: 1, Coef: 30}}},
		Op:   ir.OpLE,
		RHS:  ir.Const(budget),
	}}
	obj := ir.Objective{Sense: ir.Maximize, Expr: ir.LinExpr{Terms: []ir.Term{{Var: 0, Coef: 10}, {Var: 1, Coef: 20}}}}
	m, err := ir.NewModel(name, decls, vars, cons, obj)
	if err != nil {
		t.Fatalf("NewModel() failed: %v", err)
	}
	return m
}
