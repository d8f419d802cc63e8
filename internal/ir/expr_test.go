package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinExprMergesAndSorts(t *testing.T) {
	e := VarExpr(2).Scale(3).Add(VarExpr(0)).Add(VarExpr(2)).Add(Const(4))
	assert.Equal(t, []Term{{Var: 0, Coef: 1}, {Var: 2, Coef: 4}}, e.Terms)
	assert.Equal(t, 4.0, e.Constant)
}

func TestSumMergesOnce(t *testing.T) {
	sq, err := VarExpr(1).Mul(VarExpr(0))
	require.NoError(t, err)
	e := Sum(VarExpr(3), Const(2), VarExpr(1).Scale(2), VarExpr(3).Scale(-1), sq, sq, Const(-5))

	assert.Equal(t, -3.0, e.Constant)
	assert.Equal(t, []Term{{Var: 1, Coef: 2}}, e.Terms)
	assert.Equal(t, []QuadTerm{{A: 0, B: 1, Coef: 2}}, e.Quad)
	assert.True(t, Sum().IsConstant())
	assert.Equal(t, []Term{{Var: 0, Coef: 1}, {Var: 4, Coef: 1}}, Sum(VarExpr(4), VarExpr(0)).Terms)
}

func TestLinExprDropsCancelledTerms(t *testing.T) {
	e := VarExpr(1).Sub(VarExpr(1))
	assert.True(t, e.IsConstant())
	assert.Nil(t, e.Terms)
}

func TestLinExprMul(t *testing.T) {
	// (x0 + 2)(x1 - 1) = x0*x1 - x0 + 2*x1 - 2
	left := VarExpr(0).Add(Const(2))
	right := VarExpr(1).Sub(Const(1))
	got, err := left.Mul(right)
	require.NoError(t, err)

	assert.Equal(t, -2.0, got.Constant)
	assert.Equal(t, []Term{{Var: 0, Coef: -1}, {Var: 1, Coef: 2}}, got.Terms)
	assert.Equal(t, []QuadTerm{{A: 0, B: 1, Coef: 1}}, got.Quad)
	assert.Equal(t, 2, got.Degree())
}

func TestLinExprMulRejectsCubic(t *testing.T) {
	sq, err := VarExpr(0).Mul(VarExpr(0))
	require.NoError(t, err)
	_, err = sq.Mul(VarExpr(1))
	assert.ErrorIs(t, err, ErrDegree)
}

func TestLinExprEval(t *testing.T) {
	e, err := VarExpr(0).Add(Const(1)).Mul(VarExpr(1))
	require.NoError(t, err)
	vals := map[int]float64{0: 2, 1: 5}
	assert.Equal(t, 15.0, e.Eval(func(id int) float64 { return vals[id] }))
}

func TestModelFormatExpr(t *testing.T) {
	vars := []Variable{
		{ID: 0, Name: "iscovered", Tuple: Tuple{IntIndex(0)}, Domain: DomainBinary},
		{ID: 1, Name: "iscovered", Tuple: Tuple{IntIndex(1)}, Domain: DomainBinary},
		{ID: 2, Name: "z", Tuple: Tuple{StrIndex("P1"), IntIndex(2)}, Domain: DomainContinuous},
	}
	m, err := NewModel("m", nil, vars, nil, Objective{Sense: Maximize})
	require.NoError(t, err)

	e := VarExpr(0).Scale(10).Add(VarExpr(1).Scale(20))
	assert.Equal(t, "10*iscovered_0 + 20*iscovered_1", m.FormatExpr(e))

	e = VarExpr(2).Scale(-1).Add(Const(3))
	assert.Equal(t, "-z_{P1,2} + 3", m.FormatExpr(e))

	assert.Equal(t, "0", m.FormatExpr(LinExpr{}))
}

func TestNewModelRejectsDuplicateVariables(t *testing.T) {
	vars := []Variable{
		{ID: 0, Name: "x", Tuple: Tuple{IntIndex(0)}},
		{ID: 1, Name: "x", Tuple: Tuple{IntIndex(0)}},
	}
	_, err := NewModel("m", nil, vars, nil, Objective{})
	assert.ErrorContains(t, err, "duplicate variable x_0")
}

func TestModelLookup(t *testing.T) {
	vars := []Variable{{ID: 0, Name: "x", Tuple: Tuple{StrIndex("a")}}}
	m, err := NewModel("m", nil, vars, nil, Objective{})
	require.NoError(t, err)

	v, ok := m.Lookup("x", Tuple{StrIndex("a")})
	require.True(t, ok)
	assert.Equal(t, 0, v.ID)

	_, ok = m.Lookup("x", Tuple{StrIndex("b")})
	assert.False(t, ok)
}
