package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"b": 1, "a": "x", "c": []any{true, 2.5}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":[true,2.5]}`, string(got))
}

func TestMarshalCanonicalIntegralFloats(t *testing.T) {
	got, err := MarshalCanonical([]any{10.0, -3.0, 0.1})
	require.NoError(t, err)
	assert.Equal(t, `[10,-3,0.1]`, string(got))
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(math.Inf(1))
	assert.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)
}

func TestMarshalCanonicalNFC(t *testing.T) {
	composed, err := MarshalCanonical("caf\u00e9")
	require.NoError(t, err)
	decomposed, err := MarshalCanonical("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical("a<b&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b&c"`, string(got))
}

func TestMarshalCanonicalLineSeparator(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))
}

func TestModelHashStable(t *testing.T) {
	build := func() *Model {
		vars := []Variable{
			{ID: 0, Name: "x", Tuple: Tuple{IntIndex(0)}, Domain: DomainBinary},
			{ID: 1, Name: "x", Tuple: Tuple{IntIndex(1)}, Domain: DomainBinary},
		}
		cons := []Constraint{{
			Name: "budget",
			LHS:  VarExpr(0).Scale(5).Add(VarExpr(1).Scale(30)),
			Op:   OpLE,
			RHS:  Const(20),
		}}
		m, err := NewModel("cover", []VariableDecl{{Name: "x", Sets: []string{"T"}, Domain: DomainBinary}}, vars, cons,
			Objective{Expr: VarExpr(0).Add(VarExpr(1)), Sense: Maximize})
		require.NoError(t, err)
		return m
	}

	h1, err := ModelHash(build())
	require.NoError(t, err)
	h2, err := ModelHash(build())
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	changed := build()
	changed.Objective.Sense = Minimize
	h3, err := ModelHash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
