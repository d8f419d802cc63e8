package notation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sigma/internal/ir"
)

func TestParseConstraintCoverage(t *testing.T) {
	c, err := ParseConstraint(`Σ_r^{Regions}(iscovered_r) <= 2`)
	require.NoError(t, err)
	assert.Equal(t, ir.OpLE, c.Op)
	sum, ok := c.LHS.(*SumExpr)
	require.True(t, ok)
	assert.Equal(t, "r", sum.Index)
	assert.Equal(t, "Regions", sum.Set)
	assert.Equal(t, "iscovered_r", sum.Body.String())
	assert.Equal(t, "2", c.RHS.String())
}

func TestParseConstraintGuardedSum(t *testing.T) {
	c, err := ParseConstraint(`/sum_t^{Towers}(build_t if r in Coverage_t) >= iscovered_r /forall_r^{Regions}`)
	require.NoError(t, err)
	require.Len(t, c.Quantifiers, 1)
	assert.Equal(t, Quantifier{At: c.Quantifiers[0].At, Index: "r", Set: "Regions"}, c.Quantifiers[0])
	sum := c.LHS.(*SumExpr)
	m, ok := sum.Guard.(*Member)
	require.True(t, ok)
	assert.Equal(t, "r", m.Elem.Index.Name)
	require.NotNil(t, m.Table)
	assert.Equal(t, "Coverage", m.Table.Name)
	assert.Equal(t, ir.OpGE, c.Op)
}

func TestParseConstraintShiftAndGuard(t *testing.T) {
	c, err := ParseConstraint(`z_{p,h} - z_{p,h-1} <= 1 ∀_p^{Plant} ∀_h^{H} if h > 1`)
	require.NoError(t, err)
	require.Len(t, c.Quantifiers, 2)
	bin := c.LHS.(*Binary)
	prev := bin.Right.(*Ref)
	assert.Equal(t, -1, prev.Indices[1].Offset)
	assert.Equal(t, "h", prev.Indices[1].Name)
	cmp, ok := c.Guard.(*Compare)
	require.True(t, ok)
	assert.Equal(t, ">", cmp.Op)
	assert.Equal(t, OperandNumber, cmp.Right.Kind)
	assert.Equal(t, 1.0, cmp.Right.Number)
}

func TestParseConstraintLeadingQuantifier(t *testing.T) {
	c, err := ParseConstraint(`∀_i^{S} x_i >= 1`)
	require.NoError(t, err)
	require.Len(t, c.Quantifiers, 1)
	assert.Equal(t, "x_i", c.LHS.String())
}

func TestParseBareSubscriptNeverShifts(t *testing.T) {
	e, err := ParseObjective(`z_h-1`)
	require.NoError(t, err)
	assert.Equal(t, "(z_h - 1)", e.String())
}

func TestParseBracketSubscript(t *testing.T) {
	e, err := ParseObjective(`Demand[i,'north'] * x_3`)
	require.NoError(t, err)
	bin := e.(*Binary)
	d := bin.Left.(*Ref)
	require.Len(t, d.Indices, 2)
	assert.Equal(t, IndexLit, d.Indices[1].Kind)
	assert.Equal(t, ir.StrIndex("north"), d.Indices[1].Literal)
	x := bin.Right.(*Ref)
	assert.Equal(t, ir.IntIndex(3), x.Indices[0].Literal)
}

func TestParsePrecedence(t *testing.T) {
	e, err := ParseObjective(`1 + 2 * -x - y / 4`)
	require.NoError(t, err)
	assert.Equal(t, "((1 + (2 * -x)) - (y / 4))", e.String())
}

func TestParseSumBodyWithoutParens(t *testing.T) {
	e, err := ParseObjective(`Σ_i^{S} c_i * x_i + 5`)
	require.NoError(t, err)
	assert.Equal(t, "(Σ_i^{S}((c_i * x_i)) + 5)", e.String())
}

func TestParseKnownUnderscoreNames(t *testing.T) {
	known := map[string]bool{"P_N": true, "fuel_type": true}
	opt := WithNames(func(s string) bool { return known[s] })

	e, err := ParseObjective(`Σ_p^{Plant_All}(P_N_p * fuel_type_p)`, opt)
	require.NoError(t, err)
	sum := e.(*SumExpr)
	assert.Equal(t, "Plant_All", sum.Set)
	bin := sum.Body.(*Binary)
	assert.Equal(t, "P_N", bin.Left.(*Ref).Name)
	assert.Equal(t, "fuel_type", bin.Right.(*Ref).Name)

	// Without known names the first underscore starts the subscript.
	e, err = ParseObjective(`P_N`)
	require.NoError(t, err)
	assert.Equal(t, "P", e.(*Ref).Name)
}

func TestParseGuardLogic(t *testing.T) {
	c, err := ParseConstraint(`x_i <= 1 ∀_i^{S} if not (i == 'a' or i = 'b') and d_i != 0`)
	require.NoError(t, err)
	and, ok := c.Guard.(*Logical)
	require.True(t, ok)
	assert.Equal(t, "and", and.Op)
	not, ok := and.Left.(*NotPred)
	require.True(t, ok)
	or := not.X.(*Logical)
	assert.Equal(t, "or", or.Op)
	assert.Equal(t, "==", or.Right.(*Compare).Op)
	right := and.Right.(*Compare)
	assert.Equal(t, OperandRef, right.Left.Kind)
	assert.Equal(t, "!=", right.Op)
}

func TestParseGuardSetMembership(t *testing.T) {
	c, err := ParseConstraint(`x_i = 0 ∀_i^{S} if i not in Open`)
	require.NoError(t, err)
	m := c.Guard.(*Member)
	assert.True(t, m.Negate)
	assert.Equal(t, "Open", m.Set)
	assert.Nil(t, m.Table)
}

func TestParseDecl(t *testing.T) {
	d, err := ParseDecl(`z^{Plant,H} integer >= 0 <= 10`)
	require.NoError(t, err)
	assert.Equal(t, "z", d.Name)
	assert.Equal(t, []string{"Plant", "H"}, d.Sets)
	assert.Equal(t, ir.DomainInteger, d.Domain)
	require.NotNil(t, d.Lower)
	require.NotNil(t, d.Upper)
	assert.Equal(t, 0.0, *d.Lower)
	assert.Equal(t, 10.0, *d.Upper)

	d, err = ParseDecl(`fuel_use^{Plant_All}`)
	require.NoError(t, err)
	assert.Equal(t, "fuel_use", d.Name)
	assert.Equal(t, []string{"Plant_All"}, d.Sets)
	assert.Empty(t, d.Domain)

	_, err = ParseDecl(`x^{S} fractional`)
	assert.True(t, IsSyntaxError(err))
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name      string
		src       string
		objective bool
		message   string
	}{
		{"missing comparison", "x_i + 1", false, "missing comparison"},
		{"two comparisons", "0 <= x <= 5", false, "more than one comparison"},
		{"assignment", "x := 3", false, "assignment"},
		{"strict", "x < 3", false, "strict inequality"},
		{"unbalanced brace", "x_{i,j <= 3", false, "unbalanced braces"},
		{"unbalanced paren", "(x + 1 <= 3", false, "unbalanced parentheses"},
		{"extra brace", "x <= 3}", false, "unbalanced braces"},
		{"malformed subscript", "x_+ <= 3", false, "malformed subscript"},
		{"bad shift", "x_{h-y} <= 3", false, "malformed subscript"},
		{"comparison in objective", "x_i >= 3", true, "comparison"},
		{"trailing input", "x y", true, "unexpected"},
		{"empty", "", true, "end of input"},
		{"sum without set", "Σ_i (x_i) <= 1", false, "expected '^'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			if tc.objective {
				_, err = ParseObjective(tc.src)
			} else {
				_, err = ParseConstraint(tc.src)
			}
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, se.Message, tc.message)
			assert.Equal(t, tc.src, se.Source)
		})
	}
}

func TestParseErrorReportsOffendingToken(t *testing.T) {
	_, err := ParseConstraint("x_i + y_i := 3")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 10, se.Pos)
	assert.Equal(t, ":= 3", se.Fragment)
}

func TestParseGuardEqualsIsComparison(t *testing.T) {
	c, err := ParseConstraint("x_h = 1 ∀_h^{H} if h = 1")
	require.NoError(t, err)
	assert.Equal(t, ir.OpEQ, c.Op)
	assert.Equal(t, "==", c.Guard.(*Compare).Op)
}
