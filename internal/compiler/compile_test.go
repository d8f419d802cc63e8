package compiler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/notation"
)

func TestCompileCoverageObjective(t *testing.T) {
	m, err := Compile(towerContext(t), towerSource())
	require.NoError(t, err)

	assert.Equal(t, ir.Maximize, m.Objective.Sense)
	assert.Equal(t, "10*iscovered_0 + 20*iscovered_1 + 5*iscovered_2", m.FormatExpr(m.Objective.Expr))
}

func TestCompileBudgetConstraint(t *testing.T) {
	m, err := Compile(towerContext(t), towerSource())
	require.NoError(t, err)

	instances := m.ConstraintsOf("budget_limit")
	require.Len(t, instances, 1)
	assert.Nil(t, instances[0].Binding)
	assert.Equal(t, []string{"5*build_0 + 30*build_1 <= 20"}, formatted(m, "budget_limit"))
}

func TestCompileGuardedSumMembership(t *testing.T) {
	m, err := Compile(towerContext(t), towerSource())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"build_0 >= iscovered_0",
		"build_0 + build_1 >= iscovered_1",
		"build_1 >= iscovered_2",
	}, formatted(m, "covered"))
}

func TestCompileVariablesInDeclarationOrder(t *testing.T) {
	m, err := Compile(towerContext(t), towerSource())
	require.NoError(t, err)

	var labels []string
	for i, v := range m.Variables {
		assert.Equal(t, i, v.ID)
		labels = append(labels, v.Label())
		assert.Equal(t, ir.DomainBinary, v.Domain)
		require.NotNil(t, v.Lower)
		require.NotNil(t, v.Upper)
		assert.Equal(t, 0.0, *v.Lower)
		assert.Equal(t, 1.0, *v.Upper)
	}
	assert.Equal(t, []string{"iscovered_0", "iscovered_1", "iscovered_2", "build_0", "build_1"}, labels)
}

func TestCompileRampWithShiftAndGuard(t *testing.T) {
	m, err := Compile(plantContext(t), plantSource())
	require.NoError(t, err)

	ramp := m.ConstraintsOf("ramp")
	require.Len(t, ramp, 4)
	assert.Equal(t, ir.Tuple{ir.StrIndex("P1"), ir.IntIndex(2)}, ramp[0].Binding)
	assert.Equal(t, []string{
		"-z_{P1,1} + z_{P1,2} <= 100*r_P1",
		"-z_{P1,2} + z_{P1,3} <= 100*r_P1",
		"-z_{P2,1} + z_{P2,2} <= 50*r_P2",
		"-z_{P2,2} + z_{P2,3} <= 50*r_P2",
	}, formatted(m, "ramp"))
}

func TestCompileContinuousDefaults(t *testing.T) {
	m, err := Compile(plantContext(t), plantSource())
	require.NoError(t, err)

	z := m.VariablesOf("z")
	require.Len(t, z, 6)
	assert.Equal(t, ir.DomainContinuous, z[0].Domain)
	require.NotNil(t, z[0].Lower)
	assert.Equal(t, 0.0, *z[0].Lower)
	assert.Nil(t, z[0].Upper)
	assert.Equal(t, "z_{P1,1}", z[0].Label())
	assert.Equal(t, "z_{P2,3}", z[5].Label())
}

func TestCompileBoundOverrides(t *testing.T) {
	src := plantSource()
	lower, upper := -5.0, 5.0
	src.Variables[0] = VariableSource{Decl: "z^{Plant,H} integer", Lower: &lower, Upper: &upper}
	m, err := Compile(plantContext(t), src)
	require.NoError(t, err)

	v, ok := m.Lookup("z", ir.Tuple{ir.StrIndex("P2"), ir.IntIndex(1)})
	require.True(t, ok)
	assert.Equal(t, ir.DomainInteger, v.Domain)
	assert.Equal(t, -5.0, *v.Lower)
	assert.Equal(t, 5.0, *v.Upper)
}

func TestCompileImplicitBinding(t *testing.T) {
	src := plantSource()
	src.Constraints = []ConstraintSource{{Name: "cap", Notation: `z_{i,h} <= Capacity_i`}}
	m, err := Compile(plantContext(t), src)
	require.NoError(t, err)

	cap := m.ConstraintsOf("cap")
	require.Len(t, cap, 6)
	assert.Equal(t, ir.Tuple{ir.StrIndex("P1"), ir.IntIndex(1)}, cap[0].Binding)
	assert.Equal(t, "z_{P2,3} <= 50", m.FormatConstraint(cap[5]))
}

func TestCompileImplicitAfterExplicit(t *testing.T) {
	src := plantSource()
	src.Constraints = []ConstraintSource{{Name: "cap", Notation: `z_{i,h} <= Demand_h ∀_h^{H}`}}
	m, err := Compile(plantContext(t), src)
	require.NoError(t, err)

	cap := m.ConstraintsOf("cap")
	require.Len(t, cap, 6)
	// h is explicit so it varies slowest; i was bound by z's first set.
	assert.Equal(t, ir.Tuple{ir.IntIndex(1), ir.StrIndex("P1")}, cap[0].Binding)
	assert.Equal(t, ir.Tuple{ir.IntIndex(1), ir.StrIndex("P2")}, cap[1].Binding)
}

func TestCompileLiteralAndDataOnlyExpressions(t *testing.T) {
	src := towerSource()
	src.Objective = ObjectiveSource{Expression: `Population_0 * 2 + budget - 6 / 3`, Sense: ir.Minimize}
	m, err := Compile(towerContext(t), src)
	require.NoError(t, err)

	assert.True(t, m.Objective.Expr.IsConstant())
	assert.Equal(t, 38.0, m.Objective.Expr.Constant)
}

func TestCompileLiteralSubscripts(t *testing.T) {
	src := towerSource()
	src.Constraints = []ConstraintSource{{Name: "pin", Notation: `build_1 + build[0] >= Cost_0 / 5`}}
	m, err := Compile(towerContext(t), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"build_0 + build_1 >= 1"}, formatted(m, "pin"))
}

func TestCompileQuadraticProduct(t *testing.T) {
	src := towerSource()
	src.Objective = ObjectiveSource{Expression: `build_0 * build_1 + 2 * build_0`, Sense: ir.Maximize}
	m, err := Compile(towerContext(t), src)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Objective.Expr.Degree())
	assert.Equal(t, "2*build_0 + build_0*build_1", m.FormatExpr(m.Objective.Expr))
}

func TestCompileGuardExcludesAll(t *testing.T) {
	src := plantSource()
	src.Constraints = []ConstraintSource{{Name: "never", Notation: `z_{i,h} <= 0 ∀_i^{Plant} ∀_h^{H} if h > 3`}}
	m, err := Compile(plantContext(t), src)
	require.NoError(t, err)
	assert.Empty(t, m.ConstraintsOf("never"))
}

func TestCompileGuardStringComparison(t *testing.T) {
	src := plantSource()
	src.Constraints = []ConstraintSource{{Name: "off", Notation: `r_i = 0 ∀_i^{Plant} if i == 'P2' or not (i in Plant)`}}
	m, err := Compile(plantContext(t), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"r_P2 = 0"}, formatted(m, "off"))
}

func TestCompileUnboundIndex(t *testing.T) {
	src := towerSource()
	src.Constraints = []ConstraintSource{{Name: "bad", Notation: `Σ_t^{Tower}(build_t) <= Cost_k`}}
	m, err := Compile(towerContext(t), src)
	require.Error(t, err)
	assert.Nil(t, m)

	var ue *UnboundIndexError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "bad", ue.Template)
	assert.Equal(t, "k", ue.Index)
	assert.Equal(t, "Cost_k", ue.Fragment)
}

func TestCompileObjectiveMustBeClosed(t *testing.T) {
	src := towerSource()
	src.Objective.Expression = `iscovered_r * Population_r`
	_, err := Compile(towerContext(t), src)

	var ue *UnboundIndexError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ObjectiveTemplate, ue.Template)
	assert.Equal(t, "r", ue.Index)
}

func TestCompileUnboundGuardIndex(t *testing.T) {
	src := towerSource()
	src.Constraints = []ConstraintSource{{Name: "bad", Notation: `build_t <= 1 ∀_t^{Tower} if q > 0`}}
	_, err := Compile(towerContext(t), src)
	assert.True(t, IsUnboundIndexError(err))
}

func TestCompileDuplicateIndex(t *testing.T) {
	src := towerSource()
	src.Constraints = []ConstraintSource{{Name: "dup", Notation: `Σ_t^{Tower}(build_t) <= 1 ∀_t^{Tower}`}}
	_, err := Compile(towerContext(t), src)

	var de *DuplicateIndexError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "t", de.Index)
	assert.Equal(t, "Tower", de.Set)
}

func TestCompileUnknownNames(t *testing.T) {
	cases := map[string]struct {
		notation string
		kind     string
		name     string
	}{
		"quantified set": {`build_t <= 1 ∀_t^{Towers}`, "set", "Towers"},
		"sum set":        {`Σ_t^{Nope}(build_t) <= 1`, "set", "Nope"},
		"reference":      {`bild_0 <= 1`, "name", "bild"},
		"guard set":      {`build_t <= 1 ∀_t^{Tower} if t in Open`, "set", "Open"},
		"guard table":    {`build_t <= 1 ∀_t^{Tower} if t in Covers_t`, "table", "Covers"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			src := towerSource()
			src.Constraints = []ConstraintSource{{Name: "c", Notation: tc.notation}}
			_, err := Compile(towerContext(t), src)

			var ue *UnknownSetOrTableError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tc.kind, ue.Kind)
			assert.Equal(t, tc.name, ue.Name)
			assert.Equal(t, "c", ue.Template)
		})
	}
}

func TestCompileUnknownDeclarationSet(t *testing.T) {
	src := towerSource()
	src.Variables = append(src.Variables, VariableSource{Decl: "y^{Nowhere}"})
	_, err := Compile(towerContext(t), src)

	var ue *UnknownSetOrTableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "y", ue.Template)
	assert.Equal(t, "Nowhere", ue.Name)
}

func TestCompileIndexRange(t *testing.T) {
	t.Run("shift leaves set", func(t *testing.T) {
		src := plantSource()
		src.Constraints = []ConstraintSource{{Name: "ramp", Notation: `z_{i,h} - z_{i,h-1} <= 10 ∀_i^{Plant} ∀_h^{H}`}}
		_, err := Compile(plantContext(t), src)

		var re *IndexRangeError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "ramp", re.Template)
		assert.Equal(t, "H", re.Set)
		assert.Equal(t, ir.IntIndex(1), re.Index)
		assert.Equal(t, -1, re.Offset)
	})
	t.Run("shift forward leaves set", func(t *testing.T) {
		src := plantSource()
		src.Constraints = []ConstraintSource{{Name: "ahead", Notation: `z_{i,h+1} >= 0 ∀_i^{Plant} ∀_h^{H}`}}
		_, err := Compile(plantContext(t), src)
		assert.True(t, IsIndexRangeError(err))
	})
	t.Run("index outside declared set", func(t *testing.T) {
		src := towerSource()
		src.Constraints = []ConstraintSource{{Name: "wide", Notation: `build_r <= 1 ∀_r^{Region}`}}
		_, err := Compile(towerContext(t), src)

		var re *IndexRangeError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "Tower", re.Set)
		assert.Equal(t, ir.IntIndex(2), re.Index)
	})
}

func TestCompileMissingEntry(t *testing.T) {
	region := ir.MustIndexSet("Region", ir.IntRange(0, 2)...)
	pop, err := ir.NumberColumn("Population", ir.IntRange(0, 1), []float64{1, 2})
	require.NoError(t, err)
	ctx := MustContext([]*ir.IndexSet{region}, []*ir.DataTable{pop}, nil)

	_, err = Compile(ctx, Source{
		Name:      "m",
		Variables: []VariableSource{{Decl: "x^{Region}"}},
		Objective: ObjectiveSource{Expression: `Σ_r^{Region}(Population_r * x_r)`, Sense: ir.Maximize},
	})
	var me *MissingEntryError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "Population", me.Table)
	assert.Equal(t, ir.Tuple{ir.IntIndex(2)}, me.Key)
	assert.Equal(t, ObjectiveTemplate, me.Template)
}

func TestCompileDomainMismatch(t *testing.T) {
	cases := map[string]string{
		"list used as number":    `Coverage_0 * build_0 <= 1`,
		"divide by variable":     `1 / build_0 <= 1`,
		"divide by zero":         `build_0 / 0 <= 1`,
		"cubic":                  `build_0 * build_0 * build_1 <= 1`,
		"variable in condition":  `build_t <= 1 ∀_t^{Tower} if build_t > 0`,
		"conflicting sets":       `iscovered_i + build_i <= 1`,
		"wrong variable arity":   `build_{0,1} <= 1`,
		"set used as value":      `Tower <= 1`,
		"ordering text and int":  `build_t <= 1 ∀_t^{Tower} if t < 'a'`,
		"membership in a number": `build_t <= 1 ∀_t^{Tower} if t in Cost_t`,
	}
	for name, notation := range cases {
		t.Run(name, func(t *testing.T) {
			src := towerSource()
			src.Constraints = []ConstraintSource{{Name: "c", Notation: notation}}
			_, err := Compile(towerContext(t), src)
			require.Error(t, err)
			assert.True(t, IsDomainMismatchError(err), err.Error())
		})
	}
}

func TestCompileSyntaxErrorCarriesTemplate(t *testing.T) {
	src := towerSource()
	src.Constraints = []ConstraintSource{{Name: "broken", Notation: `build_0 + := 1`}}
	_, err := Compile(towerContext(t), src)

	var se *notation.SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "broken", se.Template)
	assert.Contains(t, err.Error(), "broken: syntax error")
}

func TestCompileCollectsAllTemplateErrors(t *testing.T) {
	src := towerSource()
	src.Constraints = []ConstraintSource{
		{Name: "first", Notation: `build_k <= Cost_q`},
		{Name: "second", Notation: `build_t <= 1 ∀_t^{Nope}`},
		{Name: "ok", Notation: `build_0 <= 1`},
	}
	src.Objective.Expression = `x_0`
	_, err := Compile(towerContext(t), src)
	require.Error(t, err)

	assert.True(t, IsUnboundIndexError(err))
	assert.True(t, IsUnknownSetOrTableError(err))
	msg := err.Error()
	assert.Contains(t, msg, "first:")
	assert.Contains(t, msg, "second:")
	assert.Contains(t, msg, "objective:")
	assert.NotContains(t, msg, "ok:")
}

func TestCompileStructuralErrors(t *testing.T) {
	t.Run("duplicate constraint", func(t *testing.T) {
		src := towerSource()
		src.Constraints = append(src.Constraints, src.Constraints[0])
		_, err := Compile(towerContext(t), src)
		assert.True(t, IsCompileError(err))
	})
	t.Run("duplicate variable", func(t *testing.T) {
		src := towerSource()
		src.Variables = append(src.Variables, VariableSource{Decl: "build^{Region}"})
		_, err := Compile(towerContext(t), src)
		assert.True(t, IsCompileError(err))
	})
	t.Run("variable shadows table", func(t *testing.T) {
		src := towerSource()
		src.Variables = append(src.Variables, VariableSource{Decl: "Cost^{Tower}"})
		_, err := Compile(towerContext(t), src)
		assert.True(t, IsCompileError(err))
	})
	t.Run("missing sense", func(t *testing.T) {
		src := towerSource()
		src.Objective.Sense = ""
		_, err := Compile(towerContext(t), src)
		assert.True(t, IsCompileError(err))
	})
	t.Run("missing objective", func(t *testing.T) {
		src := towerSource()
		src.Objective.Expression = "  "
		_, err := Compile(towerContext(t), src)
		assert.True(t, IsCompileError(err))
	})
	t.Run("bounds cross", func(t *testing.T) {
		src := towerSource()
		src.Variables[1] = VariableSource{Decl: "build^{Tower} >= 3 <= 1"}
		_, err := Compile(towerContext(t), src)
		assert.True(t, IsCompileError(err))
	})
}

func TestCompileIsDeterministic(t *testing.T) {
	ctx := plantContext(t)
	first, err := Compile(ctx, plantSource())
	require.NoError(t, err)
	second, err := Compile(ctx, plantSource())
	require.NoError(t, err)

	assert.Equal(t, first.String(), second.String())
	h1, err := ir.ModelHash(first)
	require.NoError(t, err)
	h2, err := ir.ModelHash(second)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestCompileConcurrentSharedContext(t *testing.T) {
	ctx := plantContext(t)
	want, err := Compile(ctx, plantSource())
	require.NoError(t, err)
	wantHash, err := ir.ModelHash(want)
	require.NoError(t, err)

	var wg sync.WaitGroup
	hashes := make([]string, 8)
	errs := make([]error, 8)
	for i := range hashes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := Compile(ctx, plantSource())
			if err != nil {
				errs[i] = err
				return
			}
			hashes[i], errs[i] = ir.ModelHash(m)
		}(i)
	}
	wg.Wait()
	for i := range hashes {
		require.NoError(t, errs[i])
		assert.Equal(t, wantHash, hashes[i])
	}
}

func TestCompileUnderscoreNames(t *testing.T) {
	plant := ir.MustIndexSet("Plant_All", ir.StrIndex("A"), ir.StrIndex("B"))
	pn, err := ir.NumberColumn("P_N", plant.Elements(), []float64{3, 4})
	require.NoError(t, err)
	ctx := MustContext([]*ir.IndexSet{plant}, []*ir.DataTable{pn}, nil)

	m, err := Compile(ctx, Source{
		Name:      "names",
		Variables: []VariableSource{{Decl: "fuel_use^{Plant_All}"}},
		Objective: ObjectiveSource{Expression: `Σ_p^{Plant_All}(P_N_p * fuel_use_p)`, Sense: ir.Minimize},
	})
	require.NoError(t, err)
	assert.Equal(t, "3*fuel_use_A + 4*fuel_use_B", m.FormatExpr(m.Objective.Expr))
}

func TestNewContextRejectsNameCollision(t *testing.T) {
	s := ir.MustIndexSet("S", ir.IntIndex(1))
	tab, err := ir.NumberColumn("S", []ir.Index{ir.IntIndex(1)}, []float64{1})
	require.NoError(t, err)
	_, err = NewContext([]*ir.IndexSet{s}, []*ir.DataTable{tab}, nil)
	assert.Error(t, err)

	_, err = NewContext([]*ir.IndexSet{s}, nil, map[string]float64{"S": 1})
	assert.Error(t, err)
}

func TestContextNames(t *testing.T) {
	ctx := towerContext(t)
	assert.Equal(t, []string{"Cost", "Coverage", "Population", "Region", "Tower", "budget"}, ctx.Names())
	assert.True(t, ctx.Has("budget"))
	assert.False(t, ctx.Has("build"))
}

func TestCompileLargeSumIsNotQuadratic(t *testing.T) {
	const n = 100_000
	ctx := MustContext([]*ir.IndexSet{ir.MustIndexSet("S", ir.IntRange(1, n)...)}, nil, nil)
	src := Source{
		Name:        "wide",
		Variables:   []VariableSource{{Decl: "x^{S}"}},
		Constraints: []ConstraintSource{{Name: "cap", Notation: "Σ_i^{S}(2 * x_i) <= 10"}},
		Objective:   ObjectiveSource{Expression: "Σ_i^{S}(x_i)", Sense: ir.Maximize},
	}

	start := time.Now()
	m, err := Compile(ctx, src)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Len(t, m.Variables, n)
	assert.Len(t, m.Objective.Expr.Terms, n)
	require.Len(t, m.Constraints, 1)
	assert.Len(t, m.Constraints[0].LHS.Terms, n)
	assert.Equal(t, 2.0, m.Constraints[0].LHS.Terms[n-1].Coef)
	assert.Less(t, elapsed, 10*time.Second, "compiling a sum over %d elements took %s", n, elapsed)
}
