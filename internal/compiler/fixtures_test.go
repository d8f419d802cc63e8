package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sigma/internal/ir"
)

// towerContext is the cell-tower coverage model data: three regions, two
// towers, populations, build costs and which regions each tower covers.
func towerContext(t *testing.T) *Context {
	t.Helper()
	region := ir.MustIndexSet("Region", ir.IntRange(0, 2)...)
	tower := ir.MustIndexSet("Tower", ir.IntRange(0, 1)...)
	pop, err := ir.NumberColumn("Population", region.Elements(), []float64{10, 20, 5})
	require.NoError(t, err)
	cost, err := ir.NumberColumn("Cost", tower.Elements(), []float64{5, 30})
	require.NoError(t, err)
	coverage := ir.MustDataTable("Coverage", 1,
		ir.TableEntry{Key: ir.Tuple{ir.IntIndex(0)}, Value: ir.List{ir.Number(0), ir.Number(1)}},
		ir.TableEntry{Key: ir.Tuple{ir.IntIndex(1)}, Value: ir.List{ir.Number(1), ir.Number(2)}},
	)
	ctx, err := NewContext([]*ir.IndexSet{region, tower}, []*ir.DataTable{pop, cost, coverage}, map[string]float64{"budget": 20})
	require.NoError(t, err)
	return ctx
}

func towerSource() Source {
	return Source{
		Name: "coverage",
		Variables: []VariableSource{
			{Decl: "iscovered^{Region} binary"},
			{Decl: "build^{Tower} binary"},
		},
		Constraints: []ConstraintSource{
			{Name: "budget_limit", Notation: `Σ_t^{Tower}(build_t * Cost_t) <= budget`},
			{Name: "covered", Notation: `Σ_t^{Tower}(build_t if r in Coverage_t) >= iscovered_r ∀_r^{Region}`},
		},
		Objective: ObjectiveSource{Expression: `Σ_r^{Region}(iscovered_r * Population_r)`, Sense: ir.Maximize},
	}
}

// plantContext is the power plant ramping model data.
func plantContext(t *testing.T) *Context {
	t.Helper()
	plant := ir.MustIndexSet("Plant", ir.StrIndex("P1"), ir.StrIndex("P2"))
	hours := ir.MustIndexSet("H", ir.IntRange(1, 3)...)
	capacity, err := ir.NumberColumn("Capacity", plant.Elements(), []float64{100, 50})
	require.NoError(t, err)
	demand, err := ir.NumberColumn("Demand", hours.Elements(), []float64{80, 120, 60})
	require.NoError(t, err)
	return MustContext([]*ir.IndexSet{plant, hours}, []*ir.DataTable{capacity, demand}, nil)
}

func plantSource() Source {
	return Source{
		Name: "powerplant",
		Variables: []VariableSource{
			{Decl: "z^{Plant,H}"},
			{Decl: "r^{Plant} binary"},
		},
		Constraints: []ConstraintSource{
			{Name: "ramp", Notation: `z_{i,h} - z_{i,h-1} <= r_i * Capacity_i ∀_i^{Plant} ∀_h^{H} if h > 1`},
			{Name: "demand", Notation: `Σ_i^{Plant}(z_{i,h}) >= Demand_h ∀_h^{H}`},
		},
		Objective: ObjectiveSource{Expression: `Σ_i^{Plant} Σ_h^{H} z_{i,h}`, Sense: ir.Minimize},
	}
}

func formatted(m *ir.Model, name string) []string {
	var out []string
	for _, c := range m.ConstraintsOf(name) {
		out = append(out, m.FormatConstraint(c))
	}
	return out
}
