package compiler

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/notation"
)

// Source is the notation side of a model: declarations, constraint
// templates in order, and the objective.
type Source struct {
	Name        string
	Variables   []VariableSource
	Constraints []ConstraintSource
	Objective   ObjectiveSource
}

// VariableSource declares a variable family. Decl is notation such as
// "z^{Plant,H} binary"; Domain, Lower and Upper override the tags in Decl
// when set.
type VariableSource struct {
	Decl   string
	Domain ir.Domain
	Lower  *float64
	Upper  *float64
}

// ConstraintSource is one named constraint template.
type ConstraintSource struct {
	Name     string
	Notation string
}

// ObjectiveSource is the objective expression and its sense.
type ObjectiveSource struct {
	Expression string
	Sense      ir.Sense
}

// Compile parses, resolves and expands src against ctx into a model.
// Compile keeps no state between calls. Every template is checked and all
// failures are returned together; no partial model is ever returned.
func Compile(ctx *Context, src Source) (*ir.Model, error) {
	if ctx == nil {
		return nil, fmt.Errorf("compile %s: nil context", src.Name)
	}
	c := &compilation{ctx: ctx, decls: make(map[string]*declInfo)}

	decls, vars, errs := c.declare(src.Variables)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	var cons []ir.Constraint
	seen := make(map[string]bool, len(src.Constraints))
	for _, cs := range src.Constraints {
		name := strings.TrimSpace(cs.Name)
		switch {
		case name == "":
			errs = append(errs, &CompileError{Template: "constraint", Message: "constraint name is required"})
			continue
		case seen[name]:
			errs = append(errs, &CompileError{Template: name, Message: "duplicate constraint name"})
			continue
		}
		seen[name] = true
		instances, err := c.constraint(name, cs.Notation)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cons = append(cons, instances...)
	}

	obj, err := c.objective(src.Objective)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ir.NewModel(src.Name, decls, vars, cons, obj)
}

type compilation struct {
	ctx   *Context
	decls map[string]*declInfo
}

type declInfo struct {
	decl ir.VariableDecl
	sets []*ir.IndexSet
	base int
}

// known reports names the parser may join across underscores.
func (c *compilation) known(name string) bool {
	if _, ok := c.decls[name]; ok {
		return true
	}
	return c.ctx.Has(name)
}

func (c *compilation) declare(srcs []VariableSource) ([]ir.VariableDecl, []ir.Variable, []error) {
	var (
		decls []ir.VariableDecl
		vars  []ir.Variable
		errs  []error
	)
	for _, vs := range srcs {
		d, err := notation.ParseDecl(vs.Decl)
		if err != nil {
			var se *notation.SyntaxError
			if errors.As(err, &se) {
				se.Template = "variable"
			}
			errs = append(errs, err)
			continue
		}
		decl, sets, err := c.resolveDecl(d, vs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		info := &declInfo{decl: decl, sets: sets, base: len(vars)}
		c.decls[decl.Name] = info
		decls = append(decls, decl)
		vars = materialize(vars, info)
	}
	return decls, vars, errs
}

func (c *compilation) resolveDecl(d *notation.Decl, vs VariableSource) (ir.VariableDecl, []*ir.IndexSet, error) {
	decl := ir.VariableDecl{Name: d.Name, Sets: d.Sets, Domain: d.Domain, Lower: d.Lower, Upper: d.Upper}
	if _, dup := c.decls[d.Name]; dup {
		return decl, nil, &CompileError{Template: d.Name, Message: "variable declared more than once"}
	}
	if c.ctx.Has(d.Name) {
		return decl, nil, &CompileError{Template: d.Name, Message: "variable name collides with a set, table or parameter"}
	}
	if vs.Domain != "" {
		decl.Domain = vs.Domain
	}
	if vs.Lower != nil {
		decl.Lower = vs.Lower
	}
	if vs.Upper != nil {
		decl.Upper = vs.Upper
	}
	if decl.Domain == "" {
		decl.Domain = ir.DomainContinuous
	}
	if decl.Domain == ir.DomainBinary {
		if decl.Lower == nil {
			decl.Lower = float64Ptr(0)
		}
		if decl.Upper == nil {
			decl.Upper = float64Ptr(1)
		}
	}
	if decl.Lower == nil {
		decl.Lower = float64Ptr(0)
	}
	if decl.Upper != nil && math.IsInf(*decl.Upper, 1) {
		decl.Upper = nil
	}
	if decl.Upper != nil && *decl.Upper < *decl.Lower {
		return decl, nil, &CompileError{
			Template: d.Name,
			Message:  fmt.Sprintf("upper bound %g is below lower bound %g", *decl.Upper, *decl.Lower),
		}
	}

	sets := make([]*ir.IndexSet, len(d.Sets))
	for i, name := range d.Sets {
		s, ok := c.ctx.Set(name)
		if !ok {
			return decl, nil, &UnknownSetOrTableError{Template: d.Name, Kind: "set", Name: name}
		}
		sets[i] = s
	}
	return decl, sets, nil
}

// materialize appends one variable per tuple of the declaration's sets in
// row-major order.
func materialize(vars []ir.Variable, info *declInfo) []ir.Variable {
	cartesian(info.sets, func(t ir.Tuple) {
		vars = append(vars, ir.Variable{
			ID:     len(vars),
			Name:   info.decl.Name,
			Tuple:  t,
			Domain: info.decl.Domain,
			Lower:  info.decl.Lower,
			Upper:  info.decl.Upper,
		})
	})
	return vars
}

// cartesian calls fn with every tuple of sets in row-major order. fn owns
// the tuple it receives.
func cartesian(sets []*ir.IndexSet, fn func(ir.Tuple)) {
	var walk func(k int, prefix ir.Tuple)
	walk = func(k int, prefix ir.Tuple) {
		if k == len(sets) {
			t := make(ir.Tuple, len(prefix))
			copy(t, prefix)
			fn(t)
			return
		}
		for i := 0; i < sets[k].Len(); i++ {
			walk(k+1, append(prefix, sets[k].At(i)))
		}
	}
	walk(0, make(ir.Tuple, 0, len(sets)))
}

// variableID maps a tuple of a declaration to its dense variable id.
func (d *declInfo) variableID(t ir.Tuple) (int, int, bool) {
	id := 0
	for k, s := range d.sets {
		pos, ok := s.Position(t[k])
		if !ok {
			return 0, k, false
		}
		id = id*s.Len() + pos
	}
	return d.base + id, 0, true
}

func (c *compilation) constraint(name, src string) ([]ir.Constraint, error) {
	ast, err := notation.ParseConstraint(src, notation.WithNames(c.known))
	if err != nil {
		var se *notation.SyntaxError
		if errors.As(err, &se) {
			se.Template = name
		}
		return nil, err
	}
	bindings, err := c.resolveConstraint(name, ast)
	if err != nil {
		return nil, err
	}
	return c.expandConstraint(name, ast, bindings)
}

func (c *compilation) objective(src ObjectiveSource) (ir.Objective, error) {
	if strings.TrimSpace(src.Expression) == "" {
		return ir.Objective{}, &CompileError{Template: ObjectiveTemplate, Message: "objective expression is required"}
	}
	if src.Sense != ir.Maximize && src.Sense != ir.Minimize {
		return ir.Objective{}, &CompileError{
			Template: ObjectiveTemplate,
			Message:  fmt.Sprintf("objective sense %q must be maximize or minimize", src.Sense),
		}
	}
	ast, err := notation.ParseObjective(src.Expression, notation.WithNames(c.known))
	if err != nil {
		var se *notation.SyntaxError
		if errors.As(err, &se) {
			se.Template = ObjectiveTemplate
		}
		return ir.Objective{}, err
	}
	if err := c.resolveObjective(ast); err != nil {
		return ir.Objective{}, err
	}
	x := &expander{c: c, template: ObjectiveTemplate, env: make(map[string]bound)}
	e, err := x.eval(ast)
	if err != nil {
		return ir.Objective{}, err
	}
	return ir.Objective{Expr: e, Sense: src.Sense}, nil
}

func float64Ptr(v float64) *float64 { return &v }
