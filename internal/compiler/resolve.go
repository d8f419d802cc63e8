package compiler

import (
	"fmt"

	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/notation"
)

// binding is one quantified index of a constraint template.
type binding struct {
	index string
	set   *ir.IndexSet
}

type freeUse struct {
	index    string
	fragment string
}

// resolver checks that every index is bound exactly once and that every
// name refers to something the context or the declarations define.
type resolver struct {
	c        *compilation
	template string

	// implicit allows free indices in variable subscripts to bind to the
	// variable's declared set. Objectives must be closed.
	implicit bool

	scope         map[string]string
	sumBound      map[string]string
	implicitSets  map[string]string
	implicitOrder []string
	free          []freeUse
}

func newResolver(c *compilation, template string, implicit bool) *resolver {
	return &resolver{
		c:            c,
		template:     template,
		implicit:     implicit,
		scope:        make(map[string]string),
		sumBound:     make(map[string]string),
		implicitSets: make(map[string]string),
	}
}

// resolveConstraint returns the ordered bindings to iterate: explicit
// quantifiers in written order, then implicitly bound indices in order of
// first appearance.
func (c *compilation) resolveConstraint(name string, ast *notation.Constraint) ([]binding, error) {
	r := newResolver(c, name, true)
	var bindings []binding
	for _, q := range ast.Quantifiers {
		set, err := r.bind(q.Index, q.Set)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding{index: q.Index, set: set})
	}
	if err := r.expr(ast.LHS); err != nil {
		return nil, err
	}
	if err := r.expr(ast.RHS); err != nil {
		return nil, err
	}
	if ast.Guard != nil {
		if err := r.pred(ast.Guard); err != nil {
			return nil, err
		}
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	for _, idx := range r.implicitOrder {
		set, _ := c.ctx.Set(r.implicitSets[idx])
		bindings = append(bindings, binding{index: idx, set: set})
	}
	return bindings, nil
}

func (c *compilation) resolveObjective(ast notation.Expr) error {
	r := newResolver(c, ObjectiveTemplate, false)
	if err := r.expr(ast); err != nil {
		return err
	}
	return r.finish()
}

func (r *resolver) bind(index, setName string) (*ir.IndexSet, error) {
	set, ok := r.c.ctx.Set(setName)
	if !ok {
		return nil, &UnknownSetOrTableError{Template: r.template, Kind: "set", Name: setName}
	}
	if prev, dup := r.scope[index]; dup {
		return nil, &DuplicateIndexError{Template: r.template, Index: index, Set: prev}
	}
	r.scope[index] = setName
	return set, nil
}

// finish reports free indices that nothing bound and implicit bindings that
// collide with a sum over the same index.
func (r *resolver) finish() error {
	for _, f := range r.free {
		if _, ok := r.implicitSets[f.index]; !ok {
			return &UnboundIndexError{Template: r.template, Index: f.index, Fragment: f.fragment}
		}
	}
	for _, idx := range r.implicitOrder {
		if set, ok := r.sumBound[idx]; ok {
			return &DuplicateIndexError{Template: r.template, Index: idx, Set: set}
		}
	}
	return nil
}

func (r *resolver) expr(e notation.Expr) error {
	switch n := e.(type) {
	case *notation.NumberLit:
		return nil
	case *notation.Ref:
		return r.ref(n, true)
	case *notation.Binary:
		if err := r.expr(n.Left); err != nil {
			return err
		}
		return r.expr(n.Right)
	case *notation.Neg:
		return r.expr(n.X)
	case *notation.SumExpr:
		if _, err := r.bind(n.Index, n.Set); err != nil {
			return err
		}
		r.sumBound[n.Index] = n.Set
		defer delete(r.scope, n.Index)
		if n.Guard != nil {
			if err := r.pred(n.Guard); err != nil {
				return err
			}
		}
		return r.expr(n.Body)
	}
	return fmt.Errorf("%s: unsupported expression %T", r.template, e)
}

// ref classifies a reference and checks its subscripts. Decision variables
// are allowed only in arithmetic, not in conditions.
func (r *resolver) ref(ref *notation.Ref, arithmetic bool) error {
	switch kind, arity := r.c.classify(ref.Name); kind {
	case refVariable:
		if !arithmetic {
			return &DomainMismatchError{Template: r.template, Fragment: ref.String(), Message: "decision variable in a condition"}
		}
		if len(ref.Indices) != arity {
			return r.arityError(ref, "variable", arity)
		}
		info := r.c.decls[ref.Name]
		for k, x := range ref.Indices {
			if err := r.index(x, ref, info.decl.Sets[k]); err != nil {
				return err
			}
		}
	case refTable:
		if len(ref.Indices) != arity {
			return r.arityError(ref, "table", arity)
		}
		for _, x := range ref.Indices {
			if err := r.index(x, ref, ""); err != nil {
				return err
			}
		}
	case refParam:
		if len(ref.Indices) != 0 {
			return r.arityError(ref, "parameter", 0)
		}
	case refSet:
		return &DomainMismatchError{Template: r.template, Fragment: ref.String(), Message: fmt.Sprintf("set %s used as a value", ref.Name)}
	default:
		return &UnknownSetOrTableError{Template: r.template, Kind: "name", Name: ref.Name}
	}
	return nil
}

func (r *resolver) arityError(ref *notation.Ref, kind string, want int) error {
	return &DomainMismatchError{
		Template: r.template,
		Fragment: ref.String(),
		Message:  fmt.Sprintf("%s %s takes %d indices, got %d", kind, ref.Name, want, len(ref.Indices)),
	}
}

// index checks one subscript. declSet is the variable's declared set at this
// position, or "" for table keys.
func (r *resolver) index(x notation.IndexExpr, ref *notation.Ref, declSet string) error {
	if x.Kind == notation.IndexLit {
		return nil
	}
	if _, ok := r.scope[x.Name]; ok {
		return nil
	}
	if r.implicit && declSet != "" {
		if prev, ok := r.implicitSets[x.Name]; ok {
			if prev != declSet {
				return &DomainMismatchError{
					Template: r.template,
					Fragment: ref.String(),
					Message:  fmt.Sprintf("index %s is implied over both %s and %s", x.Name, prev, declSet),
				}
			}
			return nil
		}
		r.implicitSets[x.Name] = declSet
		r.implicitOrder = append(r.implicitOrder, x.Name)
		return nil
	}
	r.free = append(r.free, freeUse{index: x.Name, fragment: ref.String()})
	return nil
}

func (r *resolver) pred(p notation.Pred) error {
	switch n := p.(type) {
	case *notation.Compare:
		if err := r.operand(n.Left, n); err != nil {
			return err
		}
		return r.operand(n.Right, n)
	case *notation.Member:
		if err := r.operand(n.Elem, n); err != nil {
			return err
		}
		if n.Table != nil {
			if kind, _ := r.c.classify(n.Table.Name); kind != refTable {
				return &UnknownSetOrTableError{Template: r.template, Kind: "table", Name: n.Table.Name}
			}
			return r.ref(n.Table, false)
		}
		if _, ok := r.c.ctx.Set(n.Set); !ok {
			if kind, _ := r.c.classify(n.Set); kind == refTable {
				return &DomainMismatchError{Template: r.template, Fragment: n.String(), Message: fmt.Sprintf("table %s needs a key", n.Set)}
			}
			return &UnknownSetOrTableError{Template: r.template, Kind: "set", Name: n.Set}
		}
		return nil
	case *notation.Logical:
		if err := r.pred(n.Left); err != nil {
			return err
		}
		return r.pred(n.Right)
	case *notation.NotPred:
		return r.pred(n.X)
	}
	return fmt.Errorf("%s: unsupported condition %T", r.template, p)
}

func (r *resolver) operand(o notation.Operand, p notation.Pred) error {
	switch o.Kind {
	case notation.OperandIndex:
		if _, ok := r.scope[o.Index.Name]; ok {
			return nil
		}
		if _, ok := r.c.ctx.Param(o.Index.Name); ok && o.Index.Offset == 0 {
			return nil
		}
		r.free = append(r.free, freeUse{index: o.Index.Name, fragment: p.String()})
		return nil
	case notation.OperandRef:
		return r.ref(o.Ref, false)
	}
	return nil
}

type refKind int

const (
	refUnknown refKind = iota
	refVariable
	refTable
	refParam
	refSet
)

// classify looks a name up among declarations, tables, parameters and sets.
// The namespaces are disjoint, so the order only matters for speed.
func (c *compilation) classify(name string) (refKind, int) {
	if info, ok := c.decls[name]; ok {
		return refVariable, len(info.sets)
	}
	if t, ok := c.ctx.Table(name); ok {
		return refTable, t.Arity()
	}
	if _, ok := c.ctx.Param(name); ok {
		return refParam, 0
	}
	if _, ok := c.ctx.Set(name); ok {
		return refSet, 0
	}
	return refUnknown, 0
}
