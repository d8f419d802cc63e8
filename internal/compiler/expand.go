package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/notation"
)

// bound is the current value of an index during expansion.
type bound struct {
	value ir.Index
	set   *ir.IndexSet
	pos   int
}

type expander struct {
	c        *compilation
	template string
	env      map[string]bound
}

// expandConstraint instantiates a template once per binding tuple whose
// guard holds, iterating bindings in row-major order.
func (c *compilation) expandConstraint(name string, ast *notation.Constraint, bindings []binding) ([]ir.Constraint, error) {
	x := &expander{c: c, template: name, env: make(map[string]bound, len(bindings))}
	var out []ir.Constraint
	var walk func(k int) error
	walk = func(k int) error {
		if k == len(bindings) {
			return x.instance(ast, bindings, &out)
		}
		b := bindings[k]
		for pos := 0; pos < b.set.Len(); pos++ {
			x.env[b.index] = bound{value: b.set.At(pos), set: b.set, pos: pos}
			if err := walk(k + 1); err != nil {
				return err
			}
		}
		delete(x.env, b.index)
		return nil
	}
	if err := walk(0); err != nil {
		return nil, err
	}
	return out, nil
}

func (x *expander) instance(ast *notation.Constraint, bindings []binding, out *[]ir.Constraint) error {
	if ast.Guard != nil {
		ok, err := x.test(ast.Guard)
		if err != nil || !ok {
			return err
		}
	}
	lhs, err := x.eval(ast.LHS)
	if err != nil {
		return err
	}
	rhs, err := x.eval(ast.RHS)
	if err != nil {
		return err
	}
	var tuple ir.Tuple
	if len(bindings) > 0 {
		tuple = make(ir.Tuple, len(bindings))
		for i, b := range bindings {
			tuple[i] = x.env[b.index].value
		}
	}
	*out = append(*out, ir.Constraint{Name: x.template, Binding: tuple, LHS: lhs, Op: ast.Op, RHS: rhs})
	return nil
}

func (x *expander) eval(e notation.Expr) (ir.LinExpr, error) {
	switch n := e.(type) {
	case *notation.NumberLit:
		return ir.Const(n.Value), nil
	case *notation.Ref:
		return x.ref(n)
	case *notation.Neg:
		v, err := x.eval(n.X)
		if err != nil {
			return ir.LinExpr{}, err
		}
		return v.Scale(-1), nil
	case *notation.Binary:
		return x.binary(n)
	case *notation.SumExpr:
		return x.sum(n)
	}
	return ir.LinExpr{}, fmt.Errorf("%s: unsupported expression %T", x.template, e)
}

func (x *expander) binary(n *notation.Binary) (ir.LinExpr, error) {
	left, err := x.eval(n.Left)
	if err != nil {
		return ir.LinExpr{}, err
	}
	right, err := x.eval(n.Right)
	if err != nil {
		return ir.LinExpr{}, err
	}
	switch n.Op {
	case '+':
		return left.Add(right), nil
	case '-':
		return left.Sub(right), nil
	case '*':
		p, err := left.Mul(right)
		if errors.Is(err, ir.ErrDegree) {
			return ir.LinExpr{}, &DomainMismatchError{Template: x.template, Fragment: n.String(), Message: "product of degree above two"}
		}
		return p, err
	case '/':
		if !right.IsConstant() {
			return ir.LinExpr{}, &DomainMismatchError{Template: x.template, Fragment: n.String(), Message: "division by an expression with decision variables"}
		}
		if right.Constant == 0 {
			return ir.LinExpr{}, &DomainMismatchError{Template: x.template, Fragment: n.String(), Message: "division by zero"}
		}
		return left.Scale(1 / right.Constant), nil
	}
	return ir.LinExpr{}, fmt.Errorf("%s: unknown operator %q", x.template, n.Op)
}

func (x *expander) sum(n *notation.SumExpr) (ir.LinExpr, error) {
	set, ok := x.c.ctx.Set(n.Set)
	if !ok {
		return ir.LinExpr{}, &UnknownSetOrTableError{Template: x.template, Kind: "set", Name: n.Set}
	}
	defer delete(x.env, n.Index)
	parts := make([]ir.LinExpr, 0, set.Len())
	for pos := 0; pos < set.Len(); pos++ {
		x.env[n.Index] = bound{value: set.At(pos), set: set, pos: pos}
		if n.Guard != nil {
			ok, err := x.test(n.Guard)
			if err != nil {
				return ir.LinExpr{}, err
			}
			if !ok {
				continue
			}
		}
		term, err := x.eval(n.Body)
		if err != nil {
			return ir.LinExpr{}, err
		}
		parts = append(parts, term)
	}
	return ir.Sum(parts...), nil
}

func (x *expander) ref(ref *notation.Ref) (ir.LinExpr, error) {
	kind, _ := x.c.classify(ref.Name)
	switch kind {
	case refVariable:
		info := x.c.decls[ref.Name]
		tuple, err := x.tuple(ref)
		if err != nil {
			return ir.LinExpr{}, err
		}
		id, k, ok := info.variableID(tuple)
		if !ok {
			return ir.LinExpr{}, &IndexRangeError{Template: x.template, Fragment: ref.String(), Set: info.decl.Sets[k], Index: tuple[k]}
		}
		return ir.VarExpr(id), nil
	case refTable, refParam:
		v, err := x.lookup(ref)
		if err != nil {
			return ir.LinExpr{}, err
		}
		n, ok := v.(ir.Number)
		if !ok {
			return ir.LinExpr{}, &DomainMismatchError{
				Template: x.template,
				Fragment: ref.String(),
				Message:  fmt.Sprintf("%s value %s used as a number", ir.TypeName(v), v),
			}
		}
		return ir.Const(float64(n)), nil
	}
	return ir.LinExpr{}, &UnknownSetOrTableError{Template: x.template, Kind: "name", Name: ref.Name}
}

// lookup reads a data table cell or a scalar parameter.
func (x *expander) lookup(ref *notation.Ref) (ir.Value, error) {
	if v, ok := x.c.ctx.Param(ref.Name); ok && len(ref.Indices) == 0 {
		return ir.Number(v), nil
	}
	t, ok := x.c.ctx.Table(ref.Name)
	if !ok {
		return nil, &UnknownSetOrTableError{Template: x.template, Kind: "table", Name: ref.Name}
	}
	key, err := x.tuple(ref)
	if err != nil {
		return nil, err
	}
	v, ok := t.Lookup(key)
	if !ok {
		return nil, &MissingEntryError{Template: x.template, Table: t.Name(), Key: key}
	}
	return v, nil
}

func (x *expander) tuple(ref *notation.Ref) (ir.Tuple, error) {
	t := make(ir.Tuple, len(ref.Indices))
	for i, ix := range ref.Indices {
		v, err := x.index(ix, ref.String())
		if err != nil {
			return nil, err
		}
		t[i] = v
	}
	return t, nil
}

// index resolves a subscript. Shifts move by ordinal position within the
// bound set and never wrap.
func (x *expander) index(ix notation.IndexExpr, fragment string) (ir.Index, error) {
	if ix.Kind == notation.IndexLit {
		return ix.Literal, nil
	}
	b, ok := x.env[ix.Name]
	if !ok {
		return ir.Index{}, &UnboundIndexError{Template: x.template, Index: ix.Name, Fragment: fragment}
	}
	if ix.Offset == 0 {
		return b.value, nil
	}
	pos := b.pos + ix.Offset
	if pos < 0 || pos >= b.set.Len() {
		return ir.Index{}, &IndexRangeError{Template: x.template, Fragment: fragment, Set: b.set.Name(), Index: b.value, Offset: ix.Offset}
	}
	return b.set.At(pos), nil
}
