package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/sigma/internal/ir"
	"github.com/roach88/sigma/internal/notation"
)

// test evaluates a guard under the current bindings.
func (x *expander) test(p notation.Pred) (bool, error) {
	switch n := p.(type) {
	case *notation.Logical:
		left, err := x.test(n.Left)
		if err != nil {
			return false, err
		}
		if n.Op == "and" && !left {
			return false, nil
		}
		if n.Op == "or" && left {
			return true, nil
		}
		return x.test(n.Right)
	case *notation.NotPred:
		v, err := x.test(n.X)
		return !v, err
	case *notation.Compare:
		return x.compare(n)
	case *notation.Member:
		ok, err := x.member(n)
		if n.Negate {
			ok = !ok
		}
		return ok, err
	}
	return false, fmt.Errorf("%s: unsupported condition %T", x.template, p)
}

func (x *expander) operand(o notation.Operand, fragment string) (ir.Value, error) {
	switch o.Kind {
	case notation.OperandNumber:
		return ir.Number(o.Number), nil
	case notation.OperandString:
		return ir.Text(o.Text), nil
	case notation.OperandRef:
		return x.lookup(o.Ref)
	case notation.OperandIndex:
		if _, ok := x.env[o.Index.Name]; !ok {
			if v, ok := x.c.ctx.Param(o.Index.Name); ok {
				return ir.Number(v), nil
			}
		}
		idx, err := x.index(o.Index, fragment)
		if err != nil {
			return nil, err
		}
		return ir.IndexValue(idx), nil
	}
	return nil, fmt.Errorf("%s: unsupported operand in %s", x.template, fragment)
}

func (x *expander) compare(n *notation.Compare) (bool, error) {
	frag := n.String()
	a, err := x.operand(n.Left, frag)
	if err != nil {
		return false, err
	}
	b, err := x.operand(n.Right, frag)
	if err != nil {
		return false, err
	}
	switch n.Op {
	case "==":
		return ir.ValuesEqual(a, b), nil
	case "!=":
		return !ir.ValuesEqual(a, b), nil
	}
	var cmp int
	switch av := a.(type) {
	case ir.Number:
		bv, ok := b.(ir.Number)
		if !ok {
			return false, x.mismatch(frag, a, b)
		}
		switch {
		case av < bv:
			cmp = -1
		case av > bv:
			cmp = 1
		}
	case ir.Text:
		bv, ok := b.(ir.Text)
		if !ok {
			return false, x.mismatch(frag, a, b)
		}
		cmp = strings.Compare(string(av), string(bv))
	default:
		return false, x.mismatch(frag, a, b)
	}
	switch n.Op {
	case "<":
		return cmp < 0, nil
	case ">":
		return cmp > 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("%s: unknown comparison %q", x.template, n.Op)
}

func (x *expander) mismatch(fragment string, a, b ir.Value) error {
	return &DomainMismatchError{
		Template: x.template,
		Fragment: fragment,
		Message:  fmt.Sprintf("cannot order %s against %s", ir.TypeName(a), ir.TypeName(b)),
	}
}

func (x *expander) member(n *notation.Member) (bool, error) {
	frag := n.String()
	elem, err := x.operand(n.Elem, frag)
	if err != nil {
		return false, err
	}
	if n.Table == nil {
		set, ok := x.c.ctx.Set(n.Set)
		if !ok {
			return false, &UnknownSetOrTableError{Template: x.template, Kind: "set", Name: n.Set}
		}
		idx, ok := ir.ValueIndex(elem)
		return ok && set.Contains(idx), nil
	}
	coll, err := x.lookup(n.Table)
	if err != nil {
		return false, err
	}
	members, ok := ir.Members(coll)
	if !ok {
		return false, &DomainMismatchError{
			Template: x.template,
			Fragment: frag,
			Message:  fmt.Sprintf("%s value %s is not a collection", ir.TypeName(coll), coll),
		}
	}
	for _, m := range members {
		if ir.ValuesEqual(elem, m) {
			return true, nil
		}
	}
	return false, nil
}
