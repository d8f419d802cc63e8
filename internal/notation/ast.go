package notation

import (
	"strconv"
	"strings"

	"github.com/roach88/sigma/internal/ir"
)

// Expr is an arithmetic expression node.
type Expr interface {
	exprNode()
	Pos() int
	String() string
}

// NumberLit is a numeric literal.
type NumberLit struct {
	At    int
	Value float64
}

// Ref is a subscripted (or bare) name: a decision variable, a data table or
// a scalar parameter. The compiler decides which.
type Ref struct {
	At      int
	Name    string
	Indices []IndexExpr
}

// Binary is an arithmetic operation; Op is one of + - * /.
type Binary struct {
	At    int
	Op    byte
	Left  Expr
	Right Expr
}

// Neg is unary minus.
type Neg struct {
	At int
	X  Expr
}

// SumExpr is Σ_Index^{Set}(Body if Guard).
type SumExpr struct {
	At    int
	Index string
	Set   string
	Body  Expr
	Guard Pred // nil when unguarded
}

func (*NumberLit) exprNode() {}
func (*Ref) exprNode()       {}
func (*Binary) exprNode()    {}
func (*Neg) exprNode()       {}
func (*SumExpr) exprNode()   {}

func (n *NumberLit) Pos() int { return n.At }
func (r *Ref) Pos() int       { return r.At }
func (b *Binary) Pos() int    { return b.At }
func (n *Neg) Pos() int       { return n.At }
func (s *SumExpr) Pos() int   { return s.At }

func (n *NumberLit) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }

func (r *Ref) String() string {
	switch len(r.Indices) {
	case 0:
		return r.Name
	case 1:
		if r.Indices[0].Offset == 0 {
			return r.Name + "_" + r.Indices[0].String()
		}
	}
	parts := make([]string, len(r.Indices))
	for i, x := range r.Indices {
		parts[i] = x.String()
	}
	return r.Name + "_{" + strings.Join(parts, ",") + "}"
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

func (n *Neg) String() string { return "-" + n.X.String() }

func (s *SumExpr) String() string {
	body := s.Body.String()
	if s.Guard != nil {
		body += " if " + s.Guard.String()
	}
	return "Σ_" + s.Index + "^{" + s.Set + "}(" + body + ")"
}

// IndexKind classifies an index expression.
type IndexKind int

const (
	// IndexVar is a (possibly shifted) index variable: i, h-1.
	IndexVar IndexKind = iota
	// IndexLit is a literal element: 3, 'north'.
	IndexLit
)

// IndexExpr is one subscript position.
type IndexExpr struct {
	At      int
	Kind    IndexKind
	Name    string   // IndexVar: the index variable
	Offset  int      // IndexVar: ordinal shift, h-1 has Offset -1
	Literal ir.Index // IndexLit
}

func (x IndexExpr) String() string {
	if x.Kind == IndexLit {
		if x.Literal.IsInt() {
			return x.Literal.String()
		}
		return "'" + x.Literal.Text() + "'"
	}
	switch {
	case x.Offset > 0:
		return x.Name + "+" + strconv.Itoa(x.Offset)
	case x.Offset < 0:
		return x.Name + "-" + strconv.Itoa(-x.Offset)
	}
	return x.Name
}

// Pred is a guard predicate node.
type Pred interface {
	predNode()
	Pos() int
	String() string
}

// OperandKind classifies a guard operand.
type OperandKind int

const (
	OperandIndex  OperandKind = iota // bound index, possibly shifted
	OperandNumber                    // numeric literal
	OperandString                    // string literal
	OperandRef                       // data table lookup
)

// Operand is one side of a guard comparison.
type Operand struct {
	At     int
	Kind   OperandKind
	Index  IndexExpr
	Number float64
	Text   string
	Ref    *Ref
}

func (o Operand) String() string {
	switch o.Kind {
	case OperandIndex:
		return o.Index.String()
	case OperandNumber:
		return strconv.FormatFloat(o.Number, 'g', -1, 64)
	case OperandString:
		return "'" + o.Text + "'"
	case OperandRef:
		return o.Ref.String()
	}
	return "?"
}

// Compare is "Left Op Right" where Op is one of == != < > <= >=.
type Compare struct {
	At    int
	Op    string
	Left  Operand
	Right Operand
}

// Member is "Elem in Collection": Collection is either a data table lookup
// (Table) or an index set name (Set).
type Member struct {
	At     int
	Elem   Operand
	Table  *Ref
	Set    string
	Negate bool
}

// Logical combines predicates; Op is "and" or "or".
type Logical struct {
	At    int
	Op    string
	Left  Pred
	Right Pred
}

// NotPred negates a predicate.
type NotPred struct {
	At int
	X  Pred
}

func (*Compare) predNode() {}
func (*Member) predNode()  {}
func (*Logical) predNode() {}
func (*NotPred) predNode() {}

func (c *Compare) Pos() int { return c.At }
func (m *Member) Pos() int  { return m.At }
func (l *Logical) Pos() int { return l.At }
func (n *NotPred) Pos() int { return n.At }

func (c *Compare) String() string {
	return c.Left.String() + " " + c.Op + " " + c.Right.String()
}

func (m *Member) String() string {
	coll := m.Set
	if m.Table != nil {
		coll = m.Table.String()
	}
	op := " in "
	if m.Negate {
		op = " not in "
	}
	return m.Elem.String() + op + coll
}

func (l *Logical) String() string {
	return "(" + l.Left.String() + " " + l.Op + " " + l.Right.String() + ")"
}

func (n *NotPred) String() string { return "not " + n.X.String() }

// Quantifier is ∀_Index^{Set}.
type Quantifier struct {
	At    int
	Index string
	Set   string
}

func (q Quantifier) String() string {
	return "∀_" + q.Index + "^{" + q.Set + "}"
}

// Constraint is a parsed constraint template.
type Constraint struct {
	Source      string
	LHS         Expr
	Op          ir.Op
	OpPos       int
	RHS         Expr
	Quantifiers []Quantifier
	Guard       Pred
}

func (c *Constraint) String() string {
	var b strings.Builder
	b.WriteString(c.LHS.String())
	b.WriteString(" ")
	b.WriteString(string(c.Op))
	b.WriteString(" ")
	b.WriteString(c.RHS.String())
	for _, q := range c.Quantifiers {
		b.WriteString(" ")
		b.WriteString(q.String())
	}
	if c.Guard != nil {
		b.WriteString(" if ")
		b.WriteString(c.Guard.String())
	}
	return b.String()
}

// Decl is a parsed variable declaration.
type Decl struct {
	Source string
	Name   string
	Sets   []string
	Domain ir.Domain // empty when the string carries no domain tag
	Lower  *float64
	Upper  *float64
}
