package ir

import (
	"errors"
	"sort"
	"strings"
)

// ErrDegree is returned when a product would exceed degree two.
var ErrDegree = errors.New("expression degree exceeds two")

// Term is a linear term coef*x[Var].
type Term struct {
	Var  int     `json:"var"`
	Coef float64 `json:"coef"`
}

// QuadTerm is a quadratic term coef*x[A]*x[B] with A <= B.
type QuadTerm struct {
	A    int     `json:"a"`
	B    int     `json:"b"`
	Coef float64 `json:"coef"`
}

// LinExpr is a flattened expression: Constant + sum(Terms) + sum(Quad).
// Terms are kept merged and sorted by variable ID; zero coefficients are
// dropped. Despite the name it may carry quadratic terms.
type LinExpr struct {
	Constant float64    `json:"constant"`
	Terms    []Term     `json:"terms,omitempty"`
	Quad     []QuadTerm `json:"quad,omitempty"`
}

// Const returns a constant expression.
func Const(c float64) LinExpr {
	return LinExpr{Constant: c}
}

// VarExpr returns the expression 1*x[id].
func VarExpr(id int) LinExpr {
	return LinExpr{Terms: []Term{{Var: id, Coef: 1}}}
}

// IsConstant reports whether the expression has no variable terms.
func (e LinExpr) IsConstant() bool {
	return len(e.Terms) == 0 && len(e.Quad) == 0
}

// Degree returns 0, 1 or 2.
func (e LinExpr) Degree() int {
	switch {
	case len(e.Quad) > 0:
		return 2
	case len(e.Terms) > 0:
		return 1
	}
	return 0
}

// Add returns e + o.
func (e LinExpr) Add(o LinExpr) LinExpr {
	out := LinExpr{
		Constant: e.Constant + o.Constant,
		Terms:    append(append(make([]Term, 0, len(e.Terms)+len(o.Terms)), e.Terms...), o.Terms...),
		Quad:     append(append(make([]QuadTerm, 0, len(e.Quad)+len(o.Quad)), e.Quad...), o.Quad...),
	}
	return out.normalize()
}

// Sum returns the sum of parts. Like terms are merged once over the whole
// list, so summing n parts is O(n log n).
func Sum(parts ...LinExpr) LinExpr {
	var out LinExpr
	nt, nq := 0, 0
	for _, p := range parts {
		nt += len(p.Terms)
		nq += len(p.Quad)
	}
	if nt > 0 {
		out.Terms = make([]Term, 0, nt)
	}
	if nq > 0 {
		out.Quad = make([]QuadTerm, 0, nq)
	}
	for _, p := range parts {
		out.Constant += p.Constant
		out.Terms = append(out.Terms, p.Terms...)
		out.Quad = append(out.Quad, p.Quad...)
	}
	return out.normalize()
}

// Sub returns e - o.
func (e LinExpr) Sub(o LinExpr) LinExpr {
	return e.Add(o.Scale(-1))
}

// Scale returns c*e.
func (e LinExpr) Scale(c float64) LinExpr {
	out := LinExpr{Constant: e.Constant * c}
	if len(e.Terms) > 0 {
		out.Terms = make([]Term, len(e.Terms))
		for i, t := range e.Terms {
			out.Terms[i] = Term{Var: t.Var, Coef: t.Coef * c}
		}
	}
	if len(e.Quad) > 0 {
		out.Quad = make([]QuadTerm, len(e.Quad))
		for i, q := range e.Quad {
			out.Quad[i] = QuadTerm{A: q.A, B: q.B, Coef: q.Coef * c}
		}
	}
	return out.normalize()
}

// Mul returns e*o, or ErrDegree if the product is above degree two.
func (e LinExpr) Mul(o LinExpr) (LinExpr, error) {
	if e.IsConstant() {
		return o.Scale(e.Constant), nil
	}
	if o.IsConstant() {
		return e.Scale(o.Constant), nil
	}
	if e.Degree()+o.Degree() > 2 {
		return LinExpr{}, ErrDegree
	}
	// Both sides are linear: (c1 + sum a_i x_i)(c2 + sum b_j x_j).
	out := LinExpr{Constant: e.Constant * o.Constant}
	for _, t := range e.Terms {
		out.Terms = append(out.Terms, Term{Var: t.Var, Coef: t.Coef * o.Constant})
	}
	for _, t := range o.Terms {
		out.Terms = append(out.Terms, Term{Var: t.Var, Coef: t.Coef * e.Constant})
	}
	for _, a := range e.Terms {
		for _, b := range o.Terms {
			x, y := a.Var, b.Var
			if y < x {
				x, y = y, x
			}
			out.Quad = append(out.Quad, QuadTerm{A: x, B: y, Coef: a.Coef * b.Coef})
		}
	}
	return out.normalize(), nil
}

// Vars returns the distinct variable IDs referenced, ascending.
func (e LinExpr) Vars() []int {
	seen := make(map[int]bool)
	var out []int
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, t := range e.Terms {
		add(t.Var)
	}
	for _, q := range e.Quad {
		add(q.A)
		add(q.B)
	}
	sort.Ints(out)
	return out
}

// Eval evaluates the expression for the given variable values.
func (e LinExpr) Eval(value func(id int) float64) float64 {
	sum := e.Constant
	for _, t := range e.Terms {
		sum += t.Coef * value(t.Var)
	}
	for _, q := range e.Quad {
		sum += q.Coef * value(q.A) * value(q.B)
	}
	return sum
}

func (e LinExpr) normalize() LinExpr {
	if len(e.Terms) > 0 {
		merged := make(map[int]float64, len(e.Terms))
		for _, t := range e.Terms {
			merged[t.Var] += t.Coef
		}
		terms := make([]Term, 0, len(merged))
		for id, c := range merged {
			if c != 0 {
				terms = append(terms, Term{Var: id, Coef: c})
			}
		}
		sort.Slice(terms, func(i, j int) bool { return terms[i].Var < terms[j].Var })
		if len(terms) == 0 {
			terms = nil
		}
		e.Terms = terms
	}
	if len(e.Quad) > 0 {
		type pair struct{ a, b int }
		merged := make(map[pair]float64, len(e.Quad))
		for _, q := range e.Quad {
			merged[pair{q.A, q.B}] += q.Coef
		}
		quad := make([]QuadTerm, 0, len(merged))
		for p, c := range merged {
			if c != 0 {
				quad = append(quad, QuadTerm{A: p.a, B: p.b, Coef: c})
			}
		}
		sort.Slice(quad, func(i, j int) bool {
			if quad[i].A != quad[j].A {
				return quad[i].A < quad[j].A
			}
			return quad[i].B < quad[j].B
		})
		if len(quad) == 0 {
			quad = nil
		}
		e.Quad = quad
	}
	return e
}

// FormatExpr renders an expression using the model's variable labels,
// e.g. "10*iscovered_0 + 20*iscovered_1 + 5*iscovered_2".
func (m *Model) FormatExpr(e LinExpr) string {
	var b strings.Builder
	first := true
	write := func(coef float64, body string) {
		neg := coef < 0
		if neg {
			coef = -coef
		}
		switch {
		case first && neg:
			b.WriteString("-")
		case !first && neg:
			b.WriteString(" - ")
		case !first:
			b.WriteString(" + ")
		}
		first = false
		if body == "" {
			b.WriteString(formatFloat(coef))
			return
		}
		if coef != 1 {
			b.WriteString(formatFloat(coef))
			b.WriteString("*")
		}
		b.WriteString(body)
	}
	for _, t := range e.Terms {
		write(t.Coef, m.label(t.Var))
	}
	for _, q := range e.Quad {
		if q.A == q.B {
			write(q.Coef, m.label(q.A)+"^2")
		} else {
			write(q.Coef, m.label(q.A)+"*"+m.label(q.B))
		}
	}
	if e.Constant != 0 || first {
		write(e.Constant, "")
	}
	return b.String()
}

// FormatConstraint renders "lhs op rhs".
func (m *Model) FormatConstraint(c Constraint) string {
	return m.FormatExpr(c.LHS) + " " + string(c.Op) + " " + m.FormatExpr(c.RHS)
}

// String renders the whole model, one line per constraint.
func (m *Model) String() string {
	var b strings.Builder
	b.WriteString(string(m.Objective.Sense))
	b.WriteString(" ")
	b.WriteString(m.FormatExpr(m.Objective.Expr))
	b.WriteString("\nsubject to\n")
	for _, c := range m.Constraints {
		b.WriteString("  ")
		b.WriteString(c.Label())
		b.WriteString(": ")
		b.WriteString(m.FormatConstraint(c))
		b.WriteString("\n")
	}
	b.WriteString("variables\n")
	for _, v := range m.Variables {
		b.WriteString("  ")
		b.WriteString(v.Label())
		b.WriteString(" ")
		b.WriteString(string(v.Domain))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) label(id int) string {
	if id >= 0 && id < len(m.Variables) {
		return m.Variables[id].Label()
	}
	return "x#" + formatFloat(float64(id))
}
