// Package lpfile renders a model in CPLEX LP format.
//
// Variables are written as x0, x1, ... and constraints as c0, c1, ... so
// that labels such as z_{P1,2} never need escaping; a comment block maps
// each column back to its label.
package lpfile

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/roach88/sigma/internal/builder"
	"github.com/roach88/sigma/internal/ir"
)

type column struct {
	label  string
	domain ir.Domain
	lower  *float64
	upper  *float64
}

type row struct {
	lhs builder.Expr
	op  ir.Op
	rhs builder.Expr
}

// Writer is a builder.Emitter that buffers a model and renders it with
// WriteTo. Safe for concurrent use.
type Writer struct {
	mu        sync.Mutex
	name      string
	cols      []column
	rows      []row
	objective builder.Expr
	sense     ir.Sense
}

// NewWriter returns an empty writer; name goes into the header comment.
func NewWriter(name string) *Writer {
	return &Writer{name: name, sense: ir.Minimize}
}

// ColumnName is the LP name of a handle.
func ColumnName(h builder.Handle) string {
	return "x" + strconv.Itoa(int(h))
}

// DeclareVariable implements builder.Emitter.
func (w *Writer) DeclareVariable(name string, domain ir.Domain, lower, upper *float64) (builder.Handle, error) {
	if name == "" {
		return 0, fmt.Errorf("variable name is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cols = append(w.cols, column{label: name, domain: domain, lower: lower, upper: upper})
	return builder.Handle(len(w.cols) - 1), nil
}

// AddConstraint implements builder.Emitter.
func (w *Writer) AddConstraint(lhs builder.Expr, op ir.Op, rhs builder.Expr) (builder.ConstraintID, error) {
	switch op {
	case ir.OpLE, ir.OpGE, ir.OpEQ:
	default:
		return 0, fmt.Errorf("unsupported operator %q", op)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkHandles(lhs, rhs); err != nil {
		return 0, err
	}
	w.rows = append(w.rows, row{lhs: lhs, op: op, rhs: rhs})
	return builder.ConstraintID(len(w.rows) - 1), nil
}

// SetObjective implements builder.Emitter.
func (w *Writer) SetObjective(expr builder.Expr, sense ir.Sense) error {
	if sense != ir.Maximize && sense != ir.Minimize {
		return fmt.Errorf("unsupported sense %q", sense)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkHandles(expr); err != nil {
		return err
	}
	w.objective = expr
	w.sense = sense
	return nil
}

// Columns returns the number of declared variables.
func (w *Writer) Columns() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.cols)
}

// WriteTo renders the buffered model.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cw := &countingWriter{w: bufio.NewWriter(out)}
	fmt.Fprintf(cw, "\\ Model %s\n", commentText(w.name))
	for i, c := range w.cols {
		fmt.Fprintf(cw, "\\ %s = %s\n", ColumnName(builder.Handle(i)), commentText(c.label))
	}
	if w.objective.Constant != 0 {
		fmt.Fprintf(cw, "\\ objective constant %s\n", num(w.objective.Constant))
	}

	if w.sense == ir.Maximize {
		cw.str("Maximize\n")
	} else {
		cw.str("Minimize\n")
	}
	cw.str(" obj:")
	w.writeTerms(cw, w.objective.Terms, w.objective.Quad, true)
	cw.str("\n")

	cw.str("Subject To\n")
	for i, r := range w.rows {
		diff := subtract(r.lhs, r.rhs)
		fmt.Fprintf(cw, " c%d:", i)
		w.writeTerms(cw, diff.Terms, diff.Quad, false)
		fmt.Fprintf(cw, " %s %s\n", lpOp(r.op), num(-diff.Constant))
	}

	cw.str("Bounds\n")
	for i, c := range w.cols {
		name := ColumnName(builder.Handle(i))
		switch {
		case c.lower != nil && c.upper != nil:
			fmt.Fprintf(cw, " %s <= %s <= %s\n", num(*c.lower), name, num(*c.upper))
		case c.lower != nil:
			fmt.Fprintf(cw, " %s >= %s\n", name, num(*c.lower))
		case c.upper != nil:
			fmt.Fprintf(cw, " -inf <= %s <= %s\n", name, num(*c.upper))
		default:
			fmt.Fprintf(cw, " %s free\n", name)
		}
	}
	w.writeSection(cw, "Generals", ir.DomainInteger)
	w.writeSection(cw, "Binaries", ir.DomainBinary)
	cw.str("End\n")

	if cw.err != nil {
		return cw.n, cw.err
	}
	if err := cw.w.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func (w *Writer) writeSection(cw *countingWriter, title string, domain ir.Domain) {
	var names []string
	for i, c := range w.cols {
		if c.domain == domain {
			names = append(names, ColumnName(builder.Handle(i)))
		}
	}
	if len(names) == 0 {
		return
	}
	cw.str(title + "\n")
	for _, n := range names {
		cw.str(" " + n + "\n")
	}
}

// writeTerms writes " 5 x0 - 3 x1 + [ 2 x0 * x1 ]". Objective quadratic
// blocks are doubled and divided by two as the format requires.
func (w *Writer) writeTerms(cw *countingWriter, terms []builder.Term, quad []builder.QuadTerm, objective bool) {
	first := true
	for _, t := range terms {
		cw.str(signed(t.Coef, first) + " " + ColumnName(t.Var))
		first = false
	}
	if len(quad) > 0 {
		if first {
			cw.str(" [")
		} else {
			cw.str(" + [")
		}
		for i, q := range quad {
			coef := q.Coef
			if objective {
				coef *= 2
			}
			body := ColumnName(q.A) + " * " + ColumnName(q.B)
			if q.A == q.B {
				body = ColumnName(q.A) + " ^ 2"
			}
			cw.str(signed(coef, i == 0) + " " + body)
		}
		cw.str(" ]")
		if objective {
			cw.str(" / 2")
		}
		first = false
	}
	if first {
		// LP readers need at least one term per row.
		if len(w.cols) > 0 {
			cw.str(" 0 " + ColumnName(0))
		}
	}
}

func (w *Writer) checkHandles(exprs ...builder.Expr) error {
	for _, e := range exprs {
		for _, t := range e.Terms {
			if int(t.Var) < 0 || int(t.Var) >= len(w.cols) {
				return fmt.Errorf("unknown handle %d", t.Var)
			}
		}
		for _, q := range e.Quad {
			if q.A < 0 || q.B < 0 || int(q.A) >= len(w.cols) || int(q.B) >= len(w.cols) {
				return fmt.Errorf("unknown handle %d/%d", q.A, q.B)
			}
		}
	}
	return nil
}

// commentText keeps s on one comment line. Labels carry CSV index values
// verbatim, so a control character is escaped Go-style rather than
// written through.
func commentText(s string) string {
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}

// subtract returns lhs - rhs with like terms merged in first-seen order.
func subtract(lhs, rhs builder.Expr) builder.Expr {
	out := builder.Expr{Constant: lhs.Constant - rhs.Constant}
	idx := make(map[builder.Handle]int)
	add := func(t builder.Term, sign float64) {
		if i, ok := idx[t.Var]; ok {
			out.Terms[i].Coef += sign * t.Coef
			return
		}
		idx[t.Var] = len(out.Terms)
		out.Terms = append(out.Terms, builder.Term{Var: t.Var, Coef: sign * t.Coef})
	}
	for _, t := range lhs.Terms {
		add(t, 1)
	}
	for _, t := range rhs.Terms {
		add(t, -1)
	}
	terms := out.Terms[:0]
	for _, t := range out.Terms {
		if t.Coef != 0 {
			terms = append(terms, t)
		}
	}
	out.Terms = terms
	out.Quad = append(out.Quad, lhs.Quad...)
	for _, q := range rhs.Quad {
		q.Coef = -q.Coef
		out.Quad = append(out.Quad, q)
	}
	return out
}

func signed(coef float64, first bool) string {
	switch {
	case coef < 0:
		return " - " + num(-coef)
	case first:
		return " " + num(coef)
	}
	return " + " + num(coef)
}

func lpOp(op ir.Op) string {
	if op == ir.OpEQ {
		return "="
	}
	return string(op)
}

func num(f float64) string {
	if f == 0 {
		return "0"
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

func (c *countingWriter) str(s string) {
	_, _ = c.Write([]byte(s))
}

// Labels returns the declared labels by handle.
func (w *Writer) Labels() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.cols))
	for i, c := range w.cols {
		out[i] = c.label
	}
	return out
}

// Export renders a compiled model straight to out.
func Export(out io.Writer, m *ir.Model) error {
	w := NewWriter(m.Name)
	if _, err := builder.Submit(w, m); err != nil {
		return err
	}
	_, err := w.WriteTo(out)
	return err
}

var _ builder.Emitter = (*Writer)(nil)
