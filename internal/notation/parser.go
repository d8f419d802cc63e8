package notation

import (
	"strconv"
	"strings"

	"github.com/roach88/sigma/internal/ir"
)

// Option configures parsing.
type Option func(*parser)

// WithNames lets names contain underscores. known reports whether a joined
// name such as "P_N" is declared; the parser takes the longest known name
// before a subscript. Without it every '_' after a name starts a subscript.
func WithNames(known func(string) bool) Option {
	return func(p *parser) { p.known = known }
}

// ParseConstraint parses a constraint template:
//
//	expr CMP expr quantifier* guard?
//
// Quantifiers may also lead the constraint.
func ParseConstraint(src string, opts ...Option) (*Constraint, error) {
	p, err := newParser(src, opts)
	if err != nil {
		return nil, err
	}
	c := &Constraint{Source: src}
	lead, err := p.quantifiers()
	if err != nil {
		return nil, err
	}
	if c.LHS, err = p.expr(); err != nil {
		return nil, err
	}

	cmp := p.peek()
	switch cmp.Kind {
	case Eq, EqEq:
		c.Op = ir.OpEQ
	case LessEq:
		c.Op = ir.OpLE
	case GreaterEq:
		c.Op = ir.OpGE
	case Assign:
		return nil, p.errorAt(cmp, "assignment %q is not a constraint; use = for equality", cmp.Text)
	case Less, Greater:
		return nil, p.errorAt(cmp, "strict inequality %q is not supported; use <= or >=", cmp.Text)
	case NotEq:
		return nil, p.errorAt(cmp, "%q is not a constraint operator", cmp.Text)
	default:
		return nil, p.errorAt(cmp, "missing comparison operator")
	}
	c.OpPos = cmp.Pos
	p.advance()

	if c.RHS, err = p.expr(); err != nil {
		return nil, err
	}
	if t := p.peek(); t.isComparison() || t.Kind == Assign {
		return nil, p.errorAt(t, "more than one comparison operator")
	}

	trail, err := p.quantifiers()
	if err != nil {
		return nil, err
	}
	c.Quantifiers = append(lead, trail...)
	if p.peek().Kind == If {
		p.advance()
		if c.Guard, err = p.disjunction(); err != nil {
			return nil, err
		}
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseObjective parses an objective expression. It must not compare.
func ParseObjective(src string, opts ...Option) (Expr, error) {
	p, err := newParser(src, opts)
	if err != nil {
		return nil, err
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.isComparison() || t.Kind == Assign {
		return nil, p.errorAt(t, "comparison %q in objective", t.Text)
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return e, nil
}

// ParseDecl parses a variable declaration:
//
//	name ('^' '{' set (',' set)* '}')? domain? ('>=' number)? ('<=' number)?
func ParseDecl(src string) (*Decl, error) {
	p, err := newParser(src, nil)
	if err != nil {
		return nil, err
	}
	d := &Decl{Source: src}
	if d.Name, err = p.dottedName("variable name"); err != nil {
		return nil, err
	}
	if p.peek().Kind == Caret {
		p.advance()
		if d.Sets, err = p.setList(); err != nil {
			return nil, err
		}
	}
	if t := p.peek(); t.Kind == Ident {
		dom, err := ir.ParseDomain(t.Text)
		if err != nil {
			return nil, p.errorAt(t, "%s", err.Error())
		}
		d.Domain = dom
		p.advance()
	}
	for {
		t := p.peek()
		if t.Kind != GreaterEq && t.Kind != LessEq {
			break
		}
		p.advance()
		v, err := p.signedNumber()
		if err != nil {
			return nil, err
		}
		if t.Kind == GreaterEq {
			d.Lower = &v
		} else {
			d.Upper = &v
		}
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return d, nil
}

type parser struct {
	src   string
	toks  []Token
	pos   int
	known func(string) bool
}

func newParser(src string, opts []Option) (*parser, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekAt(off int) Token {
	if p.pos+off < len(p.toks) {
		return p.toks[p.pos+off]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if t.Kind != EOF {
		p.pos++
	}
	return t
}

func (p *parser) errorAt(t Token, format string, args ...any) *SyntaxError {
	return newSyntaxError(p.src, t.Pos, format, args...)
}

func (p *parser) expect(kind TokenKind, context string) (Token, error) {
	t := p.peek()
	if t.Kind != kind {
		if kind == RBrace {
			return t, p.errorAt(t, "unbalanced braces: expected '}' %s, found %s", context, t.Kind)
		}
		if kind == RParen {
			return t, p.errorAt(t, "unbalanced parentheses: expected ')' %s, found %s", context, t.Kind)
		}
		return t, p.errorAt(t, "expected %s %s, found %s", kind, context, t.Kind)
	}
	return p.advance(), nil
}

func (p *parser) expectEnd() error {
	switch t := p.peek(); t.Kind {
	case EOF:
		return nil
	case RBrace:
		return p.errorAt(t, "unbalanced braces: unexpected '}'")
	case RParen:
		return p.errorAt(t, "unbalanced parentheses: unexpected ')'")
	default:
		return p.errorAt(t, "unexpected %s after end of expression", t.Kind)
	}
}

// quantifiers parses zero or more ∀_i^{S}, optionally comma separated.
func (p *parser) quantifiers() ([]Quantifier, error) {
	var qs []Quantifier
	for p.peek().Kind == Forall {
		at := p.advance().Pos
		idx, set, err := p.binder("quantifier")
		if err != nil {
			return nil, err
		}
		qs = append(qs, Quantifier{At: at, Index: idx, Set: set})
		if p.peek().Kind == Comma && p.peekAt(1).Kind == Forall {
			p.advance()
		}
	}
	return qs, nil
}

// binder parses the "_i^{S}" part shared by sums and quantifiers.
func (p *parser) binder(what string) (index, set string, err error) {
	if _, err = p.expect(Underscore, "after "+what); err != nil {
		return "", "", err
	}
	braced := p.peek().Kind == LBrace
	if braced {
		p.advance()
	}
	t := p.peek()
	if t.Kind != Ident {
		return "", "", p.errorAt(t, "malformed subscript: %s index must be an identifier", what)
	}
	index = p.advance().Text
	if braced {
		if _, err = p.expect(RBrace, "closing "+what+" index"); err != nil {
			return "", "", err
		}
	}
	if _, err = p.expect(Caret, "before "+what+" set"); err != nil {
		return "", "", err
	}
	sets, err := p.setList()
	if err != nil {
		return "", "", err
	}
	if len(sets) != 1 {
		return "", "", p.errorAt(t, "%s over %d sets; bind one index per set", what, len(sets))
	}
	return index, sets[0], nil
}

// setList parses '{' set (',' set)* '}' where set names may contain '_'.
func (p *parser) setList() ([]string, error) {
	if _, err := p.expect(LBrace, "opening set list"); err != nil {
		return nil, err
	}
	var sets []string
	for {
		name, err := p.dottedName("set name")
		if err != nil {
			return nil, err
		}
		sets = append(sets, name)
		if p.peek().Kind != Comma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RBrace, "closing set list"); err != nil {
		return nil, err
	}
	return sets, nil
}

// dottedName joins ident ('_' ident)* without consulting known names.
func (p *parser) dottedName(what string) (string, error) {
	t := p.peek()
	if t.Kind != Ident {
		return "", p.errorAt(t, "expected %s, found %s", what, t.Kind)
	}
	parts := []string{p.advance().Text}
	for p.peek().Kind == Underscore && p.peekAt(1).Kind == Ident && p.peekAt(1).Pos == p.peek().End {
		p.advance()
		parts = append(parts, p.advance().Text)
	}
	return strings.Join(parts, "_"), nil
}

// refName reads a reference name, joining '_'-separated parts only while
// the joined name is known.
func (p *parser) refName() string {
	name := p.advance().Text
	if p.known == nil {
		return name
	}
	best, bestPos := name, p.pos
	joined, i := name, p.pos
	for i+1 < len(p.toks) && p.toks[i].Kind == Underscore && p.toks[i+1].Kind == Ident &&
		p.toks[i].Pos == p.toks[i-1].End && p.toks[i+1].Pos == p.toks[i].End {
		joined += "_" + p.toks[i+1].Text
		i += 2
		if p.known(joined) {
			best, bestPos = joined, i
		}
	}
	p.pos = bestPos
	return best
}

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != Plus && t.Kind != Minus {
			return left, nil
		}
		p.advance()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Binary{At: t.Pos, Op: t.Text[0], Left: left, Right: right}
	}
}

func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != Star && t.Kind != Slash {
			return left, nil
		}
		p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{At: t.Pos, Op: t.Text[0], Left: left, Right: right}
	}
}

func (p *parser) unary() (Expr, error) {
	if t := p.peek(); t.Kind == Minus {
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Neg{At: t.Pos, X: x}, nil
	}
	if t := p.peek(); t.Kind == Plus {
		p.advance()
		return p.unary()
	}
	return p.primary()
}

func (p *parser) primary() (Expr, error) {
	t := p.peek()
	switch t.Kind {
	case Number:
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, p.errorAt(t, "malformed number %q", t.Text)
		}
		p.advance()
		return &NumberLit{At: t.Pos, Value: v}, nil
	case Ident:
		return p.ref()
	case LParen:
		p.advance()
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RParen, "closing group"); err != nil {
			return nil, err
		}
		return e, nil
	case Sum:
		return p.sum()
	case EOF:
		return nil, p.errorAt(t, "unexpected end of input, expected an operand")
	case RBrace:
		return nil, p.errorAt(t, "unbalanced braces: unexpected '}'")
	case Underscore:
		return nil, p.errorAt(t, "malformed subscript: '_' must follow a name")
	}
	return nil, p.errorAt(t, "unexpected %s, expected an operand", t.Kind)
}

func (p *parser) sum() (Expr, error) {
	at := p.advance().Pos
	idx, set, err := p.binder("sum")
	if err != nil {
		return nil, err
	}
	s := &SumExpr{At: at, Index: idx, Set: set}
	if p.peek().Kind == LParen {
		p.advance()
		if s.Body, err = p.expr(); err != nil {
			return nil, err
		}
		if p.peek().Kind == If {
			p.advance()
			if s.Guard, err = p.disjunction(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(RParen, "closing sum body"); err != nil {
			return nil, err
		}
		return s, nil
	}
	if s.Body, err = p.term(); err != nil {
		return nil, err
	}
	return s, nil
}

// ref parses a name with an optional subscript: x, x_i, x_3, x_{i,j},
// z_{h-1}, Demand[i].
func (p *parser) ref() (*Ref, error) {
	at := p.peek().Pos
	r := &Ref{At: at, Name: p.refName()}
	switch p.peek().Kind {
	case Underscore:
		p.advance()
		if p.peek().Kind == LBrace {
			p.advance()
			idx, err := p.indexList(RBrace)
			if err != nil {
				return nil, err
			}
			r.Indices = idx
			return r, nil
		}
		x, err := p.bareIndex()
		if err != nil {
			return nil, err
		}
		r.Indices = []IndexExpr{x}
	case LBracket:
		p.advance()
		idx, err := p.indexList(RBracket)
		if err != nil {
			return nil, err
		}
		r.Indices = idx
	}
	return r, nil
}

// bareIndex parses the unbraced subscript after '_'. It never shifts:
// x_h-1 is x_h minus one.
func (p *parser) bareIndex() (IndexExpr, error) {
	t := p.peek()
	switch t.Kind {
	case Ident:
		p.advance()
		return IndexExpr{At: t.Pos, Kind: IndexVar, Name: t.Text}, nil
	case Number:
		n, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return IndexExpr{}, p.errorAt(t, "malformed subscript: %q is not an integer index", t.Text)
		}
		p.advance()
		return IndexExpr{At: t.Pos, Kind: IndexLit, Literal: ir.IntIndex(n)}, nil
	case String:
		p.advance()
		return IndexExpr{At: t.Pos, Kind: IndexLit, Literal: ir.StrIndex(t.Text)}, nil
	}
	return IndexExpr{}, p.errorAt(t, "malformed subscript: expected an index after '_', found %s", t.Kind)
}

func (p *parser) indexList(closer TokenKind) ([]IndexExpr, error) {
	var out []IndexExpr
	for {
		x, err := p.index()
		if err != nil {
			return nil, err
		}
		out = append(out, x)
		if p.peek().Kind != Comma {
			break
		}
		p.advance()
	}
	t := p.peek()
	if t.Kind != closer {
		if closer == RBrace {
			if t.Kind == EOF || t.Kind == RParen || t.isComparison() {
				return nil, p.errorAt(t, "unbalanced braces: expected '}' closing subscript, found %s", t.Kind)
			}
			return nil, p.errorAt(t, "malformed subscript: expected ',' or '}', found %s", t.Kind)
		}
		return nil, p.errorAt(t, "malformed subscript: expected ',' or ']', found %s", t.Kind)
	}
	p.advance()
	return out, nil
}

// index parses one subscript position: i, h-1, h+2, 3, 'north'.
func (p *parser) index() (IndexExpr, error) {
	t := p.peek()
	if t.Kind != Ident {
		if t.Kind == Minus && p.peekAt(1).Kind == Number {
			p.advance()
			n := p.peek()
			v, err := strconv.ParseInt(n.Text, 10, 64)
			if err != nil {
				return IndexExpr{}, p.errorAt(n, "malformed subscript: %q is not an integer index", n.Text)
			}
			p.advance()
			return IndexExpr{At: t.Pos, Kind: IndexLit, Literal: ir.IntIndex(-v)}, nil
		}
		return p.bareIndex()
	}
	p.advance()
	x := IndexExpr{At: t.Pos, Kind: IndexVar, Name: t.Text}
	if op := p.peek(); op.Kind == Plus || op.Kind == Minus {
		p.advance()
		n := p.peek()
		if n.Kind != Number {
			return IndexExpr{}, p.errorAt(n, "malformed subscript: shift must be an integer")
		}
		v, err := strconv.Atoi(n.Text)
		if err != nil {
			return IndexExpr{}, p.errorAt(n, "malformed subscript: shift %q is not an integer", n.Text)
		}
		p.advance()
		if op.Kind == Minus {
			v = -v
		}
		x.Offset = v
	}
	return x, nil
}

func (p *parser) signedNumber() (float64, error) {
	neg := false
	if p.peek().Kind == Minus {
		neg = true
		p.advance()
	}
	t := p.peek()
	if t.Kind != Number {
		return 0, p.errorAt(t, "expected a number, found %s", t.Kind)
	}
	v, err := strconv.ParseFloat(t.Text, 64)
	if err != nil {
		return 0, p.errorAt(t, "malformed number %q", t.Text)
	}
	p.advance()
	if neg {
		v = -v
	}
	return v, nil
}
