package notation

// disjunction := conjunction ('or' conjunction)*
func (p *parser) disjunction() (Pred, error) {
	left, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == Or {
		at := p.advance().Pos
		right, err := p.conjunction()
		if err != nil {
			return nil, err
		}
		left = &Logical{At: at, Op: "or", Left: left, Right: right}
	}
	return left, nil
}

// conjunction := negation ('and' negation)*
func (p *parser) conjunction() (Pred, error) {
	left, err := p.negation()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == And {
		at := p.advance().Pos
		right, err := p.negation()
		if err != nil {
			return nil, err
		}
		left = &Logical{At: at, Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) negation() (Pred, error) {
	t := p.peek()
	switch t.Kind {
	case Not:
		p.advance()
		x, err := p.negation()
		if err != nil {
			return nil, err
		}
		return &NotPred{At: t.Pos, X: x}, nil
	case LParen:
		p.advance()
		x, err := p.disjunction()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RParen, "closing condition"); err != nil {
			return nil, err
		}
		return x, nil
	}
	return p.predicate()
}

// predicate := operand relop operand | operand 'not'? 'in' collection
func (p *parser) predicate() (Pred, error) {
	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	switch {
	case t.Kind == In || (t.Kind == Not && p.peekAt(1).Kind == In):
		m := &Member{At: t.Pos, Elem: left, Negate: t.Kind == Not}
		if m.Negate {
			p.advance()
		}
		p.advance()
		c := p.peek()
		if c.Kind != Ident {
			return nil, p.errorAt(c, "expected a set or table after 'in', found %s", c.Kind)
		}
		ref, err := p.ref()
		if err != nil {
			return nil, err
		}
		if len(ref.Indices) == 0 {
			m.Set = ref.Name
		} else {
			m.Table = ref
		}
		return m, nil
	case t.isComparison():
		p.advance()
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		op := t.Text
		switch t.Kind {
		case Eq:
			op = "=="
		case LessEq:
			op = "<="
		case GreaterEq:
			op = ">="
		case NotEq:
			op = "!="
		}
		return &Compare{At: t.Pos, Op: op, Left: left, Right: right}, nil
	case t.Kind == Assign:
		return nil, p.errorAt(t, "assignment %q in condition; use == for equality", t.Text)
	}
	return nil, p.errorAt(t, "expected a comparison or 'in' in condition, found %s", t.Kind)
}

// operand := index-variable (('+'|'-') int)? | number | string | ref
func (p *parser) operand() (Operand, error) {
	t := p.peek()
	switch t.Kind {
	case Number, Minus:
		v, err := p.signedNumber()
		if err != nil {
			return Operand{}, err
		}
		return Operand{At: t.Pos, Kind: OperandNumber, Number: v}, nil
	case String:
		p.advance()
		return Operand{At: t.Pos, Kind: OperandString, Text: t.Text}, nil
	case Ident:
		next := p.peekAt(1)
		if next.Kind == Underscore || next.Kind == LBracket {
			ref, err := p.ref()
			if err != nil {
				return Operand{}, err
			}
			return Operand{At: t.Pos, Kind: OperandRef, Ref: ref}, nil
		}
		x, err := p.index()
		if err != nil {
			return Operand{}, err
		}
		return Operand{At: t.Pos, Kind: OperandIndex, Index: x}, nil
	}
	return Operand{}, p.errorAt(t, "expected an index, number or table in condition, found %s", t.Kind)
}
