package notation

// TokenKind enumerates lexical token types.
type TokenKind int

const (
	EOF TokenKind = iota
	Ident
	Number
	String

	Underscore // _
	Caret      // ^
	LBrace     // {
	RBrace     // }
	LParen     // (
	RParen     // )
	LBracket   // [
	RBracket   // ]
	Comma      // ,
	Plus       // +
	Minus      // -
	Star       // *
	Slash      // /

	Eq    // =
	EqEq  // ==
	NotEq // !=
	Less  // <
	Greater
	LessEq
	GreaterEq
	Assign // :=

	Sum    // Σ ∑ \sum /sum sum
	Forall // ∀ \forall /forall forall
	If
	And
	Or
	Not
	In
)

var kindNames = map[TokenKind]string{
	EOF: "end of input", Ident: "identifier", Number: "number", String: "string",
	Underscore: "'_'", Caret: "'^'", LBrace: "'{'", RBrace: "'}'", LParen: "'('",
	RParen: "')'", LBracket: "'['", RBracket: "']'", Comma: "','", Plus: "'+'",
	Minus: "'-'", Star: "'*'", Slash: "'/'", Eq: "'='", EqEq: "'=='", NotEq: "'!='",
	Less: "'<'", Greater: "'>'", LessEq: "'<='", GreaterEq: "'>='", Assign: "':='",
	Sum: "sum", Forall: "forall", If: "'if'", And: "'and'", Or: "'or'", Not: "'not'",
	In: "'in'",
}

func (k TokenKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Token is one lexeme with its byte span [Pos, End).
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
	End  int
}

// isComparison reports whether the token compares two sides of a constraint
// or guard.
func (t Token) isComparison() bool {
	switch t.Kind {
	case Eq, EqEq, NotEq, Less, Greater, LessEq, GreaterEq:
		return true
	}
	return false
}

var keywords = map[string]TokenKind{
	"sum":    Sum,
	"forall": Forall,
	"if":     If,
	"and":    And,
	"or":     Or,
	"not":    Not,
	"in":     In,
}
