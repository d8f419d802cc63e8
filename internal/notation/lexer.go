package notation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lex splits a notation string into tokens, always ending with EOF.
// Identifiers never contain '_': the underscore is the subscript operator
// and is emitted as its own token.
func Lex(src string) ([]Token, error) {
	lx := &lexer{src: src}
	var toks []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

type lexer struct {
	src string
	pos int
}

func (lx *lexer) next() (Token, error) {
	lx.skipSpace()
	if lx.pos >= len(lx.src) {
		return Token{Kind: EOF, Pos: lx.pos, End: lx.pos}, nil
	}
	start := lx.pos
	r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	if r == utf8.RuneError && size == 1 {
		return Token{}, newSyntaxError(lx.src, start, "invalid UTF-8")
	}

	switch r {
	case 'Σ', '∑':
		return lx.emit(Sum, start, size), nil
	case '∀':
		return lx.emit(Forall, start, size), nil
	case '≤':
		return lx.emit(LessEq, start, size), nil
	case '≥':
		return lx.emit(GreaterEq, start, size), nil
	case '≠':
		return lx.emit(NotEq, start, size), nil
	case '_':
		return lx.emit(Underscore, start, 1), nil
	case '^':
		return lx.emit(Caret, start, 1), nil
	case '{':
		return lx.emit(LBrace, start, 1), nil
	case '}':
		return lx.emit(RBrace, start, 1), nil
	case '(':
		return lx.emit(LParen, start, 1), nil
	case ')':
		return lx.emit(RParen, start, 1), nil
	case '[':
		return lx.emit(LBracket, start, 1), nil
	case ']':
		return lx.emit(RBracket, start, 1), nil
	case ',':
		return lx.emit(Comma, start, 1), nil
	case '+':
		return lx.emit(Plus, start, 1), nil
	case '-':
		return lx.emit(Minus, start, 1), nil
	case '*':
		if lx.peekByte(1) == '*' {
			return Token{}, newSyntaxError(lx.src, start, "unknown operator sequence %q", "**")
		}
		return lx.emit(Star, start, 1), nil
	case '/', '\\':
		if kind, n, ok := lx.commandWord(); ok {
			return lx.emit(kind, start, n), nil
		}
		if r == '\\' {
			return Token{}, newSyntaxError(lx.src, start, "unknown command: expected \\sum or \\forall")
		}
		return lx.emit(Slash, start, 1), nil
	case '<', '>', '=', '!', ':':
		return lx.operator(start)
	case '\'', '"':
		return lx.quoted(start, byte(r))
	}

	if isDigit(byte(r)) || (r == '.' && isDigit(lx.peekByte(1))) {
		return lx.number(start), nil
	}
	if isIdentStart(r) {
		return lx.ident(start), nil
	}
	return Token{}, newSyntaxError(lx.src, start, "unexpected character %q", r)
}

func (lx *lexer) emit(kind TokenKind, start, n int) Token {
	lx.pos = start + n
	return Token{Kind: kind, Text: lx.src[start:lx.pos], Pos: start, End: lx.pos}
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		lx.pos += size
	}
}

func (lx *lexer) peekByte(off int) byte {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

// commandWord recognizes \sum, /sum, \forall and /forall at the cursor.
func (lx *lexer) commandWord() (TokenKind, int, bool) {
	rest := lx.src[lx.pos+1:]
	for _, word := range []string{"forall", "sum"} {
		if !strings.HasPrefix(rest, word) {
			continue
		}
		n := 1 + len(word)
		if lx.pos+n < len(lx.src) && isIdentPart(rune(lx.src[lx.pos+n])) {
			continue
		}
		return keywords[word], n, true
	}
	return 0, 0, false
}

// operator consumes a maximal run of comparison characters and rejects
// combinations that are not operators, such as "=<" or "=>".
func (lx *lexer) operator(start int) (Token, error) {
	end := start
	for end < len(lx.src) && strings.IndexByte("<>=!:", lx.src[end]) >= 0 {
		end++
	}
	text := lx.src[start:end]
	var kind TokenKind
	switch text {
	case "=":
		kind = Eq
	case "==":
		kind = EqEq
	case "!=":
		kind = NotEq
	case "<":
		kind = Less
	case ">":
		kind = Greater
	case "<=":
		kind = LessEq
	case ">=":
		kind = GreaterEq
	case ":=":
		kind = Assign
	default:
		return Token{}, newSyntaxError(lx.src, start, "unknown operator sequence %q", text)
	}
	return lx.emit(kind, start, end-start), nil
}

func (lx *lexer) quoted(start int, quote byte) (Token, error) {
	end := start + 1
	for end < len(lx.src) && lx.src[end] != quote {
		end++
	}
	if end >= len(lx.src) {
		return Token{}, newSyntaxError(lx.src, start, "unterminated string")
	}
	lx.pos = end + 1
	return Token{Kind: String, Text: lx.src[start+1 : end], Pos: start, End: lx.pos}, nil
}

func (lx *lexer) number(start int) Token {
	end := start
	for end < len(lx.src) && isDigit(lx.src[end]) {
		end++
	}
	if end < len(lx.src) && lx.src[end] == '.' {
		end++
		for end < len(lx.src) && isDigit(lx.src[end]) {
			end++
		}
	}
	if end < len(lx.src) && (lx.src[end] == 'e' || lx.src[end] == 'E') {
		exp := end + 1
		if exp < len(lx.src) && (lx.src[exp] == '+' || lx.src[exp] == '-') {
			exp++
		}
		if exp < len(lx.src) && isDigit(lx.src[exp]) {
			end = exp
			for end < len(lx.src) && isDigit(lx.src[end]) {
				end++
			}
		}
	}
	return lx.emit(Number, start, end-start)
}

func (lx *lexer) ident(start int) Token {
	end := start
	for end < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[end:])
		if !isIdentPart(r) {
			break
		}
		end += size
	}
	tok := lx.emit(Ident, start, end-start)
	if kind, ok := keywords[tok.Text]; ok {
		tok.Kind = kind
	}
	return tok
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentStart(r rune) bool {
	return r != 'Σ' && unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
