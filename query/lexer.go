package query

import "fmt"

// lexer scans HDQL text into tokens. It tracks byte offsets so errors can
// point at the exact input position.
type lexer struct {
	input string
	pos   int
}

// Tokenize scans the full input and returns the token stream, terminated by
// a TokenEOF entry.
func Tokenize(input string) ([]Token, error) {
	lx := &lexer{input: input}

	var tokens []Token

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)

		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

func (lx *lexer) next() (Token, error) {
	lx.skipWhitespace()

	start := lx.pos

	if lx.pos >= len(lx.input) {
		return Token{Kind: TokenEOF, Pos: start, End: start}, nil
	}

	c := lx.input[lx.pos]

	switch {
	case isIdentStart(c):
		return lx.scanIdentOrKeyword(), nil
	case c >= '0' && c <= '9':
		return lx.scanNumber(), nil
	case c == '"' || c == '\'':
		return lx.scanString(c)
	case c == '?':
		// A bare `?` is the analogy completion placeholder.
		lx.pos++

		return Token{Kind: TokenWildcard, Text: "?", Pos: start, End: lx.pos}, nil
	}

	// Multi-character operators first.
	if lx.pos+1 < len(lx.input) {
		two := lx.input[lx.pos : lx.pos+2]

		if kind, ok := twoCharOps[two]; ok {
			lx.pos += 2

			return Token{Kind: kind, Text: two, Pos: start, End: lx.pos}, nil
		}
	}

	if kind, ok := oneCharOps[c]; ok {
		lx.pos++

		return Token{Kind: kind, Text: string(c), Pos: start, End: lx.pos}, nil
	}

	return Token{}, &ParseError{
		Message: fmt.Sprintf("unknown character %q", c),
		Offset:  start,
	}
}

var twoCharOps = map[string]TokenKind{
	"->": TokenArrow,
	"==": TokenEq,
	"!=": TokenNe,
	">=": TokenGe,
	"<=": TokenLe,
}

var oneCharOps = map[byte]TokenKind{
	'>': TokenGt,
	'<': TokenLt,
	'=': TokenAssign,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'.': TokenDot,
	'(': TokenLParen,
	')': TokenRParen,
	',': TokenComma,
}

func (lx *lexer) skipWhitespace() {
	for lx.pos < len(lx.input) {
		switch lx.input[lx.pos] {
		case ' ', '\t', '\n', '\r':
			lx.pos++
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c == '-' || (c >= '0' && c <= '9')
}

func isWildcardChar(c byte) bool {
	return c == '*' || c == '?' || c == '~'
}

// scanIdentOrKeyword scans an identifier, optionally carrying one trailing
// wildcard marker (`*`, `?`, or `~`). Keywords win over identifiers.
func (lx *lexer) scanIdentOrKeyword() Token {
	start := lx.pos

	for lx.pos < len(lx.input) && isIdentChar(lx.input[lx.pos]) {
		lx.pos++
	}

	wildcard := false

	if lx.pos < len(lx.input) && isWildcardChar(lx.input[lx.pos]) {
		wildcard = true
		lx.pos++
	}

	text := lx.input[start:lx.pos]

	if !wildcard {
		if kind, ok := keywords[text]; ok {
			return Token{Kind: kind, Text: text, Pos: start, End: lx.pos}
		}

		return Token{Kind: TokenIdent, Text: text, Pos: start, End: lx.pos}
	}

	return Token{Kind: TokenWildcard, Text: text, Pos: start, End: lx.pos}
}

func (lx *lexer) scanNumber() Token {
	start := lx.pos

	for lx.pos < len(lx.input) && lx.input[lx.pos] >= '0' && lx.input[lx.pos] <= '9' {
		lx.pos++
	}

	isFloat := false

	// A dot qualifies as a float only when digits follow; `5.attr` keeps
	// the dot for attribute access.
	if lx.pos+1 < len(lx.input) && lx.input[lx.pos] == '.' && lx.input[lx.pos+1] >= '0' && lx.input[lx.pos+1] <= '9' {
		isFloat = true
		lx.pos++

		for lx.pos < len(lx.input) && lx.input[lx.pos] >= '0' && lx.input[lx.pos] <= '9' {
			lx.pos++
		}
	}

	kind := TokenInt
	if isFloat {
		kind = TokenFloat
	}

	return Token{Kind: kind, Text: lx.input[start:lx.pos], Pos: start, End: lx.pos}
}

func (lx *lexer) scanString(quote byte) (Token, error) {
	start := lx.pos
	lx.pos++ // opening quote

	contentStart := lx.pos

	for lx.pos < len(lx.input) && lx.input[lx.pos] != quote {
		lx.pos++
	}

	if lx.pos >= len(lx.input) {
		return Token{}, &ParseError{
			Message: "unterminated string literal",
			Offset:  start,
		}
	}

	content := lx.input[contentStart:lx.pos]
	lx.pos++ // closing quote

	return Token{Kind: TokenString, Text: content, Pos: start, End: lx.pos}, nil
}
