package query

import (
	"fmt"
	"strconv"

	"github.com/hyperdim/hdql/store"
)

// Parse tokenizes and parses query text into an AST.
func Parse(input string) (Node, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}

	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenEOF); err != nil {
		return nil, err
	}

	return node, nil
}

// parser is a recursive descent parser over a token stream. Precedence from
// loosest to tightest: OR, AND, NOT, comparison, relational (->), additive,
// multiplicative, primary.
type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}

	return p.tokens[len(p.tokens)-1]
}

func (p *parser) peek() Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}

	return p.tokens[len(p.tokens)-1]
}

func (p *parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}

	return tok
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	if tok := p.current(); tok.Kind != kind {
		return Token{}, p.errorf([]TokenKind{kind}, "unexpected %s", tok.Kind)
	}

	return p.advance(), nil
}

// errorf builds a ParseError at the current token.
func (p *parser) errorf(expected []TokenKind, format string, args ...any) error {
	names := make([]string, len(expected))
	for i, kind := range expected {
		names[i] = kind.String()
	}

	return &ParseError{
		Message:  fmt.Sprintf(format, args...),
		Offset:   p.current().Pos,
		Expected: names,
	}
}

func (p *parser) parseExpr() (Node, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Kind == TokenOr {
		p.advance()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = &LogicalNode{
			Op:       OpOr,
			Operands: []Node{left, right},
			Loc:      Span{Start: left.Span().Start, End: right.Span().End},
		}
	}

	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().Kind == TokenAnd {
		p.advance()

		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		left = &LogicalNode{
			Op:       OpAnd,
			Operands: []Node{left, right},
			Loc:      Span{Start: left.Span().Start, End: right.Span().End},
		}
	}

	return left, nil
}

func (p *parser) parseNot() (Node, error) {
	if tok := p.current(); tok.Kind == TokenNot {
		p.advance()

		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		return &LogicalNode{
			Op:       OpNot,
			Operands: []Node{operand},
			Loc:      Span{Start: tok.Pos, End: operand.Span().End},
		}, nil
	}

	return p.parseComparison()
}

var comparisonOps = map[TokenKind]CompareOp{
	TokenEq: CmpEq,
	TokenNe: CmpNe,
	TokenGt: CmpGt,
	TokenGe: CmpGe,
	TokenLt: CmpLt,
	TokenLe: CmpLe,
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}

	op, ok := comparisonOps[p.current().Kind]
	if !ok {
		return left, nil
	}

	p.advance()

	right, err := p.parseRelational()
	if err != nil {
		return nil, err
	}

	return &ComparisonNode{
		Left:  left,
		Op:    op,
		Right: right,
		Loc:   Span{Start: left.Span().Start, End: right.Span().End},
	}, nil
}

func (p *parser) parseRelational() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if p.current().Kind != TokenArrow {
		return left, nil
	}

	p.advance()

	// Right recursion lets chains like a -> b -> c compose naturally.
	right, err := p.parseRelational()
	if err != nil {
		return nil, err
	}

	return &RelationalNode{
		Left:  left,
		Right: right,
		Loc:   Span{Start: left.Span().Start, End: right.Span().End},
	}, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		var op ArithOp

		switch p.current().Kind {
		case TokenPlus:
			op = ArithAdd
		case TokenMinus:
			op = ArithSub
		default:
			return left, nil
		}

		p.advance()

		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{
			Op:    op,
			Left:  left,
			Right: right,
			Loc:   Span{Start: left.Span().Start, End: right.Span().End},
		}
	}
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		var op ArithOp

		switch p.current().Kind {
		case TokenStar:
			op = ArithMul
		case TokenSlash:
			op = ArithDiv
		default:
			return left, nil
		}

		p.advance()

		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		left = &BinaryOpNode{
			Op:    op,
			Left:  left,
			Right: right,
			Loc:   Span{Start: left.Span().Start, End: right.Span().End},
		}
	}
}

func (p *parser) parsePrimary() (Node, error) {
	switch tok := p.current(); tok.Kind {
	case TokenLParen:
		p.advance()

		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}

		return expr, nil

	case TokenEntity:
		return p.parseAtomic()

	case TokenSimilarTo:
		return p.parseSimilarity()

	case TokenMaximize, TokenMinimize:
		return p.parseOptimization()

	case TokenAggregate:
		return p.parseAggregate()

	case TokenString, TokenInt, TokenFloat, TokenBool:
		return p.parseLiteral()

	case TokenIdent:
		ident := &IdentifierNode{Name: tok.Text, Loc: Span{Start: tok.Pos, End: tok.End}}
		p.advance()

		if p.current().Kind == TokenDot {
			p.advance()

			attr, err := p.expect(TokenIdent)
			if err != nil {
				return nil, err
			}

			return &AttributeNode{
				Base: ident,
				Name: attr.Text,
				Loc:  Span{Start: ident.Loc.Start, End: attr.End},
			}, nil
		}

		return ident, nil
	}

	return nil, p.errorf(
		[]TokenKind{TokenEntity, TokenSimilarTo, TokenMaximize, TokenIdent, TokenLParen},
		"unexpected %s", p.current().Kind,
	)
}

// parseAtomic parses `entity("identifier")` with optional attribute access
// and optional is_to analogy continuation.
func (p *parser) parseAtomic() (Node, error) {
	node, err := p.parseAtomicBare()
	if err != nil {
		return nil, err
	}

	if p.current().Kind == TokenIsTo {
		return p.parseAnalogy(node)
	}

	return node, nil
}

// parseAtomicBare parses `entity("identifier")` with optional attribute
// access but without consuming a trailing is_to. Analogy operands use it
// directly so `c is_to ?` inside an analogy does not recurse.
func (p *parser) parseAtomicBare() (Node, error) {
	entityTok := p.advance()

	entityType, err := store.ParseEntityType(entityTok.Text)
	if err != nil {
		return nil, &ParseError{
			Message: err.Error(),
			Offset:  entityTok.Pos,
		}
	}

	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	patternTok := p.current()
	switch patternTok.Kind {
	case TokenString, TokenIdent, TokenWildcard:
	case TokenStar:
		// A bare `*` inside entity(...) is the match-all pattern, not the
		// multiplication operator.
	default:
		return nil, p.errorf(
			[]TokenKind{TokenString, TokenIdent, TokenWildcard},
			"expected entity identifier, got %s", patternTok.Kind,
		)
	}

	p.advance()

	closeTok, err := p.expect(TokenRParen)
	if err != nil {
		return nil, err
	}

	var node Node = &AtomicNode{
		EntityType: entityType,
		Pattern:    patternTok.Text,
		Loc:        Span{Start: entityTok.Pos, End: closeTok.End},
	}

	if p.current().Kind == TokenDot {
		p.advance()

		attr, err := p.expect(TokenIdent)
		if err != nil {
			return nil, err
		}

		node = &AttributeNode{
			Base: node,
			Name: attr.Text,
			Loc:  Span{Start: node.Span().Start, End: attr.End},
		}
	}

	return node, nil
}

func (p *parser) parseAnalogyOperand() (Node, error) {
	if p.current().Kind == TokenEntity {
		return p.parseAtomicBare()
	}

	return p.parsePrimary()
}

// parseAnalogy parses `a is_to b as c is_to ?` where `?` may instead be a
// concrete entity.
func (p *parser) parseAnalogy(a Node) (Node, error) {
	if _, err := p.expect(TokenIsTo); err != nil {
		return nil, err
	}

	b, err := p.parseAnalogyOperand()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenAs); err != nil {
		return nil, err
	}

	c, err := p.parseAnalogyOperand()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenIsTo); err != nil {
		return nil, err
	}

	var target Node

	endPos := p.current().End

	// A bare `?` wildcard asks the engine to solve for the completion.
	if tok := p.current(); tok.Kind == TokenWildcard && tok.Text == "?" {
		p.advance()
	} else {
		target, err = p.parseAnalogyOperand()
		if err != nil {
			return nil, err
		}

		endPos = target.Span().End
	}

	return &AnalogyNode{
		A:      a,
		B:      b,
		C:      c,
		Target: target,
		Loc:    Span{Start: a.Span().Start, End: endPos},
	}, nil
}

// parseSimilarity parses `similar_to(reference, key=value, ...)`.
func (p *parser) parseSimilarity() (Node, error) {
	simTok := p.advance()

	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	reference, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	params := map[string]LiteralValue{}

	if p.current().Kind == TokenComma {
		p.advance()

		params, err = p.parseParams()
		if err != nil {
			return nil, err
		}
	}

	closeTok, err := p.expect(TokenRParen)
	if err != nil {
		return nil, err
	}

	return &SimilarityNode{
		Reference: reference,
		Params:    params,
		Loc:       Span{Start: simTok.Pos, End: closeTok.End},
	}, nil
}

// parseParams parses `key=literal, key=literal, ...`.
func (p *parser) parseParams() (map[string]LiteralValue, error) {
	params := make(map[string]LiteralValue)

	for p.current().Kind == TokenIdent {
		key := p.advance().Text

		if _, err := p.expect(TokenAssign); err != nil {
			return nil, err
		}

		valueTok := p.current()

		value, err := p.literalValue(valueTok)
		if err != nil {
			return nil, err
		}

		p.advance()

		params[key] = value

		if p.current().Kind != TokenComma {
			break
		}

		p.advance()
	}

	return params, nil
}

// parseOptimization parses `maximize(obj) subject_to(c1, c2, ...)`.
func (p *parser) parseOptimization() (Node, error) {
	dirTok := p.advance()

	direction := Maximize
	if dirTok.Kind == TokenMinimize {
		direction = Minimize
	}

	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	objective, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	closeTok, err := p.expect(TokenRParen)
	if err != nil {
		return nil, err
	}

	endPos := closeTok.End

	var constraints []Node

	if p.current().Kind == TokenSubjectTo {
		p.advance()

		if _, err := p.expect(TokenLParen); err != nil {
			return nil, err
		}

		for {
			constraint, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			constraints = append(constraints, constraint)

			if p.current().Kind != TokenComma {
				break
			}

			p.advance()
		}

		closeTok, err := p.expect(TokenRParen)
		if err != nil {
			return nil, err
		}

		endPos = closeTok.End
	}

	return &OptimizationNode{
		Direction:   direction,
		Objective:   objective,
		Constraints: constraints,
		Loc:         Span{Start: dirTok.Pos, End: endPos},
	}, nil
}

// parseAggregate parses `count(expr)` and friends.
func (p *parser) parseAggregate() (Node, error) {
	nameTok := p.advance()

	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	var args []Node

	if p.current().Kind != TokenRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			args = append(args, arg)

			if p.current().Kind != TokenComma {
				break
			}

			p.advance()
		}
	}

	closeTok, err := p.expect(TokenRParen)
	if err != nil {
		return nil, err
	}

	return &AggregateNode{
		Name: nameTok.Text,
		Args: args,
		Loc:  Span{Start: nameTok.Pos, End: closeTok.End},
	}, nil
}

func (p *parser) parseLiteral() (Node, error) {
	tok := p.current()

	value, err := p.literalValue(tok)
	if err != nil {
		return nil, err
	}

	p.advance()

	return &LiteralNode{
		Value: value,
		Loc:   Span{Start: tok.Pos, End: tok.End},
	}, nil
}

func (p *parser) literalValue(tok Token) (LiteralValue, error) {
	switch tok.Kind {
	case TokenString:
		return LiteralValue{Kind: LiteralString, Str: tok.Text}, nil

	case TokenInt:
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return LiteralValue{}, &ParseError{
				Message: fmt.Sprintf("invalid integer literal %q", tok.Text),
				Offset:  tok.Pos,
			}
		}

		return LiteralValue{Kind: LiteralInt, Int: n}, nil

	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return LiteralValue{}, &ParseError{
				Message: fmt.Sprintf("invalid float literal %q", tok.Text),
				Offset:  tok.Pos,
			}
		}

		return LiteralValue{Kind: LiteralFloat, Float: f}, nil

	case TokenBool:
		return LiteralValue{Kind: LiteralBool, Bool: tok.Text == "true"}, nil
	}

	return LiteralValue{}, p.errorf(
		[]TokenKind{TokenString, TokenInt, TokenFloat, TokenBool},
		"expected literal value, got %s", tok.Kind,
	)
}
