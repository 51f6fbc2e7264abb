// Package query implements the HDQL lexer, parser, and AST.
//
// HDQL is a small query language over typed entity vectors. Expressions
// combine atomic entity lookups with relational traversal (->), boolean
// logic, similarity search, analogy solving, and multi-objective
// optimization.
package query

import "fmt"

// TokenKind classifies a lexical token.
type TokenKind uint8

const (
	// TokenEOF marks the end of input.
	TokenEOF TokenKind = iota

	// TokenIdent is a plain identifier.
	TokenIdent
	// TokenWildcard is an identifier carrying a glob (`*`, `?`) or fuzzy
	// (trailing `~`) marker.
	TokenWildcard
	// TokenString is a quoted string literal, single or double quoted.
	TokenString
	// TokenInt is an integer literal.
	TokenInt
	// TokenFloat is a floating point literal.
	TokenFloat
	// TokenBool is `true` or `false`.
	TokenBool

	// TokenEntity is one of the entity type keywords
	// (command, job, feature, outcome, constraint).
	TokenEntity
	// TokenAggregate is one of the aggregate function keywords
	// (count, avg, sum, max, min).
	TokenAggregate

	TokenAnd
	TokenOr
	TokenNot
	TokenIsTo
	TokenAs
	TokenSimilarTo
	TokenMaximize
	TokenMinimize
	TokenSubjectTo

	TokenArrow  // ->
	TokenDot    // .
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,
	TokenEq     // ==
	TokenNe     // !=
	TokenGt     // >
	TokenGe     // >=
	TokenLt     // <
	TokenLe     // <=
	TokenAssign // =
	TokenPlus   // +
	TokenMinus  // -
	TokenStar   // *
	TokenSlash  // /
)

var tokenNames = map[TokenKind]string{
	TokenEOF:       "end of input",
	TokenIdent:     "identifier",
	TokenWildcard:  "wildcard",
	TokenString:    "string",
	TokenInt:       "integer",
	TokenFloat:     "float",
	TokenBool:      "boolean",
	TokenEntity:    "entity type",
	TokenAggregate: "aggregate",
	TokenAnd:       "AND",
	TokenOr:        "OR",
	TokenNot:       "NOT",
	TokenIsTo:      "is_to",
	TokenAs:        "as",
	TokenSimilarTo: "similar_to",
	TokenMaximize:  "maximize",
	TokenMinimize:  "minimize",
	TokenSubjectTo: "subject_to",
	TokenArrow:     "->",
	TokenDot:       ".",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenComma:     ",",
	TokenEq:        "==",
	TokenNe:        "!=",
	TokenGt:        ">",
	TokenGe:        ">=",
	TokenLt:        "<",
	TokenLe:        "<=",
	TokenAssign:    "=",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenStar:      "*",
	TokenSlash:     "/",
}

// String returns a human-readable name for the token kind.
func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}

	return fmt.Sprintf("TokenKind(%d)", uint8(k))
}

// Token is a lexical token with its byte range in the input.
type Token struct {
	Kind TokenKind
	// Text is the token's literal text. String tokens hold the unquoted
	// content.
	Text string
	// Pos is the byte offset of the token's first character.
	Pos int
	// End is the byte offset one past the token's last character.
	End int
}

// keywords maps reserved words to their token kinds. Entity type and
// aggregate keywords keep their text so the parser can recover which one
// matched.
var keywords = map[string]TokenKind{
	"command":    TokenEntity,
	"job":        TokenEntity,
	"feature":    TokenEntity,
	"outcome":    TokenEntity,
	"constraint": TokenEntity,

	"count": TokenAggregate,
	"avg":   TokenAggregate,
	"sum":   TokenAggregate,
	"max":   TokenAggregate,
	"min":   TokenAggregate,

	"AND":        TokenAnd,
	"OR":         TokenOr,
	"NOT":        TokenNot,
	"is_to":      TokenIsTo,
	"as":         TokenAs,
	"similar_to": TokenSimilarTo,
	"maximize":   TokenMaximize,
	"minimize":   TokenMinimize,
	"subject_to": TokenSubjectTo,

	"true":  TokenBool,
	"false": TokenBool,
}
