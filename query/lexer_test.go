package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}

	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenKind
	}{
		{
			name:  "atomic",
			input: `command("deps")`,
			want:  []TokenKind{TokenEntity, TokenLParen, TokenString, TokenRParen, TokenEOF},
		},
		{
			name:  "relational chain",
			input: `command("x") -> job("y")`,
			want: []TokenKind{
				TokenEntity, TokenLParen, TokenString, TokenRParen,
				TokenArrow,
				TokenEntity, TokenLParen, TokenString, TokenRParen,
				TokenEOF,
			},
		},
		{
			name:  "wildcard and fuzzy identifiers",
			input: `dep* dep? dep~ deps`,
			want:  []TokenKind{TokenWildcard, TokenWildcard, TokenWildcard, TokenIdent, TokenEOF},
		},
		{
			name:  "comparisons",
			input: `a == b != c >= d <= e > f < g`,
			want: []TokenKind{
				TokenIdent, TokenEq, TokenIdent, TokenNe, TokenIdent,
				TokenGe, TokenIdent, TokenLe, TokenIdent,
				TokenGt, TokenIdent, TokenLt, TokenIdent, TokenEOF,
			},
		},
		{
			name:  "numbers",
			input: `42 3.14`,
			want:  []TokenKind{TokenInt, TokenFloat, TokenEOF},
		},
		{
			name:  "keywords",
			input: `maximize minimize subject_to similar_to is_to as AND OR NOT true count`,
			want: []TokenKind{
				TokenMaximize, TokenMinimize, TokenSubjectTo, TokenSimilarTo,
				TokenIsTo, TokenAs, TokenAnd, TokenOr, TokenNot, TokenBool,
				TokenAggregate, TokenEOF,
			},
		},
		{
			name:  "analogy placeholder",
			input: `?`,
			want:  []TokenKind{TokenWildcard, TokenEOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want, kinds(tokens))
		})
	}
}

func TestTokenizeOffsets(t *testing.T) {
	tokens, err := Tokenize(`count(  "deps" )`)
	require.NoError(t, err)

	require.Equal(t, 0, tokens[0].Pos)
	require.Equal(t, 5, tokens[1].Pos)
	require.Equal(t, 8, tokens[2].Pos)  // opening quote
	require.Equal(t, 14, tokens[2].End) // past closing quote
	require.Equal(t, "deps", tokens[2].Text)
}

func TestTokenizeErrors(t *testing.T) {
	t.Run("UnknownCharacter", func(t *testing.T) {
		_, err := Tokenize(`command @ job`)

		var parseErr *ParseError

		require.ErrorAs(t, err, &parseErr)
		require.Equal(t, 8, parseErr.Offset)
	})

	t.Run("UnterminatedString", func(t *testing.T) {
		_, err := Tokenize(`command("deps`)

		var parseErr *ParseError

		require.ErrorAs(t, err, &parseErr)
		require.Contains(t, parseErr.Message, "unterminated")
	})
}

func TestTokenizeSingleQuotes(t *testing.T) {
	tokens, err := Tokenize(`command('deps')`)
	require.NoError(t, err)
	require.Equal(t, TokenString, tokens[2].Kind)
	require.Equal(t, "deps", tokens[2].Text)
}
