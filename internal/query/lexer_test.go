package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestTokenize_Statement(t *testing.T) {
	tokens, err := tokenize(`events = query_bucket("b1");`)
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenIdent, TokenAssign, TokenIdent, TokenLParen, TokenString, TokenRParen, TokenSemicolon, TokenEOF,
	}, tokenTypes(tokens))
	assert.Equal(t, "events", tokens[0].Value)
	assert.Equal(t, "b1", tokens[4].Value)
	assert.Equal(t, 22, tokens[4].Pos)
}

func TestTokenize_Numbers(t *testing.T) {
	tokens, err := tokenize("1 1. 1.5 10")
	require.NoError(t, err)

	var values []string
	for _, tok := range tokens[:len(tokens)-1] {
		assert.Equal(t, TokenNumber, tok.Type)
		values = append(values, tok.Value)
	}
	assert.Equal(t, []string{"1", "1.", "1.5", "10"}, values)
}

func TestTokenize_Keywords(t *testing.T) {
	tokens, err := tokenize("return true false none returned")
	require.NoError(t, err)
	assert.Equal(t, []TokenType{TokenReturn, TokenTrue, TokenFalse, TokenNone, TokenIdent, TokenEOF}, tokenTypes(tokens))
}

func TestTokenize_Operators(t *testing.T) {
	tokens, err := tokenize("+-*/%:,[]{}")
	require.NoError(t, err)
	assert.Equal(t, []TokenType{
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent, TokenColon, TokenComma,
		TokenLBracket, TokenRBracket, TokenLBrace, TokenRBrace, TokenEOF,
	}, tokenTypes(tokens))
}

func TestTokenize_StringEscapes(t *testing.T) {
	tokens, err := tokenize(`"a\"b\\c\nd\te"`)
	require.NoError(t, err)
	assert.Equal(t, "a\"b\\c\nd\te", tokens[0].Value)
}

func TestTokenize_Comments(t *testing.T) {
	tokens, err := tokenize("# leading comment\n1; # trailing\n# last line without newline")
	require.NoError(t, err)
	assert.Equal(t, []TokenType{TokenNumber, TokenSemicolon, TokenEOF}, tokenTypes(tokens))
}

func TestTokenize_HashInsideString(t *testing.T) {
	tokens, err := tokenize(`"#not a comment";`)
	require.NoError(t, err)
	assert.Equal(t, "#not a comment", tokens[0].Value)
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		pos  int
	}{
		{"unterminated string", `a = "abc`, 4},
		{"trailing backslash", `"abc\`, 0},
		{"invalid escape", `"a\qb"`, 2},
		{"unexpected character", `a = 1 & 2;`, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokenize(tt.src)
			require.Error(t, err)
			assert.True(t, IsParseError(err))

			var qe *Error
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.pos, qe.Pos)
		})
	}
}
