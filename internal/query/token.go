package query

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenNumber
	TokenString

	// Keywords
	TokenReturn
	TokenTrue
	TokenFalse
	TokenNone

	// Punctuation and operators
	TokenAssign    // =
	TokenSemicolon // ;
	TokenComma     // ,
	TokenColon     // :
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenLBrace    // {
	TokenRBrace    // }
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenPercent   // %
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "end of script",
	TokenIdent:     "identifier",
	TokenNumber:    "number",
	TokenString:    "string",
	TokenReturn:    "return",
	TokenTrue:      "true",
	TokenFalse:     "false",
	TokenNone:      "none",
	TokenAssign:    "'='",
	TokenSemicolon: "';'",
	TokenComma:     "','",
	TokenColon:     "':'",
	TokenLParen:    "'('",
	TokenRParen:    "')'",
	TokenLBracket:  "'['",
	TokenRBracket:  "']'",
	TokenLBrace:    "'{'",
	TokenRBrace:    "'}'",
	TokenPlus:      "'+'",
	TokenMinus:     "'-'",
	TokenStar:      "'*'",
	TokenSlash:     "'/'",
	TokenPercent:   "'%'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"return": TokenReturn,
	"true":   TokenTrue,
	"false":  TokenFalse,
	"none":   TokenNone,
}

// Token is a lexical token. Pos is the byte offset in the script.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}
