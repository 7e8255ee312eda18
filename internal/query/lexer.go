package query

import (
	"strings"
)

// lexer turns script text into tokens.
type lexer struct {
	input  string
	pos    int
	tokens []Token
}

// tokenize performs full tokenization of src. The last token is always
// TokenEOF.
func tokenize(src string) ([]Token, error) {
	l := &lexer{input: src}
	return l.tokenize()
}

var punctuation = map[byte]TokenType{
	'=': TokenAssign,
	';': TokenSemicolon,
	',': TokenComma,
	':': TokenColon,
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
}

func (l *lexer) tokenize() ([]Token, error) {
	for {
		l.skipWhitespaceAndComments()
		if l.pos >= len(l.input) {
			break
		}
		ch := l.input[l.pos]
		switch {
		case ch == '"':
			tok, err := l.readString()
			if err != nil {
				return nil, err
			}
			l.tokens = append(l.tokens, tok)
		case isDigit(ch):
			l.tokens = append(l.tokens, l.readNumber())
		case isIdentStart(ch):
			l.tokens = append(l.tokens, l.readIdentOrKeyword())
		default:
			tt, ok := punctuation[ch]
			if !ok {
				return nil, parseErrorf(l.pos, "unexpected character %q", ch)
			}
			l.tokens = append(l.tokens, Token{Type: tt, Value: string(ch), Pos: l.pos})
			l.pos++
		}
	}
	l.tokens = append(l.tokens, Token{Type: TokenEOF, Pos: l.pos})
	return l.tokens, nil
}

// skipWhitespaceAndComments skips blanks and '#' line comments.
func (l *lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		case '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch ch {
		case '"':
			l.pos++
			return Token{Type: TokenString, Value: sb.String(), Pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.input) {
				return Token{}, parseErrorf(start, "unterminated string")
			}
			switch esc := l.input[l.pos+1]; esc {
			case '"', '\\':
				sb.WriteByte(esc)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				return Token{}, parseErrorf(l.pos, "invalid escape sequence \\%c", esc)
			}
			l.pos += 2
		default:
			sb.WriteByte(ch)
			l.pos++
		}
	}
	return Token{}, parseErrorf(start, "unterminated string")
}

// readNumber reads digits with an optional fraction. "1." is a number.
func (l *lexer) readNumber() Token {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return Token{Type: TokenNumber, Value: l.input[start:l.pos], Pos: start}
}

func (l *lexer) readIdentOrKeyword() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	word := l.input[start:l.pos]
	if tt, ok := keywords[word]; ok {
		return Token{Type: tt, Value: word, Pos: start}
	}
	return Token{Type: TokenIdent, Value: word, Pos: start}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
