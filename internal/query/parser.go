package query

import (
	"strconv"
)

// Parse tokenizes and parses a script. Errors are *Error with
// KindParse and the byte offset of the offending token.
//
// Grammar:
//
//	program    = { stmt } .
//	stmt       = "return" expr ";" | ident "=" expr ";" | expr ";" .
//	expr       = term { ("+" | "-") term } .
//	term       = unary { ("*" | "/" | "%") unary } .
//	unary      = "-" unary | primary .
//	primary    = number | string | "true" | "false" | "none"
//	           | ident [ "(" [ args ] ")" ] | "(" expr ")" | list | dict .
//	list       = "[" [ args ] "]" .
//	dict       = "{" [ string ":" expr { "," string ":" expr } ] "}" .
//	args       = expr { "," expr } .
func Parse(src string) (*Program, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.parseProgram()
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Type: TokenEOF}
}

func (p *parser) peek(offset int) Token {
	if idx := p.pos + offset; idx < len(p.tokens) {
		return p.tokens[idx]
	}
	return Token{Type: TokenEOF}
}

func (p *parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) expect(tt TokenType) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return tok, parseErrorf(tok.Pos, "expected %s, got %s", tt, describe(tok))
	}
	p.pos++
	return tok, nil
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenIdent, TokenNumber:
		return tok.Type.String() + " " + strconv.Quote(tok.Value)
	case TokenString:
		return "string " + strconv.Quote(tok.Value)
	}
	return tok.Type.String()
}

func (p *parser) parseProgram() (*Program, error) {
	prog := &Program{Stmts: []Stmt{}}
	for p.current().Type != TokenEOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

func (p *parser) parseStmt() (Stmt, error) {
	var stmt Stmt
	tok := p.current()

	switch {
	case tok.Type == TokenReturn:
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt = &ReturnStmt{Value: x, Offset: tok.Pos}
	case tok.Type == TokenIdent && p.peek(1).Type == TokenAssign:
		p.advance()
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt = &AssignStmt{Name: tok.Value, Value: x, Offset: tok.Pos}
	default:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt = &ExprStmt{X: x}
	}

	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *parser) parseExpr() (Expr, error) {
	x, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op := p.current()
		if op.Type != TokenPlus && op.Type != TokenMinus {
			return x, nil
		}
		p.advance()
		y, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{Op: op.Type, X: x, Y: y, Offset: op.Pos}
	}
}

func (p *parser) parseTerm() (Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.current()
		if op.Type != TokenStar && op.Type != TokenSlash && op.Type != TokenPercent {
			return x, nil
		}
		p.advance()
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &BinaryExpr{Op: op.Type, X: x, Y: y, Offset: op.Pos}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if tok := p.current(); tok.Type == TokenMinus {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{X: x, Offset: tok.Pos}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, parseErrorf(tok.Pos, "invalid number %q", tok.Value)
		}
		return &NumberLit{Value: f, Offset: tok.Pos}, nil
	case TokenString:
		p.advance()
		return &StringLit{Value: tok.Value, Offset: tok.Pos}, nil
	case TokenTrue, TokenFalse:
		p.advance()
		return &BoolLit{Value: tok.Type == TokenTrue, Offset: tok.Pos}, nil
	case TokenNone:
		p.advance()
		return &NoneLit{Offset: tok.Pos}, nil
	case TokenIdent:
		p.advance()
		if p.current().Type != TokenLParen {
			return &Ident{Name: tok.Value, Offset: tok.Pos}, nil
		}
		p.advance()
		args, err := p.parseArgs(TokenRParen)
		if err != nil {
			return nil, err
		}
		return &CallExpr{Name: tok.Value, Args: args, Offset: tok.Pos}, nil
	case TokenLParen:
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return x, nil
	case TokenLBracket:
		p.advance()
		elems, err := p.parseArgs(TokenRBracket)
		if err != nil {
			return nil, err
		}
		return &ListLit{Elems: elems, Offset: tok.Pos}, nil
	case TokenLBrace:
		return p.parseDict()
	}
	return nil, parseErrorf(tok.Pos, "unexpected %s", describe(tok))
}

// parseArgs parses a comma separated expression list up to and
// including the closing token.
func (p *parser) parseArgs(closing TokenType) ([]Expr, error) {
	args := []Expr{}
	if p.current().Type == closing {
		p.advance()
		return args, nil
	}
	for {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, x)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parseDict() (Expr, error) {
	open, err := p.expect(TokenLBrace)
	if err != nil {
		return nil, err
	}
	dict := &DictLit{Entries: []DictEntry{}, Offset: open.Pos}
	if p.current().Type == TokenRBrace {
		p.advance()
		return dict, nil
	}
	for {
		key, err := p.expect(TokenString)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenColon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		dict.Entries = append(dict.Entries, DictEntry{Key: key.Value, Value: val})
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	return dict, nil
}
