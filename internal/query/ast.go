package query

// Program is a parsed script: statements in source order.
// A Program is immutable and may be evaluated any number of times.
type Program struct {
	Stmts []Stmt
}

// Stmt is a sealed interface for statements.
type Stmt interface {
	stmt()
	Pos() int
}

// Expr is a sealed interface for expressions.
type Expr interface {
	expr()
	Pos() int
}

// AssignStmt binds Name to the value of Value.
type AssignStmt struct {
	Name   string
	Value  Expr
	Offset int
}

// ReturnStmt ends evaluation with the value of Value.
type ReturnStmt struct {
	Value  Expr
	Offset int
}

// ExprStmt evaluates an expression for its value.
type ExprStmt struct {
	X Expr
}

func (*AssignStmt) stmt() {}
func (*ReturnStmt) stmt() {}
func (*ExprStmt) stmt()   {}

func (s *AssignStmt) Pos() int { return s.Offset }
func (s *ReturnStmt) Pos() int { return s.Offset }
func (s *ExprStmt) Pos() int   { return s.X.Pos() }

// NumberLit is a numeric literal.
type NumberLit struct {
	Value  float64
	Offset int
}

// StringLit is a string literal with escapes resolved.
type StringLit struct {
	Value  string
	Offset int
}

// BoolLit is true or false.
type BoolLit struct {
	Value  bool
	Offset int
}

// NoneLit is the none keyword.
type NoneLit struct {
	Offset int
}

// ListLit is [e1, e2, ...].
type ListLit struct {
	Elems  []Expr
	Offset int
}

// DictEntry is one "key": value pair of a dict literal.
type DictEntry struct {
	Key   string
	Value Expr
}

// DictLit is {"k": e, ...}. Later duplicate keys win.
type DictLit struct {
	Entries []DictEntry
	Offset  int
}

// Ident is a variable reference.
type Ident struct {
	Name   string
	Offset int
}

// BinaryExpr is X Op Y for one of + - * / %.
type BinaryExpr struct {
	Op     TokenType
	X, Y   Expr
	Offset int
}

// UnaryExpr is -X.
type UnaryExpr struct {
	X      Expr
	Offset int
}

// CallExpr is Name(args...).
type CallExpr struct {
	Name   string
	Args   []Expr
	Offset int
}

func (*NumberLit) expr()  {}
func (*StringLit) expr()  {}
func (*BoolLit) expr()    {}
func (*NoneLit) expr()    {}
func (*ListLit) expr()    {}
func (*DictLit) expr()    {}
func (*Ident) expr()      {}
func (*BinaryExpr) expr() {}
func (*UnaryExpr) expr()  {}
func (*CallExpr) expr()   {}

func (e *NumberLit) Pos() int  { return e.Offset }
func (e *StringLit) Pos() int  { return e.Offset }
func (e *BoolLit) Pos() int    { return e.Offset }
func (e *NoneLit) Pos() int    { return e.Offset }
func (e *ListLit) Pos() int    { return e.Offset }
func (e *DictLit) Pos() int    { return e.Offset }
func (e *Ident) Pos() int      { return e.Offset }
func (e *BinaryExpr) Pos() int { return e.Offset }
func (e *UnaryExpr) Pos() int  { return e.Offset }
func (e *CallExpr) Pos() int   { return e.Offset }
