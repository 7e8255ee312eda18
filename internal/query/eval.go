package query

import (
	"context"
	"io"
	"log/slog"
	"math"

	"github.com/roach88/tempo/internal/model"
	"github.com/roach88/tempo/internal/store"
)

// Reader is the read side of the store that built-ins use.
// *store.Tx satisfies it.
type Reader interface {
	GetEvents(bucketID string, f store.EventFilter) ([]model.Event, error)
	GetBuckets() (map[string]model.Bucket, error)
}

// Option configures evaluation.
type Option func(*options)

type options struct {
	out    io.Writer
	logger *slog.Logger
}

// WithOutput sets where print writes. Default: io.Discard.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithLogger sets the logger for evaluation diagnostics.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{out: io.Discard, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Evaluate runs a parsed program against one interval.
//
// The result is the value of the first return statement reached, or of
// the last top-level statement. An assignment as the last statement and
// an empty program yield None. Evaluation stops at the first error.
func Evaluate(ctx context.Context, prog *Program, interval model.TimeInterval, r Reader, opts ...Option) (Value, error) {
	o := buildOptions(opts)
	ev := &evaluator{
		scope: newScope(),
		call: Call{
			ctx:      ctx,
			Interval: interval,
			Reader:   r,
			Out:      o.out,
		},
	}

	var result Value = None{}
	for _, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case *ReturnStmt:
			v, err := ev.eval(s.Value)
			if err != nil {
				return nil, err
			}
			return v, nil
		case *AssignStmt:
			v, err := ev.eval(s.Value)
			if err != nil {
				return nil, err
			}
			ev.scope[s.Name] = v
			result = None{}
		case *ExprStmt:
			v, err := ev.eval(s.X)
			if err != nil {
				return nil, err
			}
			result = v
		}
	}
	return result, nil
}

// EvaluateString parses src and evaluates it against one interval.
func EvaluateString(ctx context.Context, src string, interval model.TimeInterval, r Reader, opts ...Option) (Value, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Evaluate(ctx, prog, interval, r, opts...)
}

type evaluator struct {
	scope map[string]Value
	call  Call
}

// newScope returns the single flat name table, seeded with the built-ins.
func newScope() map[string]Value {
	scope := make(map[string]Value, len(builtins))
	for name, fn := range builtins {
		scope[name] = Callable{Name: name, Fn: fn}
	}
	return scope
}

func (ev *evaluator) eval(x Expr) (Value, error) {
	switch e := x.(type) {
	case *NumberLit:
		return Number(e.Value), nil
	case *StringLit:
		return String(e.Value), nil
	case *BoolLit:
		return Bool(e.Value), nil
	case *NoneLit:
		return None{}, nil
	case *Ident:
		v, ok := ev.scope[e.Name]
		if !ok {
			return nil, notDefined(e.Name, e.Offset)
		}
		return v, nil
	case *ListLit:
		list := make(List, len(e.Elems))
		for i, elem := range e.Elems {
			v, err := ev.eval(elem)
			if err != nil {
				return nil, err
			}
			list[i] = v
		}
		return list, nil
	case *DictLit:
		dict := make(Dict, len(e.Entries))
		for _, entry := range e.Entries {
			v, err := ev.eval(entry.Value)
			if err != nil {
				return nil, err
			}
			dict[entry.Key] = v
		}
		return dict, nil
	case *UnaryExpr:
		v, err := ev.eval(e.X)
		if err != nil {
			return nil, err
		}
		n, ok := v.(Number)
		if !ok {
			return nil, invalidType("-", e.Offset, "cannot negate %s", TypeName(v))
		}
		return -n, nil
	case *BinaryExpr:
		return ev.evalBinary(e)
	case *CallExpr:
		return ev.evalCall(e)
	}
	return nil, invalidType("expression", x.Pos(), "unsupported expression %T", x)
}

func (ev *evaluator) evalBinary(e *BinaryExpr) (Value, error) {
	x, err := ev.eval(e.X)
	if err != nil {
		return nil, err
	}
	y, err := ev.eval(e.Y)
	if err != nil {
		return nil, err
	}

	if e.Op == TokenPlus {
		switch a := x.(type) {
		case String:
			if b, ok := y.(String); ok {
				return a + b, nil
			}
		case List:
			if b, ok := y.(List); ok {
				out := make(List, 0, len(a)+len(b))
				return append(append(out, a...), b...), nil
			}
		}
	}

	op := opSymbol(e.Op)
	a, aok := x.(Number)
	b, bok := y.(Number)
	if !aok || !bok {
		return nil, invalidType(op, e.Offset, "unsupported operands %s %s %s", TypeName(x), op, TypeName(y))
	}

	switch e.Op {
	case TokenPlus:
		return a + b, nil
	case TokenMinus:
		return a - b, nil
	case TokenStar:
		return a * b, nil
	case TokenSlash:
		if b == 0 {
			return nil, mathError(e.Offset, "division by zero")
		}
		return a / b, nil
	case TokenPercent:
		if b == 0 {
			return nil, mathError(e.Offset, "modulo by zero")
		}
		return Number(math.Mod(float64(a), float64(b))), nil
	}
	return nil, invalidType(op, e.Offset, "unknown operator")
}

func opSymbol(tt TokenType) string {
	switch tt {
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenPercent:
		return "%"
	}
	return tt.String()
}

func (ev *evaluator) evalCall(e *CallExpr) (Value, error) {
	v, ok := ev.scope[e.Name]
	if !ok {
		return nil, notDefined(e.Name, e.Offset)
	}
	fn, ok := v.(Callable)
	if !ok {
		return nil, invalidType(e.Name, e.Offset, "%s is not callable", TypeName(v))
	}

	args := make([]Value, len(e.Args))
	for i, arg := range e.Args {
		a, err := ev.eval(arg)
		if err != nil {
			return nil, err
		}
		args[i] = a
	}

	call := ev.call
	call.Name = fn.Name
	call.pos = e.Offset
	return fn.Fn(&call, args)
}
