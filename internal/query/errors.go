package query

import (
	"errors"
	"fmt"
)

// Error represents a fault while parsing or evaluating a script.
//
// Each kind carries the data a caller needs to report it:
//   - KindParse: Message and Pos (byte offset)
//   - KindVariableNotDefined: Name of the unbound identifier
//   - KindInvalidType: Name of the callee or operator, Message
//   - KindMath: Message
//   - KindBucketQuery: Name of the bucket, Err from the store
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Name is the offending identifier, built-in, operator or bucket.
	Name string

	// Message is a human-readable description.
	Message string

	// Pos is the byte offset in the script, or -1 when unknown.
	Pos int

	// Err is the underlying cause, if any.
	Err error
}

// ErrorKind categorizes query errors.
type ErrorKind string

const (
	// KindParse indicates malformed script text.
	KindParse ErrorKind = "PARSE_ERROR"

	// KindVariableNotDefined indicates a reference to an unbound name.
	KindVariableNotDefined ErrorKind = "VARIABLE_NOT_DEFINED"

	// KindInvalidType indicates a call of a non-callable value, a
	// built-in called with wrong arguments, or an operator applied to
	// unsupported operands.
	KindInvalidType ErrorKind = "INVALID_TYPE"

	// KindMath indicates an arithmetic fault such as division by zero.
	KindMath ErrorKind = "MATH_ERROR"

	// KindBucketQuery indicates a store failure inside a built-in.
	KindBucketQuery ErrorKind = "BUCKET_QUERY_ERROR"
)

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindVariableNotDefined:
		msg = fmt.Sprintf("%s: variable %q is not defined", e.Kind, e.Name)
	case KindInvalidType, KindBucketQuery:
		if e.Message == "" {
			msg = fmt.Sprintf("%s: %s", e.Kind, e.Name)
		} else {
			msg = fmt.Sprintf("%s: %s: %s", e.Kind, e.Name, e.Message)
		}
	default:
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Pos >= 0 {
		msg = fmt.Sprintf("%s (at offset %d)", msg, e.Pos)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsParseError returns true if err is a script parse error.
// Uses errors.As to handle wrapped errors.
func IsParseError(err error) bool {
	return hasKind(err, KindParse)
}

// IsVariableNotDefined returns true if err reports an unbound name.
func IsVariableNotDefined(err error) bool {
	return hasKind(err, KindVariableNotDefined)
}

// IsInvalidType returns true if err is a type error.
func IsInvalidType(err error) bool {
	return hasKind(err, KindInvalidType)
}

// IsMathError returns true if err is an arithmetic fault.
func IsMathError(err error) bool {
	return hasKind(err, KindMath)
}

// IsBucketQueryError returns true if a built-in failed reading the store.
func IsBucketQueryError(err error) bool {
	return hasKind(err, KindBucketQuery)
}

func hasKind(err error, kind ErrorKind) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind == kind
	}
	return false
}

func parseErrorf(pos int, format string, args ...any) *Error {
	return &Error{Kind: KindParse, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func notDefined(name string, pos int) *Error {
	return &Error{Kind: KindVariableNotDefined, Name: name, Pos: pos}
}

func invalidType(name string, pos int, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidType, Name: name, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func mathError(pos int, format string, args ...any) *Error {
	return &Error{Kind: KindMath, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func bucketQueryError(bucketID string, pos int, err error) *Error {
	return &Error{Kind: KindBucketQuery, Name: bucketID, Message: err.Error(), Pos: pos, Err: err}
}
