package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/tempo/internal/query"
	"github.com/roach88/tempo/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (store or query error, scenarios failed)
	ExitCommandError = 2 // Command error (bad arguments, unreadable input, bad config)
)

// Error codes reported in CLIError.Code.
const (
	CodeNoSuchBucket     = "E_NO_SUCH_BUCKET"
	CodeBucketExists     = "E_BUCKET_EXISTS"
	CodeStoreUnavailable = "E_STORE_UNAVAILABLE"
	CodeQuery            = "E_QUERY"
	CodeInvalidInput     = "E_INVALID_INPUT"
	CodeTestFailed       = "E_TEST_FAILED"
	CodeInternal         = "E_INTERNAL"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written to the user, so
	// the entry point does not print it again.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// inputError marks failures caused by the caller's arguments or files
// rather than by store state.
type inputError struct {
	err error
}

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

// invalidInput builds an inputError.
func invalidInput(format string, args ...any) error {
	return &inputError{err: fmt.Errorf(format, args...)}
}

// ErrorCode maps an error to its stable CLI error code.
func ErrorCode(err error) string {
	var ie *inputError
	var qe *query.Error
	var exitErr *ExitError
	switch {
	case errors.As(err, &qe):
		return CodeQuery
	case store.IsNoSuchBucket(err):
		return CodeNoSuchBucket
	case store.IsBucketAlreadyExists(err):
		return CodeBucketExists
	case store.IsUnavailable(err):
		return CodeStoreUnavailable
	case errors.As(err, &ie), errors.Is(err, store.ErrInvalidEvent):
		return CodeInvalidInput
	case errors.As(err, &exitErr) && exitErr.Code == ExitCommandError:
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}

// errorDetails returns structured context for an error, if it has any.
func errorDetails(err error) any {
	var qe *query.Error
	if errors.As(err, &qe) {
		details := map[string]any{"kind": string(qe.Kind)}
		if qe.Name != "" {
			details["name"] = qe.Name
		}
		if qe.Pos >= 0 {
			details["pos"] = qe.Pos
		}
		return details
	}
	var se *store.Error
	if errors.As(err, &se) && se.BucketID != "" {
		return map[string]any{"bucket": se.BucketID}
	}
	return nil
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E_NO_SUCH_BUCKET", "E_QUERY", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Result outputs data as a JSON response, or calls text to render it
// for humans.
func (f *OutputFormatter) Result(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return f.Success(data)
	}
	text(f.Writer)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns it as a
// reported ExitError. Input errors exit with ExitCommandError, all
// others with ExitFailure unless err already carries an exit code.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return exitErr
	}

	code := ErrorCode(err)
	if writeErr := f.Error(code, err.Error(), errorDetails(err)); writeErr != nil {
		return writeErr
	}

	exit := ExitFailure
	switch {
	case exitErr != nil:
		exit = exitErr.Code
	case code == CodeInvalidInput:
		exit = ExitCommandError
	}
	return &ExitError{Code: exit, Message: code, Err: err, Reported: true}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
