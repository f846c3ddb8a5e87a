package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
	"github.com/roach88/mysqlstore/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (database error, scenarios failed, etc.)
	ExitCommandError = 2 // Command error (bad flags, malformed query, bad config, etc.)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric  = "E001"
	ErrCodeInput    = "E_INPUT"
	ErrCodeConfig   = "E_CONFIG"
	ErrCodeSchema   = "E_SCHEMA"
	ErrCodeQuery    = "E_QUERY"
	ErrCodeDatabase = "E_DATABASE"

	// Database failures the server identified.
	ErrCodeDuplicate      = "E_DUPLICATE"       // unique key violation
	ErrCodeReference      = "E_REFERENCE"       // foreign key violation
	ErrCodeSchemaMismatch = "E_SCHEMA_MISMATCH" // unknown table or column
	ErrCodeRetryable      = "E_RETRYABLE"       // lock wait timeout or deadlock
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported marks an error an OutputFormatter already wrote.
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

// IsReported reports whether err was already written to the user.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
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
	Code    string `json:"code"`              // ErrCode* value
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

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Entity outputs one entity. In text mode it is a JSON object on one line,
// or "(none)" when ent is nil.
func (f *OutputFormatter) Entity(ent *entity.Entity) error {
	if f.Format == "json" {
		if ent == nil {
			return f.Success(nil)
		}
		return f.Success(ent)
	}
	if ent == nil {
		fmt.Fprintln(f.Writer, "(none)")
		return nil
	}
	return f.jsonLine(ent)
}

// Entities outputs a list of entities, one JSON object per line in text
// mode.
func (f *OutputFormatter) Entities(list []*entity.Entity) error {
	if f.Format == "json" {
		return f.Success(list)
	}
	for _, ent := range list {
		if err := f.jsonLine(ent); err != nil {
			return err
		}
	}
	return nil
}

func (f *OutputFormatter) jsonLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(f.Writer, string(b))
	return nil
}

// Fail reports err and returns it as an ExitError marked reported. The
// error code and exit code follow the error's kind: malformed queries and
// setup problems are command errors, database failures are failures.
func (f *OutputFormatter) Fail(err error) error {
	code, exit := classify(err)
	_ = f.Error(code, err.Error(), nil)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		exitErr.Reported = true
		return exitErr
	}
	return &ExitError{Code: exit, Message: "command failed", Err: err, Reported: true}
}

func classify(err error) (string, int) {
	var (
		exitErr *ExitError
		execErr *store.ExecError
		codeErr *codedError
	)
	switch {
	case errors.As(err, &codeErr):
		return codeErr.code, GetExitCode(err)
	case queryir.IsMalformed(err):
		return ErrCodeQuery, ExitCommandError
	case errors.As(err, &execErr):
		return databaseCode(err), ExitFailure
	case errors.As(err, &exitErr):
		return ErrCodeGeneric, exitErr.Code
	default:
		return ErrCodeGeneric, ExitFailure
	}
}

func databaseCode(err error) string {
	switch {
	case store.IsDuplicateEntry(err):
		return ErrCodeDuplicate
	case store.IsForeignKeyViolation(err):
		return ErrCodeReference
	case store.IsBadField(err), store.IsMissingTable(err):
		return ErrCodeSchemaMismatch
	case store.IsRetryable(err):
		return ErrCodeRetryable
	default:
		return ErrCodeDatabase
	}
}

// codedError attaches a CLIError code to a setup failure.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// commandError wraps a setup failure as an exit-code-2 error with a CLI
// error code.
func commandError(code, message string, err error) *ExitError {
	return WrapExitError(ExitCommandError, message, &codedError{code: code, err: err})
}

// databaseError wraps a connection failure as an exit-code-1 error.
func databaseError(message string, err error) *ExitError {
	return WrapExitError(ExitFailure, message, &codedError{code: ErrCodeDatabase, err: err})
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
