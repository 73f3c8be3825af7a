package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/triplegate/internal/jsonld"
	"github.com/roach88/triplegate/internal/op"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // At least one operation failed (dirty, referenced, not found, ...)
	ExitCommandError = 2 // Command error (bad config, unreadable file, contract violation, ...)
)

// Error codes used in CLI error responses.
const (
	ErrCodeGeneric   = "E001" // Generic/unknown error
	ErrCodeConfig    = "E002" // Config could not be loaded or is invalid
	ErrCodeBackend   = "E003" // Backend could not be opened or failed
	ErrCodeInput     = "E004" // Operation or context file could not be read
	ErrCodeContract  = "E005" // Operation content violates its contract
	ErrCodeOperation = "E006" // An operation reported a failure
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
	Code    string `json:"code"`              // "E001", "E002", etc.
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

// Results outputs one line per operation in ops order. In JSON format the
// payload maps operation ids to results.
func (f *OutputFormatter) Results(ops []op.Operation, results map[string]op.Result) error {
	if f.Format == "json" {
		return f.Success(results)
	}
	for _, o := range ops {
		res, ok := results[o.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(f.Writer, "%s\t%s\t%s\n", o.ID, o.Name(), Describe(res))
	}
	return nil
}

// Describe renders a result on one line.
func Describe(res op.Result) string {
	if !res.Success {
		return fmt.Sprintf("FAIL [%s] %s", res.Code, res.Message)
	}
	switch d := res.Data.(type) {
	case nil:
		return "ok"
	case op.Counts:
		return fmt.Sprintf("ok deleted=%d inserted=%d", d.Deleted, d.Inserted)
	case op.DocumentResult:
		b, err := jsonld.MarshalCanonical(d.Object)
		if err != nil {
			return fmt.Sprintf("ok <unprintable document: %v>", err)
		}
		return "ok " + string(b)
	case []string:
		return "ok [" + strings.Join(d, " ") + "]"
	default:
		return fmt.Sprintf("ok %v", d)
	}
}

// VerboseLog writes a diagnostic line to GetErrWriter when verbose mode
// is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the writer for diagnostics and logs: ErrWriter if
// set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
