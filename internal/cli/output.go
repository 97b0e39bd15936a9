package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/molder/internal/loader"
	"github.com/roach88/molder/pkg/rules"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation or test failure
	ExitCommandError = 2 // Command error (invalid paths, broken models, etc.)
)

// CLI error codes not raised by the loader.
const (
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeStoreFailed  = "E008" // Database error
	ErrCodeUnknownModel = "E009" // Model not declared
	ErrCodeInvalidInput = "E010" // Payload could not be read or parsed
	ErrCodeUnknownRef   = "E107" // Field references an undeclared model
	ErrCodeCycle        = "E108" // Models reference each other in a loop
	ErrCodeInvalid      = "E_INVALID"
	ErrCodeTestFailed   = "E_TEST_FAILED"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the command already printed the error.
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

// reportedExit is an ExitError for an error the command already printed.
func reportedExit(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message, Reported: true}
}

// IsReported reports whether err was already printed by its command.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
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
	Pos     string `json:"pos,omitempty"`     // file:line:column when known
	Details any    `json:"details,omitempty"` // additional context
}

// JSON reports whether output is JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.JSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Failure outputs an error response that also carries data.
func (f *OutputFormatter) Failure(code, message string, data any) error {
	return f.encode(CLIResponse{
		Status: "error",
		Data:   data,
		Error:  &CLIError{Code: code, Message: message},
	})
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
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

// toCLIError extracts code, message and position from an error.
func toCLIError(err error) CLIError {
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		ce := CLIError{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			ce.Pos = loadErr.Pos.String()
		}
		return ce
	}
	var anomaly *rules.CompilationAnomaly
	if errors.As(err, &anomaly) {
		return CLIError{Code: loader.ErrCodeAnomaly, Message: anomaly.Error()}
	}
	var refErr *unknownRefError
	if errors.As(err, &refErr) {
		return CLIError{Code: ErrCodeUnknownRef, Message: refErr.Error(), Pos: refErr.Pos.String()}
	}
	var cycleErr *cycleError
	if errors.As(err, &cycleErr) {
		return CLIError{Code: ErrCodeCycle, Message: cycleErr.Message, Details: cycleErr.Path}
	}
	return CLIError{Code: loader.ErrCodeGeneric, Message: err.Error()}
}

// outputErrors reports a list of model errors and returns an ExitError with
// the given exit code. title heads the text output.
func outputErrors(f *OutputFormatter, exitCode int, title string, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		cliErrors[i] = toCLIError(err)
	}
	summary := fmt.Sprintf("%s with %d error(s)", title, len(errs))

	if f.JSON() {
		first := cliErrors[0]
		if err := f.encode(CLIResponse{Status: "error", Error: &first, Data: cliErrors}); err != nil {
			return err
		}
		return reportedExit(exitCode, summary)
	}

	fmt.Fprintf(f.Writer, "✗ %s\n\n", title)
	for _, ce := range cliErrors {
		if ce.Pos != "" {
			fmt.Fprintln(f.Writer, ce.Pos)
		}
		fmt.Fprintf(f.Writer, "  %s: %s\n\n", ce.Code, ce.Message)
	}
	return reportedExit(exitCode, summary)
}

// outputError reports a single command error (exit code 2).
func outputError(f *OutputFormatter, code, message string) error {
	_ = f.Error(code, message, nil)
	return reportedExit(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
