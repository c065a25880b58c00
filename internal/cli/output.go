package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the flow ended badly: no match, lookup failure, saved locally only, failing scenarios
	ExitCommandError = 2 // the command could not run: flags, config, database
)

// Error codes carried in JSON error envelopes.
const (
	ErrCodeGeneric    = "E001"
	ErrCodeConfig     = "E002"
	ErrCodeStore      = "E003"
	ErrCodeInvalid    = "E010" // query is neither a phone number nor a name
	ErrCodeNoMatch    = "E011"
	ErrCodeLookup     = "E012" // lookup failed or timed out
	ErrCodeLocalOnly  = "E020"
	ErrCodeIncomplete = "E021" // input ended before the form was submitted
	ErrCodeNoPayID    = "E030"
)

// ExitError is returned by commands to choose the process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command error to an exit code. Errors that carry no
// *ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		return ExitFailure
	}
}

// Envelope is the single JSON document a command writes in JSON mode.
type Envelope struct {
	Status string     `json:"status"` // "ok" or "error"
	Data   any        `json:"data,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed command.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON envelopes.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// IsJSON reports whether JSON output is selected.
func (f *OutputFormatter) IsJSON() bool {
	return f.Format == "json"
}

// Success writes data. Text mode prints it with fmt.Println.
func (f *OutputFormatter) Success(data any) error {
	if f.IsJSON() {
		return f.encode(Envelope{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes a failure. Details are shown in text mode only with
// --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.IsJSON() {
		return f.encode(Envelope{
			Status: "error",
			Error:  &ErrorBody{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Interactive returns where prompts and notices go. In JSON mode that is
// ErrWriter, keeping stdout a single JSON document.
func (f *OutputFormatter) Interactive() io.Writer {
	if f.IsJSON() && f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(e Envelope) error {
	return json.NewEncoder(f.Writer).Encode(e)
}
