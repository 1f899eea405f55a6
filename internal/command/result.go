package command

import (
	"fmt"
)

// ResultStatus indicates the outcome of a command.
type ResultStatus uint8

const (
	// StatusOK indicates successful execution.
	StatusOK ResultStatus = iota
	// StatusNoOp indicates the command had no effect.
	StatusNoOp
	// StatusError indicates an error occurred.
	StatusError
	// StatusQuit indicates the command requests shutdown.
	StatusQuit
	// StatusCancelled indicates the command was cancelled.
	StatusCancelled
)

// String returns a string representation of the status.
func (s ResultStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoOp:
		return "no-op"
	case StatusError:
		return "error"
	case StatusQuit:
		return "quit"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result represents the outcome of running a command.
type Result struct {
	// Status indicates the result status.
	Status ResultStatus

	// Error contains any error that occurred.
	Error error

	// Output is the text produced for the user.
	Output string

	// Data holds command-specific return data.
	Data map[string]any
}

// IsOK returns true if the result indicates success.
func (r Result) IsOK() bool {
	return r.Status == StatusOK
}

// IsError returns true if the result indicates an error.
func (r Result) IsError() bool {
	return r.Status == StatusError
}

// IsQuit returns true if the result requests shutdown.
func (r Result) IsQuit() bool {
	return r.Status == StatusQuit
}

// Success creates a successful result.
func Success() Result {
	return Result{Status: StatusOK}
}

// Output creates a successful result carrying output text.
func Output(text string) Result {
	return Result{Status: StatusOK, Output: text}
}

// Outputf creates a successful result with formatted output.
func Outputf(format string, args ...any) Result {
	return Result{Status: StatusOK, Output: fmt.Sprintf(format, args...)}
}

// NoOp creates a no-operation result.
func NoOp() Result {
	return Result{Status: StatusNoOp}
}

// NoOpWithOutput creates a no-operation result with output text.
func NoOpWithOutput(text string) Result {
	return Result{Status: StatusNoOp, Output: text}
}

// Error creates an error result.
func Error(err error) Result {
	return Result{Status: StatusError, Error: err}
}

// Errorf creates an error result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{
		Status: StatusError,
		Error:  fmt.Errorf(format, args...),
	}
}

// Quit creates a result requesting shutdown.
func Quit() Result {
	return Result{Status: StatusQuit}
}

// Cancelled creates a cancelled result.
func Cancelled(reason string) Result {
	return Result{Status: StatusCancelled, Output: reason}
}

// WithOutput returns a copy of the result with the given output text.
func (r Result) WithOutput(text string) Result {
	r.Output = text
	return r
}

// WithData returns a copy of the result with data added.
func (r Result) WithData(key string, value any) Result {
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	r.Data[key] = value
	return r
}

// GetData retrieves a value from the result data.
func (r Result) GetData(key string) (any, bool) {
	if r.Data == nil {
		return nil, false
	}
	v, ok := r.Data[key]
	return v, ok
}

// GetDataString retrieves a string value from the result data.
func (r Result) GetDataString(key string) string {
	if v, ok := r.GetData(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetDataInt retrieves an int value from the result data.
func (r Result) GetDataInt(key string) int {
	if v, ok := r.GetData(key); ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}
