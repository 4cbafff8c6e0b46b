package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error codes for categorizing failures. Each code carries a recovery policy
// that the dashboard supervisor applies.
const (
	ErrConfig   = "CONFIG"   // bad or missing metrics file: cooldown, then restart
	ErrHardware = "HARDWARE" // panel init failed: fatal
	ErrNetwork  = "NETWORK"  // association or probe failed
	ErrTime     = "TIME"     // time source failure or insane clock: restart
	ErrNoData   = "NODATA"   // empty series: skip the cycle
	ErrSocket   = "SOCKET"   // transient socket fault: restart
	ErrQuery    = "QUERY"    // any other query failure: skip the cycle
	ErrSecrets  = "SECRETS"  // credentials missing: fatal
)

// Error represents a structured error with code, message, suggestion, and optional cause.
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrQuery code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrQuery,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
// The outermost structured error in the chain wins.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var ddErr *Error
	if errors.As(err, &ddErr) {
		return ddErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost structured error, or "" if there is none.
func CodeOf(err error) string {
	var ddErr *Error
	if errors.As(err, &ddErr) {
		return ddErr.Code
	}
	return ""
}

// Restart asks the supervisor to discard all state and boot again from
// scratch. Label is shown on the panel's value line while waiting out Delay.
type Restart struct {
	Err   error
	Label string
	Delay time.Duration
}

// NewRestart wraps err in a restart request.
func NewRestart(err error, label string, delay time.Duration) *Restart {
	return &Restart{Err: err, Label: label, Delay: delay}
}

func (r *Restart) Error() string {
	if r.Err == nil {
		return "restart requested"
	}
	return "restart requested: " + strings.TrimSpace(r.Err.Error())
}

func (r *Restart) Unwrap() error {
	return r.Err
}

// Reason returns a short, lowercase reason suitable for a metric label.
func (r *Restart) Reason() string {
	if code := CodeOf(r.Err); code != "" {
		return strings.ToLower(code)
	}
	return "unknown"
}

// AsRestart reports whether err carries a restart request.
func AsRestart(err error) (*Restart, bool) {
	var r *Restart
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target.
// It re-exports the standard library so callers need only one errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
