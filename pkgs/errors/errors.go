package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a shell failure. The engine converts every kind into a
// notice plus a non-zero exit code; it never aborts on malformed input.
type Kind int

const (
	// Internal is used for handler failures that carry no shell kind.
	Internal Kind = iota
	// Usage covers malformed lines, bad arguments, shape mismatches,
	// ambiguous commands and unauthorized scope claims.
	Usage
	// NotFound means no registered command matched.
	NotFound
	// Unavailable means a handler's backend could not be reached.
	Unavailable
	// PermissionDenied means the caller may not perform the action.
	PermissionDenied
)

var kindNames = [...]string{
	Internal:         "INTERNAL",
	Usage:            "USAGE",
	NotFound:         "NOT_FOUND",
	Unavailable:      "UNAVAILABLE",
	PermissionDenied: "PERMISSION_DENIED",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Conventional process-style exit codes.
const (
	ExitSuccess     = 0
	ExitUsage       = 2
	ExitNotFound    = 3
	ExitUnavailable = 4
	ExitInternal    = 5
	ExitCancelled   = 130
)

// ExitCode maps a kind to its exit code.
func (k Kind) ExitCode() int {
	switch k {
	case Usage:
		return ExitUsage
	case NotFound:
		return ExitNotFound
	case Unavailable, PermissionDenied:
		return ExitUnavailable
	default:
		return ExitInternal
	}
}

// ShellError is a typed failure from tokenizing, resolution, validation or
// a handler.
type ShellError struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error returns the human-readable message. The kind is not included so the
// message can be shown to users verbatim.
func (e *ShellError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap allows error unwrapping
func (e *ShellError) Unwrap() error {
	return e.Cause
}

// New creates a ShellError of the given kind.
func New(kind Kind, message string) *ShellError {
	return &ShellError{
		Kind:    kind,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap creates a ShellError that wraps cause.
func Wrap(kind Kind, message string, cause error) *ShellError {
	e := New(kind, message)
	e.Cause = cause
	return e
}

// WithContext adds context information to the error
func (e *ShellError) WithContext(key string, value interface{}) *ShellError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetContext returns context value by key
func (e *ShellError) GetContext(key string) (interface{}, bool) {
	if e.Context == nil {
		return nil, false
	}
	value, exists := e.Context[key]
	return value, exists
}

// Usagef creates a Usage error.
func Usagef(format string, args ...interface{}) *ShellError {
	return New(Usage, fmt.Sprintf(format, args...))
}

// NotFoundf creates a NotFound error.
func NotFoundf(format string, args ...interface{}) *ShellError {
	return New(NotFound, fmt.Sprintf(format, args...))
}

// Unavailablef creates an Unavailable error.
func Unavailablef(format string, args ...interface{}) *ShellError {
	return New(Unavailable, fmt.Sprintf(format, args...))
}

// PermissionDeniedf creates a PermissionDenied error.
func PermissionDeniedf(format string, args ...interface{}) *ShellError {
	return New(PermissionDenied, fmt.Sprintf(format, args...))
}

// NewCommandNotFoundError creates the resolver's not-found error. suggestion
// may be empty.
func NewCommandNotFoundError(command, suggestion string) *ShellError {
	err := NotFoundf("command not found: %s", command).WithContext("command", command)
	if suggestion != "" {
		err.WithContext("suggestion", suggestion)
	}
	return err
}

// NewAmbiguousCommandError reports two registrations tying on score.
func NewAmbiguousCommandError(command string, candidates []string) *ShellError {
	return Usagef("ambiguous command `%s`", command).
		WithContext("command", command).
		WithContext("candidates", candidates)
}

// NewShapeMismatchError reports piped data of the wrong shape.
func NewShapeMismatchError(expected, actual string) *ShellError {
	return Usagef("expected %s input, got %s", expected, actual).
		WithContext("expected", expected).
		WithContext("actual", actual)
}

// As returns the ShellError in err's chain, if any.
func As(err error) (*ShellError, bool) {
	var shellErr *ShellError
	if stderrors.As(err, &shellErr) {
		return shellErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or Internal for foreign errors.
func KindOf(err error) Kind {
	if shellErr, ok := As(err); ok {
		return shellErr.Kind
	}
	return Internal
}

// ExitCode returns the exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return KindOf(err).ExitCode()
}

// IsKind checks if err carries the given kind
func IsKind(err error, kind Kind) bool {
	shellErr, ok := As(err)
	return ok && shellErr.Kind == kind
}

// Suggestion returns the "did you mean" hint attached to a not-found error.
func Suggestion(err error) string {
	shellErr, ok := As(err)
	if !ok {
		return ""
	}
	if v, ok := shellErr.GetContext("suggestion"); ok {
		s, _ := v.(string)
		return s
	}
	return ""
}
