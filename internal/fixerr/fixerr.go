package fixerr

import (
	"errors"
	"fmt"
)

// Code is a stable failure category carried by every rewrite failure.
type Code string

const (
	// StaleAnchor indicates a finding no longer matches the current tree
	StaleAnchor Code = "STALE_ANCHOR"
	// UnresolvedType indicates a type could not be resolved and a default was substituted
	UnresolvedType Code = "UNRESOLVED_TYPE"
	// MalformedPattern indicates a rule matched but its rewrite preconditions failed
	MalformedPattern Code = "MALFORMED_PATTERN"
	// PersistenceFailure indicates the document could not be read or written
	PersistenceFailure Code = "PERSISTENCE_FAILURE"
	// Cancelled indicates the run was cancelled before the document converged
	Cancelled Code = "CANCELLED"
	// InvalidRequest indicates a malformed fix request
	InvalidRequest Code = "INVALID_REQUEST"
	// NotConverged indicates the per-document iteration ceiling was reached
	NotConverged Code = "NOT_CONVERGED"
)

// Error is a coded failure attached to a rule and document.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	RuleID  string `json:"ruleId,omitempty"`
	Path    string `json:"path,omitempty"`
	cause   error
}

// New creates a coded error.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Malformed reports a rewrite whose preconditions were not met.
func Malformed(format string, args ...any) *Error {
	return Newf(MalformedPattern, format, args...)
}

// Stale reports an anchor that no longer matches the tree.
func Stale(format string, args ...any) *Error {
	return Newf(StaleAnchor, format, args...)
}

func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Code)
	if e.RuleID != "" {
		prefix += " " + e.RuleID
	}
	if e.Path != "" {
		prefix += " " + e.Path
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == ""
}

// WithRule returns a copy of e attributed to a rule.
func (e *Error) WithRule(id string) *Error {
	c := *e
	c.RuleID = id
	return &c
}

// WithPath returns a copy of e attributed to a document.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// Sentinels for errors.Is comparisons.
var (
	ErrStaleAnchor        = &Error{Code: StaleAnchor}
	ErrMalformedPattern   = &Error{Code: MalformedPattern}
	ErrPersistenceFailure = &Error{Code: PersistenceFailure}
	ErrCancelled          = &Error{Code: Cancelled}
	ErrInvalidRequest     = &Error{Code: InvalidRequest}
)

// CodeOf extracts the code of err, or "" when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// As returns err as a coded error, wrapping foreign errors under fallback.
func As(err error, fallback Code) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(fallback, "unexpected failure", err)
}
