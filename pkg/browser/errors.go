package browser

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnavailable   = errors.New("browser runtime unavailable")
	ErrSessionClosed = errors.New("browser session closed")
)

// ErrorKind classifies a primitive failure.
type ErrorKind string

const (
	KindTimeout          ErrorKind = "timeout"
	KindSelectorNotFound ErrorKind = "selector_not_found"
	KindNavigation       ErrorKind = "navigation"
	KindUnknown          ErrorKind = "unknown"
)

// AutomationError is the only error type browser primitives return.
type AutomationError struct {
	Kind   ErrorKind
	Op     string
	Target string
	Err    error
}

func (e *AutomationError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Kind)
	if e.Target != "" {
		msg += " (" + e.Target + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

// NewAutomationError builds an AutomationError.
func NewAutomationError(kind ErrorKind, op, target string, err error) *AutomationError {
	return &AutomationError{Kind: kind, Op: op, Target: target, Err: err}
}

// Classify wraps err as an AutomationError, keeping an existing classification.
// Deadline errors become fallback, which callers pick per primitive (a
// missing element and a slow page both surface as a deadline).
func Classify(op, target string, err error, fallback ErrorKind) error {
	if err == nil {
		return nil
	}
	var ae *AutomationError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		if fallback == "" {
			fallback = KindTimeout
		}
		return NewAutomationError(fallback, op, target, err)
	}
	return NewAutomationError(KindUnknown, op, target, err)
}

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var ae *AutomationError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsRetryableError returns true if the caller may reasonably retry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindTimeout, KindNavigation:
		return true
	}
	return false
}
