package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a plugin runtime failure. Every failure raised by the
// runtime is local to one plugin and carries exactly one kind so callers
// and the UI can report the specific condition, never a generic error.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindLoad               Kind = "load_error"
	KindActivation         Kind = "activation_error"
	KindPermissionDenied   Kind = "permission_denied"
	KindRateExceeded       Kind = "rate_exceeded"
	KindHandleInvalid      Kind = "handle_invalid"
	KindCatalogUnavailable Kind = "catalog_unavailable"
	KindInvalidState       Kind = "invalid_state"
	KindNotFound           Kind = "not_found"
)

// Error is a classified plugin runtime error
type Error struct {
	Kind     Kind
	PluginID string
	Msg      string
	Cause    error
}

func (e *Error) Error() string {
	if e.PluginID != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: plugin %s: %s: %v", e.Kind, e.PluginID, e.Msg, e.Cause)
		}
		return fmt.Sprintf("%s: plugin %s: %s", e.Kind, e.PluginID, e.Msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error
func New(kind Kind, pluginID, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, PluginID: pluginID, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error around a cause
func Wrap(kind Kind, pluginID string, cause error, msg string) *Error {
	return &Error{Kind: kind, PluginID: pluginID, Msg: msg, Cause: cause}
}

// KindOf extracts the kind from an error chain, or "" for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the condition can clear without user action
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateExceeded, KindCatalogUnavailable:
		return true
	}
	return false
}
