// Package apperr is the error taxonomy shared by services and handlers.
// Services return *Error values; handlers turn them into status codes and
// field-keyed JSON bodies.
package apperr

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindPermission
	KindUnauthorized
	KindConflict
	KindRateLimited
)

// Error is the canonical application error.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field messages for KindValidation.
	Fields map[string][]string
	// Field names the offending field for KindConflict.
	Field string
	// Cause is for server-side logging only.
	Cause error
}

func (e *Error) Error() string {
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
		}
		return "validation failed: " + strings.Join(parts, "; ")
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Status maps the kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON payload written for the error.
func (e *Error) Body() any {
	switch e.Kind {
	case KindValidation:
		return e.Fields
	case KindConflict:
		return map[string]string{e.Field: e.Message}
	default:
		return map[string]string{"detail": e.Message}
	}
}

// NotFound builds a 404 for a named resource, e.g. NotFound("Title").
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found."}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindPermission, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Conflict is a duplicate-write error reported against one field.
func Conflict(field, msg string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: msg}
}

func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

// Invalid is a single-field validation error.
func Invalid(field, msg string) *Error {
	return &Error{Kind: KindValidation, Fields: map[string][]string{field: {msg}}}
}

// FieldErrors collects validation messages before returning one error.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Has reports whether field already has at least one message.
func (f FieldErrors) Has(field string) bool {
	return len(f[field]) > 0
}

// Err returns nil when nothing was collected.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{Kind: KindValidation, Fields: f}
}

// As extracts the *Error from err's chain, or nil.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	ae := As(err)
	return ae != nil && ae.Kind == kind
}
