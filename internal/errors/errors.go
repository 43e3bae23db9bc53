// Package errors provides domain error types for the Todo MCP resource server.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel error kinds.
var (
	// ErrUnauthorized indicates the bearer credential is missing or was rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the credential lacks a required scope.
	ErrForbidden = errors.New("forbidden")

	// ErrBadRequest indicates invalid request parameters or format.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound indicates no route matched the request.
	ErrNotFound = errors.New("not found")

	// ErrInternal indicates an internal server error.
	ErrInternal = errors.New("internal error")
)

// DomainError is an error tagged with the subsystem and operation that produced
// it, a sentinel kind, and optional key/value context for logs.
type DomainError struct {
	// Domain identifies the subsystem, e.g. "oauth" or "transport".
	Domain string

	// Op is the failing operation, e.g. "ValidateToken".
	Op string

	// Kind is one of the sentinel errors above.
	Kind error

	// Err is the wrapped cause, if any.
	Err error

	// Context holds extra attributes, logged alongside the error.
	Context map[string]any
}

// New creates a DomainError.
func New(domain, op string, kind, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Err:     err,
		Context: make(map[string]any),
	}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %v: %v", e.Domain, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Domain, e.Op, e.Kind)
}

// Unwrap returns the wrapped cause.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches against both the Kind and the wrapped chain.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// WithContext records a key/value pair and returns e for chaining.
func (e *DomainError) WithContext(key string, value any) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// LogAttrs flattens the error into slog-style key/value pairs.
func (e *DomainError) LogAttrs() []any {
	attrs := []any{"domain", e.Domain, "op", e.Op}
	if e.Kind != nil {
		attrs = append(attrs, "kind", e.Kind.Error())
	}
	for k, v := range e.Context {
		attrs = append(attrs, k, v)
	}
	return attrs
}

// Attrs extracts log attributes from any error, returning nil when err is not
// a DomainError.
func Attrs(err error) []any {
	var de *DomainError
	if errors.As(err, &de) {
		return de.LogAttrs()
	}
	return nil
}

// Context returns the value recorded under key anywhere in err's chain.
func Context(err error, key string) (any, bool) {
	var de *DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return nil, false
		}
		if v, ok := de.Context[key]; ok {
			return v, true
		}
		err = de.Err
	}
	return nil, false
}
