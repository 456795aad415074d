package uploadroute

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrRouteNotFound indicates the named route is not registered
	ErrRouteNotFound = errors.New("route not found")

	// ErrNoFiles indicates a presign call arrived with an empty file list
	ErrNoFiles = errors.New("no files in request")

	// ErrTooManyFiles indicates the batch exceeds the route's file limit
	ErrTooManyFiles = errors.New("too many files in batch")

	// ErrNoProvider indicates the router was built without a storage provider
	ErrNoProvider = errors.New("storage provider is required")

	// ErrEmptyKey indicates the key generator produced an empty object key
	ErrEmptyKey = errors.New("generated object key is empty")
)

// ValidationError represents a per-file constraint failure. The batch
// continues; only the offending file is rejected.
type ValidationError struct {
	File   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("file %q failed %s validation: %s", e.File, e.Field, e.Reason)
}

// MiddlewareRejection represents an explicit per-file rejection from a
// middleware stage. It carries the displayable message.
type MiddlewareRejection struct {
	Message string
}

func (e *MiddlewareRejection) Error() string {
	return e.Message
}

// Reject builds a MiddlewareRejection for use inside middleware.
func Reject(format string, args ...interface{}) error {
	return &MiddlewareRejection{Message: fmt.Sprintf(format, args...)}
}

// ProviderError represents a presign or lookup failure from the storage
// provider. Full detail goes to logs; clients see a generic message.
type ProviderError struct {
	Key string
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// RouteError represents a call-level failure for a route operation. It
// aborts the whole call, unlike per-file errors.
type RouteError struct {
	Route string
	Op    string
	Err   error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("route operation %s failed for route %q: %v", e.Op, e.Route, e.Err)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}
