package fsbackend

import "errors"

// Common errors returned by the filesystem backend.
var (
	// ErrNoScopes is returned when a request carries no search scopes.
	ErrNoScopes = errors.New("no search scopes specified")

	// ErrInvalidScope is returned when no scope resolves to an existing
	// directory.
	ErrInvalidScope = errors.New("no valid search scope")

	// ErrStopped is returned when operations are attempted on a stopped
	// request handle.
	ErrStopped = errors.New("request handle is stopped")

	// ErrUnknownItem is returned when values are fetched for an identity
	// the backend does not know.
	ErrUnknownItem = errors.New("unknown item")

	// ErrInvalidPredicate is returned when a request carries a predicate
	// that failed to build.
	ErrInvalidPredicate = errors.New("invalid predicate")
)
