package query

import "errors"

// Common errors returned by the query package.
var (
	// ErrNoBackend is returned when a query is created without a backend.
	ErrNoBackend = errors.New("no backend configured")

	// ErrNoScopes is returned when Start is called with no search scopes.
	ErrNoScopes = errors.New("no search scopes configured")

	// ErrStopped is returned when operations are attempted on a closed query.
	ErrStopped = errors.New("query is closed")
)
