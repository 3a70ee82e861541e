package attribute

import "errors"

// Common errors returned by the attribute package.
var (
	// ErrUnknownAttribute is returned when an attribute is not in the catalog.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrUnsortableAttribute is returned when an attribute cannot be used
	// as a sort key (path-shaped attributes).
	ErrUnsortableAttribute = errors.New("attribute cannot be used for sorting")

	// ErrNoGroupKeys is returned when a group key list is empty.
	ErrNoGroupKeys = errors.New("no group keys specified")
)
