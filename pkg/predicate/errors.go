package predicate

import "errors"

// Common errors returned by the predicate package.
var (
	// ErrUnknownAttribute is returned when a predicate references an
	// attribute not in the catalog.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrUnsupportedOperator is returned when an operator is not valid for
	// the attribute's value kind (e.g. ordering on a bool).
	ErrUnsupportedOperator = errors.New("operator not supported for attribute kind")

	// ErrValueKindMismatch is returned when a comparison value does not
	// match the attribute's value kind.
	ErrValueKindMismatch = errors.New("value does not match attribute kind")

	// ErrEmptyValueList is returned when a membership predicate is built
	// with no values.
	ErrEmptyValueList = errors.New("membership predicate requires at least one value")

	// ErrEmptyRangeList is returned when a multi-range predicate is built
	// with no ranges.
	ErrEmptyRangeList = errors.New("range predicate requires at least one range")

	// ErrInvalidRange is returned when a range's low bound does not order
	// before its high bound.
	ErrInvalidRange = errors.New("range low bound must not exceed high bound")
)
