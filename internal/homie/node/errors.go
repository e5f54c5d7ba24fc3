package node

import "errors"

// Domain-specific errors for node and property operations.
var (
	// ErrEmptyName is returned when a node or property has no name.
	ErrEmptyName = errors.New("node: name is required")

	// ErrInvalidDatatype is returned for a datatype outside the Homie set.
	ErrInvalidDatatype = errors.New("node: invalid datatype")

	// ErrDuplicateProperty is returned when adding a property id twice.
	ErrDuplicateProperty = errors.New("node: duplicate property")

	// ErrPropertyNotFound is returned when a property id is not registered.
	ErrPropertyNotFound = errors.New("node: property not found")

	// ErrInvalidValue is returned when a value does not fit the property
	// datatype or format.
	ErrInvalidValue = errors.New("node: invalid property value")

	// ErrRejected is returned when a property's OnSet handler refuses a value.
	ErrRejected = errors.New("node: value rejected by handler")
)
