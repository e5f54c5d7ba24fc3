package device

import "errors"

// Sentinel errors for the device registry. Check with errors.Is.
var (
	// ErrDeviceNotFound is returned when no registered device has the id.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when registering a second device with the
	// same id.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrNodeNotFound is returned when the device has no node with the id.
	ErrNodeNotFound = errors.New("device: node not found")

	// ErrPropertyNotFound is returned when the node has no property with the
	// id.
	ErrPropertyNotFound = errors.New("device: property not found")
)
