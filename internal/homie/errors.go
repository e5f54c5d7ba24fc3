package homie

import "errors"

// Domain-specific errors for Homie device operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidID is returned when a device id does not match the Homie
	// identifier grammar (lowercase alphanumerics and hyphens, no leading or
	// trailing hyphen).
	ErrInvalidID = errors.New("homie: invalid device id")

	// ErrEmptyName is returned when a device is constructed without a name.
	ErrEmptyName = errors.New("homie: device name is required")

	// ErrUnsupportedExtension is returned when a device declares an extension
	// outside the supported set.
	ErrUnsupportedExtension = errors.New("homie: unsupported extension")

	// ErrInvalidState is returned when assigning a state outside the lifecycle
	// enumeration. The assignment is a no-op.
	ErrInvalidState = errors.New("homie: invalid device state")

	// ErrSubscriptionNotFound is returned when removing a topic that has no
	// registered handler.
	ErrSubscriptionNotFound = errors.New("homie: subscription not found")

	// ErrNodeNotFound is returned when removing a node id that is not registered.
	ErrNodeNotFound = errors.New("homie: node not found")

	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("homie: device already started")
)
