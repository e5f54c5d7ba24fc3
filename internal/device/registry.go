package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/homie-device/internal/homie"
	"github.com/nerrad567/homie-device/internal/homie/node"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the running devices of the process, in registration order.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*homie.Device
	order   []string
	logger  Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*homie.Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register adds dev to the registry.
//
// Returns:
//   - error: ErrDeviceExists if a device with the same id is registered
func (r *Registry) Register(dev *homie.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[dev.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDeviceExists, dev.ID())
	}
	r.devices[dev.ID()] = dev
	r.order = append(r.order, dev.ID())

	r.logger.Debug("device registered", "device", dev.ID())
	return nil
}

// Get returns the device with the given id.
func (r *Registry) Get(id string) (*homie.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return dev, nil
}

// List returns the devices in registration order.
func (r *Registry) List() []*homie.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*homie.Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.devices[id])
	}
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Property resolves a property of a registered device. Only nodes built by
// the node package expose properties.
func (r *Registry) Property(deviceID, nodeID, propertyID string) (*node.Property, error) {
	dev, err := r.Get(deviceID)
	if err != nil {
		return nil, err
	}

	n, ok := dev.GetNode(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNodeNotFound, deviceID, nodeID)
	}
	hn, ok := n.(*node.Node)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrPropertyNotFound, deviceID, nodeID, propertyID)
	}

	p, ok := hn.Property(propertyID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrPropertyNotFound, deviceID, nodeID, propertyID)
	}
	return p, nil
}

// Close finalises every device in reverse registration order, publishing
// $state=disconnected for each. It returns the joined close errors.
func (r *Registry) Close() error {
	devices := r.List()

	var errs []error
	for i := len(devices) - 1; i >= 0; i-- {
		if err := devices[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", devices[i].ID(), err))
		}
	}
	r.logger.Info("devices closed", "count", len(devices))
	return errors.Join(errs...)
}
