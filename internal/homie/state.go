package homie

import "fmt"

// State is a device lifecycle state as published at $state.
type State string

// Device lifecycle states.
const (
	StateInit         State = "init"
	StateReady        State = "ready"
	StateDisconnected State = "disconnected"
	StateSleeping     State = "sleeping"
	StateAlert        State = "alert"
	StateLost         State = "lost"
)

// States returns every valid lifecycle state.
func States() []State {
	return []State{
		StateInit,
		StateReady,
		StateDisconnected,
		StateSleeping,
		StateAlert,
		StateLost,
	}
}

// Valid reports whether s is part of the lifecycle enumeration.
func (s State) Valid() bool {
	switch s {
	case StateInit, StateReady, StateDisconnected, StateSleeping, StateAlert, StateLost:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the state.
func (s State) String() string {
	return string(s)
}

// State returns the current lifecycle state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SetState assigns a lifecycle state and publishes it retained at $state.
//
// An unknown state is logged and ignored: the current state is kept,
// nothing is published and ErrInvalidState is returned.
func (d *Device) SetState(state State) error {
	return d.SetStateWith(state, d.retain, d.qos)
}

// SetStateWith is SetState with explicit retain and QoS parameters.
func (d *Device) SetStateWith(state State, retain bool, qos byte) error {
	if !state.Valid() {
		d.logger.Warn("invalid device state", "device", d.id, "state", string(state))
		return fmt.Errorf("%w: %q", ErrInvalidState, string(state))
	}

	d.stateMu.Lock()
	defer d.stateMu.Unlock()

	d.mu.Lock()
	d.state = state
	d.mu.Unlock()

	d.Publish(d.topics.State(), state.String(), retain, qos)
	return nil
}
