package homie

import "time"

// willQoS is the delivery quality of the $state=lost last will.
const willQoS = 1

// Start records the start time, registers stats publication with the shared
// scheduler and, if the transport is already connected, runs the connect
// sequence immediately.
//
// Returns:
//   - error: ErrAlreadyStarted if called more than once
func (d *Device) Start() error {
	d.logger.Debug("device startup", "device", d.id)

	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	d.started = true
	d.startTime = d.now()
	d.mu.Unlock()

	if d.hasExtension(ExtensionStats) {
		interval := time.Duration(d.settings.UpdateInterval) * time.Second
		d.runtime.scheduler(interval).AddCallback(d.PublishUptime)
	}

	if d.transport.IsConnected() {
		d.OnConnection(true)
	}

	return nil
}

// OnConnection handles a connection state change reported by the transport.
//
// On a connect edge it publishes attributes, then nodes, subscribes to
// topics and finally claims the last will. Repeated connect notifications
// without an intervening disconnect are ignored, as are notifications that
// arrive before Start. A disconnect only clears the guard: the broker
// publishes the last will.
func (d *Device) OnConnection(connected bool) {
	d.logger.Debug("device connection state", "device", d.id, "connected", connected)

	d.connMu.Lock()
	defer d.connMu.Unlock()

	if !connected {
		d.connected = false
		return
	}

	if d.connected {
		return
	}

	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if !started {
		d.logger.Debug("connect before start, deferring", "device", d.id)
		return
	}

	d.connected = true

	d.PublishAttributes()
	d.PublishNodes()
	d.SubscribeTopics()
	d.claimWill()
}

// claimWill registers $state=lost as the connection's last will.
//
// A shared connection has one will slot, claimed by the first device of the
// Runtime; the others skip it. A device registers at most once.
// Must be called with d.connMu held.
func (d *Device) claimWill() {
	if d.willRegistered {
		return
	}
	if d.transport.Shared() && d.instance != 1 {
		return
	}

	if err := d.transport.SetWill(d.topics.State(), StateLost.String(), true, willQoS); err != nil {
		d.logger.Warn("setting last will failed", "device", d.id, "error", err)
		return
	}
	d.willRegistered = true
	d.logger.Debug("device set last will", "device", d.id)
}

// Connected reports whether the connect sequence has run since the last
// disconnect.
func (d *Device) Connected() bool {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	return d.connected
}

// Close publishes $state=disconnected. Only the first call publishes;
// defer it in the scope that owns the device.
//
// Returns:
//   - error: Always nil
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.logger.Debug("device clean up", "device", d.id)
		//nolint:errcheck // StateDisconnected is always valid
		d.SetState(StateDisconnected)
	})
	return nil
}
