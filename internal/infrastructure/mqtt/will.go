package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// will is a last will message.
type will struct {
	topic   string
	payload string
	retain  bool
	qos     byte
}

func (w *will) apply(opts *pahomqtt.ClientOptions) {
	opts.SetWill(w.topic, w.payload, w.qos, w.retain)
}

// SetWill registers the message the broker publishes if this client
// disconnects ungracefully.
//
// The broker only learns the will at connect time. If a connection already
// exists and the will differs from the registered one, the client is
// rebuilt: the old connection is closed cleanly (so its previous will is
// not fired), a new one is opened with the same client id and tracked
// subscriptions are restored. Registering the same will again is a no-op.
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, or ErrConnectionFailed from the rebuild
func (c *Client) SetWill(topic, payload string, retain bool, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	next := will{topic: topic, payload: payload, retain: retain, qos: qos}

	c.mu.Lock()
	if c.will != nil && *c.will == next {
		c.mu.Unlock()
		return nil
	}
	c.will = &next
	next.apply(c.options)
	hasClient := c.client != nil
	c.mu.Unlock()

	c.getLogger().Debug("mqtt last will set", "client_id", c.clientID, "topic", topic)

	if !hasClient {
		return nil
	}
	return c.rebuild()
}

// Will returns the registered last will topic and payload, if any.
func (c *Client) Will() (topic, payload string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.will == nil {
		return "", "", false
	}
	return c.will.topic, c.will.payload, true
}

// rebuild replaces the paho client so the broker receives the current will.
func (c *Client) rebuild() error {
	c.mu.Lock()
	old := c.client
	c.mu.Unlock()

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	// Same client id: the old session must end before the new one starts or
	// the broker would take it over and fire the old will.
	if old != nil {
		old.Disconnect(defaultDisconnectQuiesce)
	}

	if err := c.connect(); err != nil {
		return fmt.Errorf("applying last will: %w", err)
	}
	return nil
}
