package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic without waiting for
// the broker's acknowledgment.
//
// The message is handed to paho, which preserves publication order.
// Acknowledgment failures and timeouts are logged by the client.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "homie/kitchen-sensor/$state")
//   - payload: The message payload (max 1MB)
//   - retain: Whether the broker should retain the message for new subscribers
//   - qos: Quality of Service level (0, 1, or 2)
//
// Returns:
//   - error: nil when queued, or a validation / connection error
func (c *Client) Publish(topic, payload string, retain bool, qos byte) error {
	return c.PublishBytes(topic, []byte(payload), retain, qos)
}

// PublishBytes is Publish with a raw payload.
func (c *Client) PublishBytes(topic string, payload []byte, retain bool, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.track(opPublish, topic, c.paho().Publish(topic, qos, retain, payload))
	return nil
}
