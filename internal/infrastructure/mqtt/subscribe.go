package mqtt

// Subscribe subscribes to topic. Messages are delivered to every registered
// listener's OnMessage.
//
// Topics can include MQTT wildcards:
//   - + (single-level): "homie/+/$state" matches every device state
//   - # (multi-level): "homie/kitchen-sensor/$broadcast/#"
//
// Subscriptions are tracked and restored if the connection is lost and
// re-established. The broker's acknowledgment is awaited asynchronously; a
// refused subscription is logged and dropped from tracking.
//
// Parameters:
//   - topic: The topic pattern to subscribe to
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//
// Returns:
//   - error: nil when queued, or a validation / connection error
func (c *Client) Subscribe(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = qos
	c.subMu.Unlock()

	// A nil callback routes messages to the default handler, so a message
	// matching overlapping filters is dispatched once.
	c.track(opSubscribe, topic, c.paho().Subscribe(topic, qos, nil))
	return nil
}

// Unsubscribe removes a subscription and stops receiving messages for a topic.
//
// Parameters:
//   - topic: The exact topic pattern that was subscribed to
//
// Returns:
//   - error: nil when queued, or a validation / connection error
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.track(opUnsubscribe, topic, c.paho().Unsubscribe(topic))
	return nil
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription checks if a subscription exists for the given topic.
//
// Note: This checks only the exact topic string, not pattern matching.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, exists := c.subscriptions[topic]
	return exists
}
