package homie

import (
	"fmt"
	"sort"
)

// broadcastQoS is the subscription QoS for $broadcast and node topics.
const broadcastQoS = 0

// AddSubscription maps topic to handler and subscribes through the
// transport. Registering a topic again replaces its handler.
func (d *Device) AddSubscription(topic string, handler MessageHandler, qos byte) {
	d.mu.Lock()
	d.handlers[topic] = handler
	d.mu.Unlock()

	if err := d.transport.Subscribe(topic, qos); err != nil {
		d.logger.Warn("subscribe failed", "device", d.id, "topic", topic, "error", err)
		return
	}
	d.logger.Debug("subscribed", "device", d.id, "topic", topic, "qos", qos)
}

// RemoveSubscription unsubscribes topic and forgets its handler.
//
// Returns:
//   - error: ErrSubscriptionNotFound if topic has no registered handler
func (d *Device) RemoveSubscription(topic string) error {
	d.mu.Lock()
	if _, ok := d.handlers[topic]; !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, topic)
	}
	delete(d.handlers, topic)
	d.mu.Unlock()

	if err := d.transport.Unsubscribe(topic); err != nil {
		d.logger.Warn("unsubscribe failed", "device", d.id, "topic", topic, "error", err)
	}
	d.logger.Debug("unsubscribed", "device", d.id, "topic", topic)
	return nil
}

// SubscribeTopics subscribes to the device broadcast topic and to every
// topic declared by the registered nodes.
func (d *Device) SubscribeTopics() {
	d.logger.Debug("device subscribing to topics", "device", d.id)

	d.AddSubscription(d.topics.Broadcast(), d.handleBroadcast, broadcastQoS)

	for _, node := range d.Nodes() {
		subs := node.Subscriptions()

		topics := make([]string, 0, len(subs))
		for topic := range subs {
			topics = append(topics, topic)
		}
		sort.Strings(topics)

		for _, topic := range topics {
			d.AddSubscription(topic, subs[topic], broadcastQoS)
		}
	}
}

// OnMessage dispatches an inbound message to the handler of its topic.
//
// Retained messages are dropped: they replay on every subscribe and would
// re-run commands. Topics with no handler are ignored. A topic with no exact
// registration is matched against the registered wildcard filters.
func (d *Device) OnMessage(topic string, payload []byte, retained bool, qos byte) {
	handler, ok := d.lookupHandler(topic)
	if !ok {
		return
	}

	if retained {
		d.logger.Warn("dropping retained message on command topic",
			"device", d.id,
			"topic", topic,
			"qos", qos,
		)
		return
	}

	d.logger.Debug("device message", "device", d.id, "topic", topic, "qos", qos)
	handler(topic, string(payload))
}

// lookupHandler finds the handler for topic: exact match first, then the
// first matching wildcard filter in sorted order.
func (d *Device) lookupHandler(topic string) (MessageHandler, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if handler, ok := d.handlers[topic]; ok {
		return handler, true
	}

	var filters []string
	for filter := range d.handlers {
		if isWildcard(filter) {
			filters = append(filters, filter)
		}
	}
	sort.Strings(filters)

	for _, filter := range filters {
		if matchTopic(filter, topic) {
			return d.handlers[filter], true
		}
	}
	return nil, false
}

// handleBroadcast is the handler registered for $broadcast/#.
func (d *Device) handleBroadcast(topic, payload string) {
	level := d.topics.broadcastLevel(topic)
	d.logger.Debug("homie broadcast", "device", d.id, "level", level, "payload", payload)

	if d.onBroadcast != nil {
		d.onBroadcast(level, payload)
	}
}
