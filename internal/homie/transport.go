package homie

import (
	"context"
	"time"
)

// Transport is the publish/subscribe client a device talks through.
//
// Publish, Subscribe and Unsubscribe enqueue work and return without waiting
// for broker acknowledgement. A returned error means the request could not be
// enqueued at all.
type Transport interface {
	Publish(topic, payload string, retain bool, qos byte) error
	Subscribe(topic string, qos byte) error
	Unsubscribe(topic string) error

	// SetWill registers the message the broker publishes when the connection
	// drops ungracefully. A connection has a single will slot.
	SetWill(topic, payload string, retain bool, qos byte) error

	// NetworkIdentity returns the MAC and IP address of the interface used to
	// reach the broker.
	NetworkIdentity() (mac, ip string, err error)

	IsConnected() bool

	// Shared reports whether several devices use this connection.
	Shared() bool

	// AddListener registers l for connection and message events.
	AddListener(l Listener)
}

// Listener receives transport events. Device implements it.
type Listener interface {
	OnConnection(connected bool)
	OnMessage(topic string, payload []byte, retained bool, qos byte)
}

// MessageHandler is invoked for a non-retained message on a subscribed topic.
type MessageHandler func(topic, payload string)

// BroadcastHandler receives $broadcast messages. level is the topic suffix
// after $broadcast/.
type BroadcastHandler func(level, payload string)

// Node is a child of a device, owning its own topics under <device>/<node id>.
type Node interface {
	ID() string

	// PublishAttributes publishes the node's attributes and property values.
	PublishAttributes(retain bool, qos byte)

	// Subscriptions returns the topics the node wants routed to it.
	Subscriptions() map[string]MessageHandler
}

// Publisher is what nodes need from their device to publish their topics.
type Publisher interface {
	Topic() string
	Publish(topic, payload string, retain bool, qos byte)
}

// StatsRecorder receives uptime samples alongside $stats/uptime publication.
type StatsRecorder interface {
	RecordUptime(deviceID string, uptime time.Duration)
}

// Journal remembers the retained topics a device has published, so they can
// be cleared later.
type Journal interface {
	Record(ctx context.Context, deviceID, topic, payload string) error
	Topics(ctx context.Context, deviceID, prefix string) ([]string, error)
	Forget(ctx context.Context, deviceID string, topics []string) error
}

// Scheduler runs registered callbacks periodically.
type Scheduler interface {
	AddCallback(fn func())
	Stop()
}

// Logger defines the logging interface used by devices.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
