package mqtt

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/homie-device/internal/homie"
	"github.com/nerrad567/homie-device/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang as a homie.Transport.
//
// It provides connection management, non-blocking publishing, subscription
// tracking, last-will management and fan-out of connection and message
// events to every registered homie.Listener.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are automatically restored on reconnection.
type Client struct {
	cfg      config.MQTTConfig
	clientID string
	shared   bool

	// mu guards the paho client, its options and the configured will.
	mu      sync.RWMutex
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	will    *will

	// subscriptions tracks topic → QoS for re-subscription on reconnect.
	subscriptions map[string]byte
	subMu         sync.RWMutex

	connected bool
	connMu    sync.RWMutex

	listeners  []homie.Listener
	listenerMu sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex

	// tokens carries in-flight operations to the completion watcher.
	tokens       chan pendingToken
	tokenTimeout time.Duration
	done         chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once

	dial func(network, address string) (net.Conn, error)
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a Client at construction.
type Option func(*Client)

// WithClientID overrides cfg.Broker.ClientID. Dedicated per-device clients
// use it to keep client ids unique on the broker.
func WithClientID(id string) Option {
	return func(c *Client) {
		c.clientID = id
	}
}

// WithShared marks the client as shared by several devices.
func WithShared(shared bool) Option {
	return func(c *Client) {
		c.shared = shared
	}
}

// WithWill registers the last will before the first connect, so that a
// later SetWill with the same message does not rebuild the connection.
func WithWill(topic, payload string, retain bool, qos byte) Option {
	return func(c *Client) {
		c.will = &will{topic: topic, payload: payload, retain: retain, qos: qos}
	}
}

// WithLogger sets the logger. Equivalent to calling SetLogger after Connect.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures the last will, if one was given with WithWill
//  3. Sets up auto-reconnect with exponential backoff
//  4. Attempts initial connection with timeout
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//   - opts: Optional client id, shared flag, will and logger
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If initial connection fails within timeout
func Connect(cfg config.MQTTConfig, opts ...Option) (*Client, error) {
	c := newClient(cfg, opts...)

	if err := c.connect(); err != nil {
		c.stopWatcher()
		return nil, err
	}

	return c, nil
}

// newClient builds an unconnected client and starts its token watcher.
func newClient(cfg config.MQTTConfig, opts ...Option) *Client {
	c := &Client{
		cfg:           cfg,
		clientID:      cfg.Broker.ClientID,
		subscriptions: make(map[string]byte),
		logger:        noopLogger{},
		tokens:        make(chan pendingToken, tokenQueueSize),
		tokenTimeout:  defaultPublishTimeout,
		done:          make(chan struct{}),
		dial:          net.Dial,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}

	c.options = buildClientOptions(cfg, c.clientID)
	if c.will != nil {
		c.will.apply(c.options)
	}

	c.options.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	c.options.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	c.options.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.getLogger().Debug("mqtt reconnecting", "client_id", c.clientID)
	})
	c.options.SetDefaultPublishHandler(c.dispatch)

	c.wg.Add(1)
	go c.watchTokens()

	return c
}

// connect creates a paho client from the current options and connects it.
func (c *Client) connect() error {
	c.mu.Lock()
	c.client = pahomqtt.NewClient(c.options)
	client := c.client
	c.mu.Unlock()

	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		client.Disconnect(0)
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously and may not have executed
	// yet; set the state here so IsConnected is true on return.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return nil
}

// paho returns the current paho client.
func (c *Client) paho() pahomqtt.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.getLogger().Debug("mqtt connected", "client_id", c.clientID)

	c.restoreSubscriptions()
	c.notifyConnection(true)
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.getLogger().Warn("mqtt connection lost", "client_id", c.clientID, "error", err)

	c.notifyConnection(false)
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	client := c.paho()
	if client == nil {
		return
	}

	c.subMu.RLock()
	subs := make(map[string]byte, len(c.subscriptions))
	for topic, qos := range c.subscriptions {
		subs[topic] = qos
	}
	c.subMu.RUnlock()

	for topic, qos := range subs {
		c.track(opSubscribe, topic, client.Subscribe(topic, qos, nil))
	}
}

// AddListener registers l for connection and message events.
func (c *Client) AddListener(l homie.Listener) {
	c.listenerMu.Lock()
	c.listeners = append(c.listeners, l)
	c.listenerMu.Unlock()
}

func (c *Client) snapshotListeners() []homie.Listener {
	c.listenerMu.RLock()
	defer c.listenerMu.RUnlock()
	return append([]homie.Listener(nil), c.listeners...)
}

func (c *Client) notifyConnection(connected bool) {
	for _, l := range c.snapshotListeners() {
		l.OnConnection(connected)
	}
}

// dispatch delivers an inbound message to every listener, with panic
// recovery.
func (c *Client) dispatch(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.getLogger().Error("MQTT handler panic recovered",
				"topic", msg.Topic(),
				"panic", r,
			)
		}
	}()

	for _, l := range c.snapshotListeners() {
		l.OnMessage(msg.Topic(), msg.Payload(), msg.Retained(), msg.Qos())
	}
}

// Shared reports whether several devices publish through this client.
func (c *Client) Shared() bool {
	return c.shared
}

// ClientID returns the MQTT client id.
func (c *Client) ClientID() string {
	return c.clientID
}

// Close gracefully disconnects from the MQTT broker.
//
// Pending operations get a quiesce period before the connection closes.
// No last will is published for a graceful disconnect.
//
// Returns:
//   - error: Always nil (connection already closed is not an error)
func (c *Client) Close() error {
	if client := c.paho(); client != nil {
		client.Disconnect(defaultDisconnectQuiesce)
	}

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.stopWatcher()
	return nil
}

// HealthCheck verifies the MQTT connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	connected := c.connected
	c.connMu.RUnlock()

	client := c.paho()
	return connected && client != nil && client.IsConnected()
}

// SetLogger sets a logger for connection events and failed operations.
// A nil logger disables logging.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

var _ homie.Transport = (*Client)(nil)
