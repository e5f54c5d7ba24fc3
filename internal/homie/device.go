package homie

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// journalTimeout bounds each journal call made from the publish path.
const journalTimeout = 2 * time.Second

// Default delivery parameters for device metadata.
const (
	defaultRetain = true
	defaultQoS    = 1
)

// Options configures a new Device.
type Options struct {
	// ID is the device id. When empty, "device%04d" of the Runtime instance
	// number is used.
	ID string

	// Name is the friendly name published at $name. Required.
	Name string

	// Settings overrides individual default settings.
	Settings Settings

	// Extensions declared by the device. nil selects DefaultExtensions;
	// an empty slice declares none.
	Extensions []Extension

	// Logger receives device logs. Optional.
	Logger Logger

	// Recorder receives uptime samples. Optional.
	Recorder StatsRecorder

	// Journal tracks retained topics so removed nodes can be cleared. Optional.
	Journal Journal

	// BroadcastHandler receives $broadcast messages. Optional.
	BroadcastHandler BroadcastHandler
}

// Device is a Homie device bound to one transport.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Connect sequences are serialised per device.
type Device struct {
	id         string
	name       string
	topics     Topics
	settings   Settings
	extensions []Extension
	instance   int64

	runtime     *Runtime
	transport   Transport
	logger      Logger
	recorder    StatsRecorder
	journal     Journal
	onBroadcast BroadcastHandler
	now         func() time.Time

	retain bool
	qos    byte

	mu             sync.Mutex
	state          State
	nodes          map[string]Node
	nodeOrder      []string
	nodesPublished bool
	handlers       map[string]MessageHandler
	started        bool
	startTime      time.Time

	// stateMu is held across a state assignment and its $state publish, so
	// the last state assigned is the last one published.
	stateMu sync.Mutex

	// connMu serialises connect handling; connected is the connect-edge guard.
	connMu         sync.Mutex
	connected      bool
	willRegistered bool

	closeOnce sync.Once
}

// New validates opts and creates a device in state init.
//
// The device registers itself as a listener on transport but publishes
// nothing until Start.
//
// Parameters:
//   - rt: Runtime shared by the devices of this process
//   - transport: Connection the device publishes through
//   - opts: Identity, settings and optional collaborators
//
// Returns:
//   - *Device: Constructed device
//   - error: ErrInvalidID, ErrEmptyName or ErrUnsupportedExtension
func New(rt *Runtime, transport Transport, opts Options) (*Device, error) {
	if rt == nil {
		return nil, fmt.Errorf("runtime is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	instance := rt.nextInstance()

	id := opts.ID
	if id == "" {
		id = fmt.Sprintf("device%04d", instance)
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	if opts.Name == "" {
		return nil, ErrEmptyName
	}

	extensions := opts.Extensions
	if extensions == nil {
		extensions = DefaultExtensions()
	}
	for _, ext := range extensions {
		if !ext.Supported() {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, string(ext))
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	settings := opts.Settings.WithDefaults()

	d := &Device{
		id:          id,
		name:        opts.Name,
		topics:      NewTopics(settings.Topic, id),
		settings:    settings,
		extensions:  append([]Extension(nil), extensions...),
		instance:    instance,
		runtime:     rt,
		transport:   transport,
		logger:      logger,
		recorder:    opts.Recorder,
		journal:     opts.Journal,
		onBroadcast: opts.BroadcastHandler,
		now:         time.Now,
		retain:      defaultRetain,
		qos:         defaultQoS,
		state:       StateInit,
		nodes:       make(map[string]Node),
		handlers:    make(map[string]MessageHandler),
	}

	transport.AddListener(d)

	return d, nil
}

// ID returns the device id.
func (d *Device) ID() string {
	return d.id
}

// Name returns the friendly name.
func (d *Device) Name() string {
	return d.name
}

// Topic returns the device base topic, <topic root>/<id>.
func (d *Device) Topic() string {
	return d.topics.Device()
}

// Topics returns the topic builder for this device.
func (d *Device) Topics() Topics {
	return d.topics
}

// Settings returns the merged settings.
func (d *Device) Settings() Settings {
	return d.settings
}

// Instance returns the Runtime instance number assigned at construction.
func (d *Device) Instance() int64 {
	return d.instance
}

// Uptime returns the time since Start, or zero before Start.
func (d *Device) Uptime() time.Duration {
	d.mu.Lock()
	start := d.startTime
	d.mu.Unlock()

	if start.IsZero() {
		return 0
	}
	return d.now().Sub(start)
}

// Publish sends payload to topic through the transport.
//
// Publication is fire-and-forget: failures to enqueue are logged and not
// returned. Retained publications are recorded in the journal, if any.
func (d *Device) Publish(topic, payload string, retain bool, qos byte) {
	d.publish(topic, payload, retain, qos, true)
}

func (d *Device) publish(topic, payload string, retain bool, qos byte, record bool) {
	d.logger.Debug("device publish",
		"device", d.id,
		"topic", topic,
		"retain", retain,
		"qos", qos,
		"payload", payload,
	)

	if err := d.transport.Publish(topic, payload, retain, qos); err != nil {
		d.logger.Warn("device publish failed", "device", d.id, "topic", topic, "error", err)
		return
	}

	if record && retain && d.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := d.journal.Record(ctx, d.id, topic, payload); err != nil {
			d.logger.Warn("journal record failed", "device", d.id, "topic", topic, "error", err)
		}
	}
}

// Info is a point-in-time summary of a device.
type Info struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Topic         string   `json:"topic"`
	State         State    `json:"state"`
	Extensions    []string `json:"extensions"`
	Nodes         []string `json:"nodes"`
	Subscriptions []string `json:"subscriptions"`
	Connected     bool     `json:"connected"`
	UptimeSeconds int64    `json:"uptime_seconds"`
}

// Info returns a snapshot of the device.
func (d *Device) Info() Info {
	extensions := make([]string, len(d.extensions))
	for i, ext := range d.extensions {
		extensions[i] = string(ext)
	}

	d.connMu.Lock()
	connected := d.connected
	d.connMu.Unlock()

	d.mu.Lock()
	state := d.state
	nodes := append([]string(nil), d.nodeOrder...)
	d.mu.Unlock()

	return Info{
		ID:            d.id,
		Name:          d.name,
		Topic:         d.topics.Device(),
		State:         state,
		Extensions:    extensions,
		Nodes:         nodes,
		Subscriptions: d.Subscriptions(),
		Connected:     connected,
		UptimeSeconds: int64(d.Uptime() / time.Second),
	}
}

// Subscriptions returns the registered topics in sorted order.
func (d *Device) Subscriptions() []string {
	d.mu.Lock()
	topics := make([]string, 0, len(d.handlers))
	for topic := range d.handlers {
		topics = append(topics, topic)
	}
	d.mu.Unlock()

	sort.Strings(topics)
	return topics
}
