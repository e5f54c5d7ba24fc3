package node

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/homie-device/internal/homie"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Node is a Homie node: a named group of properties under a device.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Node struct {
	parent   homie.Publisher
	id       string
	name     string
	nodeType string
	logger   homie.Logger

	mu         sync.RWMutex
	properties map[string]*Property
	order      []string
}

// New creates a node that publishes through parent, normally a
// *homie.Device.
//
// Parameters:
//   - parent: Publisher whose topic is the device base topic
//   - id: Node id (Homie identifier grammar)
//   - name: Friendly name published at $name
//   - nodeType: Free-form type published at $type
//
// Returns:
//   - *Node: Node with no properties
//   - error: homie.ErrInvalidID or ErrEmptyName
func New(parent homie.Publisher, id, name, nodeType string) (*Node, error) {
	if parent == nil {
		return nil, fmt.Errorf("node %s: parent is required", id)
	}
	if err := homie.ValidateID(id); err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: node %s", ErrEmptyName, id)
	}

	return &Node{
		parent:     parent,
		id:         id,
		name:       name,
		nodeType:   nodeType,
		logger:     noopLogger{},
		properties: make(map[string]*Property),
	}, nil
}

// SetLogger sets the logger used for set command handling.
func (n *Node) SetLogger(logger homie.Logger) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logger = logger
}

func (n *Node) log() homie.Logger {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.logger
}

// ID returns the node id.
func (n *Node) ID() string { return n.id }

// Name returns the friendly name.
func (n *Node) Name() string { return n.name }

// Type returns the node type.
func (n *Node) Type() string { return n.nodeType }

// Topic returns the node base topic.
func (n *Node) Topic() string {
	return n.parent.Topic() + "/" + n.id
}

// AddProperty validates cfg and appends a property.
//
// Properties added after the parent device published its nodes are not
// announced until the node is re-added or the device reconnects.
func (n *Node) AddProperty(cfg PropertyConfig) (*Property, error) {
	p, err := newProperty(n, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Value != "" {
		if err := p.datatype.validate(cfg.Value, p.format); err != nil {
			return nil, err
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.properties[p.id]; exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateProperty, n.id, p.id)
	}
	n.properties[p.id] = p
	n.order = append(n.order, p.id)

	return p, nil
}

// Property returns the property with the given id.
func (n *Node) Property(id string) (*Property, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	p, ok := n.properties[id]
	return p, ok
}

// Properties returns the properties in insertion order.
func (n *Node) Properties() []*Property {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Property, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.properties[id])
	}
	return out
}

// SetValue updates and publishes the value of a property.
//
// Returns:
//   - error: ErrPropertyNotFound or ErrInvalidValue
func (n *Node) SetValue(propertyID, value string) error {
	p, ok := n.Property(propertyID)
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrPropertyNotFound, n.id, propertyID)
	}
	return p.SetValue(value)
}

// PublishAttributes publishes $name, $type and $properties, followed by the
// attributes and current value of each property.
func (n *Node) PublishAttributes(retain bool, qos byte) {
	publish := func(attr, payload string) {
		n.parent.Publish(n.Topic()+"/"+attr, payload, retain, qos)
	}

	props := n.Properties()
	ids := make([]string, len(props))
	for i, p := range props {
		ids[i] = p.id
	}

	publish("$name", n.name)
	publish("$type", n.nodeType)
	publish("$properties", strings.Join(ids, ","))

	for _, p := range props {
		p.publishAttributes(retain, qos)
	}
}

// Subscriptions returns the set topic and handler of every settable
// property.
func (n *Node) Subscriptions() map[string]homie.MessageHandler {
	subs := make(map[string]homie.MessageHandler)
	for _, p := range n.Properties() {
		if p.settable {
			subs[p.SetTopic()] = p.handleSet
		}
	}
	return subs
}

var _ homie.Node = (*Node)(nil)
