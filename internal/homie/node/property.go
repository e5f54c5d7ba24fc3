package node

import (
	"fmt"
	"sync"

	"github.com/nerrad567/homie-device/internal/homie"
)

// SetHandler is called for a set command after the value has passed
// datatype validation. Returning false rejects the value: it is neither
// stored nor echoed.
type SetHandler func(p *Property, value string) bool

// PropertyConfig describes a property to add to a node.
type PropertyConfig struct {
	// ID is the property id (Homie identifier grammar). Required.
	ID string

	// Name is the friendly name published at $name. Required.
	Name string

	// Datatype is published at $datatype.
	// Default: string
	Datatype Datatype

	// Format is published at $format when set.
	Format string

	// Unit is published at $unit when set.
	Unit string

	// Settable declares a <property>/set command topic.
	Settable bool

	// NonRetained publishes $retained=false and sends values without the
	// retain flag.
	NonRetained bool

	// Value is the initial value.
	Value string

	// OnSet is called for accepted set commands. Optional.
	OnSet SetHandler
}

// Property is one property of a Node.
//
// Thread Safety:
//   - Value and SetValue are safe for concurrent use.
type Property struct {
	node     *Node
	id       string
	name     string
	datatype Datatype
	format   string
	unit     string
	settable bool
	retained bool
	onSet    SetHandler

	mu    sync.Mutex
	value string
}

func newProperty(n *Node, cfg PropertyConfig) (*Property, error) {
	if err := homie.ValidateID(cfg.ID); err != nil {
		return nil, fmt.Errorf("property: %w", err)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: property %s", ErrEmptyName, cfg.ID)
	}

	datatype := cfg.Datatype
	if datatype == "" {
		datatype = DatatypeString
	}
	if !datatype.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDatatype, string(datatype))
	}
	if datatype == DatatypeEnum && cfg.Format == "" {
		return nil, fmt.Errorf("%w: enum property %s needs a format", ErrInvalidValue, cfg.ID)
	}

	return &Property{
		node:     n,
		id:       cfg.ID,
		name:     cfg.Name,
		datatype: datatype,
		format:   cfg.Format,
		unit:     cfg.Unit,
		settable: cfg.Settable,
		retained: !cfg.NonRetained,
		onSet:    cfg.OnSet,
		value:    cfg.Value,
	}, nil
}

// ID returns the property id.
func (p *Property) ID() string { return p.id }

// NodeID returns the id of the owning node.
func (p *Property) NodeID() string { return p.node.ID() }

// Name returns the friendly name.
func (p *Property) Name() string { return p.name }

// Datatype returns the property datatype.
func (p *Property) Datatype() Datatype { return p.datatype }

// Format returns the $format value, empty when unset.
func (p *Property) Format() string { return p.format }

// Unit returns the $unit value, empty when unset.
func (p *Property) Unit() string { return p.unit }

// Settable reports whether the property accepts set commands.
func (p *Property) Settable() bool { return p.settable }

// Retained reports whether values are published retained.
func (p *Property) Retained() bool { return p.retained }

// Topic returns the property value topic.
func (p *Property) Topic() string {
	return p.node.Topic() + "/" + p.id
}

// SetTopic returns the command topic for settable properties.
func (p *Property) SetTopic() string {
	return p.Topic() + "/set"
}

// Value returns the current value.
func (p *Property) Value() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// SetValue validates value, stores it and publishes it on the value topic.
//
// Returns:
//   - error: ErrInvalidValue if value does not fit the datatype
func (p *Property) SetValue(value string) error {
	if err := p.datatype.validate(value, p.format); err != nil {
		return err
	}

	p.mu.Lock()
	p.value = value
	p.mu.Unlock()

	p.publishValue(value, 1)
	return nil
}

func (p *Property) publishValue(value string, qos byte) {
	p.node.parent.Publish(p.Topic(), value, p.retained, qos)
}

// publishAttributes publishes the property metadata and its current value.
func (p *Property) publishAttributes(retain bool, qos byte) {
	publish := func(attr, payload string) {
		p.node.parent.Publish(p.Topic()+"/"+attr, payload, retain, qos)
	}

	publish("$name", p.name)
	publish("$datatype", string(p.datatype))
	if p.format != "" {
		publish("$format", p.format)
	}
	if p.settable {
		publish("$settable", "true")
	}
	if p.unit != "" {
		publish("$unit", p.unit)
	}
	if !p.retained {
		publish("$retained", "false")
	}

	if value := p.Value(); value != "" {
		p.publishValue(value, qos)
	}
}

// handleSet is the MessageHandler for the property's set topic.
func (p *Property) handleSet(_, payload string) {
	log := p.node.log()

	if err := p.datatype.validate(payload, p.format); err != nil {
		log.Warn("rejecting set command", "topic", p.SetTopic(), "error", err)
		return
	}

	if p.onSet != nil && !p.onSet(p, payload) {
		log.Info("set command refused by handler", "topic", p.SetTopic(), "value", payload)
		return
	}

	p.mu.Lock()
	p.value = payload
	p.mu.Unlock()

	p.publishValue(payload, 1)
}
