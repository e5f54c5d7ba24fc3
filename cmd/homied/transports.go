package main

import (
	"fmt"

	"github.com/nerrad567/homie-device/internal/homie"
	"github.com/nerrad567/homie-device/internal/infrastructure/config"
	"github.com/nerrad567/homie-device/internal/infrastructure/logging"
	"github.com/nerrad567/homie-device/internal/infrastructure/mqtt"
)

// dialSpec describes one client the pool needs.
type dialSpec struct {
	Name      string
	ClientID  string // empty keeps the configured client id
	Shared    bool
	WillTopic string // empty leaves the will to the device
}

// dialFunc connects one MQTT client.
type dialFunc func(cfg config.MQTTConfig, spec dialSpec) (*mqtt.Client, error)

// dialMQTT connects through mqtt.Connect.
func dialMQTT(log *logging.Logger) dialFunc {
	return func(cfg config.MQTTConfig, spec dialSpec) (*mqtt.Client, error) {
		opts := []mqtt.Option{
			mqtt.WithLogger(log.Component("mqtt")),
			mqtt.WithShared(spec.Shared),
		}
		if spec.ClientID != "" {
			opts = append(opts, mqtt.WithClientID(spec.ClientID))
		}
		if spec.WillTopic != "" {
			opts = append(opts, mqtt.WithWill(spec.WillTopic, homie.StateLost.String(), true, 1))
		}
		return mqtt.Connect(cfg, opts...)
	}
}

// transportPool hands out MQTT clients to devices: one shared client when
// mqtt.shared is set, otherwise a dedicated client per device.
type transportPool struct {
	cfg  *config.Config
	log  *logging.Logger
	dial dialFunc

	shared  *mqtt.Client
	clients map[string]*mqtt.Client
	order   []string
}

func newTransportPool(cfg *config.Config, log *logging.Logger) *transportPool {
	return &transportPool{
		cfg:     cfg,
		log:     log,
		dial:    dialMQTT(log),
		clients: make(map[string]*mqtt.Client),
	}
}

// For returns the transport for the i-th configured device.
//
// The device's $state=lost will is set when the client is created, so the
// device's own SetWill finds it in place and needs no reconnect. Devices
// without a configured id get their will after connecting instead. A shared
// client carries the first device's will only.
func (p *transportPool) For(i int, dc config.DeviceConfig) (*mqtt.Client, error) {
	if p.cfg.MQTT.Shared && p.shared != nil {
		return p.shared, nil
	}

	spec := p.spec(i, dc)
	client, err := p.dial(p.cfg.MQTT, spec)
	if err != nil {
		return nil, fmt.Errorf("connecting MQTT client %s: %w", spec.Name, err)
	}
	p.log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", p.cfg.MQTT.Broker.Host, p.cfg.MQTT.Broker.Port),
		"client", spec.Name,
	)

	if p.cfg.MQTT.Shared {
		p.shared = client
	}
	p.clients[spec.Name] = client
	p.order = append(p.order, spec.Name)
	return client, nil
}

func (p *transportPool) spec(i int, dc config.DeviceConfig) dialSpec {
	spec := dialSpec{Name: "shared", Shared: p.cfg.MQTT.Shared}

	if !spec.Shared {
		spec.Name = dc.ID
		if spec.Name == "" {
			spec.Name = fmt.Sprintf("%d", i+1)
		}
		spec.ClientID = p.cfg.MQTT.Broker.ClientID + "-" + spec.Name
	}

	if dc.ID != "" {
		spec.WillTopic = homie.NewTopics(homieTopicRoot(p.cfg.Homie), dc.ID).State()
	}
	return spec
}

// Clients returns every connected client by name.
func (p *transportPool) Clients() map[string]*mqtt.Client {
	out := make(map[string]*mqtt.Client, len(p.clients))
	for name, c := range p.clients {
		out[name] = c
	}
	return out
}

// Close disconnects every client in reverse creation order.
func (p *transportPool) Close() {
	for i := len(p.order) - 1; i >= 0; i-- {
		name := p.order[i]
		p.log.Info("disconnecting from MQTT", "client", name)
		if err := p.clients[name].Close(); err != nil {
			p.log.Error("error closing MQTT", "client", name, "error", err)
		}
	}
	p.clients = make(map[string]*mqtt.Client)
	p.order = nil
	p.shared = nil
}

func homieTopicRoot(hc config.HomieConfig) string {
	return homie.Settings{Topic: hc.Topic}.WithDefaults().Topic
}
