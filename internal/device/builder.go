package device

import (
	"fmt"

	"github.com/nerrad567/homie-device/internal/homie"
	"github.com/nerrad567/homie-device/internal/homie/node"
	"github.com/nerrad567/homie-device/internal/infrastructure/config"
)

// BuildOptions carries the collaborators shared by every built device. All
// fields are optional.
type BuildOptions struct {
	Logger    homie.Logger
	Recorder  homie.StatsRecorder
	Journal   homie.Journal
	Broadcast homie.BroadcastHandler

	// OnSet is consulted for set commands on every settable property. It
	// returns false to reject the value.
	OnSet func(deviceID string, p *node.Property, value string) bool
}

// Settings converts the homie section of the configuration. Zero fields keep
// the homie defaults.
func Settings(hc config.HomieConfig) homie.Settings {
	return homie.Settings{
		Version:         hc.Version,
		Topic:           hc.Topic,
		FirmwareName:    hc.FirmwareName,
		FirmwareVersion: hc.FirmwareVersion,
		UpdateInterval:  hc.UpdateInterval,
		Implementation:  hc.Implementation,
	}
}

// Build creates a device with its nodes and properties from configuration.
// The device is not started.
//
// Parameters:
//   - rt: Runtime shared by the process's devices
//   - transport: Transport the device publishes through
//   - hc: Homie settings shared by all devices
//   - dc: The device declaration
//   - opts: Shared collaborators
//
// Returns:
//   - *homie.Device: Device with every configured node added
//   - error: If an extension, id, name or datatype is invalid
func Build(rt *homie.Runtime, transport homie.Transport, hc config.HomieConfig, dc config.DeviceConfig, opts BuildOptions) (*homie.Device, error) {
	var extensions []homie.Extension
	if dc.Extensions != nil {
		extensions = make([]homie.Extension, 0, len(dc.Extensions))
		for _, s := range dc.Extensions {
			ext, err := homie.ParseExtension(s)
			if err != nil {
				return nil, fmt.Errorf("device %s: %w", dc.ID, err)
			}
			extensions = append(extensions, ext)
		}
	}

	dev, err := homie.New(rt, transport, homie.Options{
		ID:               dc.ID,
		Name:             dc.Name,
		Settings:         Settings(hc),
		Extensions:       extensions,
		Logger:           opts.Logger,
		Recorder:         opts.Recorder,
		Journal:          opts.Journal,
		BroadcastHandler: opts.Broadcast,
	})
	if err != nil {
		return nil, err
	}

	for _, nc := range dc.Nodes {
		n, err := buildNode(dev, nc, opts)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", dev.ID(), err)
		}
		dev.AddNode(n)
	}

	return dev, nil
}

func buildNode(dev *homie.Device, nc config.NodeConfig, opts BuildOptions) (*node.Node, error) {
	n, err := node.New(dev, nc.ID, nc.Name, nc.Type)
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		n.SetLogger(opts.Logger)
	}

	for _, pc := range nc.Properties {
		cfg := node.PropertyConfig{
			ID:          pc.ID,
			Name:        pc.Name,
			Format:      pc.Format,
			Unit:        pc.Unit,
			Settable:    pc.Settable,
			NonRetained: !pc.IsRetained(),
			Value:       pc.Value,
		}
		if pc.Datatype != "" {
			if cfg.Datatype, err = node.ParseDatatype(pc.Datatype); err != nil {
				return nil, fmt.Errorf("node %s property %s: %w", nc.ID, pc.ID, err)
			}
		}
		if pc.Settable && opts.OnSet != nil {
			deviceID := dev.ID()
			cfg.OnSet = func(p *node.Property, value string) bool {
				return opts.OnSet(deviceID, p, value)
			}
		}

		if _, err := n.AddProperty(cfg); err != nil {
			return nil, fmt.Errorf("node %s: %w", nc.ID, err)
		}
	}

	return n, nil
}
