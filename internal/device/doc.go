// Package device turns configured device declarations into running Homie
// devices and keeps them in a Registry.
//
// # Key Types
//
//   - Registry: the devices of the process in registration order, looked
//     up by the status API and finalised on shutdown
//   - BuildOptions: collaborators (logger, stats recorder, journal) shared
//     by every built device
//
// # Usage
//
//	registry := device.NewRegistry()
//	for _, dc := range cfg.Devices {
//	    dev, err := device.Build(rt, transport, cfg.Homie, dc, opts)
//	    if err != nil {
//	        return err
//	    }
//	    if err := registry.Register(dev); err != nil {
//	        return err
//	    }
//	}
//	defer registry.Close()
package device
