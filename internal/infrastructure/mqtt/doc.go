// Package mqtt provides the MQTT transport for Homie devices.
//
// Client implements homie.Transport on top of paho.mqtt.golang:
//   - Connection to the broker with auto-reconnect
//   - Non-blocking, order-preserving publishing
//   - Subscription tracking and restoration on reconnect
//   - Last will management, including rebuilding a live connection
//   - Fan-out of connection and message events to homie.Listener values
//   - Network identity (local IP and MAC) for the firmware extension
//
// # Shared and Dedicated Clients
//
// One client may serve several devices (WithShared(true)). The broker keeps
// a single will per connection, so only the first device's $state=lost is
// registered. Passing that will with WithWill at Connect avoids a reconnect
// when the device claims it.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT,
//	    mqtt.WithWill("homie/kitchen-sensor/$state", "lost", true, 1),
//	    mqtt.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	device, err := homie.New(rt, client, homie.Options{ID: "kitchen-sensor", Name: "Kitchen"})
//
// # Security Considerations
//
//   - Enable TLS for brokers outside the local host (cfg.Broker.TLS=true)
//   - Credentials are validated against the broker ACL
package mqtt
