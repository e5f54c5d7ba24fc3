// Package homie implements the device side of the Homie convention.
//
// A Device describes itself (name, nodes, extensions) and mirrors that
// description, together with its lifecycle state, into a retained MQTT topic
// tree rooted at <topic>/<device id>. Inbound non-retained messages on
// subscribed topics are routed back to the handlers registered by the device
// and its nodes.
//
// # Lifecycle
//
//	init → ready ↔ disconnected
//	sleeping, alert: assigned explicitly
//	lost: published by the broker from the last will
//
// On every connect edge reported by the transport the device runs, in order:
//  1. $homie, $name, $implementation and extension attributes, then $state=ready
//  2. $nodes and every node's attributes
//  3. subscriptions ($broadcast/# and every node subscription)
//  4. last-will registration ($state=lost), claimed once per shared connection
//
// # Collaborators
//
// The transport (Transport), nodes (Node) and the periodic scheduler are
// supplied by the caller. Process-wide state (instance counter, shared
// scheduler) lives in a Runtime passed to New, so tests can run isolated.
//
// # Usage
//
//	rt := homie.NewRuntime()
//	defer rt.Close()
//
//	dev, err := homie.New(rt, client, homie.Options{
//	    ID:         "kitchen-sensor",
//	    Name:       "Kitchen Sensor",
//	    Extensions: []homie.Extension{homie.ExtensionStats},
//	})
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	if err := dev.Start(); err != nil {
//	    return err
//	}
package homie
