// Package node provides the standard Homie node and property
// implementation for homie.Device.
//
// A Node publishes its own attributes ($name, $type, $properties) and those
// of each property through its parent device, and declares a "set"
// subscription for every settable property.
//
// # Usage
//
//	n, err := node.New(device, "light", "Light", "dimmer")
//	if err != nil {
//	    return err
//	}
//	_, err = n.AddProperty(node.PropertyConfig{
//	    ID:       "brightness",
//	    Name:     "Brightness",
//	    Datatype: node.DatatypeInteger,
//	    Format:   "0:100",
//	    Unit:     "%",
//	    Settable: true,
//	})
//	device.AddNode(n)
//
// # Set Commands
//
// A message on <device>/<node>/<property>/set is validated against the
// property datatype, passed to the property's OnSet handler and, when
// accepted, stored and echoed on the property value topic.
package node
