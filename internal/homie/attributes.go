package homie

// PublishAttributes publishes the device attributes with the default
// retain and QoS parameters and marks the device ready.
//
// The order is fixed: $homie, $name, $implementation, the extension
// attributes, then $state=ready, so that consumers never see a ready device
// without its version and implementation. Calling it again republishes the
// same retained values.
func (d *Device) PublishAttributes() {
	d.PublishAttributesWith(d.retain, d.qos)
}

// PublishAttributesWith is PublishAttributes with explicit retain and QoS
// parameters. The final $state publication always uses the defaults.
func (d *Device) PublishAttributesWith(retain bool, qos byte) {
	d.Publish(d.topics.Attribute(AttrHomie), d.settings.Version, retain, qos)
	d.Publish(d.topics.Attribute(AttrName), d.name, retain, qos)
	d.Publish(d.topics.Attribute(AttrImplementation), d.settings.Implementation, retain, qos)

	d.PublishExtensions(retain, qos)

	//nolint:errcheck // StateReady is always valid
	d.SetState(StateReady)
}
