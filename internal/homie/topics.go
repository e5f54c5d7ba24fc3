package homie

import "strings"

// Device attribute names, relative to the device topic.
const (
	AttrState           = "$state"
	AttrHomie           = "$homie"
	AttrName            = "$name"
	AttrImplementation  = "$implementation"
	AttrExtensions      = "$extensions"
	AttrNodes           = "$nodes"
	AttrStatsInterval   = "$stats/interval"
	AttrStatsUptime     = "$stats/uptime"
	AttrStatsLastUpdate = "$stats/lastupdate"
	AttrLocalIP         = "$localip"
	AttrMAC             = "$mac"
	AttrFirmwareName    = "$fw/name"
	AttrFirmwareVersion = "$fw/version"
	AttrBroadcast       = "$broadcast"
)

// Topics builds the topics of one device.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := homie.NewTopics("homie", "kitchen-sensor")
//	topics.State()
//	// Returns: "homie/kitchen-sensor/$state"
type Topics struct {
	base string
}

// NewTopics returns the topic builder for deviceID under root.
func NewTopics(root, deviceID string) Topics {
	return Topics{base: root + "/" + deviceID}
}

// Device returns the device base topic.
//
// Example: homie/kitchen-sensor
func (t Topics) Device() string {
	return t.base
}

// Attribute joins segments under the device topic.
//
// Example: Attribute("temperature", "$name") → homie/kitchen-sensor/temperature/$name
func (t Topics) Attribute(segments ...string) string {
	if len(segments) == 0 {
		return t.base
	}
	return t.base + "/" + strings.Join(segments, "/")
}

// State returns the lifecycle state topic.
//
// Example: homie/kitchen-sensor/$state
func (t Topics) State() string {
	return t.Attribute(AttrState)
}

// Node returns the base topic of a child node.
//
// Example: homie/kitchen-sensor/temperature
func (t Topics) Node(nodeID string) string {
	return t.Attribute(nodeID)
}

// Broadcast returns the wildcard subscription for device broadcasts.
//
// Example: homie/kitchen-sensor/$broadcast/#
func (t Topics) Broadcast() string {
	return t.Attribute(AttrBroadcast, "#")
}

// broadcastLevel strips the broadcast prefix from an inbound topic.
func (t Topics) broadcastLevel(topic string) string {
	return strings.TrimPrefix(topic, t.Attribute(AttrBroadcast)+"/")
}

// matchTopic reports whether topic matches the MQTT subscription filter,
// honouring the + and # wildcards.
func matchTopic(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")

	for i, f := range fs {
		switch {
		case f == "#":
			return true
		case i >= len(ts):
			return false
		case f == "+":
			continue
		case f != ts[i]:
			return false
		}
	}
	return len(fs) == len(ts)
}

// isWildcard reports whether filter contains an MQTT wildcard.
func isWildcard(filter string) bool {
	return strings.ContainsAny(filter, "+#")
}
