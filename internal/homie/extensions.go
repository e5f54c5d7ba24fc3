package homie

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Extension names a supported Homie extension.
type Extension string

// Supported extensions.
const (
	ExtensionStats    Extension = "stats"
	ExtensionFirmware Extension = "firmware"
	ExtensionMeta     Extension = "meta"
)

// lastUpdateLayout formats $stats/lastupdate (day/month/year).
const lastUpdateLayout = "02/01/2006 15:04:05"

// DefaultExtensions returns the extensions a device declares when Options
// leaves Extensions nil.
func DefaultExtensions() []Extension {
	return []Extension{ExtensionStats, ExtensionFirmware, ExtensionMeta}
}

// Supported reports whether e is in the supported extension set.
func (e Extension) Supported() bool {
	switch e {
	case ExtensionStats, ExtensionFirmware, ExtensionMeta:
		return true
	default:
		return false
	}
}

// ParseExtension converts a configuration string to an Extension.
func ParseExtension(s string) (Extension, error) {
	e := Extension(strings.TrimSpace(s))
	if !e.Supported() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExtension, s)
	}
	return e, nil
}

// Extensions returns the extensions the device declares.
func (d *Device) Extensions() []Extension {
	out := make([]Extension, len(d.extensions))
	copy(out, d.extensions)
	return out
}

// hasExtension reports whether the device declares e.
func (d *Device) hasExtension(e Extension) bool {
	for _, ext := range d.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// PublishExtensions publishes $extensions followed by the attributes of
// each declared extension. $extensions is skipped when none are declared.
func (d *Device) PublishExtensions(retain bool, qos byte) {
	names := make([]string, len(d.extensions))
	for i, ext := range d.extensions {
		names[i] = string(ext)
	}

	if joined := strings.Join(names, ","); joined != "" {
		d.Publish(d.topics.Attribute(AttrExtensions), joined, retain, qos)
	}

	if d.hasExtension(ExtensionStats) {
		d.PublishStatistics(retain, qos)
	}

	if d.hasExtension(ExtensionFirmware) {
		d.PublishFirmware(retain, qos)
	}
}

// PublishStatistics publishes $stats/interval, $stats/uptime and
// $stats/lastupdate.
func (d *Device) PublishStatistics(retain bool, qos byte) {
	d.Publish(d.topics.Attribute(AttrStatsInterval), strconv.Itoa(d.settings.UpdateInterval), retain, qos)
	d.PublishUptimeWith(retain, qos)
}

// PublishUptime publishes $stats/uptime and $stats/lastupdate with the
// device defaults. It is the callback registered with the shared scheduler.
func (d *Device) PublishUptime() {
	d.PublishUptimeWith(d.retain, d.qos)
}

// PublishUptimeWith is PublishUptime with explicit retain and QoS parameters.
func (d *Device) PublishUptimeWith(retain bool, qos byte) {
	now := d.now()
	uptime := d.Uptime()

	d.Publish(d.topics.Attribute(AttrStatsUptime), strconv.FormatInt(int64(uptime/time.Second), 10), retain, qos)
	d.Publish(d.topics.Attribute(AttrStatsLastUpdate), now.Format(lastUpdateLayout), retain, qos)

	if d.recorder != nil {
		d.recorder.RecordUptime(d.id, uptime)
	}
}

// PublishFirmware publishes $localip, $mac, $fw/name, $fw/version and
// $implementation.
func (d *Device) PublishFirmware(retain bool, qos byte) {
	mac, ip, err := d.transport.NetworkIdentity()
	if err != nil {
		d.logger.Warn("network identity lookup failed", "device", d.id, "error", err)
	}

	d.Publish(d.topics.Attribute(AttrLocalIP), ip, retain, qos)
	d.Publish(d.topics.Attribute(AttrMAC), mac, retain, qos)
	d.Publish(d.topics.Attribute(AttrFirmwareName), d.settings.FirmwareName, retain, qos)
	d.Publish(d.topics.Attribute(AttrFirmwareVersion), d.settings.FirmwareVersion, retain, qos)
	d.Publish(d.topics.Attribute(AttrImplementation), d.settings.Implementation, retain, qos)
}
