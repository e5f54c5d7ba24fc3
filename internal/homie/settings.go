package homie

import "runtime"

// Version is the firmware version reported by default in $fw/version.
const Version = "0.1.0"

// Default values for Settings fields.
const (
	DefaultProtocolVersion = "4.0.0"
	DefaultTopicRoot       = "homie"
	DefaultFirmwareName    = "homied"
	DefaultUpdateInterval  = 60
)

// Settings holds the Homie-level options of a device.
//
// Zero-valued fields take their default when merged with WithDefaults, so a
// caller only sets the fields it wants to override.
type Settings struct {
	// Version is the Homie convention version published at $homie.
	// Default: "4.0.0"
	Version string

	// Topic is the root of the topic namespace.
	// Default: "homie"
	Topic string

	// FirmwareName is published at $fw/name by the firmware extension.
	// Default: "homied"
	FirmwareName string

	// FirmwareVersion is published at $fw/version by the firmware extension.
	// Default: Version
	FirmwareVersion string

	// UpdateInterval is the stats cadence in seconds, published at
	// $stats/interval. Values <= 0 take the default.
	// Default: 60
	UpdateInterval int

	// Implementation is the platform tag published at $implementation.
	// Default: runtime.GOOS
	Implementation string
}

// DefaultSettings returns Settings with every field at its default.
func DefaultSettings() Settings {
	return Settings{
		Version:         DefaultProtocolVersion,
		Topic:           DefaultTopicRoot,
		FirmwareName:    DefaultFirmwareName,
		FirmwareVersion: Version,
		UpdateInterval:  DefaultUpdateInterval,
		Implementation:  runtime.GOOS,
	}
}

// WithDefaults merges s over DefaultSettings field by field.
func (s Settings) WithDefaults() Settings {
	merged := DefaultSettings()

	if s.Version != "" {
		merged.Version = s.Version
	}
	if s.Topic != "" {
		merged.Topic = s.Topic
	}
	if s.FirmwareName != "" {
		merged.FirmwareName = s.FirmwareName
	}
	if s.FirmwareVersion != "" {
		merged.FirmwareVersion = s.FirmwareVersion
	}
	if s.UpdateInterval > 0 {
		merged.UpdateInterval = s.UpdateInterval
	}
	if s.Implementation != "" {
		merged.Implementation = s.Implementation
	}

	return merged
}
