package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	// MeasurementDeviceStats holds the periodic $stats samples of devices.
	MeasurementDeviceStats = "homie_device_stats"

	tagDeviceID        = "device_id"
	fieldUptimeSeconds = "uptime_seconds"
)

// RecordUptime writes an uptime_seconds sample for the device. It is called
// alongside every $stats/uptime publication.
func (c *Client) RecordUptime(deviceID string, uptime time.Duration) {
	c.WritePoint(MeasurementDeviceStats,
		map[string]string{tagDeviceID: deviceID},
		map[string]interface{}{fieldUptimeSeconds: int64(uptime / time.Second)},
	)
}

// WritePoint queues a point stamped with the current time. Points written
// after Close are dropped.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, c.now())
}

// WritePointWithTime queues a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
