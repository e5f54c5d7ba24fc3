// Package influxdb records device statistics in InfluxDB v2.
//
// Client implements homie.StatsRecorder: every $stats/uptime publication
// also writes a point to the homie_device_stats measurement, tagged with
// device_id and carrying an uptime_seconds field.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	dev, err := homie.New(rt, transport, homie.Options{Name: "Kitchen", Recorder: client})
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval), so write
// failures arrive asynchronously through SetOnError. Connect and HealthCheck
// return errors directly.
package influxdb
