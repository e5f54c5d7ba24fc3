// Package scheduler runs callbacks on a fixed period.
//
// A Repeating timer owns one goroutine and a ticker. Callbacks are appended
// with AddCallback and are never removed; every tick runs them in
// registration order. Homie devices use it to republish $stats/uptime.
//
// # Usage
//
//	timer := scheduler.NewRepeating(time.Minute, logger)
//	defer timer.Stop()
//	timer.AddCallback(dev.PublishUptime)
package scheduler
