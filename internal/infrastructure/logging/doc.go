// Package logging provides structured logging for homied.
//
// It wraps log/slog with JSON or text output, level filtering and the
// default fields service=homied and version on every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, homie.Version)
//	rt.SetLogger(logger.Component("scheduler"))
//	logger.Info("device started", "device", d.ID())
//
// Never log broker passwords or InfluxDB tokens.
package logging
