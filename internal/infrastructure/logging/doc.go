// Package logging provides structured logging for the relay hub.
//
// It wraps Go's standard log/slog package so every component logs with the
// same fields (service, version) and the same level filter.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("device registered", "device_id", "042")
//	logger.Error("send failed", "error", err)
package logging
