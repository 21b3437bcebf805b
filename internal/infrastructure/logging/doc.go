// Package logging provides structured logging for the sensor bridge.
//
// It wraps the standard log/slog package so every component logs with the
// same handler, level and default fields (service, version).
//
// # Configuration
//
//	"logging": {
//	  "level": "info",    // debug, info, warn, error
//	  "format": "json",   // json, text
//	  "output": "stdout"  // stdout, stderr
//	}
//
// Per-reading lines are logged at debug level, so production deployments
// at info only see connection lifecycle and errors.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	mqttLog := logger.With("component", "mqtt")
//	mqttLog.Info("connected", "broker", cfg.MQTT.URL)
//
// Never log broker passwords or device bind keys.
package logging
