// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Plugin subsystems obtain named loggers so every log line carries the
// subsystem (and, via fields, the plugin id) that produced it.
//
// Example Usage:
//
//	logger := logging.NewDefault().Named("lifecycle")
//	logger.Info("plugin activated", zap.String("plugin_id", id))
package logging
