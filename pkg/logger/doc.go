// Package logger builds configured slog.Logger instances: JSON output for
// production aggregation or text for development, with a service attribute
// stamped on every record.
package logger
