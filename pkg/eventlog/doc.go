// Package eventlog provides structured connection logging for airctrl.
//
// This package defines the Logger interface and Event types for capturing
// connection-level events: request/response exchanges, observed status
// pushes, connection state changes and errors. It is separate from
// operational logging (slog) - event capture provides a complete
// machine-readable trace of the device connection for debugging and
// analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	opts.EventLogger = eventlog.NewSlogAdapter(slog.Default())
//
//	// For long-running capture: write to binary file
//	opts.EventLogger, _ = eventlog.NewFileLogger("purifier.alog")
//
// # File Format
//
// Log files use CBOR encoding with integer keys. Use Reader to iterate
// a captured file, optionally with a Filter.
package eventlog
