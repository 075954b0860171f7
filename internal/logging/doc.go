// Package logging provides the slog-based logging stack: console and JSON
// handlers, standardized field keys, and the tee handler used to capture
// per-run pipeline logs.
package logging
