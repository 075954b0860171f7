// Package pipeline implements the execution engine that feeds stream
// media through ordered step chains with per-item failure isolation.
package pipeline
