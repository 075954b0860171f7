// Package runlock provides the per-pipeline file lock that serializes
// concurrent runs of a single pipeline.
package runlock
