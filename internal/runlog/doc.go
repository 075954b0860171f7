// Package runlog captures per-run pipeline logs and persists them with a
// terminal status once the run completes.
package runlog
