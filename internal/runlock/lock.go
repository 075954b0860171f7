package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock serializes pipeline runs per pipeline id across processes. Two
// concurrent runs of the same pipeline would race on external resources
// and interleave run history, so callers must hold the lock for the
// duration of a run.
type Lock struct {
	flock *flock.Flock
}

// Acquire takes the run lock for a pipeline, failing fast when another
// run already holds it.
func Acquire(lockDir string, pipelineID int64) (*Lock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}
	path := filepath.Join(lockDir, fmt.Sprintf("pipeline-%d.lock", pipelineID))
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("pipeline %d is already running", pipelineID)
	}
	return &Lock{flock: fl}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	return l.flock.Unlock()
}
