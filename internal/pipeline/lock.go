package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"demoreel/internal/services"
)

// LockName is the lock file created in the work directory.
const LockName = "demoreel.lock"

// ErrBusy reports that another run holds the work directory lock.
var ErrBusy = errors.New("another demoreel run is in progress")

type runLock struct {
	lock *flock.Flock
}

// acquireLock takes the work directory lock without blocking. Capture devices
// and the browser profile are single-user resources.
func acquireLock(workDir string) (*runLock, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "lock", "ensure work dir", workDir, err)
	}
	lock := flock.New(filepath.Join(workDir, LockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrTransient, "lock", "acquire", lock.Path(), ErrBusy)
	}
	return &runLock{lock: lock}, nil
}

func (l *runLock) release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
