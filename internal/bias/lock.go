package bias

import (
	"fmt"
	"os"
	"path/filepath"
)

const lockFileName = "bias_rebuild.lock"

// fileLock is an exclusive, best-effort lock: the lock file is created with
// O_EXCL, so a second acquirer fails immediately instead of blocking. That is
// the behavior the rebuild wants — exit when another run holds the lock.
type fileLock struct {
	path string
}

// acquireLock creates the lock file in dir, writing the holder's pid.
// Returns domain.ErrBiasRebuildLocked semantics via ok=false when held.
func acquireLock(dir string) (*fileLock, bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create lock dir: %w", err)
	}

	path := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to create lock file: %w", err)
	}

	fmt.Fprintf(f, "%d", os.Getpid())
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, false, fmt.Errorf("failed to write lock file: %w", err)
	}

	return &fileLock{path: path}, true, nil
}

// release removes the lock file. Missing files are ignored so release is safe
// to call from deferred cleanup on any exit path.
func (l *fileLock) release() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}
