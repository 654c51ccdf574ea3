package cmd

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/surge-downloader/tubepanel/internal/config"
)

var (
	lockMu       sync.Mutex
	instanceLock *flock.Flock
)

func lockPath() string {
	return filepath.Join(config.GetRuntimeDir(), "tubepanel.lock")
}

// AcquireLock takes the single-instance lock guarding the local history
// and settings. It reports false when another process holds it.
func AcquireLock() (bool, error) {
	lockMu.Lock()
	defer lockMu.Unlock()

	if instanceLock != nil && instanceLock.Locked() {
		return true, nil
	}
	path := lockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil || !ok {
		return false, err
	}
	instanceLock = fl
	return true, nil
}

// ReleaseLock drops the lock taken by AcquireLock.
func ReleaseLock() error {
	lockMu.Lock()
	defer lockMu.Unlock()

	if instanceLock == nil {
		return nil
	}
	err := instanceLock.Unlock()
	instanceLock = nil
	return err
}
