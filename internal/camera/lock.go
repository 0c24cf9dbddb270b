package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// lockPath returns the lock file guarding exclusive use of device.
func lockPath(device string) string {
	name := strings.Trim(strings.ReplaceAll(device, string(filepath.Separator), "_"), "_")
	if name == "" {
		name = "default"
	}
	return filepath.Join(os.TempDir(), "faceauth-"+name+".lock")
}

// acquireDeviceLock takes the per-device lock, retrying until timeout.
func acquireDeviceLock(device string, timeout time.Duration) (func(), error) {
	path := lockPath(device)
	l := flock.New(path)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("cannot acquire camera lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s (lock: %s)", ErrDeviceBusy, device, path)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
