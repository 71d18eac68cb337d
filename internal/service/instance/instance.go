// Package instance keeps a single daemon per host. The alarm outputs are
// host-wide, so two daemons would ring twice for the same dose.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/med-alarm/internal/config"
)

// ErrAlreadyRunning is returned by Acquire when a live daemon owns the lock file.
var ErrAlreadyRunning = errors.New("another daemon is already running")

// Lock is a held pid file.
type Lock struct {
	path string
}

// Acquire writes the current pid to path. A pid file left by a process that
// is gone, or that now belongs to a different executable, is taken over.
func Acquire(path string) (*Lock, error) {
	path = filepath.Clean(path)

	running, err := ownerAlive(path)
	if err != nil {
		return nil, err
	}

	if running != 0 {
		return nil, fmt.Errorf("%w: pid %d", ErrAlreadyRunning, running)
	}

	pid := strconv.Itoa(os.Getpid())
	if err = os.WriteFile(path, []byte(pid+"\n"), config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}

	return &Lock{path: path}, nil
}

// Release removes the pid file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file: %w", err)
	}

	return nil
}

// ownerAlive returns the pid recorded in path when that process still runs
// the same executable as this one, or 0.
func ownerAlive(path string) (int, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}

		return 0, fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid == os.Getpid() {
		return 0, nil //nolint:nilerr // A malformed pid file is stale.
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("find process %d: %w", pid, err)
	}

	if process == nil {
		return 0, nil
	}

	self, err := ps.FindProcess(os.Getpid())
	if err != nil || self == nil {
		return 0, fmt.Errorf("find current process: %w", err)
	}

	if process.Executable() != self.Executable() {
		return 0, nil
	}

	return pid, nil
}
