// Package pidfile provides a pid-file interlock to exclude multiple
// instances of an operational binary run from cron or a process
// supervisor.
//
// It does NOT wait for the lock holder to exit: waiting would allow a
// pileup of processes behind a slow or hung holder. All binaries are
// assumed to share one pid space (same container).
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned when the pid file exists and names a live
// process.
var ErrLocked = errors.New("pidfile: already locked")

// Lock is one held pid-file interlock.
type Lock struct {
	path string
}

// Acquire creates dir/name.pid atomically, writing the current pid.
// A stale file left by a dead process is removed and the create
// retried; a file naming a live process yields ErrLocked.
func Acquire(dir, name string) (*Lock, error) {
	path := filepath.Join(dir, name+".pid")

	for {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("pidfile: lock dir: %w", err)
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			if err := f.Close(); err != nil {
				os.Remove(path)
				return nil, fmt.Errorf("pidfile: write: %w", err)
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("pidfile: create: %w", err)
		}

		// lock file exists; validate its pid
		contents, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue // holder released between create and read
			}
			return nil, fmt.Errorf("pidfile: read: %w", err)
		}

		pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
		if err != nil {
			return nil, fmt.Errorf("pidfile: invalid contents %q in %s", contents, path)
		}

		if processAlive(pid) {
			return nil, fmt.Errorf("%w: pid %d holds %s", ErrLocked, pid, path)
		}

		// holder died without cleanup
		os.Remove(path)
	}
}

// Release removes the pid file. Safe to call on a nil or already
// released lock.
func (l *Lock) Release() {
	if l == nil || l.path == "" {
		return
	}
	os.Remove(l.path)
	l.path = ""
}

// Path returns the pid file location while held.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// processAlive probes pid with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but is not ours
	return errors.Is(err, syscall.EPERM)
}
