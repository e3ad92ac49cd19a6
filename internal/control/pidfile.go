// Package control handles single-instance daemon process control: a
// PID file guarded by an advisory flock, so "status" and "stop" can
// tell a live daemon from a stale file after a crash.
package control

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
)

const pidFileName = "jobhunterd.pid"

// PidFile is an acquired single-instance lock. Release on shutdown.
type PidFile struct {
	path string
	lock *flock.Flock
}

// Acquire takes the daemon lock and writes our PID. It fails when
// another live daemon holds the lock; a stale file from a crashed
// process is silently replaced.
func Acquire(dataDir string) (*PidFile, error) {
	path := filepath.Join(dataDir, pidFileName)
	lock := flock.New(path + ".lock")

	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("pid lock: %w", err)
	}
	if !ok {
		pid, _ := readPid(path)
		return nil, fmt.Errorf("another instance is running (pid %d)", pid)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &PidFile{path: path, lock: lock}, nil
}

func (p *PidFile) Release() {
	_ = os.Remove(p.path)
	_ = p.lock.Unlock()
	_ = os.Remove(p.path + ".lock")
}

// Status reports whether a daemon is alive for this data dir, and its
// PID when it is. Liveness comes from the flock, not from the file.
func Status(dataDir string) (running bool, pid int, err error) {
	path := filepath.Join(dataDir, pidFileName)
	lock := flock.New(path + ".lock")

	ok, err := lock.TryLock()
	if err != nil {
		return false, 0, fmt.Errorf("pid lock probe: %w", err)
	}
	if ok {
		// nobody holds it; anything in the pid file is stale
		_ = lock.Unlock()
		return false, 0, nil
	}
	pid, err = readPid(path)
	if err != nil {
		return true, 0, nil
	}
	return true, pid, nil
}

// Stop signals the running daemon with SIGTERM.
func Stop(dataDir string) error {
	running, pid, err := Status(dataDir)
	if err != nil {
		return err
	}
	if !running {
		return fmt.Errorf("no running instance")
	}
	if pid <= 0 {
		return fmt.Errorf("daemon is running but pid is unknown")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}

func readPid(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}
