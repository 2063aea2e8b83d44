package supervisor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// InstanceFinder locates and terminates stale worker processes left over from
// a previous run.
type InstanceFinder interface {
	// FindWorker returns the pid of a running worker matching the configured
	// command pattern, or 0 when none is found.
	FindWorker(pattern string) (int, error)
	// Terminate asks pid to exit gracefully.
	Terminate(pid int) error
	// Kill force-terminates pid.
	Kill(pid int) error
	// Alive reports whether pid still exists.
	Alive(pid int) bool
}

// ProcFS scans the /proc table for worker instances. There is no library for
// this in our stack; the walk is a readdir plus one cmdline read per entry.
type ProcFS struct{}

// FindWorker walks /proc for a cmdline containing pattern, skipping this process.
func (ProcFS) FindWorker(pattern string) (int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, fmt.Errorf("read process table: %w", err)
	}
	self := os.Getpid()
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}
		raw, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "cmdline"))
		if err != nil {
			continue
		}
		cmdline := string(bytes.ReplaceAll(raw, []byte{0}, []byte{' '}))
		if strings.Contains(cmdline, pattern) {
			return pid, nil
		}
	}
	return 0, nil
}

// Terminate sends SIGTERM.
func (ProcFS) Terminate(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

// Kill sends SIGKILL.
func (ProcFS) Kill(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}

// Alive probes pid with signal 0.
func (ProcFS) Alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// ReconcileExistingInstance detects a stale worker and resolves it through the
// operator: terminate-and-continue or abort. The terminate path confirms the
// old instance is gone before returning; a worker that survives the grace
// delay is a fatal condition.
func (s *Supervisor) ReconcileExistingInstance() error {
	pattern := filepath.Base(s.cfg.Supervisor.WorkerBin)
	pid, err := s.finder.FindWorker(pattern)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyMissing, err)
	}
	if pid == 0 {
		return nil
	}

	terminate, err := PromptStaleInstance(s.in, s.out, pid)
	if err != nil {
		return err
	}
	if !terminate {
		return ErrAborted
	}

	s.log.Info().Int("pid", pid).Msg("terminating stale worker")
	if err := s.finder.Terminate(pid); err != nil {
		return fmt.Errorf("%w: terminate pid %d: %v", ErrLaunchFailure, pid, err)
	}

	deadline := time.Now().Add(s.reconcileGrace)
	for time.Now().Before(deadline) {
		if !s.finder.Alive(pid) {
			s.log.Info().Int("pid", pid).Msg("stale worker gone")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	if s.finder.Alive(pid) {
		return fmt.Errorf("%w: stale worker pid %d still running after %s", ErrLaunchFailure, pid, s.reconcileGrace)
	}
	return nil
}
