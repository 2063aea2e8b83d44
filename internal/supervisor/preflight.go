package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Pinger probes the market data API for the preflight connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PreflightResult reports what the checks found. Warnings are non-fatal.
type PreflightResult struct {
	Warnings []string
}

const connectivityTimeout = 10 * time.Second

// Preflight verifies, in order: runtime presence (both child binaries exist
// and are executable), dependency presence (the data directory is writable),
// and connectivity to the market data API. The first two abort before any
// process is spawned; a connectivity failure is only a warning.
func (s *Supervisor) Preflight(ctx context.Context) (PreflightResult, error) {
	var result PreflightResult

	for _, bin := range []string{s.cfg.Supervisor.WorkerBin, s.cfg.Supervisor.DashboardBin} {
		if err := checkExecutable(bin); err != nil {
			return result, fmt.Errorf("%w: %v", ErrRuntimeMissing, err)
		}
	}
	s.log.Debug().Msg("runtime check passed")

	if err := checkWritableDir(s.cfg.Paths.DataDir); err != nil {
		return result, fmt.Errorf("%w: %v", ErrDependencyMissing, err)
	}
	s.log.Debug().Str("dir", s.cfg.Paths.DataDir).Msg("dependency check passed")

	pingCtx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()
	if err := s.pinger.Ping(pingCtx); err != nil {
		warning := fmt.Sprintf("market data API unreachable: %v", err)
		result.Warnings = append(result.Warnings, warning)
		s.log.Warn().Err(err).Msg("connectivity degraded, continuing; the worker retries on its own")
	} else {
		s.log.Debug().Msg("connectivity check passed")
	}

	return result, nil
}

func checkExecutable(path string) error {
	if path == "" {
		return fmt.Errorf("binary path not configured")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %v", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func checkWritableDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("data directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %v", dir, err)
	}
	probe := filepath.Join(dir, ".write-probe")
	file, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("%s not writable: %v", dir, err)
	}
	file.Close()
	os.Remove(probe)
	return nil
}
