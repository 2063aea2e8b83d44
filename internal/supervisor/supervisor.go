// Package supervisor owns the lifecycle of the worker and dashboard processes
// for one invocation: preflight checks, stale-instance reconciliation, launch
// in an operator-selected mode, and idempotent teardown.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/CBoon99/spiralbot-v2/internal/config"
)

// Mode selects which children a run launches. Chosen once per invocation.
type Mode int

const (
	ModeMonitorOnly Mode = iota + 1
	ModeWorkerOnly
	ModeBoth
)

func (m Mode) String() string {
	switch m {
	case ModeMonitorOnly:
		return "monitor-only"
	case ModeWorkerOnly:
		return "worker-only"
	case ModeBoth:
		return "both"
	default:
		return "unknown"
	}
}

// State tracks the dual-process lifecycle. Terminated is terminal.
type State int

const (
	StateIdle State = iota
	StateWorkerStarting
	StateWorkerLive
	StateMonitorRunning
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWorkerStarting:
		return "worker-starting"
	case StateWorkerLive:
		return "worker-live"
	case StateMonitorRunning:
		return "monitor-running"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Supervisor coordinates zero, one, or two children for one run.
type Supervisor struct {
	cfg      *config.Config
	log      zerolog.Logger
	launcher Launcher
	pinger   Pinger
	finder   InstanceFinder
	in       io.Reader
	out      io.Writer
	debug    bool

	settle         time.Duration
	grace          time.Duration
	reconcileGrace time.Duration

	mu       sync.Mutex
	state    State
	worker   Proc
	monitor  Proc
	teardown sync.Once
}

// Option configures Supervisor construction.
type Option func(*Supervisor)

// WithLauncher swaps the process launcher (tests).
func WithLauncher(l Launcher) Option { return func(s *Supervisor) { s.launcher = l } }

// WithFinder swaps the stale-instance finder (tests).
func WithFinder(f InstanceFinder) Option { return func(s *Supervisor) { s.finder = f } }

// WithPrompt redirects the interactive prompt streams.
func WithPrompt(in io.Reader, out io.Writer) Option {
	return func(s *Supervisor) { s.in, s.out = in, out }
}

// WithDebug passes --debug through to the children.
func WithDebug(debug bool) Option { return func(s *Supervisor) { s.debug = debug } }

// New builds a supervisor around the config and a connectivity pinger.
func New(cfg *config.Config, pinger Pinger, log zerolog.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:            cfg,
		log:            log,
		launcher:       ExecLauncher{},
		pinger:         pinger,
		finder:         ProcFS{},
		in:             os.Stdin,
		out:            os.Stdout,
		settle:         secondsOr(cfg.Supervisor.SettleIntervalSecs, 3),
		grace:          secondsOr(cfg.Supervisor.GracePeriodSecs, 10),
		reconcileGrace: secondsOr(cfg.Supervisor.ReconcileGraceSecs, 2),
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func secondsOr(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(next State) {
	s.mu.Lock()
	if s.state != next {
		s.log.Debug().Str("from", s.state.String()).Str("to", next.String()).Msg("state transition")
		s.state = next
	}
	s.mu.Unlock()
}

func (s *Supervisor) workerSpec() Spec {
	args := []string{}
	if s.debug {
		args = append(args, "--debug")
	}
	return Spec{Path: s.cfg.Supervisor.WorkerBin, Args: args}
}

func (s *Supervisor) monitorSpec(foreground bool) Spec {
	spec := Spec{
		Path: s.cfg.Supervisor.DashboardBin,
		Args: []string{"--port", strconv.Itoa(s.cfg.Supervisor.DashboardPort)},
	}
	if foreground {
		spec.Stdout = os.Stdout
		spec.Stderr = os.Stderr
	}
	return spec
}

// Launch starts children per mode and blocks until the run is over. In every
// mode the supervisor exits only after its children are gone.
func (s *Supervisor) Launch(ctx context.Context, mode Mode) error {
	s.log.Info().Str("mode", mode.String()).Msg("launching")
	switch mode {
	case ModeMonitorOnly:
		return s.runForeground(ctx, s.monitorSpec(true), "dashboard", s.cfg.Paths.DashboardLog)
	case ModeWorkerOnly:
		spec := s.workerSpec()
		spec.Stdout, spec.Stderr = os.Stdout, os.Stderr
		return s.runForeground(ctx, spec, "worker", s.cfg.Paths.WorkerLog)
	case ModeBoth:
		return s.runBoth(ctx)
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidInput, mode)
	}
}

// runForeground runs a single child and blocks until it exits, forwarding
// operator interrupts with the usual grace escalation.
func (s *Supervisor) runForeground(ctx context.Context, spec Spec, name, logPath string) error {
	child, err := s.launcher.Start(ctx, spec)
	if err != nil {
		return err
	}
	s.log.Info().Int("pid", child.PID()).Str("child", name).Msg("started")

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	stopped := false
	select {
	case <-child.Done():
	case <-sigCh:
		s.log.Info().Str("child", name).Msg("interrupt received, stopping child")
		s.stopProc(child)
		stopped = true
	case <-ctx.Done():
		s.stopProc(child)
		stopped = true
	}
	s.setState(StateTerminated)

	// A signal death reports -1, which is still an abnormal exit unless the
	// stop was ours.
	if code := child.ExitCode(); code != 0 && !stopped {
		return fmt.Errorf("%w: %s exited with status %d (see %s)", ErrLaunchFailure, name, code, logPath)
	}
	return nil
}

// runBoth walks the dual-process lifecycle: worker detached, settle, liveness
// check, then the dashboard in the foreground. Interrupts and a monitor
// self-exit converge on the same teardown.
func (s *Supervisor) runBoth(ctx context.Context) error {
	s.setState(StateWorkerStarting)
	worker, err := s.launcher.Start(ctx, s.workerSpec())
	if err != nil {
		s.setState(StateTerminated)
		return err
	}
	s.mu.Lock()
	s.worker = worker
	s.mu.Unlock()
	s.log.Info().Int("pid", worker.PID()).Msg("worker started, settling")

	select {
	case <-time.After(s.settle):
	case <-ctx.Done():
		s.Shutdown()
		return ctx.Err()
	}

	if !worker.Alive() {
		s.setState(StateTerminated)
		return fmt.Errorf("%w: worker exited with status %d during settle (see %s)",
			ErrLivenessTimeout, worker.ExitCode(), s.cfg.Paths.WorkerLog)
	}
	s.setState(StateWorkerLive)

	monitor, err := s.launcher.Start(ctx, s.monitorSpec(true))
	if err != nil {
		s.Shutdown()
		return err
	}
	s.mu.Lock()
	s.monitor = monitor
	s.mu.Unlock()
	s.setState(StateMonitorRunning)
	s.log.Info().Int("pid", monitor.PID()).Int("port", s.cfg.Supervisor.DashboardPort).Msg("dashboard started")

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-monitor.Done():
		// The dashboard is the only control surface; a headless worker would
		// be unstoppable, so its exit tears the worker down too.
		s.log.Info().Msg("dashboard exited, tearing down worker")
	case <-sigCh:
		s.log.Info().Msg("interrupt received, shutting down")
	case <-ctx.Done():
	}
	s.Shutdown()
	return nil
}

// Shutdown requests graceful termination from both children, escalating to a
// forceful kill after the grace period. Runs exactly once per invocation no
// matter how many signals arrive.
func (s *Supervisor) Shutdown() {
	s.teardown.Do(func() {
		s.setState(StateShuttingDown)

		s.mu.Lock()
		children := []Proc{s.monitor, s.worker}
		s.mu.Unlock()

		for _, child := range children {
			if child != nil && child.Alive() {
				_ = child.Signal(syscall.SIGTERM)
			}
		}
		for _, child := range children {
			if child != nil {
				s.awaitExit(child)
			}
		}
		s.setState(StateTerminated)
		s.log.Info().Msg("teardown complete")
	})
}

// stopProc applies the TERM-grace-KILL sequence to one child.
func (s *Supervisor) stopProc(child Proc) {
	if child.Alive() {
		_ = child.Signal(syscall.SIGTERM)
	}
	s.awaitExit(child)
}

func (s *Supervisor) awaitExit(child Proc) {
	select {
	case <-child.Done():
		return
	case <-time.After(s.grace):
	}
	s.log.Warn().Int("pid", child.PID()).Msg("grace period expired, killing")
	_ = child.Signal(syscall.SIGKILL)
	<-child.Done()
}
