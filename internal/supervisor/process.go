package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// Spec describes one child program to spawn.
type Spec struct {
	Path   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// Proc is a spawned child owned by the supervisor.
type Proc interface {
	PID() int
	// Signal delivers sig to the child. Delivering to an exited child is not
	// an error worth surfacing; implementations may ignore it.
	Signal(sig os.Signal) error
	// Done is closed once the child has been reaped.
	Done() <-chan struct{}
	// ExitCode is valid only after Done is closed. -1 means killed by signal.
	ExitCode() int
	// Alive reports whether the child has not yet exited.
	Alive() bool
}

// Launcher spawns children. The supervisor state machine only talks to this
// interface so tests can count spawns without creating processes.
type Launcher interface {
	Start(ctx context.Context, spec Spec) (Proc, error)
}

type execProc struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
	code int
}

func (p *execProc) PID() int { return p.cmd.Process.Pid }

func (p *execProc) Signal(sig os.Signal) error {
	if !p.Alive() {
		return nil
	}
	return p.cmd.Process.Signal(sig)
}

func (p *execProc) Done() <-chan struct{} { return p.done }

func (p *execProc) ExitCode() int { return p.code }

func (p *execProc) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *execProc) reap() {
	err := p.cmd.Wait()
	p.once.Do(func() {
		if state := p.cmd.ProcessState; state != nil {
			p.code = state.ExitCode()
		} else if err != nil {
			p.code = -1
		}
		close(p.done)
	})
}

// ExecLauncher spawns real OS processes in their own process group so a
// terminal interrupt reaches the supervisor, not the children directly.
type ExecLauncher struct{}

// Start spawns the program described by spec and begins reaping it.
func (ExecLauncher) Start(ctx context.Context, spec Spec) (Proc, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrLaunchFailure, spec.Path, err)
	}
	p := &execProc{cmd: cmd, done: make(chan struct{})}
	go p.reap()
	return p, nil
}
