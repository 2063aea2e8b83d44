package supervisor

import "errors"

// Failure taxonomy. Everything except ErrConnectivityDegraded is fatal and
// maps to exit status 1; connectivity degradation is logged and launch
// proceeds on the worker's own retry handling.
var (
	ErrRuntimeMissing       = errors.New("runtime missing")
	ErrDependencyMissing    = errors.New("dependency missing")
	ErrConnectivityDegraded = errors.New("connectivity degraded")
	ErrInvalidInput         = errors.New("invalid operator input")
	ErrLaunchFailure        = errors.New("child launch failure")
	ErrLivenessTimeout      = errors.New("worker liveness check failed")

	// ErrAborted marks an operator-chosen abort at the stale-instance prompt.
	// It is a clean exit, not a fatal one.
	ErrAborted = errors.New("launch aborted by operator")
)
