// Package lifecycle starts, stops, and reports managed background
// server processes, one per environment, using a persisted PID file as
// the source of truth. A PID file is only trusted after verifying the
// recorded process is still alive; a crash can leave a stale file
// pointing at a reused PID.
package lifecycle

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shillcock/pb-and-jelly/internal/config"
)

var (
	// ErrNotRunning means no PID file exists for the environment.
	ErrNotRunning = errors.New("not running")
	// ErrStaleHandle means a PID file exists but its process is dead.
	ErrStaleHandle = errors.New("stale pid file")
	// ErrStopTimeout means the graceful budget ran out and the forced
	// kill did not help either.
	ErrStopTimeout = errors.New("process did not exit")
)

// stopRetries bounds the graceful-stop poll loop; one poll per second.
const stopRetries = 10

// State classifies an environment for Status.
type State int

const (
	// Stopped: no live managed process and the port is free.
	Stopped State = iota
	// Running: a live managed process is recorded in the PID file.
	Running
	// PortBusy: nothing managed is recorded, but something else
	// listens on the environment's port.
	PortBusy
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case PortBusy:
		return "port busy"
	default:
		return "stopped"
	}
}

// Status is the answer to "what is environment E doing right now".
type Status struct {
	Env   config.Environment
	State State
	PID   int
	Addr  string
}

// StopOutcome reports what Stop actually did.
type StopOutcome int

const (
	// NotRunning: there was nothing to stop (no file, or a stale one).
	NotRunning StopOutcome = iota
	// StoppedGracefully: the process exited within the retry budget.
	StoppedGracefully
	// Killed: the process ignored the graceful signal and was killed.
	Killed
)

// LaunchSpec describes the process Start spawns.
type LaunchSpec struct {
	Binary string
	Args   []string
	Dir    string
}

// Handle represents one running server instance.
type Handle struct {
	Env config.Environment
	PID int
}

// Tracker manages the per-environment server processes described by cfg.
type Tracker struct {
	cfg *config.Config

	// stop-poll knobs, fixed except in tests
	retries      int
	pollInterval time.Duration
}

// New returns a Tracker over cfg.
func New(cfg *config.Config) *Tracker {
	return &Tracker{cfg: cfg, retries: stopRetries, pollInterval: time.Second}
}

// Start spawns the server for env detached from the caller's terminal,
// redirects its combined output to the environment log file, and records
// its PID. It does not wait for the server to become ready.
func (t *Tracker) Start(env config.Environment, spec LaunchSpec) (*Handle, error) {
	if st, err := t.Status(env); err == nil && st.State == Running {
		return nil, fmt.Errorf("%s already running (pid %d)", env, st.PID)
	}

	if err := os.MkdirAll(t.cfg.EnvDir(env), 0755); err != nil {
		return nil, fmt.Errorf("create env dir: %w", err)
	}

	logFile, err := os.OpenFile(t.cfg.LogFile(env), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(spec.Binary, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = detachAttrs()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", filepath.Base(spec.Binary), err)
	}
	pid := cmd.Process.Pid

	// Let the child run on after we exit.
	if err := cmd.Process.Release(); err != nil {
		log.Warn("Failed to release process handle", "env", env, "pid", pid, "error", err)
	}

	if err := writePIDFile(t.cfg.PIDFile(env), pid); err != nil {
		return nil, err
	}
	log.Debug("Started server", "env", env, "pid", pid, "log", t.cfg.LogFile(env))

	return &Handle{Env: env, PID: pid}, nil
}

// Stop reads the PID file for env and terminates the recorded process:
// a graceful signal first, polling at one-second intervals up to the
// retry budget, then a forced kill. An absent file or a dead recorded
// process is a successful no-op; the PID file is always removed on
// success.
func (t *Tracker) Stop(env config.Environment) (StopOutcome, error) {
	pidPath := t.cfg.PIDFile(env)

	pid, err := readPIDFile(pidPath)
	if errors.Is(err, ErrNotRunning) {
		return NotRunning, nil
	}
	if errors.Is(err, ErrStaleHandle) {
		log.Debug("Removing unreadable pid file", "env", env, "path", pidPath)
		return NotRunning, removePIDFile(pidPath)
	}
	if err != nil {
		return NotRunning, err
	}

	if !alive(pid) {
		log.Debug("Removing stale pid file", "env", env, "pid", pid)
		return NotRunning, removePIDFile(pidPath)
	}

	log.Debug("Sending graceful termination", "env", env, "pid", pid)
	if err := terminate(pid); err != nil {
		if !alive(pid) {
			// Exited between the liveness check and the signal.
			return StoppedGracefully, removePIDFile(pidPath)
		}
		return NotRunning, fmt.Errorf("signal pid %d: %w", pid, err)
	}

	for i := 0; i < t.retries; i++ {
		time.Sleep(t.pollInterval)
		if !alive(pid) {
			return StoppedGracefully, removePIDFile(pidPath)
		}
		log.Debug("Waiting for exit", "env", env, "pid", pid, "attempt", i+1)
	}

	log.Warn("Graceful stop timed out, killing", "env", env, "pid", pid)
	if err := kill(pid); err != nil {
		return NotRunning, fmt.Errorf("kill pid %d: %w", pid, err)
	}
	time.Sleep(100 * time.Millisecond)
	if alive(pid) {
		return NotRunning, fmt.Errorf("pid %d: %w", pid, ErrStopTimeout)
	}
	return Killed, removePIDFile(pidPath)
}

// Status reports whether env has a live managed process, an unmanaged
// listener on its port, or nothing. Stale PID files found along the way
// are removed. The port probe is best-effort and racy by nature; a
// process may start or exit between the check and the next action.
func (t *Tracker) Status(env config.Environment) (Status, error) {
	st := Status{Env: env, State: Stopped, Addr: t.cfg.Addr(env)}

	pid, err := readPIDFile(t.cfg.PIDFile(env))
	switch {
	case err == nil && alive(pid):
		st.State = Running
		st.PID = pid
		return st, nil
	case err == nil || errors.Is(err, ErrStaleHandle):
		if rmErr := removePIDFile(t.cfg.PIDFile(env)); rmErr != nil {
			return st, rmErr
		}
	case !errors.Is(err, ErrNotRunning):
		return st, err
	}

	if portInUse(t.cfg.Addr(env)) {
		st.State = PortBusy
	}
	return st, nil
}

// portInUse reports whether something accepts TCP connections on addr.
func portInUse(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
