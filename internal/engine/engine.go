// Package engine spawns scripts as isolated child processes and collects
// their outcome.
//
// Each Execute call resolves the script through the registry, builds a child
// environment snapshot, runs the interpreter in its own process group, drains
// stdout and stderr concurrently, and enforces the wall-clock timeout by
// killing the whole group. Concurrent calls share nothing but read-only
// configuration.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-script-runner/internal/registry"
)

var (
	// ErrMissingSecret indicates the required secret variable is absent from
	// the merged child environment. Reported before any process is spawned.
	ErrMissingSecret = errors.New("required environment variable not set")

	// ErrLaunchFailure indicates the runtime could not create the child
	// process. A fault of the engine host, not of the script.
	ErrLaunchFailure = errors.New("failed to launch script process")
)

// TimeoutExitCode is the CLI exit code for a timed-out execution,
// matching the conventional exit status of timeout(1).
const TimeoutExitCode = 124

// Config holds the read-only engine configuration.
type Config struct {
	// Interpreter is the binary that runs scripts (default "node").
	Interpreter string

	// DefaultTimeout applies when a request does not set its own.
	// Zero disables the default timeout.
	DefaultTimeout time.Duration

	// RequiredEnv names a secret that must be present in the child
	// environment (inherited or overridden). Empty disables the check.
	RequiredEnv string

	// MaxOutputBytes caps each captured stream. Zero means unlimited.
	MaxOutputBytes int
}

// DefaultConfig returns an engine Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interpreter:    "node",
		DefaultTimeout: 5 * time.Minute,
		RequiredEnv:    "AUTOMATION_API_KEY",
		MaxOutputBytes: 10 << 20, // 10 MiB per stream
	}
}

// Callbacks contains optional hooks for execution events.
type Callbacks struct {
	// OnStart is called after the child process has been spawned.
	OnStart func(scriptName string, pid int)

	// OnFinish is called with the collected result of every completed run,
	// including failures and timeouts.
	OnFinish func(res Result)

	// OnAbort is called when a started run is torn down without a result,
	// which happens only on context cancellation.
	OnAbort func(scriptName string)
}

// Engine executes scripts. It is safe for concurrent use: all state is
// read-only after construction and every run owns its own child process.
type Engine struct {
	registry  *registry.Registry
	config    Config
	logger    *slog.Logger
	callbacks Callbacks
}

// New creates an Engine over the given registry.
func New(reg *registry.Registry, cfg Config, logger *slog.Logger, callbacks Callbacks) *Engine {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "node"
	}
	return &Engine{
		registry:  reg,
		config:    cfg,
		logger:    logger,
		callbacks: callbacks,
	}
}

// Execute runs one script to completion and returns its structured result.
//
// The returned error is non-nil only for engine-level faults (unknown script,
// missing secret, launch failure, cancelled context). A script that exits
// non-zero or times out yields a Result with Success=false and a nil error.
func (e *Engine) Execute(ctx context.Context, req Request) (Result, error) {
	script, err := e.registry.Resolve(req.ScriptName)
	if err != nil {
		return Result{}, err
	}

	env := mergeEnv(os.Environ(), req.EnvVars)
	if e.config.RequiredEnv != "" && !envHas(env, e.config.RequiredEnv) {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingSecret, e.config.RequiredEnv)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = e.config.DefaultTimeout
	}

	args := append([]string{script.Path}, req.Args...)
	cmd := exec.Command(e.config.Interpreter, args...)
	cmd.Dir = e.registry.Dir()
	cmd.Env = env

	// Own process group so a timeout can terminate the whole tree,
	// including any helpers the script spawns.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("%w: stdout pipe: %v", ErrLaunchFailure, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("%w: stderr pipe: %v", ErrLaunchFailure, err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrLaunchFailure, err)
	}
	pid := cmd.Process.Pid

	e.logger.Info("script_started",
		"script", script.Name,
		"pid", pid,
		"args", len(req.Args),
		"timeout", timeout.String(),
	)
	if e.callbacks.OnStart != nil {
		e.callbacks.OnStart(script.Name, pid)
	}

	stdout := newCappedBuffer(e.config.MaxOutputBytes)
	stderr := newCappedBuffer(e.config.MaxOutputBytes)

	// Both streams must be drained concurrently with the wait: a child that
	// fills an undrained pipe buffer would block forever.
	var drainWg sync.WaitGroup
	drainWg.Add(2)
	go drain(&drainWg, stdoutPipe, stdout, "stdout", req.OutputTap)
	go drain(&drainWg, stderrPipe, stderr, "stderr", req.OutputTap)

	// Wait must not be called until both pipes hit EOF.
	waitDone := make(chan error, 1)
	go func() {
		drainWg.Wait()
		waitDone <- cmd.Wait()
	}()

	var timerC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	var waitErr error
	timedOut := false
	select {
	case waitErr = <-waitDone:
	case <-timerC:
		timedOut = true
		e.killGroup(script.Name, pid)
		waitErr = <-waitDone
	case <-ctx.Done():
		e.killGroup(script.Name, pid)
		<-waitDone
		if e.callbacks.OnAbort != nil {
			e.callbacks.OnAbort(script.Name)
		}
		return Result{}, ctx.Err()
	}

	res := Result{
		ScriptName: script.Name,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Truncated:  stdout.Truncated() || stderr.Truncated(),
		Duration:   time.Since(start),
	}

	if timedOut {
		res.TimedOut = true
		res.ExitCode = -1
		e.logger.Warn("script_timeout",
			"script", script.Name,
			"pid", pid,
			"timeout", timeout.String(),
		)
	} else {
		res.ExitCode = extractExitCode(waitErr)
		res.Success = res.ExitCode == 0
		e.logger.Info("script_exited",
			"script", script.Name,
			"pid", pid,
			"exit_code", res.ExitCode,
			"duration", res.Duration.String(),
		)
	}

	if e.callbacks.OnFinish != nil {
		e.callbacks.OnFinish(res)
	}

	return res, nil
}

// drain copies one stream into its buffer until EOF, optionally forwarding
// complete lines to the tap.
func drain(wg *sync.WaitGroup, r io.Reader, buf *cappedBuffer, stream string, tap LineTap) {
	defer wg.Done()

	if tap == nil {
		_, _ = io.Copy(buf, r)
		return
	}

	lw := newLineWriter(stream, tap)
	_, _ = io.Copy(io.MultiWriter(buf, lw), r)
	lw.Flush()
}

// killGroup force-terminates the whole process group. Falls back to killing
// the direct child when the group id cannot be determined.
func (e *Engine) killGroup(scriptName string, pid int) {
	if pgid, err := syscall.Getpgid(pid); err == nil {
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			e.logger.Error("process_group_kill_failed",
				"script", scriptName,
				"pgid", pgid,
				"error", err,
			)
		}
		return
	}
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		e.logger.Error("process_kill_failed",
			"script", scriptName,
			"pid", pid,
			"error", err,
		)
	}
}

// extractExitCode extracts the exit code from a Wait() error.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				// Signal exit: 128 + signal number
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
	}

	// Unknown error, assume exit code 1
	return 1
}
