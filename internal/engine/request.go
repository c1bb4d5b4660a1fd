package engine

import "time"

// LineTap receives complete output lines while a script is running.
// stream is "stdout" or "stderr". Taps must be fast; they are called from
// the drain goroutines.
type LineTap func(stream, line string)

// Request describes a single script execution.
type Request struct {
	// ScriptName is the registry identifier (filename without extension).
	ScriptName string

	// EnvVars are extra environment variables applied on top of the parent
	// environment snapshot. On key collision the override wins. The parent
	// process environment is never mutated.
	EnvVars map[string]string

	// Args are appended to the interpreter command line after the script path.
	Args []string

	// Timeout overrides the engine's default wall-clock timeout.
	// Zero means "use the default"; negative disables the timeout.
	Timeout time.Duration

	// OutputTap, when set, receives output lines as they arrive.
	// Output is still captured fully in the result.
	OutputTap LineTap
}

// Result is the structured outcome of one execution.
//
// Success and ExitCode are the authoritative status fields: stderr content is
// diagnostic text, not a fault indicator.
type Result struct {
	ScriptName string

	// Success is true iff the process exited normally with code 0.
	Success bool

	// Stdout and Stderr hold the fully drained output streams, verbatim
	// (subject to the configured byte cap).
	Stdout string
	Stderr string

	// ExitCode is the process exit code. When the run timed out the process
	// was killed and no usable code exists; ExitCode is -1 and TimedOut is set.
	ExitCode int

	// TimedOut reports that the process group was killed at the deadline.
	TimedOut bool

	// Truncated reports that one of the streams hit the output byte cap.
	Truncated bool

	// Duration is the wall-clock time from spawn to collection.
	Duration time.Duration
}
