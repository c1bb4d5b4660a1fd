package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/randomizedcoder/go-script-runner/internal/logging"
	"github.com/randomizedcoder/go-script-runner/internal/registry"
)

// Engine tests run real child processes. Scripts are plain sh files so the
// tests do not depend on a JavaScript interpreter being installed.

func newTestEngine(t *testing.T, dir string, cfg Config) *Engine {
	t.Helper()
	if cfg.Interpreter == "" {
		cfg.Interpreter = "sh"
	}
	reg := registry.New(dir, ".sh")
	logger := logging.NewLoggerWithWriter(os.Stderr, "text", "error")
	return New(reg, cfg, logger, Callbacks{})
}

func writeScript(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".sh"), []byte(content), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func TestExecute_Success(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "hello", `echo "token-12345"`)

	e := newTestEngine(t, dir, Config{})
	res, err := e.Execute(context.Background(), Request{ScriptName: "hello"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if !res.Success {
		t.Error("expected success")
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "token-12345") {
		t.Errorf("Stdout = %q, want the token", res.Stdout)
	}
	if res.ScriptName != "hello" {
		t.Errorf("ScriptName = %q", res.ScriptName)
	}
	if res.TimedOut {
		t.Error("TimedOut should be false")
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "fail", "echo diag >&2\nexit 3\n")

	e := newTestEngine(t, dir, Config{})
	res, err := e.Execute(context.Background(), Request{ScriptName: "fail"})
	if err != nil {
		t.Fatalf("non-zero exit must not be an engine error, got %v", err)
	}

	if res.Success {
		t.Error("expected failure")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "diag") {
		t.Errorf("Stderr = %q, want diagnostic text preserved", res.Stderr)
	}
}

func TestExecute_ScriptNotFound(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), Config{})
	_, err := e.Execute(context.Background(), Request{ScriptName: "ghost"})
	if !errors.Is(err, registry.ErrScriptNotFound) {
		t.Errorf("expected ErrScriptNotFound, got %v", err)
	}
}

func TestExecute_EnvOverrideWins(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "echoenv", `echo "value=${RUNNER_TEST_VAR}"`)

	// Parent defines a conflicting value; the request override must win.
	t.Setenv("RUNNER_TEST_VAR", "parent-value")

	e := newTestEngine(t, dir, Config{})
	res, err := e.Execute(context.Background(), Request{
		ScriptName: "echoenv",
		EnvVars:    map[string]string{"RUNNER_TEST_VAR": "override-value"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(res.Stdout, "value=override-value") {
		t.Errorf("Stdout = %q, want the override value", res.Stdout)
	}
	if strings.Contains(res.Stdout, "parent-value") {
		t.Error("parent value leaked into the child")
	}

	// The parent environment must be untouched.
	if got := os.Getenv("RUNNER_TEST_VAR"); got != "parent-value" {
		t.Errorf("parent env mutated: %q", got)
	}
}

func TestExecute_ParentEnvInherited(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "inherit", `echo "inherited=${RUNNER_INHERITED}"`)

	t.Setenv("RUNNER_INHERITED", "from-parent")

	e := newTestEngine(t, dir, Config{})
	res, err := e.Execute(context.Background(), Request{ScriptName: "inherit"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Stdout, "inherited=from-parent") {
		t.Errorf("Stdout = %q, want inherited parent value", res.Stdout)
	}
}

func TestExecute_Args(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "args", `echo "argc=$# first=$1 second=$2"`)

	e := newTestEngine(t, dir, Config{})
	res, err := e.Execute(context.Background(), Request{
		ScriptName: "args",
		Args:       []string{"--verbose", "out.txt"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Stdout, "argc=2 first=--verbose second=out.txt") {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}

func TestExecute_MissingSecret(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "needskey", "echo should-not-run\n")

	e := newTestEngine(t, dir, Config{RequiredEnv: "RUNNER_TEST_SECRET_ABSENT"})
	_, err := e.Execute(context.Background(), Request{ScriptName: "needskey"})
	if !errors.Is(err, ErrMissingSecret) {
		t.Errorf("expected ErrMissingSecret, got %v", err)
	}
}

func TestExecute_SecretViaOverride(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "needskey", `echo "key=${RUNNER_TEST_SECRET}"`)

	e := newTestEngine(t, dir, Config{RequiredEnv: "RUNNER_TEST_SECRET"})
	res, err := e.Execute(context.Background(), Request{
		ScriptName: "needskey",
		EnvVars:    map[string]string{"RUNNER_TEST_SECRET": "sk-test"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Stdout, "key=sk-test") {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}

func TestExecute_Timeout(t *testing.T) {
	dir := t.TempDir()
	// The script spawns a grandchild so group termination is exercised.
	writeScript(t, dir, "sleepy", `
sleep 30 &
echo $! > "$GRANDCHILD_PID_FILE"
wait
`)

	pidFile := filepath.Join(dir, "grandchild.pid")

	e := newTestEngine(t, dir, Config{})
	startedAt := time.Now()
	res, err := e.Execute(context.Background(), Request{
		ScriptName: "sleepy",
		EnvVars:    map[string]string{"GRANDCHILD_PID_FILE": pidFile},
		Timeout:    300 * time.Millisecond,
	})
	elapsed := time.Since(startedAt)
	if err != nil {
		t.Fatalf("timeout must not be an engine error, got %v", err)
	}

	if !res.TimedOut {
		t.Fatal("expected TimedOut")
	}
	if res.Success {
		t.Error("timed-out run must not be a success")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1 sentinel", res.ExitCode)
	}
	if elapsed > 3*time.Second {
		t.Errorf("Execute took %s, want timeout plus bounded teardown", elapsed)
	}

	// The whole process group, grandchild included, must be gone.
	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("grandchild pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("parse grandchild pid: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := syscall.Kill(pid, 0)
		if errors.Is(err, syscall.ESRCH) {
			break // reaped
		}
		if time.Now().After(deadline) {
			t.Fatalf("grandchild %d still running after timeout kill", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestExecute_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "sleepy", "sleep 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	e := newTestEngine(t, dir, Config{})
	_, err := e.Execute(ctx, Request{ScriptName: "sleepy"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExecute_LaunchFailure(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "any", "echo hi\n")

	e := newTestEngine(t, dir, Config{Interpreter: "/nonexistent/interpreter"})
	_, err := e.Execute(context.Background(), Request{ScriptName: "any"})
	if !errors.Is(err, ErrLaunchFailure) {
		t.Errorf("expected ErrLaunchFailure, got %v", err)
	}
}

func TestExecute_ConcurrentIsolation(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "echoenv", `sleep 0.1; echo "seen=${ISOLATION_VAR}"`)

	e := newTestEngine(t, dir, Config{})

	const workers = 8
	results := make([]Result, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Execute(context.Background(), Request{
				ScriptName: "echoenv",
				EnvVars:    map[string]string{"ISOLATION_VAR": fmt.Sprintf("worker-%d", i)},
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		want := fmt.Sprintf("seen=worker-%d", i)
		if !strings.Contains(results[i].Stdout, want) {
			t.Errorf("worker %d observed %q, want %q", i, results[i].Stdout, want)
		}
	}
}

func TestExecute_OutputCap(t *testing.T) {
	dir := t.TempDir()
	// ~100 KiB of output against a 1 KiB cap. The child must still exit
	// cleanly, proving the stream keeps being drained after the cap.
	writeScript(t, dir, "noisy", `i=0; while [ $i -lt 1000 ]; do echo "0123456789012345678901234567890123456789012345678901234567890123456789012345678901234567890123456789"; i=$((i+1)); done`)

	e := newTestEngine(t, dir, Config{MaxOutputBytes: 1024})
	res, err := e.Execute(context.Background(), Request{ScriptName: "noisy"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Errorf("capped run should still succeed, exit=%d", res.ExitCode)
	}
	if !res.Truncated {
		t.Error("expected Truncated")
	}
	if len(res.Stdout) > 1024 {
		t.Errorf("Stdout length %d exceeds cap", len(res.Stdout))
	}
}

func TestExecute_OutputTap(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "lines", "echo one\necho two >&2\nprintf three\n")

	var mu sync.Mutex
	var got []string

	e := newTestEngine(t, dir, Config{})
	res, err := e.Execute(context.Background(), Request{
		ScriptName: "lines",
		OutputTap: func(stream, line string) {
			mu.Lock()
			got = append(got, stream+":"+line)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("exit=%d stderr=%q", res.ExitCode, res.Stderr)
	}

	mu.Lock()
	defer mu.Unlock()
	want := map[string]bool{"stdout:one": false, "stderr:two": false, "stdout:three": false}
	for _, line := range got {
		if _, ok := want[line]; ok {
			want[line] = true
		}
	}
	for line, seen := range want {
		if !seen {
			t.Errorf("tap missed %q (got %v)", line, got)
		}
	}

	// The tap must not affect captured output.
	if !strings.Contains(res.Stdout, "one") || !strings.Contains(res.Stdout, "three") {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}

func TestExecute_Callbacks(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "cb", "exit 2\n")

	var startedPid int
	var finished *Result

	reg := registry.New(dir, ".sh")
	logger := logging.NewLoggerWithWriter(os.Stderr, "text", "error")
	e := New(reg, Config{Interpreter: "sh"}, logger, Callbacks{
		OnStart:  func(name string, pid int) { startedPid = pid },
		OnFinish: func(res Result) { finished = &res },
	})

	res, err := e.Execute(context.Background(), Request{ScriptName: "cb"})
	if err != nil {
		t.Fatal(err)
	}
	if startedPid == 0 {
		t.Error("OnStart not called")
	}
	if finished == nil {
		t.Fatal("OnFinish not called")
	}
	if finished.ExitCode != res.ExitCode {
		t.Errorf("OnFinish got exit %d, result has %d", finished.ExitCode, res.ExitCode)
	}
}

func TestMergeEnv(t *testing.T) {
	parent := []string{"A=1", "B=2", "PATH=/bin"}

	env := mergeEnv(parent, map[string]string{"B": "override", "C": "3"})

	has := func(kv string) bool {
		for _, e := range env {
			if e == kv {
				return true
			}
		}
		return false
	}

	if !has("A=1") || !has("PATH=/bin") {
		t.Errorf("inherited entries missing: %v", env)
	}
	if !has("B=override") {
		t.Errorf("override not applied: %v", env)
	}
	if has("B=2") {
		t.Errorf("stale parent entry survived: %v", env)
	}
	if !has("C=3") {
		t.Errorf("new entry missing: %v", env)
	}

	// Parent slice untouched.
	if parent[1] != "B=2" {
		t.Error("parent slice mutated")
	}
}

func TestExtractExitCode(t *testing.T) {
	if got := extractExitCode(nil); got != 0 {
		t.Errorf("nil error: got %d, want 0", got)
	}
	if got := extractExitCode(errors.New("boom")); got != 1 {
		t.Errorf("unknown error: got %d, want 1", got)
	}
}
