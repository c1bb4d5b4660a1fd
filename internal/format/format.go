// Package format normalizes engine and validator outcomes into the stable
// response schema shared by the HTTP API and the CLI.
package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-script-runner/internal/engine"
	"github.com/randomizedcoder/go-script-runner/internal/validator"
)

// ExecutionResponse is the documented execution schema.
//
// Output is captured stdout; Error is captured stderr. Stderr is diagnostic
// text, not necessarily a fault: Success and ExitCode are the authoritative
// status fields. ExitCode is null when the run was killed for timeout.
type ExecutionResponse struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error"`
	ExitCode   *int   `json:"exit_code"`
	ScriptName string `json:"script_name"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// ValidationResponse is the documented validation schema.
type ValidationResponse struct {
	Valid      bool   `json:"valid"`
	Error      string `json:"error,omitempty"`
	ScriptName string `json:"script_name"`
}

// ScriptListResponse is the documented listing schema.
type ScriptListResponse struct {
	Scripts []string `json:"scripts"`
}

// Execution converts an engine result into the response schema.
func Execution(res engine.Result) ExecutionResponse {
	resp := ExecutionResponse{
		Success:    res.Success,
		Output:     res.Stdout,
		Error:      res.Stderr,
		ScriptName: res.ScriptName,
		TimedOut:   res.TimedOut,
		Truncated:  res.Truncated,
		DurationMS: res.Duration.Milliseconds(),
	}
	if !res.TimedOut {
		code := res.ExitCode
		resp.ExitCode = &code
	}
	return resp
}

// Validation converts a validator result into the response schema.
func Validation(res validator.Result) ValidationResponse {
	return ValidationResponse{
		Valid:      res.Valid,
		Error:      res.Error,
		ScriptName: res.ScriptName,
	}
}

// JSON renders any response as indented JSON.
func JSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal response: %w", err)
	}
	return string(data), nil
}

var (
	okMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true).Render("✓")
	failMark = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true).Render("✗")
	heading  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Render
)

// ExecutionText renders a human-readable execution summary.
func ExecutionText(res engine.Result) string {
	var b strings.Builder

	switch {
	case res.TimedOut:
		fmt.Fprintf(&b, "%s Script %q timed out after %s\n", failMark, res.ScriptName, res.Duration.Round(10*time.Millisecond))
	case res.Success:
		fmt.Fprintf(&b, "%s Script %q executed successfully (%s)\n", okMark, res.ScriptName, res.Duration.Round(10*time.Millisecond))
	default:
		fmt.Fprintf(&b, "%s Script %q failed (exit code: %d)\n", failMark, res.ScriptName, res.ExitCode)
	}

	if res.Stdout != "" {
		fmt.Fprintf(&b, "\n%s\n%s", heading("--- Standard Output ---"), ensureNewline(res.Stdout))
	}
	if res.Stderr != "" {
		fmt.Fprintf(&b, "\n%s\n%s", heading("--- Standard Error ---"), ensureNewline(res.Stderr))
	}
	if res.Truncated {
		fmt.Fprintf(&b, "\n%s\n", heading("(output truncated)"))
	}

	return b.String()
}

// ValidationText renders a human-readable validation summary.
func ValidationText(res validator.Result) string {
	if res.Valid {
		return fmt.Sprintf("%s Script %q is valid\n", okMark, res.ScriptName)
	}
	return fmt.Sprintf("%s Script %q has errors:\n%s", failMark, res.ScriptName, ensureNewline(res.Error))
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
