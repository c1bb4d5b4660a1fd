package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// View renders the follow view.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderOutput())

	switch {
	case m.fault != nil:
		sections = append(sections, m.renderFault())
	case m.result != nil:
		sections = append(sections, m.renderResult())
	default:
		sections = append(sections, m.renderFooter())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	status := statusWarning.Render("● running")
	if m.result != nil {
		if m.result.Success {
			status = statusOK.Render("● done")
		} else {
			status = statusError.Render("● failed")
		}
	} else if m.fault != nil {
		status = statusError.Render("● error")
	}

	title := titleStyle.Render(m.scriptName)
	meta := mutedStyle.Render(fmt.Sprintf("via %s", m.interpreter))

	elapsed := subtitleStyle.Render(formatDuration(m.Elapsed()))
	if m.timeout > 0 {
		elapsed += dimStyle.Render(fmt.Sprintf(" / %s", formatDuration(m.timeout)))
	}

	return fmt.Sprintf(" %s  %s  %s  %s", status, title, meta, elapsed)
}

// =============================================================================
// Output Tail
// =============================================================================

func (m Model) renderOutput() string {
	if len(m.lines) == 0 {
		return boxStyle.Width(contentWidth(m.width)).Render(dimStyle.Render("(no output yet)"))
	}

	rendered := make([]string, 0, len(m.lines))
	for _, line := range m.lines {
		text := truncateLine(line.text, contentWidth(m.width)-4)
		if line.stream == "stderr" {
			rendered = append(rendered, stderrStyle.Render(text))
		} else {
			rendered = append(rendered, stdoutStyle.Render(text))
		}
	}

	return boxStyle.Width(contentWidth(m.width)).Render(strings.Join(rendered, "\n"))
}

// =============================================================================
// Result / Fault / Footer
// =============================================================================

func (m Model) renderResult() string {
	res := m.result

	switch {
	case res.TimedOut:
		return statusError.Render(fmt.Sprintf(" ✗ timed out after %s", formatDuration(res.Duration)))
	case res.Success:
		return statusOK.Render(fmt.Sprintf(" ✓ exit 0 in %s", formatDuration(res.Duration)))
	default:
		return statusError.Render(fmt.Sprintf(" ✗ exit %d in %s", res.ExitCode, formatDuration(res.Duration)))
	}
}

func (m Model) renderFault() string {
	return statusError.Render(fmt.Sprintf(" ✗ %v", m.fault))
}

func (m Model) renderFooter() string {
	return dimStyle.Render(" q: abort")
}

// =============================================================================
// Helpers
// =============================================================================

// contentWidth clamps the rendered width to something sane.
func contentWidth(w int) int {
	if w < 40 {
		return 40
	}
	if w > 120 {
		return 120
	}
	return w
}

// truncateLine trims a line to fit the output box.
func truncateLine(s string, max int) string {
	if max < 10 {
		max = 10
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
