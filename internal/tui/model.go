package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-script-runner/internal/engine"
)

// tailLines is the number of recent output lines kept on screen.
const tailLines = 15

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the elapsed time display.
type TickMsg time.Time

// OutputLineMsg carries one line of child output.
type OutputLineMsg struct {
	Stream string // "stdout" or "stderr"
	Line   string
}

// ResultMsg carries the final execution result.
type ResultMsg struct {
	Result engine.Result
}

// FaultMsg carries an engine-level fault (script not found, launch failure).
type FaultMsg struct {
	Err error
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// outputLine is one captured line with its source stream.
type outputLine struct {
	stream string
	text   string
}

// Model represents the follow-view state for one script execution.
type Model struct {
	// Configuration
	scriptName  string
	interpreter string
	timeout     time.Duration

	// Current state
	lines     []outputLine
	result    *engine.Result
	fault     error
	startTime time.Time
	quitting  bool

	// Display options
	width  int
	height int
}

// Config holds TUI configuration.
type Config struct {
	ScriptName  string
	Interpreter string
	Timeout     time.Duration
}

// New creates a new follow-view model.
func New(cfg Config) Model {
	return Model{
		scriptName:  cfg.ScriptName,
		interpreter: cfg.Interpreter,
		timeout:     cfg.Timeout,
		startTime:   time.Now(),
		width:       80,
		height:      24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.result != nil || m.fault != nil {
			return m, nil
		}
		return m, tickCmd()

	case OutputLineMsg:
		m.lines = append(m.lines, outputLine{stream: msg.Stream, text: msg.Line})
		if len(m.lines) > tailLines {
			m.lines = m.lines[len(m.lines)-tailLines:]
		}
		return m, nil

	case ResultMsg:
		res := msg.Result
		m.result = &res
		return m, tea.Quit

	case FaultMsg:
		m.fault = msg.Err
		return m, tea.Quit

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 250ms.
func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the execution started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// Finished reports whether a result or fault has arrived.
func (m Model) Finished() bool {
	return m.result != nil || m.fault != nil
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendLine forwards one output line to the TUI.
func SendLine(p *tea.Program, stream, line string) {
	if p != nil {
		p.Send(OutputLineMsg{Stream: stream, Line: line})
	}
}

// SendResult forwards the final result to the TUI.
func SendResult(p *tea.Program, res engine.Result) {
	if p != nil {
		p.Send(ResultMsg{Result: res})
	}
}

// SendFault forwards an engine fault to the TUI.
func SendFault(p *tea.Program, err error) {
	if p != nil {
		p.Send(FaultMsg{Err: err})
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as MM:SS, or HH:MM:SS past an hour.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
