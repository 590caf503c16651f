// Package labeledspinner shows a spinner next to a title while some
// background work runs, with an optional detail line and hint below.
package labeledspinner

import (
	"strings"

	"github.com/alkime/voiceprompt/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is a labeled spinner. It only animates between Start and Stop.
type Model struct {
	Title  string
	Detail string
	Hint   string

	spinner spinner.Model
	active  bool
}

// New creates a stopped spinner.
func New(s spinner.Spinner, title, detail, hint string) Model {
	sp := spinner.New()
	sp.Spinner = s

	return Model{
		Title:   title,
		Detail:  detail,
		Hint:    hint,
		spinner: sp,
	}
}

// Start begins animating.
func (m Model) Start() (Model, tea.Cmd) {
	m.active = true
	return m, m.spinner.Tick
}

// Stop freezes the spinner; pending ticks are dropped.
func (m Model) Stop() Model {
	m.active = false
	return m
}

func (m Model) Active() bool { return m.active }

func (m Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	tickMsg, ok := teaMsg.(spinner.TickMsg)
	if !ok || !m.active {
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(tickMsg)

	return m, cmd
}

func (m Model) View() string {
	var sb strings.Builder

	if m.active {
		sb.WriteString(m.spinner.View())
		sb.WriteString(" ")
	}
	sb.WriteString(style.Title.Render(m.Title))

	if m.Detail != "" {
		sb.WriteString("\n\n")
		sb.WriteString(style.Subtitle.Render(m.Detail))
	}

	if m.Hint != "" {
		sb.WriteString("\n\n")
		sb.WriteString(style.Help.Render(m.Hint))
	}

	return sb.String()
}
