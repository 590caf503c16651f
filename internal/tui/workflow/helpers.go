// Package workflow provides the TUI phases: device selection, recording and
// the pipeline run.
package workflow

import (
	"strings"

	"github.com/alkime/voiceprompt/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
)

// Phase names, in workflow order.
const (
	PhaseDevices   = "Microphone"
	PhaseRecording = "Recording"
	PhasePipeline  = "Pipeline"
)

// GlobalKeyMap holds bindings handled by the root model.
type GlobalKeyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultGlobalKeyMap returns the quit bindings.
func DefaultGlobalKeyMap() GlobalKeyMap {
	return GlobalKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
	}
}

func renderKeyHelp(keyBinding key.Binding, suffix ...string) string {
	s := style.Help.Render("[") + style.Key.Render(keyBinding.Help().Key) +
		style.Help.Render("] ") +
		style.Help.Render(keyBinding.Help().Desc)

	s += strings.Join(suffix, "")

	return s
}

func renderGlobalKeyHelp() string {
	km := DefaultGlobalKeyMap()
	s := renderKeyHelp(km.Quit, " ")
	s += renderKeyHelp(km.ForceQuit, "\n")
	return s
}

// renderNotice renders the single notification line for a recoverable error.
func renderNotice(err error) string {
	if err == nil {
		return ""
	}

	return style.Error.Render("✗ "+err.Error()) + "\n\n"
}
