// Package style holds the lipgloss styles shared by the voiceprompt screens.
package style

import "github.com/charmbracelet/lipgloss"

// Names drop the "Style" suffix; call sites read style.Title.
var (
	// Title heads each phase and the running stage line.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	// Error marks failed stages, device errors and clipping.
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	// Warning marks recordings that stopped on a limit.
	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	// Key highlights a shortcut inside help text.
	Key = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Progress colors the meter bars.
	Progress = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	// Label prefixes result lines ("Prompt:", "Similarity:").
	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255"))

	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	// Bullet marks the highlighted device.
	Bullet = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205"))
)

// Similarity thresholds, in percent.
const (
	ScoreGood = 70.0
	ScoreFair = 40.0
)

// Score picks the style for a similarity percentage.
func Score(pct float64) lipgloss.Style {
	switch {
	case pct >= ScoreGood:
		return Success
	case pct >= ScoreFair:
		return Warning
	default:
		return Error
	}
}
