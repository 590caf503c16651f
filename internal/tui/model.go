// Package tui is the interactive front end: pick a microphone, record a
// prompt, then watch the pipeline run.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/alkime/voiceprompt/internal/tui/components/phases"
	"github.com/alkime/voiceprompt/internal/tui/style"
	"github.com/alkime/voiceprompt/internal/tui/workflow"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Config wires the TUI to the capture hardware and the orchestrator.
type Config struct {
	// Context bounds captures and pipeline calls.
	Context context.Context
	// Cancel is called when the user quits.
	Cancel context.CancelFunc

	Devices   workflow.DeviceSelector
	Recording workflow.RecordingControls
	Pipeline  workflow.PipelineControls
}

type model struct {
	config       Config
	keys         workflow.GlobalKeyMap
	phases       phases.Model
	windowWidth  int
	windowHeight int
}

// New creates the root TUI model.
func New(config Config) tea.Model {
	ctx := config.Context
	if ctx == nil {
		ctx = context.Background()
	}

	return &model{
		config: config,
		keys:   workflow.DefaultGlobalKeyMap(),
		phases: phases.New([]phases.Phase{
			phases.NewPhase(workflow.PhaseDevices, workflow.NewDevicesPhase(ctx, config.Devices)),
			phases.NewPhase(workflow.PhaseRecording, workflow.NewRecording(ctx, config.Recording)),
			phases.NewPhase(workflow.PhasePipeline, workflow.NewPipeline(ctx, config.Pipeline)),
		}),
		windowWidth:  80,
		windowHeight: 24,
	}
}

func (m *model) Init() tea.Cmd {
	return m.phases.Init()
}

func (m *model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := teaMsg.(tea.WindowSizeMsg); ok {
		m.windowWidth = wsm.Width
		m.windowHeight = wsm.Height
	}

	// quit from any phase
	if km, ok := teaMsg.(tea.KeyMsg); ok {
		if key.Matches(km, m.keys.ForceQuit) || key.Matches(km, m.keys.Quit) {
			if m.config.Cancel != nil {
				m.config.Cancel()
			}

			return m, tea.Quit
		}
	}

	updatedPhases, cmd := m.phases.Update(teaMsg)
	m.phases = updatedPhases.(phases.Model) //nolint:forcetypeassert // phases.Model always returns phases.Model

	return m, cmd
}

func (m *model) View() string {
	var sb strings.Builder

	pos, total := m.phases.Position()
	sb.WriteString(style.Subtitle.Render(fmt.Sprintf("voiceprompt · %d/%d %s", pos, total, m.phases.CurrentPhaseName())))
	sb.WriteString("\n\n")

	sb.WriteString(m.phases.View())

	return sb.String()
}
