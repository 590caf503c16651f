package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/alkime/voiceprompt/internal/tui/components/labeledspinner"
	"github.com/alkime/voiceprompt/internal/tui/components/phases"
	"github.com/alkime/voiceprompt/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type devicesLoadedMsg struct {
	devices []audio.Device
	err     error
}

type devicesKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Retry  key.Binding
}

func defaultDevicesKeyMap() devicesKeyMap {
	return devicesKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "use device"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
	}
}

// devicesPhase asks for capture permission and lets the user pick an input.
type devicesPhase struct {
	ctx      context.Context
	selector DeviceSelector
	keys     devicesKeyMap
	spinner  labeledspinner.Model

	loading bool
	devices []audio.Device
	cursor  int
	err     error
}

// NewDevicesPhase creates the device selection phase.
func NewDevicesPhase(ctx context.Context, selector DeviceSelector) tea.Model {
	return &devicesPhase{
		ctx:      ctx,
		selector: selector,
		keys:     defaultDevicesKeyMap(),
		spinner: labeledspinner.New(
			spinner.Dot,
			"Requesting microphone access...",
			"Enumerating capture devices",
			"Your system may ask for permission",
		),
	}
}

func (d *devicesPhase) Init() tea.Cmd {
	d.loading = true
	d.err = nil

	var cmd tea.Cmd
	d.spinner, cmd = d.spinner.Start()

	return tea.Batch(cmd, d.loadCmd())
}

func (d *devicesPhase) loadCmd() tea.Cmd {
	return func() tea.Msg {
		devices, err := d.selector.RequestPermission(d.ctx)
		return devicesLoadedMsg{devices: devices, err: err}
	}
}

func (d *devicesPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case devicesLoadedMsg:
		d.loading = false
		d.spinner = d.spinner.Stop()
		d.err = msg.err
		d.devices = msg.devices
		d.cursor = defaultIndex(msg.devices)

		return d, nil

	case tea.KeyMsg:
		if d.loading {
			return d, nil
		}

		switch {
		case key.Matches(msg, d.keys.Retry) && d.err != nil:
			return d, d.Init()
		case key.Matches(msg, d.keys.Up):
			d.cursor = max(0, d.cursor-1)
		case key.Matches(msg, d.keys.Down):
			d.cursor = min(len(d.devices)-1, d.cursor+1)
		case key.Matches(msg, d.keys.Select):
			return d, d.selectCurrent()
		}

		return d, nil
	}

	var cmd tea.Cmd
	d.spinner, cmd = d.spinner.Update(teaMsg)

	return d, cmd
}

func (d *devicesPhase) selectCurrent() tea.Cmd {
	if len(d.devices) == 0 {
		return nil
	}

	if err := d.selector.SelectDevice(d.devices[d.cursor].ID); err != nil {
		d.err = err
		return nil
	}

	return phases.NextPhaseCmd
}

func (d *devicesPhase) View() string {
	if d.loading {
		return d.spinner.View()
	}

	var sb strings.Builder

	sb.WriteString(style.Title.Render("Select a microphone"))
	sb.WriteString("\n\n")

	if d.err != nil {
		sb.WriteString(renderNotice(deviceErrorMessage(d.err)))
	}

	for i, dev := range d.devices {
		marker := "  "
		label := dev.Label
		if i == d.cursor {
			marker = style.Bullet.Render("> ")
			label = style.Label.Render(label)
		}

		sb.WriteString(marker)
		sb.WriteString(label)
		if dev.IsDefault {
			sb.WriteString(style.Muted.Render(" (default)"))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")

	if len(d.devices) > 0 {
		sb.WriteString(renderKeyHelp(d.keys.Up, " "))
		sb.WriteString(renderKeyHelp(d.keys.Down, " "))
		sb.WriteString(renderKeyHelp(d.keys.Select, "\n"))
	} else {
		sb.WriteString(renderKeyHelp(d.keys.Retry, "\n"))
	}

	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}

func defaultIndex(devices []audio.Device) int {
	for i, dev := range devices {
		if dev.IsDefault {
			return i
		}
	}

	return 0
}

func deviceErrorMessage(err error) error {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return errors.New("microphone access was denied; grant it in your system settings and retry")
	case errors.Is(err, audio.ErrNoDeviceAvailable):
		return errors.New("no microphone found; connect one and retry")
	default:
		return fmt.Errorf("could not open audio devices: %w", err)
	}
}
