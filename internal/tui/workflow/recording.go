package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/alkime/voiceprompt/internal/tui/components/phases"
	"github.com/alkime/voiceprompt/internal/tui/components/waveform"
	"github.com/alkime/voiceprompt/internal/tui/style"
	"github.com/alkime/voiceprompt/pkg/uictl"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	waveformWidth  = 40
	waveformHeight = 3
)

// RecordingControls provides access to the capture hardware.
type RecordingControls struct {
	Recorder Recorder
	Bytes    uictl.CappedDial[int64]
	Levels   uictl.Levels[int16]
}

var errEmptyRecording = errors.New("nothing was captured; record again before continuing")

type recordingKeyMap struct {
	Toggle key.Binding
	Submit key.Binding
}

func defaultRecordingKeyMap() recordingKeyMap {
	return recordingKeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "start/stop recording"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "generate image"),
		),
	}
}

// recordingPhase drives the recorder and shows live capture state.
type recordingPhase struct {
	ctx       context.Context
	keys      recordingKeyMap
	controls  RecordingControls
	spinner   spinner.Model
	stopwatch stopwatch.Model
	progress  progress.Model
	waveform  waveform.Model

	recording bool
	notice    error
}

// NewRecording creates the recording phase. ctx bounds every capture.
func NewRecording(ctx context.Context, controls RecordingControls) tea.Model {
	s := spinner.New()
	s.Spinner = spinner.Points

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(waveformWidth),
		progress.WithoutPercentage(),
	)

	return &recordingPhase{
		ctx:       ctx,
		keys:      defaultRecordingKeyMap(),
		controls:  controls,
		spinner:   s,
		stopwatch: stopwatch.New(),
		progress:  p,
		waveform:  waveform.New(controls.Levels, waveformWidth, waveformHeight),
	}
}

func (r *recordingPhase) Init() tea.Cmd {
	r.notice = nil
	r.recording = r.controls.Recorder.State() == audio.StateRecording

	return tea.Batch(r.spinner.Tick, r.waveform.Init())
}

func (r *recordingPhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch typedMsg := teaMsg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(typedMsg, r.keys.Toggle):
			return r, r.toggle()
		case key.Matches(typedMsg, r.keys.Submit):
			return r, r.submit()
		}

		return r, nil

	case waveform.TickMsg:
		var cmd tea.Cmd
		r.waveform, cmd = r.waveform.Update(typedMsg)
		cmds = append(cmds, cmd, r.syncState())

	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spinner, cmd = r.spinner.Update(typedMsg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := r.progress.Update(typedMsg)
		r.progress = progressModel.(progress.Model) //nolint:forcetypeassert // bubbles library contract
		cmds = append(cmds, cmd)
	}

	var stopwatchCmd tea.Cmd
	r.stopwatch, stopwatchCmd = r.stopwatch.Update(teaMsg)
	cmds = append(cmds, stopwatchCmd)

	return r, tea.Batch(cmds...)
}

func (r *recordingPhase) toggle() tea.Cmd {
	r.notice = nil

	if r.recording {
		r.recording = false
		if err := r.controls.Recorder.Stop(); err != nil {
			r.notice = err
		}

		return r.stopwatch.Stop()
	}

	if err := r.controls.Recorder.Start(r.ctx); err != nil {
		r.notice = err
		return nil
	}

	r.recording = true

	return tea.Sequence(r.stopwatch.Reset(), r.stopwatch.Start())
}

func (r *recordingPhase) submit() tea.Cmd {
	if r.recording {
		return nil
	}

	rec := r.controls.Recorder.Recording()
	switch {
	case rec == nil:
		return nil
	case rec.Empty():
		r.notice = errEmptyRecording
		return nil
	}

	return phases.NextPhaseCmd
}

// syncState notices captures that ended on their own.
func (r *recordingPhase) syncState() tea.Cmd {
	if !r.recording || r.controls.Recorder.State() == audio.StateRecording {
		return nil
	}

	r.recording = false
	r.notice = r.controls.Recorder.StopReason()

	return r.stopwatch.Stop()
}

func (r *recordingPhase) View() string {
	var sb strings.Builder

	rec := r.controls.Recorder.Recording()

	switch {
	case r.recording:
		sb.WriteString(r.spinner.View())
		sb.WriteString(" ")
		sb.WriteString(style.Title.Render("Recording"))
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render(r.stopwatch.View()))
	case rec != nil:
		sb.WriteString(style.Success.Render("Recorded"))
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render(r.stopwatch.View()))
	default:
		sb.WriteString(style.Title.Render("Describe an image"))
	}

	sb.WriteString("\n\n")

	sb.WriteString(r.waveform.View())
	sb.WriteString("\n\n")

	current, maxValue := r.controls.Bytes.Cap()
	percent := float64(0)
	if maxValue > 0 {
		percent = float64(current) / float64(maxValue)
	}

	sb.WriteString(r.progress.ViewAs(percent))
	sb.WriteString("\n")
	sb.WriteString(style.Subtitle.Render(formatBytes(current, maxValue)))
	sb.WriteString("\n\n")

	sb.WriteString(r.renderNotice())

	sb.WriteString(renderKeyHelp(r.keys.Toggle, " "))
	if !r.recording && rec != nil && !rec.Empty() {
		sb.WriteString(renderKeyHelp(r.keys.Submit, "\n"))
	} else {
		sb.WriteString("\n")
	}
	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}

func (r *recordingPhase) renderNotice() string {
	switch {
	case r.notice == nil:
		return ""
	case errors.Is(r.notice, audio.ErrMaxDurationReached), errors.Is(r.notice, audio.ErrMaxBytesReached):
		return style.Warning.Render("Recording stopped: "+r.notice.Error()) + "\n\n"
	case errors.Is(r.notice, errEmptyRecording):
		return style.Warning.Render(r.notice.Error()) + "\n\n"
	default:
		return renderNotice(r.notice)
	}
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(current, maxBytes int64) string {
	currentMB := float64(current) / (1024 * 1024)
	maxMB := float64(maxBytes) / (1024 * 1024)

	if maxBytes == 0 {
		return fmt.Sprintf("%.1f MB / unlimited", currentMB)
	}

	percent := int(float64(current) / float64(maxBytes) * 100)

	return fmt.Sprintf("%.1f MB / %.1f MB (%d%%)", currentMB, maxMB, percent)
}
