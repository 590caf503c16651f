package workflow

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/alkime/voiceprompt/internal/pipeline"
	"github.com/alkime/voiceprompt/internal/tui/components/labeledspinner"
	"github.com/alkime/voiceprompt/internal/tui/components/phases"
	"github.com/alkime/voiceprompt/internal/tui/style"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// PipelineControls wires the pipeline phase to the orchestrator.
type PipelineControls struct {
	Runner Runner
	// Recordings yields the recording to submit.
	Recordings interface{ Recording() *audio.Recording }
	// Store is read once a run returns so a dropped update never leaves
	// the view stale.
	Store interface{ Snapshot() pipeline.Snapshot }
	// Updates carries every published snapshot.
	Updates <-chan pipeline.Snapshot
}

type snapshotMsg pipeline.Snapshot

type runFinishedMsg struct {
	err error
}

type pipelineKeyMap struct {
	Again  key.Binding
	Device key.Binding
}

func defaultPipelineKeyMap() pipelineKeyMap {
	return pipelineKeyMap{
		Again: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "record again"),
		),
		Device: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "change microphone"),
		),
	}
}

// pipelinePhase submits the recording and follows the run to completion.
type pipelinePhase struct {
	ctx      context.Context
	keys     pipelineKeyMap
	controls PipelineControls
	status   labeledspinner.Model
	progress progress.Model

	snap      pipeline.Snapshot
	floor     uint64 // last Seq of earlier runs
	running   bool
	listening bool
	err       error
}

// NewPipeline creates the pipeline phase.
func NewPipeline(ctx context.Context, controls PipelineControls) tea.Model {
	return &pipelinePhase{
		ctx:      ctx,
		keys:     defaultPipelineKeyMap(),
		controls: controls,
		status:   labeledspinner.New(spinner.Dot, stageTitle(pipeline.StageIdle), "", ""),
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(waveformWidth),
		),
	}
}

// Init starts a run with the current recording.
func (p *pipelinePhase) Init() tea.Cmd {
	p.err = nil
	p.floor = max(p.floor, p.snap.Seq)
	if p.controls.Store != nil {
		p.floor = max(p.floor, p.controls.Store.Snapshot().Seq)
	}
	p.snap = pipeline.Snapshot{}
	p.status.Title = stageTitle(pipeline.StageIdle)
	p.status.Detail = ""

	rec := p.controls.Recordings.Recording()
	if rec == nil {
		p.err = pipeline.ErrNoRecording
		return nil
	}

	p.running = true

	var cmd tea.Cmd
	p.status, cmd = p.status.Start()

	return tea.Batch(cmd, p.runCmd(rec), p.listen())
}

func (p *pipelinePhase) runCmd(rec *audio.Recording) tea.Cmd {
	return func() tea.Msg {
		return runFinishedMsg{err: p.controls.Runner.Run(p.ctx, rec)}
	}
}

// listen keeps exactly one receive pending on the update channel.
func (p *pipelinePhase) listen() tea.Cmd {
	if p.listening || p.controls.Updates == nil {
		return nil
	}

	p.listening = true
	updates := p.controls.Updates

	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}

		return snapshotMsg(snap)
	}
}

func (p *pipelinePhase) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case snapshotMsg:
		p.listening = false
		p.apply(pipeline.Snapshot(msg))

		return p, p.listen()

	case runFinishedMsg:
		p.running = false
		p.status = p.status.Stop()
		if p.controls.Store != nil {
			p.apply(p.controls.Store.Snapshot())
		}

		var stageErr *pipeline.StageError
		if msg.err != nil && !errors.As(msg.err, &stageErr) {
			p.err = msg.err
		}

		return p, nil

	case tea.KeyMsg:
		if p.running {
			return p, nil
		}

		switch {
		case key.Matches(msg, p.keys.Again):
			return p, phases.GotoPhaseCmd(PhaseRecording)
		case key.Matches(msg, p.keys.Device):
			return p, phases.GotoPhaseCmd(PhaseDevices)
		}

		return p, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.status, cmd = p.status.Update(msg)

		return p, cmd

	case progress.FrameMsg:
		progressModel, cmd := p.progress.Update(msg)
		p.progress = progressModel.(progress.Model) //nolint:forcetypeassert // bubbles library contract

		return p, cmd
	}

	return p, nil
}

// apply keeps the newest snapshot of the current run. Updates can arrive
// after the run returns, and the previous run's last one can arrive after
// the next run starts.
func (p *pipelinePhase) apply(snap pipeline.Snapshot) {
	if snap.Seq <= p.floor || snap.Seq < p.snap.Seq {
		return
	}

	p.snap = snap
	p.status.Title = stageTitle(snap.Run.Stage)
	p.status.Detail = stageStep(snap.Run.Stage)
}

func (p *pipelinePhase) View() string {
	var sb strings.Builder

	run := p.snap.Run

	switch {
	case p.err != nil:
		sb.WriteString(style.Title.Render("Pipeline"))
		sb.WriteString("\n\n")
		sb.WriteString(renderNotice(p.err))
	case p.snap.Failed() && run.Err != nil:
		sb.WriteString(style.Error.Render("Run failed"))
		sb.WriteString("\n\n")
		sb.WriteString(renderNotice(fmt.Errorf("%s: %s", run.Err.Stage.Label(), run.Err.Message)))
	case run.Stage == pipeline.StageCompleted:
		sb.WriteString(style.Success.Render("✓ Completed"))
		sb.WriteString("\n\n")
	default:
		sb.WriteString(p.status.View())
		sb.WriteString("\n\n")
	}

	sb.WriteString(p.progress.ViewAs(float64(run.Progress) / 100))
	sb.WriteString("\n\n")

	sb.WriteString(renderResults(p.snap.Results))

	if !p.running {
		sb.WriteString(renderKeyHelp(p.keys.Again, " "))
		sb.WriteString(renderKeyHelp(p.keys.Device, "\n"))
	}
	sb.WriteString(renderGlobalKeyHelp())

	return sb.String()
}

// stageStep numbers the working stages, transcription being the first.
func stageStep(stage pipeline.Stage) string {
	if stage.Terminal() {
		return ""
	}

	return fmt.Sprintf("step %d of %d", int(stage), int(pipeline.StageSynthesizing))
}

func stageTitle(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageTranscribing:
		return "Transcribing your prompt..."
	case pipeline.StageGeneratingImage:
		return "Generating image..."
	case pipeline.StageAnalyzing:
		return "Comparing image to prompt..."
	case pipeline.StageSynthesizing:
		return "Reading the description aloud..."
	default:
		return "Submitting recording..."
	}
}

func renderResults(res pipeline.Results) string {
	var sb strings.Builder

	line := func(label, value string) {
		sb.WriteString(style.Label.Render(label + ":"))
		sb.WriteString(" ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	if res.Transcript != nil {
		line("Prompt", res.Transcript.Text)
	}

	if res.Image != nil {
		line("Image", style.Muted.Render(describeImageRef(res.Image.URL)))
	}

	if res.Analysis != nil {
		score := res.Analysis.SimilarityScore
		line("Similarity", style.Score(score).Render(fmt.Sprintf("%.1f%%", score)))
		if res.Analysis.Description != "" {
			line("Description", res.Analysis.Description)
		}
	}

	if res.Speech != nil {
		line("Speech", style.Muted.Render(formatSize(decodedLen(res.Speech.AudioBase64))+" of audio"))
	}

	if sb.Len() > 0 {
		sb.WriteString("\n")
	}

	return sb.String()
}

// describeImageRef keeps inline images from flooding the terminal.
func describeImageRef(ref string) string {
	if !strings.HasPrefix(ref, "data:") {
		return ref
	}

	_, payload, _ := strings.Cut(ref, ",")

	return "inline image, " + formatSize(decodedLen(payload))
}

func decodedLen(b64 string) int64 {
	return int64(base64.StdEncoding.DecodedLen(len(b64)))
}

func formatSize(n int64) string {
	if n < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	}

	return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
}
