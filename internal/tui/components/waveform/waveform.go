// Package waveform renders a live input level meter: a scrolling bar graph
// of recent amplitude with a peak readout underneath.
package waveform

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alkime/voiceprompt/internal/tui/style"
	"github.com/alkime/voiceprompt/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// eighths of a cell, empty to full
var blocks = []rune(" ▁▂▃▄▅▆▇█")

const (
	// fullScale is the reference for dBFS; maxSample is the loudest
	// positive sample and fills a bar.
	fullScale = 32768.0
	maxSample = 32767.0

	// clipLevel is ~-0.2 dBFS; anything at or above reads as clipping.
	clipLevel = 32000

	frameInterval = 50 * time.Millisecond
)

// TickMsg triggers a redraw.
type TickMsg struct{}

// Model polls a Levels control and draws one bar per column, oldest samples
// on the left.
type Model struct {
	levels uictl.Levels[int16]
	width  int
	height int
}

// New creates a meter width columns wide and height rows tall.
func New(levels uictl.Levels[int16], width, height int) Model {
	return Model{
		levels: levels,
		width:  max(width, 1),
		height: max(height, 1),
	}
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(TickMsg); ok {
		return m, m.tick()
	}

	return m, nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the bars and the peak line.
func (m Model) View() string {
	var samples []int16
	if m.levels != nil {
		samples = m.levels.Read()
	}

	if len(samples) == 0 {
		return m.renderIdle()
	}

	heights := m.columnHeights(samples)
	top := peak(samples)

	var sb strings.Builder

	for row := range m.height {
		line := make([]rune, m.width)
		floor := (m.height - 1 - row) * 8
		for col, h := range heights {
			line[col] = blocks[min(max(h-floor, 0), 8)]
		}

		sb.WriteString(style.Progress.Render(string(line)))
		sb.WriteString("\n")
	}

	sb.WriteString(renderPeak(top))

	return sb.String()
}

// columnHeights splits samples into one bucket per column and maps each
// bucket's peak to eighths of the meter height.
func (m Model) columnHeights(samples []int16) []int {
	heights := make([]int, m.width)
	bucket := max(1, len(samples)/m.width)

	for col := range heights {
		start := col * bucket
		if start >= len(samples) {
			break
		}

		heights[col] = barHeight(peak(samples[start:min(start+bucket, len(samples))]), m.height*8)
	}

	return heights
}

func (m Model) renderIdle() string {
	rows := make([]string, 0, m.height+1)
	for range m.height - 1 {
		rows = append(rows, strings.Repeat(" ", m.width))
	}
	rows = append(rows, strings.Repeat("▁", m.width))

	return style.Muted.Render(strings.Join(rows, "\n")) + "\n" + style.Muted.Render("no signal")
}

func renderPeak(amp int) string {
	if amp == 0 {
		return style.Muted.Render("peak -inf dBFS")
	}

	s := style.Subtitle.Render(fmt.Sprintf("peak %.1f dBFS", DBFS(amp)))
	if amp >= clipLevel {
		s += " " + style.Error.Render("CLIP")
	}

	return s
}

// peak is the largest absolute sample. int keeps -32768 representable.
func peak(samples []int16) int {
	top := 0
	for _, s := range samples {
		top = max(top, abs(int(s)))
	}

	return top
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

// barHeight maps an amplitude onto 0..steps. The square root lifts quiet
// input so speech stays visible.
func barHeight(amp, steps int) int {
	if amp <= 0 {
		return 0
	}

	return min(int(math.Sqrt(float64(amp)/maxSample)*float64(steps)), steps)
}

// DBFS converts a peak amplitude to decibels relative to full scale.
func DBFS(amp int) float64 {
	if amp <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(float64(amp)/fullScale)
}
