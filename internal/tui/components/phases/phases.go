// Package phases is a container that shows one tea.Model at a time and moves
// between them on request from the active one.
package phases

import (
	tea "github.com/charmbracelet/bubbletea"
)

// NextPhaseMsg advances to the following phase.
type NextPhaseMsg struct{}

// PrevPhaseMsg returns to the preceding phase.
type PrevPhaseMsg struct{}

// GotoPhaseMsg jumps to the phase with the given name. Unknown names are
// ignored.
type GotoPhaseMsg struct {
	Name string
}

func NextPhaseCmd() tea.Msg { return NextPhaseMsg{} }

func PrevPhaseCmd() tea.Msg { return PrevPhaseMsg{} }

// GotoPhaseCmd returns a command jumping to the named phase.
func GotoPhaseCmd(name string) tea.Cmd {
	return func() tea.Msg { return GotoPhaseMsg{Name: name} }
}

// Phase is a named step of the container. Its model is re-initialized every
// time the phase is entered.
type Phase struct {
	Name string
	mdl  tea.Model
}

func NewPhase(name string, mdl tea.Model) Phase {
	return Phase{Name: name, mdl: mdl}
}

// Model holds the phases and the index of the active one.
type Model struct {
	phases []Phase
	curr   int
}

func New(phases []Phase) Model {
	return Model{phases: phases}
}

func (m Model) Init() tea.Cmd {
	return m.phases[m.curr].mdl.Init()
}

func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case NextPhaseMsg:
		return m.enter(m.curr + 1)
	case PrevPhaseMsg:
		return m.enter(m.curr - 1)
	case GotoPhaseMsg:
		return m.enter(m.indexOf(msg.Name))
	}

	active := &m.phases[m.curr]

	var cmd tea.Cmd
	active.mdl, cmd = active.mdl.Update(teaMsg)

	return m, cmd
}

// enter switches to phase i and initializes it. Out of range is a no-op.
func (m Model) enter(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.phases) || i == m.curr {
		return m, nil
	}

	m.curr = i

	return m, m.phases[i].mdl.Init()
}

func (m Model) indexOf(name string) int {
	for i, ph := range m.phases {
		if ph.Name == name {
			return i
		}
	}

	return -1
}

func (m Model) View() string {
	return m.phases[m.curr].mdl.View()
}

// CurrentPhaseName returns the name of the active phase.
func (m Model) CurrentPhaseName() string {
	return m.phases[m.curr].Name
}

// Position returns the 1-based index of the active phase and the total.
func (m Model) Position() (int, int) {
	return m.curr + 1, len(m.phases)
}
