// Package monitor implements a read-only terminal watcher for the
// execution loop runner (spec.md §4.9's `loop watch`), polling the
// runner's exported state on a fixed tick the way the corpus's own
// interactive chat model samples runtime memory on a timer
// (cmd/nerd/chat's tickMemory). It never drives the runner — only observes.
package monitor

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/forgewright/planloom/internal/loop"
)

const pollInterval = time.Second

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	stateStyle = map[loop.State]lipgloss.Style{
		loop.StateRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		loop.StatePaused:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		loop.StateCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		loop.StateFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		loop.StateIdle:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

// Observable is the subset of Runner the watcher reads. Satisfied by
// *loop.Runner; tests can substitute a stub.
type Observable interface {
	State() loop.State
	CurrentPhase() string
}

type tickMsg time.Time

type model struct {
	runner  Observable
	ticks   int
	spinner spinner.Model
}

func newModel(runner Observable) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return model{runner: runner, spinner: sp}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick)
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		m.ticks++
		state := m.runner.State()
		if state == loop.StateCompleted || state == loop.StateFailed {
			return m, tea.Quit
		}
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	state := m.runner.State()
	style, ok := stateStyle[state]
	if !ok {
		style = lipgloss.NewStyle()
	}
	indicator := " "
	if state == loop.StateRunning {
		indicator = m.spinner.View()
	}
	return fmt.Sprintf(
		"%s\n\n%s state:   %s\nphase:   %s\n\n(q to quit)\n",
		titleStyle.Render("planloom loop watch"),
		indicator,
		style.Render(string(state)),
		m.runner.CurrentPhase(),
	)
}

// Watch blocks, rendering runner's state until it reaches COMPLETED/FAILED
// or the user quits.
func Watch(runner Observable) error {
	_, err := tea.NewProgram(newModel(runner)).Run()
	return err
}
