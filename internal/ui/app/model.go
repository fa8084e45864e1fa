package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "raterc/internal/modules/session/dto"
	sessionin "raterc/internal/modules/session/port/in"
	"raterc/internal/ui/components"
	"raterc/internal/ui/theme"
	completionview "raterc/internal/ui/views/completion"
	questionview "raterc/internal/ui/views/question"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type sessionPort interface {
	Open(ctx context.Context, input sessiondto.StartInput) (sessionin.Run, error)
	Redirect(ctx context.Context, target string) error
}

// ─── screens ─────────────────────────────────────────────────────────────────

type screen int

const (
	screenLoading screen = iota
	screenQuestion
	screenCompletion
	screenError
)

// ─── async messages ──────────────────────────────────────────────────────────

type runOpenedMsg struct {
	run sessionin.Run
	err error
}

type snapshotMsg struct{ snap sessiondto.Snapshot }

type runStoppedMsg struct{}

type retriedMsg struct{ err error }

// ─── key bindings ────────────────────────────────────────────────────────────

type keyMap struct {
	Retry key.Binding
	Help  key.Binding
	Quit  key.Binding
	Leave key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Retry: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
		Leave: key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Retry, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Retry},
		{k.Help, k.Quit, k.Leave},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It opens one run, follows its
// snapshots and shows exactly one screen for the latest of them.
type Model struct {
	port  sessionPort
	input sessiondto.StartInput
	now   func() time.Time

	run        sessionin.Run
	snap       sessiondto.Snapshot
	openErr    error
	question   questionview.Model
	completion completionview.Model
	finished   bool

	spinner  spinner.Model
	keys     keyMap
	help     help.Model
	showHelp bool
	status   string
	width    int
	height   int
}

func NewModel(port sessionPort, input sessiondto.StartInput, now func() time.Time) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:    port,
		input:   input,
		now:     now,
		spinner: sp,
		keys:    defaultKeys(),
		help:    help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.openCmd(), m.spinner.Tick)
}

// ─── update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = m.width
		if m.run == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.question, cmd = m.question.Update(msg)
		return m, cmd

	case runOpenedMsg:
		if msg.err != nil {
			m.openErr = msg.err
			return m, nil
		}
		m.run = msg.run
		m.question = questionview.New(msg.run, m.now)
		if m.width > 0 {
			m.question, _ = m.question.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		}
		return m, tea.Batch(m.apply(msg.run.Snapshot()), listen(msg.run))

	case snapshotMsg:
		return m, tea.Batch(m.apply(msg.snap), listen(m.run))

	case runStoppedMsg:
		return m, nil

	case retriedMsg:
		if msg.err != nil {
			m.status = "retry: " + msg.err.Error()
		}
		return m, nil

	case questionview.SubmittedMsg:
		cmd := m.apply(msg.Snapshot)
		var qCmd tea.Cmd
		m.question, qCmd = m.question.Update(msg)
		return m, tea.Batch(cmd, qCmd)

	case completionview.RedirectedMsg:
		var cmd tea.Cmd
		m.completion, cmd = m.completion.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m.quit()
		}
		if m.showHelp {
			if key.Matches(msg, m.keys.Help) {
				m.showHelp = false
			}
			return m, nil
		}
		switch m.screen() {
		case screenLoading:
			switch {
			case key.Matches(msg, m.keys.Retry) && m.snap.CanRetry():
				return m, m.retryCmd()
			case key.Matches(msg, m.keys.Help):
				m.showHelp = true
			}
			return m, nil
		case screenQuestion:
			var cmd tea.Cmd
			m.question, cmd = m.question.Update(msg)
			return m, cmd
		case screenCompletion:
			if key.Matches(msg, m.keys.Leave) {
				return m.quit()
			}
			var cmd tea.Cmd
			m.completion, cmd = m.completion.Update(msg)
			return m, cmd
		case screenError:
			if key.Matches(msg, m.keys.Leave) {
				return m.quit()
			}
		}
	}

	// countdown ticks and anything else only matter to the completion screen
	if m.finished {
		var cmd tea.Cmd
		m.completion, cmd = m.completion.Update(msg)
		return m, cmd
	}
	return m, nil
}

// apply takes snap unless a newer one has been seen.
func (m *Model) apply(snap sessiondto.Snapshot) tea.Cmd {
	if snap.Version <= m.snap.Version {
		return nil
	}
	m.snap = snap
	if m.snap.Phase == "loading" || m.snap.Phase == "starting" || m.snap.Phase == "idle" {
		m.status = ""
	}

	if (snap.Outcome == "expired" || snap.Outcome == "exhausted") && !m.finished {
		m.finished = true
		m.completion = completionview.New(m.port, snap)
		return m.completion.Init()
	}
	return m.question.Sync(snap)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.run != nil {
		m.run.Close()
	}
	return m, tea.Quit
}

// screen derives the one screen to show from the latest snapshot.
func (m Model) screen() screen {
	switch {
	case m.openErr != nil || m.snap.Outcome == "error":
		return screenError
	case m.finished:
		return screenCompletion
	case m.snap.Question != nil && (m.snap.Phase == "presenting" || m.snap.Phase == "submitting"):
		return screenQuestion
	default:
		return screenLoading
	}
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	header := m.renderHeader()

	var content string
	switch {
	case m.showHelp:
		content = m.help.View(m.keys)
	default:
		switch m.screen() {
		case screenError:
			content = m.renderError()
		case screenCompletion:
			content = m.completion.View()
		case screenQuestion:
			content = m.question.View()
		default:
			content = m.renderLoading()
		}
	}

	parts := []string{header, content}
	if m.status != "" {
		parts = append(parts, theme.Hot.Render(m.status))
	}
	return theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderHeader() string {
	name := m.snap.ExperimentName
	if name == "" {
		name = "raterc"
	}
	left := theme.Title.Render(name) + "  " +
		theme.Muted.Render(fmt.Sprintf("Completed: %d", m.snap.Progress))
	if m.snap.RaterID == "" || m.screen() == screenError {
		return left + "\n"
	}
	right := components.Clock(m.snap.Remaining, m.snap.LowTime)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if gap < 2 {
		gap = 2
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, left, strings.Repeat(" ", gap), right) + "\n"
}

func (m Model) renderLoading() string {
	label := " Loading next question…"
	if m.snap.Phase == "starting" || m.snap.Phase == "idle" || m.snap.Phase == "" {
		label = " Starting session…"
	}
	if m.snap.CanRetry() {
		return theme.Card.Render(
			theme.Hot.Render(m.snap.Notice) + "\n\n" +
				theme.Muted.Render("r retry · esc quit"),
		)
	}
	return m.spinner.View() + label
}

func (m Model) renderError() string {
	message := m.snap.Error
	if m.openErr != nil {
		message = m.openErr.Error()
	}
	if message == "" {
		message = "Something went wrong."
	}
	return theme.Card.BorderForeground(theme.Red).Render(
		theme.Danger.Render("Error") + "\n\n" +
			message + "\n\n" +
			theme.Muted.Render("q quit"),
	)
}

// ─── commands ────────────────────────────────────────────────────────────────

func (m Model) openCmd() tea.Cmd {
	port, input := m.port, m.input
	return func() tea.Msg {
		run, err := port.Open(context.Background(), input)
		return runOpenedMsg{run: run, err: err}
	}
}

func (m Model) retryCmd() tea.Cmd {
	run := m.run
	return func() tea.Msg {
		return retriedMsg{err: run.Retry(context.Background())}
	}
}

// listen waits for the next snapshot of run, or for the run to stop.
func listen(run sessionin.Run) tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-run.Updates():
			return snapshotMsg{snap: snap}
		case <-run.Done():
			return runStoppedMsg{}
		}
	}
}
