package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	sessiondto "raterc/internal/modules/session/dto"
	"raterc/internal/ui/theme"
)

// RedirectDelay is how long the completion screen waits before navigating.
const RedirectDelay = 3 * time.Second

// ─── port ────────────────────────────────────────────────────────────────────

type Port interface {
	Redirect(ctx context.Context, target string) error
}

// ─── messages ────────────────────────────────────────────────────────────────

type countdownMsg struct{}

// RedirectedMsg is sent once the completion destination was handed off.
type RedirectedMsg struct{ Err error }

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the terminal screen of a run that expired or ran out of questions.
type Model struct {
	port     Port
	outcome  string
	progress int
	target   string
	left     int
	counting bool
	opening  bool
	opened   bool
	err      error
}

func New(port Port, snap sessiondto.Snapshot) Model {
	return Model{
		port:     port,
		outcome:  snap.Outcome,
		progress: snap.Progress,
		target:   snap.CompletionURL,
		left:     int(RedirectDelay / time.Second),
		counting: snap.CompletionURL != "",
	}
}

// Init starts the redirect countdown when there is somewhere to go.
func (m Model) Init() tea.Cmd {
	if m.target == "" {
		return nil
	}
	return tick()
}

// Opened reports whether the destination has been handed off.
func (m Model) Opened() bool { return m.opened }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case countdownMsg:
		if !m.counting {
			return m, nil
		}
		m.left--
		if m.left > 0 {
			return m, tick()
		}
		return m.navigate()

	case RedirectedMsg:
		m.opening = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.opened = true
		m.err = nil

	case tea.KeyMsg:
		if msg.String() == "o" && m.target != "" {
			return m.navigate()
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	title, body := "Session Complete", "Your session has ended."
	if m.outcome == "exhausted" {
		title, body = "All Done!", "You have completed all available questions."
	}
	b.WriteString(theme.Good.Render(title) + "\n\n")
	b.WriteString(body + "\n")
	b.WriteString(theme.Muted.Render(fmt.Sprintf("Questions completed: %d", m.progress)) + "\n\n")

	switch {
	case m.target == "":
		b.WriteString("Thank you for your participation! You may now close this window.")
	case m.opened:
		b.WriteString("Opened " + theme.Title.Render(m.target) + " in your browser. You may now close this window.")
	case m.err != nil:
		b.WriteString(theme.Danger.Render("Could not open your browser: "+m.err.Error()) + "\n")
		b.WriteString("Visit " + theme.Title.Render(m.target) + " to finish, or press o to try again.")
	case m.opening:
		b.WriteString(theme.Warn.Render("Redirecting you back…"))
	default:
		b.WriteString(fmt.Sprintf("Redirecting you back in %d second%s…\n", m.left, plural(m.left)))
		b.WriteString(theme.Muted.Render("Press o to open now: " + m.target))
	}
	b.WriteString("\n\n" + theme.Muted.Render(m.hint()))
	return theme.CardActive.Render(b.String())
}

// ─── private ─────────────────────────────────────────────────────────────────

// navigate hands the destination off. The automatic countdown ends with the
// first hand-off; only a failed one may be repeated, and only by hand.
func (m Model) navigate() (Model, tea.Cmd) {
	if m.opening || m.opened {
		return m, nil
	}
	m.counting = false
	m.opening = true
	target := m.target
	return m, func() tea.Msg {
		return RedirectedMsg{Err: m.port.Redirect(context.Background(), target)}
	}
}

func (m Model) hint() string {
	if m.target != "" && !m.opened && !m.opening {
		return "o open now · q quit"
	}
	return "q quit"
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return countdownMsg{} })
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
