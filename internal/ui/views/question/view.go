package question

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	sessiondto "raterc/internal/modules/session/dto"
	"raterc/internal/ui/components"
	"raterc/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

// Port is the slice of a running session this view needs. Submit hands the
// packaged answer to the driver; the view never talks to the server.
type Port interface {
	Submit(ctx context.Context, input sessiondto.SubmitInput) error
	Snapshot() sessiondto.Snapshot
}

// ─── messages ────────────────────────────────────────────────────────────────

// SubmittedMsg reports the driver's answer to a submission and the snapshot
// that followed it.
type SubmittedMsg struct {
	Seq      uint64
	Snapshot sessiondto.Snapshot
	Err      error
}

// ─── key bindings ────────────────────────────────────────────────────────────

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Pick   key.Binding
	Less   key.Binding
	More   key.Binding
	Focus  key.Binding
	Submit key.Binding
	Enter  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/↓", "move")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↑/↓", "move")),
		Pick:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space/1-9", "select")),
		Less:   key.NewBinding(key.WithKeys("left", "-"), key.WithHelp("←/→", "confidence")),
		More:   key.NewBinding(key.WithKeys("right", "+", "="), key.WithHelp("←/→", "confidence")),
		Focus:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "answer/confidence")),
		Submit: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the question presentation surface for one run.
type Model struct {
	port     Port
	now      func() time.Time
	keys     keyMap
	form     Form
	question sessiondto.QuestionView
	text     textarea.Model
	renderer *glamour.TermRenderer
	rendered string

	// pending is set between pressing submit and the driver's reply;
	// inFlight mirrors the snapshot and only Sync changes it.
	pending       bool
	inFlight      bool
	confidenceRow bool
	notice        string
	width         int
}

// New creates a surface backed by port. now stamps each presentation.
func New(port Port, now func() time.Time) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your answer…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(4)
	ta.SetWidth(60)

	r, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(72),
	)

	return Model{
		port:     port,
		now:      now,
		keys:     defaultKeys(),
		text:     ta,
		renderer: r,
	}
}

// Seq is the presentation currently shown, zero before the first question.
func (m Model) Seq() uint64 { return m.form.Seq }

func (m Model) Form() Form { return m.form }

func (m Model) Text() string { return m.text.Value() }

// CanSubmit reports whether a submission would be handed to the driver.
func (m Model) CanSubmit() bool {
	return m.form.Seq != 0 && !m.pending && !m.inFlight && m.form.Valid(m.text.Value())
}

// Sync follows the latest snapshot. A new presentation resets the form; the
// same presentation keeps whatever the rater has typed.
func (m *Model) Sync(snap sessiondto.Snapshot) tea.Cmd {
	m.inFlight = snap.Submitting
	if snap.Question == nil {
		return nil
	}
	if snap.Question.Seq != m.form.Seq {
		m.question = *snap.Question
		m.form = NewForm(m.question, m.now())
		m.rendered = m.render(m.question.Text)
		m.text.Reset()
		m.confidenceRow = false
		m.pending = false
		m.notice = ""
		if !m.form.ClosedChoice() {
			return m.text.Focus()
		}
		m.text.Blur()
		return nil
	}
	if snap.Notice != "" {
		m.notice = snap.Notice
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.text.SetWidth(max(msg.Width-12, 20))
		if r, err := glamour.NewTermRenderer(
			glamour.WithStylePath("dark"),
			glamour.WithWordWrap(max(msg.Width-12, 20)),
		); err == nil {
			m.renderer = r
			m.rendered = m.render(m.question.Text)
		}
		return m, nil

	case SubmittedMsg:
		if msg.Seq != m.form.Seq {
			return m, nil
		}
		m.pending = false
		if msg.Err != nil {
			m.notice = msg.Err.Error()
			return m, nil
		}
		m.notice = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}
	if m.pending || m.inFlight {
		return m, nil
	}

	if !m.form.ClosedChoice() {
		if key.Matches(msg, m.keys.Focus) {
			m.confidenceRow = !m.confidenceRow
			if m.confidenceRow {
				m.text.Blur()
				return m, nil
			}
			return m, m.text.Focus()
		}
		if !m.confidenceRow {
			var cmd tea.Cmd
			m.text, cmd = m.text.Update(msg)
			return m, cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.form = m.form.MoveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.form = m.form.MoveCursor(1)
	case key.Matches(msg, m.keys.Pick):
		m.form = m.form.Select(m.form.Cursor)
	case key.Matches(msg, m.keys.Less):
		m.form = m.form.AdjustConfidence(-1)
	case key.Matches(msg, m.keys.More):
		m.form = m.form.AdjustConfidence(1)
	case key.Matches(msg, m.keys.Enter):
		if m.form.ClosedChoice() {
			return m.submit()
		}
	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			m.form = m.form.Select(int(s[0] - '1'))
		}
	}
	return m, nil
}

func (m Model) submit() (Model, tea.Cmd) {
	if !m.CanSubmit() {
		if m.form.Seq != 0 && !m.pending && !m.inFlight {
			m.notice = "Please provide an answer before submitting."
		}
		return m, nil
	}
	m.pending = true
	m.notice = ""
	return m, m.submitCmd(m.form.Package(m.text.Value()))
}

func (m Model) View() string {
	if m.form.Seq == 0 {
		return ""
	}
	var b strings.Builder
	if m.question.ExternalID != "" {
		b.WriteString(theme.Muted.Render("Question "+m.question.ExternalID) + "\n")
	}
	b.WriteString(m.rendered)
	b.WriteString("\n")

	if m.form.ClosedChoice() {
		for i, option := range m.form.Options {
			b.WriteString(m.renderOption(i, option) + "\n")
		}
	} else {
		b.WriteString(m.text.View() + "\n")
	}

	b.WriteString("\n")
	label := "Confidence"
	if m.confidenceRow {
		label = theme.Pointer.Render("› Confidence")
	}
	b.WriteString(label + "  " + components.ConfidenceScale(m.form.Confidence, maxConfidence) + "\n\n")

	switch {
	case m.pending || m.inFlight:
		b.WriteString(theme.Warn.Render("Submitting…"))
	case m.notice != "":
		b.WriteString(theme.Hot.Render(m.notice))
	case m.CanSubmit():
		b.WriteString(theme.Good.Render("Ready: press ctrl+s to submit"))
	default:
		b.WriteString(theme.Muted.Render("Choose an answer to enable submit"))
	}
	b.WriteString("\n" + theme.Muted.Render(m.hint()))

	card := theme.CardActive
	if m.width > 0 {
		card = card.Width(max(m.width-4, 30))
	}
	return card.Render(b.String())
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m Model) renderOption(i int, option string) string {
	mark := "( )"
	if i == m.form.Selected {
		mark = "(•)"
	}
	line := fmt.Sprintf("%s %d. %s", mark, i+1, option)
	if i == m.form.Selected {
		line = theme.Chosen.Render(line)
	}
	if i == m.form.Cursor {
		return theme.Pointer.Render("›") + " " + line
	}
	return "  " + line
}

func (m Model) hint() string {
	if m.form.ClosedChoice() {
		return "↑/↓ move · space/1-9 select · ←/→ confidence · enter/ctrl+s submit · esc quit"
	}
	return "tab answer/confidence · ←/→ confidence · ctrl+s submit · esc quit"
}

func (m Model) render(text string) string {
	if m.renderer != nil {
		if out, err := m.renderer.Render(text); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return lipgloss.NewStyle().Bold(true).Render(text)
}

func (m Model) submitCmd(input sessiondto.SubmitInput) tea.Cmd {
	return func() tea.Msg {
		err := m.port.Submit(context.Background(), input)
		return SubmittedMsg{Seq: input.PresentationSeq, Snapshot: m.port.Snapshot(), Err: err}
	}
}
