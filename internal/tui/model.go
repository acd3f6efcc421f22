// Package tui is the terminal chat shell.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"cryptoguide/internal/assistant"
	"cryptoguide/internal/session"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	introStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	botStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// chrome is the number of lines used around the viewport.
const chrome = 8

type answerMsg struct {
	content string
}

// Model is the Bubble Tea model of one chat session.
type Model struct {
	ctx      context.Context
	answerer session.Answerer
	session  *session.Session

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width   int
	height  int
	waiting bool
}

func New(ctx context.Context, answerer session.Answerer) Model {
	ti := textinput.New()
	ti.Placeholder = "What would you like to know?"
	ti.CharLimit = 4096
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		answerer: answerer,
		session:  session.New(),
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chrome, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.renderer = newRenderer(max(msg.Width-4, 20))
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.session.Append(session.RoleUser, question)
			m.waiting = true
			m.refresh()
			return m, m.ask(question)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.waiting = false
		m.session.Append(session.RoleAssistant, msg.content)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(assistant.Title) + "\n")
	b.WriteString(introStyle.Render(assistant.Intro) + "\n\n")
	b.WriteString(m.viewport.View() + "\n")
	if m.waiting {
		b.WriteString(m.spinner.View() + " Thinking...\n")
	} else {
		b.WriteString("\n")
	}
	b.WriteString(m.input.View() + "\n")
	b.WriteString(footerStyle.Render(footer()))
	return b.String()
}

// Turns exposes the conversation so far.
func (m Model) Turns() []session.Turn {
	return m.session.Turns()
}

func (m Model) ask(question string) tea.Cmd {
	ctx, answerer := m.ctx, m.answerer
	return func() tea.Msg {
		return answerMsg{content: answerer.Answer(ctx, question)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	turns := m.session.Turns()
	if len(turns) == 0 {
		return introStyle.Render("Type a question and press Enter. Esc quits.")
	}

	var b strings.Builder
	for _, t := range turns {
		switch t.Role {
		case session.RoleUser:
			b.WriteString(userStyle.Render("You") + "\n" + t.Content + "\n\n")
		default:
			b.WriteString(botStyle.Render("Assistant") + "\n" + m.renderMarkdown(t.Content) + "\n")
		}
	}
	return b.String()
}

// renderMarkdown keeps every line break of the reply; plain markdown would
// join consecutive lines into one paragraph.
func (m Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content + "\n"
	}
	hard := strings.ReplaceAll(strings.TrimSpace(content), "\n", "  \n")
	out, err := m.renderer.Render(hard)
	if err != nil {
		return errStyle.Render(err.Error()) + "\n" + content + "\n"
	}
	return out
}

func footer() string {
	return strings.Join(assistant.Sources, " · ") + " · " + assistant.Credit
}

// rendererStyles are tried in order; the terminal's detected style first.
var rendererStyles = []glamour.TermRendererOption{
	glamour.WithAutoStyle(),
	glamour.WithStylePath("light"),
}

// newRenderer returns nil, meaning plain text, when no style loads.
func newRenderer(wrap int) *glamour.TermRenderer {
	for _, style := range rendererStyles {
		r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrap))
		if err == nil {
			return r
		}
	}
	return nil
}
