package console

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/reflow/wordwrap"
)

var (
	accentColor = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	dimColor    = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	warnColor   = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"}
	skillColor  = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	titleStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(dimColor)
	userStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	skillStyle = lipgloss.NewStyle().Foreground(skillColor).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(warnColor).Bold(true)
)

const helpText = "enter send · /launch · /end · esc quit"

type turnMsg Turn

// Model is the bubbletea model of the console.
type Model struct {
	ctx     context.Context
	sess    *Session
	input   textinput.Model
	view    viewport.Model
	spinner spinner.Model
	turns   []Turn
	waiting bool
	width   int
	height  int
}

// NewModel returns a console model bound to sess.
func NewModel(ctx context.Context, sess *Session) Model {
	ti := textinput.New()
	ti.Placeholder = "add 2 and 3"
	ti.Prompt = "> "
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentColor)

	m := Model{
		ctx:     ctx,
		sess:    sess,
		input:   ti,
		spinner: s,
		view:    viewport.New(80, 20),
	}
	m.resize(80, 24)
	return m
}

// Turns returns the exchanges so far.
func (m Model) Turns() []Turn { return m.turns }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			if strings.EqualFold(text, CmdQuit) {
				return m, tea.Quit
			}
			m.input.Reset()
			m.waiting = true
			return m, tea.Batch(m.say(text), m.spinner.Tick)
		}

	case turnMsg:
		m.waiting = false
		m.turns = append(m.turns, Turn(msg))
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) say(text string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		return turnMsg(sess.Say(ctx, text))
	}
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	// header, blank, input, footer
	m.view.Width = max(w, 10)
	m.view.Height = max(h-4, 3)
	m.input.Width = max(w-4, 10)
	m.refresh()
}

func (m *Model) refresh() {
	m.view.SetContent(renderTurns(m.turns, m.view.Width))
	m.view.GotoBottom()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("arc-skill") + dimStyle.Render(" · "+m.sess.ID()) + "\n")
	b.WriteString(m.view.View() + "\n")
	if m.waiting {
		b.WriteString(m.spinner.View() + " " + dimStyle.Render("thinking") + "\n")
	} else {
		b.WriteString(m.input.View() + "\n")
	}
	b.WriteString(dimStyle.Render(helpText))
	return b.String()
}

func renderTurns(turns []Turn, width int) string {
	if len(turns) == 0 {
		return dimStyle.Render("Say something, or /launch to open the skill.")
	}
	wrap := max(width-2, 10)
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(userStyle.Render("you ") + wordwrap.String(t.Input, wrap) + "\n")
		switch {
		case t.Err != nil:
			b.WriteString(errorStyle.Render("err ") + wordwrap.String(t.Err.Error(), wrap) + "\n")
		case t.Speech == "":
			b.WriteString(skillStyle.Render("bot ") + dimStyle.Render("(silence)") + "\n")
		default:
			b.WriteString(skillStyle.Render("bot ") + wordwrap.String(t.Speech, wrap) + "\n")
		}
		if t.EndSession {
			b.WriteString(dimStyle.Render("-- session ended --") + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Run starts the TUI when stdin is a terminal and falls back to RunLines
// otherwise.
func Run(ctx context.Context, sess *Session, in *os.File, out io.Writer) error {
	if !IsTerminal(in) {
		return RunLines(ctx, sess, in, out)
	}
	p := tea.NewProgram(NewModel(ctx, sess), tea.WithAltScreen(), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
