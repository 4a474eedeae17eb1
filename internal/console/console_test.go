package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gezibash/arc-skill/internal/handlers"
	"github.com/gezibash/arc-skill/internal/simulator"
	"github.com/gezibash/arc-skill/internal/skill"
	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/response"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	b := skill.NewBuilder()
	if err := handlers.Register(b, handlers.Options{Reflector: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return NewSession(b.Build(), simulator.New(simulator.Options{}))
}

type failingInvoker struct{}

func (failingInvoker) Invoke(context.Context, *envelope.RequestEnvelope) (*response.Envelope, error) {
	return nil, errors.New("unreachable")
}

func TestSessionSay(t *testing.T) {
	tests := []struct {
		input      string
		reqType    string
		speech     string
		endSession bool
	}{
		{"/launch", envelope.TypeLaunch, handlers.WelcomeSpeech, false},
		{"add 2 and 3", envelope.TypeIntent, "The sum of 2 and 3 is 5.", true},
		{"help", envelope.TypeIntent, handlers.HelpSpeech, false},
		{"stop", envelope.TypeIntent, handlers.GoodbyeSpeech, true},
		{"/end", envelope.TypeSessionEnded, "", false},
	}
	sess := newSession(t)
	for _, tt := range tests {
		turn := sess.Say(context.Background(), tt.input)
		if turn.Err != nil {
			t.Fatalf("%q: %v", tt.input, turn.Err)
		}
		if turn.RequestType != tt.reqType {
			t.Errorf("%q: request type = %q, want %q", tt.input, turn.RequestType, tt.reqType)
		}
		if turn.Speech != tt.speech {
			t.Errorf("%q: speech = %q, want %q", tt.input, turn.Speech, tt.speech)
		}
		if turn.EndSession != tt.endSession {
			t.Errorf("%q: end = %v, want %v", tt.input, turn.EndSession, tt.endSession)
		}
	}
}

func TestSessionRotatesAfterEnd(t *testing.T) {
	sess := newSession(t)
	before := sess.ID()
	if turn := sess.Say(context.Background(), "cancel"); !turn.EndSession {
		t.Fatalf("cancel did not end the session: %+v", turn)
	}
	if sess.ID() == before {
		t.Error("session id not rotated after the skill ended the session")
	}
}

func TestSessionInvokeError(t *testing.T) {
	sess := NewSession(failingInvoker{}, simulator.New(simulator.Options{}))
	turn := sess.Say(context.Background(), "add 1 and 2")
	if turn.Err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(formatTurn(turn), "! unreachable") {
		t.Errorf("formatTurn = %q", formatTurn(turn))
	}
}

func TestRunLines(t *testing.T) {
	in := strings.NewReader("/launch\n\nmultiply 4 by 5\nstop\n/quit\nhelp\n")
	var out bytes.Buffer
	if err := RunLines(context.Background(), newSession(t), in, &out); err != nil {
		t.Fatalf("RunLines: %v", err)
	}
	want := "< " + handlers.WelcomeSpeech + "\n" +
		"< The product of 4 and 5 is 20.\n" +
		"-- session ended --\n" +
		"< " + handlers.GoodbyeSpeech + "\n" +
		"-- session ended --\n"
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestRunLinesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunLines(ctx, newSession(t), strings.NewReader("help\n"), &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func runCmd(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, runCmd(t, c)...)
	}
	return out
}

func TestModelEnterSendsTurn(t *testing.T) {
	m := NewModel(context.Background(), newSession(t))
	m.input.SetValue("subtract 2 from 10")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if !m.waiting {
		t.Fatal("model not waiting after enter")
	}
	if m.input.Value() != "" {
		t.Errorf("input not reset: %q", m.input.Value())
	}
	if !strings.Contains(m.View(), "thinking") {
		t.Error("view does not show the spinner while waiting")
	}

	var delivered bool
	for _, msg := range runCmd(t, cmd) {
		if tm, ok := msg.(turnMsg); ok {
			next, _ = m.Update(tm)
			m = next.(Model)
			delivered = true
		}
	}
	if !delivered {
		t.Fatal("no turn delivered")
	}
	if m.waiting {
		t.Error("still waiting after turn")
	}
	turns := m.Turns()
	if len(turns) != 1 {
		t.Fatalf("turns = %d", len(turns))
	}
	if turns[0].Intent != handlers.IntentDifference {
		t.Errorf("intent = %q", turns[0].Intent)
	}
	if !strings.Contains(m.View(), "subtract 2 from 10") {
		t.Errorf("view missing input:\n%s", m.View())
	}
}

func TestModelIgnoresEmptyInput(t *testing.T) {
	m := NewModel(context.Background(), newSession(t))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || next.(Model).waiting {
		t.Error("empty input should not send")
	}
}

func TestModelQuit(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		text string
	}{
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, ""},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, ""},
		{"quit command", tea.KeyMsg{Type: tea.KeyEnter}, "/quit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(context.Background(), newSession(t))
			m.input.SetValue(tt.text)
			_, cmd := m.Update(tt.msg)
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("command is not tea.Quit")
			}
		})
	}
}

func TestModelResize(t *testing.T) {
	m := NewModel(context.Background(), newSession(t))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	if m.view.Width != 120 || m.view.Height != 36 {
		t.Errorf("viewport = %dx%d", m.view.Width, m.view.Height)
	}
}

func TestRenderTurnsWraps(t *testing.T) {
	long := strings.Repeat("word ", 20)
	out := renderTurns([]Turn{{Input: long, Speech: "ok"}}, 30)
	if !strings.Contains(out, "\n") || strings.Count(out, "\n") < 3 {
		t.Errorf("long input not wrapped:\n%s", out)
	}
}
