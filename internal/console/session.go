// Package console runs an interactive dialog with a skill: a bubbletea
// TUI on terminals and a line-oriented loop on pipes.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gezibash/arc-skill/internal/simulator"
	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/response"
)

// Invoker dispatches one request envelope.
type Invoker interface {
	Invoke(ctx context.Context, env *envelope.RequestEnvelope) (*response.Envelope, error)
}

// Commands understood in addition to free text.
const (
	CmdLaunch = "/launch"
	CmdEnd    = "/end"
	CmdQuit   = "/quit"
)

// Turn is one exchange with the skill.
type Turn struct {
	Input       string
	RequestType string
	Intent      string
	Speech      string
	Reprompt    string
	EndSession  bool
	Err         error
}

// Session converts user input into request envelopes and tracks the
// simulated platform session between turns.
type Session struct {
	inv Invoker
	sim *simulator.Simulator
}

// NewSession returns a session that sends requests to inv.
func NewSession(inv Invoker, sim *simulator.Simulator) *Session {
	return &Session{inv: inv, sim: sim}
}

// ID returns the current platform session id.
func (s *Session) ID() string { return s.sim.SessionID() }

// Say sends one line of input. "/launch" and "/end" send a LaunchRequest
// and a SessionEndedRequest; anything else is parsed as an utterance.
func (s *Session) Say(ctx context.Context, text string) Turn {
	text = strings.TrimSpace(text)

	var env *envelope.RequestEnvelope
	switch strings.ToLower(text) {
	case CmdLaunch:
		env = s.sim.Launch()
	case CmdEnd:
		env = s.sim.SessionEnded("")
	default:
		env = s.sim.FromUtterance(text)
	}

	turn := Turn{Input: text, RequestType: env.Request.Type}
	if env.Request.Intent != nil {
		turn.Intent = env.Request.Intent.Name
	}

	resp, err := s.inv.Invoke(ctx, env)
	if err != nil {
		turn.Err = err
		return turn
	}
	turn.Speech = resp.Speech()
	turn.Reprompt = resp.RepromptSpeech()
	if end, _ := resp.EndsSession(); end {
		turn.EndSession = true
		s.sim.EndSession()
	}
	return turn
}

// RunLines reads one utterance per line from r and writes the skill's
// replies to w until EOF, "/quit" or ctx cancellation.
func RunLines(ctx context.Context, sess *Session, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, CmdQuit) {
			return nil
		}
		if _, err := io.WriteString(w, formatTurn(sess.Say(ctx, line))); err != nil {
			return err
		}
	}
	return sc.Err()
}

func formatTurn(t Turn) string {
	var b strings.Builder
	switch {
	case t.Err != nil:
		fmt.Fprintf(&b, "! %v\n", t.Err)
	case t.Speech == "":
		b.WriteString("< (silence)\n")
	default:
		fmt.Fprintf(&b, "< %s\n", t.Speech)
	}
	if t.EndSession {
		b.WriteString("-- session ended --\n")
	}
	return b.String()
}
