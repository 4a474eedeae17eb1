// Package simulator builds request envelopes the way the voice platform
// would, for local invocation without a device.
package simulator

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gezibash/arc-skill/internal/handlers"
	"github.com/gezibash/arc-skill/pkg/envelope"
)

// DefaultLocale is used when Options.Locale is empty.
const DefaultLocale = "en-US"

// Session end reasons sent with SessionEndedRequest.
const (
	ReasonUserInitiated = "USER_INITIATED"
	ReasonError         = "ERROR"
)

// Options configures a Simulator.
type Options struct {
	ApplicationID string
	UserID        string
	Locale        string
	// Now overrides the request timestamp clock.
	Now func() time.Time
}

// Simulator produces envelopes for one user. It keeps the session id and
// the new-session flag across turns.
type Simulator struct {
	opts      Options
	sessionID string
	started   bool
}

// New creates a Simulator with a fresh session.
func New(opts Options) *Simulator {
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.UserID == "" {
		opts.UserID = "amzn1.ask.account." + uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Simulator{opts: opts, sessionID: newSessionID()}
}

func newSessionID() string { return "amzn1.echo-api.session." + uuid.NewString() }

// SessionID returns the current session id.
func (s *Simulator) SessionID() string { return s.sessionID }

// EndSession forgets the current session. The next envelope starts a new
// one.
func (s *Simulator) EndSession() {
	s.sessionID = newSessionID()
	s.started = false
}

// Launch returns a LaunchRequest envelope.
func (s *Simulator) Launch() *envelope.RequestEnvelope {
	return s.envelope(&envelope.Request{Type: envelope.TypeLaunch})
}

// Intent returns an IntentRequest envelope for name with the given slots.
func (s *Simulator) Intent(name string, slots map[string]string) *envelope.RequestEnvelope {
	in := &envelope.Intent{Name: name, ConfirmationStatus: "NONE"}
	if len(slots) > 0 {
		in.Slots = make(map[string]envelope.Slot, len(slots))
		for k, v := range slots {
			in.Slots[k] = envelope.Slot{Name: k, Value: v, ConfirmationStatus: "NONE"}
		}
	}
	return s.envelope(&envelope.Request{Type: envelope.TypeIntent, Intent: in})
}

// SessionEnded returns a SessionEndedRequest envelope and ends the session.
func (s *Simulator) SessionEnded(reason string) *envelope.RequestEnvelope {
	if reason == "" {
		reason = ReasonUserInitiated
	}
	env := s.envelope(&envelope.Request{Type: envelope.TypeSessionEnded, Reason: reason})
	s.EndSession()
	return env
}

func (s *Simulator) envelope(req *envelope.Request) *envelope.RequestEnvelope {
	req.RequestID = "amzn1.echo-api.request." + uuid.NewString()
	req.Timestamp = s.opts.Now().UTC()
	req.Locale = s.opts.Locale

	app := &envelope.Application{ApplicationID: s.opts.ApplicationID}
	user := &envelope.User{UserID: s.opts.UserID}
	env := &envelope.RequestEnvelope{
		Version: envelope.Version,
		Session: &envelope.Session{
			New:         !s.started,
			SessionID:   s.sessionID,
			Application: app,
			User:        user,
		},
		Context: &envelope.Context{System: &envelope.System{Application: app, User: user}},
		Request: req,
	}
	s.started = true
	return env
}

var numberPattern = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)

type keywordIntent struct {
	words  []string
	intent string
}

// Checked in order; the first keyword found wins.
var keywordIntents = []keywordIntent{
	{[]string{"help"}, handlers.IntentHelp},
	{[]string{"stop"}, handlers.IntentStop},
	{[]string{"cancel"}, handlers.IntentCancel},
	{[]string{"add", "plus", "sum"}, handlers.IntentSum},
	{[]string{"subtract", "minus", "difference"}, handlers.IntentDifference},
	{[]string{"multiply", "times", "product"}, handlers.IntentProduct},
	{[]string{"divide", "over", "division"}, handlers.IntentDivision},
}

// FromUtterance maps free text to an envelope using keywords. The first two
// numbers in the text become the x and y slots. Text with no keyword maps
// to an intent named after the text, which only the reflector handles.
func (s *Simulator) FromUtterance(text string) *envelope.RequestEnvelope {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	has := func(candidates ...string) bool {
		for _, w := range words {
			for _, c := range candidates {
				if w == c {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has("open", "launch", "start"):
		return s.Launch()
	case has("exit", "quit", "bye", "goodbye"):
		return s.SessionEnded(ReasonUserInitiated)
	}

	for _, k := range keywordIntents {
		if has(k.words...) {
			return s.Intent(k.intent, operandSlots(text))
		}
	}
	return s.Intent(unknownIntent(words), operandSlots(text))
}

func operandSlots(text string) map[string]string {
	nums := numberPattern.FindAllString(text, 2)
	slots := make(map[string]string, 2)
	if len(nums) > 0 {
		slots["x"] = nums[0]
	}
	if len(nums) > 1 {
		slots["y"] = nums[1]
	}
	return slots
}

func unknownIntent(words []string) string {
	if len(words) == 0 {
		return "UnknownIntent"
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	b.WriteString("Intent")
	return b.String()
}
