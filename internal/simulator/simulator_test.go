package simulator

import (
	"strings"
	"testing"
	"time"

	"github.com/gezibash/arc-skill/internal/handlers"
	"github.com/gezibash/arc-skill/pkg/envelope"
)

func fixedClock() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestSessionFlags(t *testing.T) {
	s := New(Options{ApplicationID: "amzn1.ask.skill.calc", Now: fixedClock})
	first := s.Launch()
	second := s.Intent(handlers.IntentHelp, nil)

	if !first.IsNewSession() {
		t.Error("first turn should start a new session")
	}
	if second.IsNewSession() {
		t.Error("second turn should continue the session")
	}
	if first.SessionID() != second.SessionID() || first.SessionID() != s.SessionID() {
		t.Errorf("session ids differ: %s %s", first.SessionID(), second.SessionID())
	}
	if first.RequestID() == second.RequestID() {
		t.Error("request ids should be unique")
	}
	if first.ApplicationID() != "amzn1.ask.skill.calc" {
		t.Errorf("application id = %q", first.ApplicationID())
	}
	if !first.Request.Timestamp.Equal(fixedClock()) {
		t.Errorf("timestamp = %v", first.Request.Timestamp)
	}
	if first.Locale() != DefaultLocale {
		t.Errorf("locale = %q", first.Locale())
	}
	if err := envelope.Validate(first); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSessionEndedStartsFreshSession(t *testing.T) {
	s := New(Options{})
	s.Launch()
	before := s.SessionID()

	ended := s.SessionEnded("")
	if ended.RequestType() != envelope.TypeSessionEnded || ended.Request.Reason != ReasonUserInitiated {
		t.Fatalf("ended = %+v", ended.Request)
	}
	if ended.SessionID() != before {
		t.Error("SessionEnded should belong to the ending session")
	}

	next := s.Launch()
	if next.SessionID() == before || !next.IsNewSession() {
		t.Errorf("expected a new session after SessionEnded, got %s new=%v", next.SessionID(), next.IsNewSession())
	}
}

func TestIntentSlots(t *testing.T) {
	env := New(Options{}).Intent(handlers.IntentSum, map[string]string{"x": "2", "y": "3"})
	if env.IntentName() != handlers.IntentSum {
		t.Fatalf("intent = %q", env.IntentName())
	}
	if env.SlotValue("x") != "2" || env.SlotValue("y") != "3" {
		t.Errorf("slots = %v", env.SlotValues())
	}
}

func TestFromUtterance(t *testing.T) {
	tests := []struct {
		text   string
		typ    string
		intent string
		x, y   string
	}{
		{"open calculator", envelope.TypeLaunch, "", "", ""},
		{"Start", envelope.TypeLaunch, "", "", ""},
		{"what is 2 plus 3", envelope.TypeIntent, handlers.IntentSum, "2", "3"},
		{"add 1.5 and -4", envelope.TypeIntent, handlers.IntentSum, "1.5", "-4"},
		{"10 minus 4", envelope.TypeIntent, handlers.IntentDifference, "10", "4"},
		{"multiply 6 by 7", envelope.TypeIntent, handlers.IntentProduct, "6", "7"},
		{"8 times 0.5", envelope.TypeIntent, handlers.IntentProduct, "8", "0.5"},
		{"divide 9 by 0", envelope.TypeIntent, handlers.IntentDivision, "9", "0"},
		{"12 over 4", envelope.TypeIntent, handlers.IntentDivision, "12", "4"},
		{"add five", envelope.TypeIntent, handlers.IntentSum, "", ""},
		{"help", envelope.TypeIntent, handlers.IntentHelp, "", ""},
		{"please stop", envelope.TypeIntent, handlers.IntentStop, "", ""},
		{"cancel that", envelope.TypeIntent, handlers.IntentCancel, "", ""},
		{"tell me a joke", envelope.TypeIntent, "TellMeAJokeIntent", "", ""},
		{"", envelope.TypeIntent, "UnknownIntent", "", ""},
		{"bye", envelope.TypeSessionEnded, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			env := New(Options{}).FromUtterance(tt.text)
			if env.RequestType() != tt.typ {
				t.Fatalf("type = %q, want %q", env.RequestType(), tt.typ)
			}
			if env.IntentName() != tt.intent {
				t.Errorf("intent = %q, want %q", env.IntentName(), tt.intent)
			}
			if env.SlotValue("x") != tt.x || env.SlotValue("y") != tt.y {
				t.Errorf("slots = %v, want x=%q y=%q", env.SlotValues(), tt.x, tt.y)
			}
		})
	}
}

func TestUserIDGenerated(t *testing.T) {
	env := New(Options{}).Launch()
	if !strings.HasPrefix(env.Session.User.UserID, "amzn1.ask.account.") {
		t.Errorf("user id = %q", env.Session.User.UserID)
	}
}
