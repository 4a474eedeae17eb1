package response

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func boolPtr(b bool) *bool { return &b }

func TestBuilderSpeakAndEnd(t *testing.T) {
	got := NewBuilder("1.0", "test").
		Speak("The sum of 1 and 2 is 3.").
		WithShouldEndSession(true).
		GetResponse()

	want := &Envelope{
		Version:   "1.0",
		UserAgent: "test",
		Response: &Response{
			OutputSpeech:     &OutputSpeech{Type: SpeechTypeSSML, SSML: "<speak>The sum of 1 and 2 is 3.</speak>"},
			ShouldEndSession: boolPtr(true),
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
	if got.Speech() != "The sum of 1 and 2 is 3." {
		t.Errorf("Speech = %q", got.Speech())
	}
}

func TestBuilderRepromptKeepsSessionOpen(t *testing.T) {
	got := NewBuilder("1.0", "").Speak("Help Message.").Reprompt("Help Message.").GetResponse()

	end, set := got.EndsSession()
	if !set || end {
		t.Fatalf("EndsSession = (%v, %v), want (false, true)", end, set)
	}
	if got.RepromptSpeech() != "Help Message." {
		t.Errorf("RepromptSpeech = %q", got.RepromptSpeech())
	}
}

func TestBuilderExplicitFlagWinsOverReprompt(t *testing.T) {
	got := NewBuilder("1.0", "").Reprompt("again?").WithShouldEndSession(true).GetResponse()
	if end, set := got.EndsSession(); !set || !end {
		t.Fatalf("EndsSession = (%v, %v), want (true, true)", end, set)
	}
}

func TestBuilderEmptyResponse(t *testing.T) {
	got := NewBuilder("1.0", "").GetResponse()
	if got.Response == nil {
		t.Fatal("Response must not be nil")
	}
	if _, set := got.EndsSession(); set {
		t.Error("empty response should leave the session flag unset")
	}

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"version":"1.0","response":{}}` {
		t.Errorf("json = %s", data)
	}
}

func TestWrapIsIdempotent(t *testing.T) {
	if got := Wrap("<speak>hi</speak>"); got != "<speak>hi</speak>" {
		t.Errorf("Wrap = %q", got)
	}
	if got := Unwrap(Wrap("hello")); got != "hello" {
		t.Errorf("Unwrap(Wrap) = %q", got)
	}
}

func TestNilEnvelopeHelpers(t *testing.T) {
	var e *Envelope
	if e.Speech() != "" || e.RepromptSpeech() != "" {
		t.Error("nil envelope should have no speech")
	}
}
