// Package response builds the response envelope returned to the voice
// platform: spoken text, optional reprompt, and the session flag.
package response

import "strings"

// SpeechTypeSSML is the only output speech type the builder emits.
const SpeechTypeSSML = "SSML"

// Envelope is the outbound response envelope.
type Envelope struct {
	Version           string         `json:"version"`
	SessionAttributes map[string]any `json:"sessionAttributes,omitempty"`
	UserAgent         string         `json:"userAgent,omitempty"`
	Response          *Response      `json:"response"`
}

// Response is the body of the response envelope.
type Response struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	Reprompt         *Reprompt     `json:"reprompt,omitempty"`
	ShouldEndSession *bool         `json:"shouldEndSession,omitempty"`
}

// OutputSpeech is speech to be synthesized by the platform.
type OutputSpeech struct {
	Type string `json:"type"`
	SSML string `json:"ssml"`
}

// Reprompt is spoken when the user does not answer within the timeout.
type Reprompt struct {
	OutputSpeech *OutputSpeech `json:"outputSpeech"`
}

// Speech returns the SSML of the output speech with the <speak> wrapper
// removed, or "" when nothing is spoken.
func (e *Envelope) Speech() string {
	if e == nil || e.Response == nil || e.Response.OutputSpeech == nil {
		return ""
	}
	return Unwrap(e.Response.OutputSpeech.SSML)
}

// RepromptSpeech returns the reprompt text with the <speak> wrapper removed.
func (e *Envelope) RepromptSpeech() string {
	if e == nil || e.Response == nil || e.Response.Reprompt == nil || e.Response.Reprompt.OutputSpeech == nil {
		return ""
	}
	return Unwrap(e.Response.Reprompt.OutputSpeech.SSML)
}

// EndsSession reports the session flag and whether it was set at all.
func (e *Envelope) EndsSession() (end bool, set bool) {
	if e == nil || e.Response == nil || e.Response.ShouldEndSession == nil {
		return false, false
	}
	return *e.Response.ShouldEndSession, true
}

// Wrap surrounds text with <speak> tags unless it is already wrapped.
func Wrap(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "<speak>") && strings.HasSuffix(trimmed, "</speak>") {
		return trimmed
	}
	return "<speak>" + text + "</speak>"
}

// Unwrap removes a single surrounding <speak> element.
func Unwrap(ssml string) string {
	s := strings.TrimSpace(ssml)
	s = strings.TrimPrefix(s, "<speak>")
	s = strings.TrimSuffix(s, "</speak>")
	return s
}
