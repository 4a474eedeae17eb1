// Package envelope defines the request envelope delivered by the voice
// platform to a skill.
package envelope

import "time"

// Version is the envelope schema version produced and accepted by the skill.
const Version = "1.0"

// Request types understood by the dispatcher.
const (
	TypeLaunch       = "LaunchRequest"
	TypeIntent       = "IntentRequest"
	TypeSessionEnded = "SessionEndedRequest"
)

// RequestEnvelope is the inbound request as delivered by the host platform.
type RequestEnvelope struct {
	Version string   `json:"version"`
	Session *Session `json:"session,omitempty"`
	Context *Context `json:"context,omitempty"`
	Request *Request `json:"request"`
}

// Session carries the host's session bookkeeping. The skill never persists it.
type Session struct {
	New         bool           `json:"new"`
	SessionID   string         `json:"sessionId"`
	Application *Application   `json:"application,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	User        *User          `json:"user,omitempty"`
}

// Application identifies the skill the request is addressed to.
type Application struct {
	ApplicationID string `json:"applicationId"`
}

// User identifies the account that invoked the skill.
type User struct {
	UserID string `json:"userId"`
}

// Context holds device-level state sent alongside the request.
type Context struct {
	System *System `json:"System,omitempty"`
}

// System is the system section of the request context.
type System struct {
	Application *Application `json:"application,omitempty"`
	User        *User        `json:"user,omitempty"`
	Device      *Device      `json:"device,omitempty"`
	APIEndpoint string       `json:"apiEndpoint,omitempty"`
}

// Device describes the device the utterance came from.
type Device struct {
	DeviceID string `json:"deviceId"`
}

// Request is the request body: type, id, locale and, for intent requests,
// the recognised intent.
type Request struct {
	Type      string        `json:"type"`
	RequestID string        `json:"requestId"`
	Timestamp time.Time     `json:"timestamp"`
	Locale    string        `json:"locale,omitempty"`
	Intent    *Intent       `json:"intent,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Error     *RequestError `json:"error,omitempty"`
}

// RequestError is attached to SessionEndedRequest when the session ended
// because of an error on the platform side.
type RequestError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Intent is the recognised intent and its slots.
type Intent struct {
	Name               string          `json:"name"`
	ConfirmationStatus string          `json:"confirmationStatus,omitempty"`
	Slots              map[string]Slot `json:"slots,omitempty"`
}

// Slot is a single named slot value extracted from the utterance.
type Slot struct {
	Name               string `json:"name"`
	Value              string `json:"value,omitempty"`
	ConfirmationStatus string `json:"confirmationStatus,omitempty"`
}

// RequestType returns the request type, or "" for an incomplete envelope.
func (e *RequestEnvelope) RequestType() string {
	if e == nil || e.Request == nil {
		return ""
	}
	return e.Request.Type
}

// RequestID returns the platform request id.
func (e *RequestEnvelope) RequestID() string {
	if e == nil || e.Request == nil {
		return ""
	}
	return e.Request.RequestID
}

// Locale returns the request locale.
func (e *RequestEnvelope) Locale() string {
	if e == nil || e.Request == nil {
		return ""
	}
	return e.Request.Locale
}

// IntentName returns the intent name. It is empty unless the request is an
// IntentRequest carrying an intent.
func (e *RequestEnvelope) IntentName() string {
	if e.RequestType() != TypeIntent || e.Request.Intent == nil {
		return ""
	}
	return e.Request.Intent.Name
}

// SlotValue returns the value of the named slot, or "" when the slot is
// missing or carries no value.
func (e *RequestEnvelope) SlotValue(name string) string {
	if e.IntentName() == "" {
		return ""
	}
	return e.Request.Intent.Slots[name].Value
}

// SlotValues returns all slot values keyed by slot name.
func (e *RequestEnvelope) SlotValues() map[string]string {
	out := make(map[string]string)
	if e.IntentName() == "" {
		return out
	}
	for name, slot := range e.Request.Intent.Slots {
		out[name] = slot.Value
	}
	return out
}

// IsNewSession reports whether the request opened a new session.
func (e *RequestEnvelope) IsNewSession() bool {
	return e != nil && e.Session != nil && e.Session.New
}

// SessionID returns the session id, or "".
func (e *RequestEnvelope) SessionID() string {
	if e == nil || e.Session == nil {
		return ""
	}
	return e.Session.SessionID
}

// ApplicationID returns the addressed skill id, preferring the context
// system section over the session.
func (e *RequestEnvelope) ApplicationID() string {
	if e == nil {
		return ""
	}
	if e.Context != nil && e.Context.System != nil && e.Context.System.Application != nil {
		return e.Context.System.Application.ApplicationID
	}
	if e.Session != nil && e.Session.Application != nil {
		return e.Session.Application.ApplicationID
	}
	return ""
}
