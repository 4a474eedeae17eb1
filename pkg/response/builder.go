package response

// Builder accumulates a response. The zero value is not usable; call
// NewBuilder.
type Builder struct {
	version   string
	userAgent string
	attrs     map[string]any

	speech     *OutputSpeech
	reprompt   *OutputSpeech
	endSession *bool
}

// NewBuilder returns an empty builder that stamps responses with version
// and userAgent.
func NewBuilder(version, userAgent string) *Builder {
	return &Builder{version: version, userAgent: userAgent}
}

// Speak sets the spoken output.
func (b *Builder) Speak(text string) *Builder {
	b.speech = &OutputSpeech{Type: SpeechTypeSSML, SSML: Wrap(text)}
	return b
}

// Reprompt sets the reprompt speech. Unless the session flag is set
// explicitly, a reprompt keeps the session open.
func (b *Builder) Reprompt(text string) *Builder {
	b.reprompt = &OutputSpeech{Type: SpeechTypeSSML, SSML: Wrap(text)}
	return b
}

// WithShouldEndSession sets the session flag explicitly.
func (b *Builder) WithShouldEndSession(end bool) *Builder {
	b.endSession = &end
	return b
}

// WithSessionAttributes echoes attributes back to the platform.
func (b *Builder) WithSessionAttributes(attrs map[string]any) *Builder {
	b.attrs = attrs
	return b
}

// GetResponse assembles the envelope. It never returns nil.
func (b *Builder) GetResponse() *Envelope {
	resp := &Response{OutputSpeech: b.speech}
	if b.reprompt != nil {
		resp.Reprompt = &Reprompt{OutputSpeech: b.reprompt}
	}
	switch {
	case b.endSession != nil:
		end := *b.endSession
		resp.ShouldEndSession = &end
	case b.reprompt != nil:
		open := false
		resp.ShouldEndSession = &open
	}
	return &Envelope{
		Version:           b.version,
		SessionAttributes: b.attrs,
		UserAgent:         b.userAgent,
		Response:          resp,
	}
}
