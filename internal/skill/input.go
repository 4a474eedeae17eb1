package skill

import (
	gocel "github.com/google/cel-go/cel"

	"github.com/gezibash/arc-skill/internal/cel"
	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/response"
)

// PredicateVars are the variables available to route predicates.
var PredicateVars = cel.Vars{
	"request_type": gocel.StringType,
	"intent":       gocel.StringType,
	"locale":       gocel.StringType,
	"new_session":  gocel.BoolType,
	"slots":        gocel.MapType(gocel.StringType, gocel.StringType),
}

// Input is what a handler sees: the request envelope and a way to build
// a response for it.
type Input struct {
	Envelope *envelope.RequestEnvelope

	userAgent string
	attrs     map[string]any
}

// NewInput wraps env for handlers. userAgent is stamped on built responses.
func NewInput(env *envelope.RequestEnvelope, userAgent string) *Input {
	return &Input{Envelope: env, userAgent: userAgent}
}

// Attributes returns the predicate attributes of the request. The map is
// computed once and shared; callers must not modify it.
func (in *Input) Attributes() map[string]any {
	if in.attrs != nil {
		return in.attrs
	}
	slots := in.Envelope.SlotValues()
	if slots == nil {
		slots = map[string]string{}
	}
	in.attrs = map[string]any{
		"request_type": in.Envelope.RequestType(),
		"intent":       in.Envelope.IntentName(),
		"locale":       in.Envelope.Locale(),
		"new_session":  in.Envelope.IsNewSession(),
		"slots":        slots,
	}
	return in.attrs
}

// RequestType is shorthand for Envelope.RequestType.
func (in *Input) RequestType() string { return in.Envelope.RequestType() }

// IntentName is shorthand for Envelope.IntentName.
func (in *Input) IntentName() string { return in.Envelope.IntentName() }

// Slot is shorthand for Envelope.SlotValue.
func (in *Input) Slot(name string) string { return in.Envelope.SlotValue(name) }

// ResponseBuilder returns a fresh response builder.
func (in *Input) ResponseBuilder() *response.Builder {
	return response.NewBuilder(envelope.Version, in.userAgent)
}
