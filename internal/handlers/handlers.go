// Package handlers implements the arithmetic skill: the request handlers in
// match order and the catch-all error responder.
package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/gezibash/arc-skill/internal/skill"
	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/logging"
	"github.com/gezibash/arc-skill/pkg/response"
)

// Intent names handled by the skill.
const (
	IntentSum        = "CaptureSumOperationIntent"
	IntentDifference = "CaptureDifferenceOperationIntent"
	IntentProduct    = "CaptureProductOperationIntent"
	IntentDivision   = "CaptureDivisionOperationIntent"
	IntentHelp       = "AMAZON.HelpIntent"
	IntentCancel     = "AMAZON.CancelIntent"
	IntentStop       = "AMAZON.StopIntent"
)

// Spoken text.
const (
	WelcomeSpeech      = "Welcome Message!"
	WelcomeReprompt    = "WELCOME REPROMPT MSG"
	HelpSpeech         = "Help Message."
	GoodbyeSpeech      = "Okay. Bye."
	DivideByZeroSpeech = "Dividing by zero not allowed."
	ErrorSpeech        = "Sorry, I couldn't understand what you said. Can you reformulate?"
)

// Handler names that are not part of Builtin.
const (
	ErrorResponderName  = "ErrorResponder"
	IntentReflectorName = "IntentReflector"
)

// Alias routes an extra predicate to a built-in handler's action.
type Alias struct {
	Name    string
	Handler string
	Match   string
}

// Options configures the handler chain.
type Options struct {
	// Reflector appends the IntentReflector catch-all for intents.
	Reflector bool
	// Aliases are matched before the built-in routes.
	Aliases []Alias
	Logger  *logging.Logger
}

// Builtin returns the built-in routes in match order, without the reflector.
func Builtin() []*skill.Route {
	return []*skill.Route{
		skill.MustRoute("Launch", `request_type == "LaunchRequest"`, launch),
		skill.MustRoute("Sum", intentIs(IntentSum), arithmetic(sum)),
		skill.MustRoute("Difference", intentIs(IntentDifference), arithmetic(difference)),
		skill.MustRoute("Product", intentIs(IntentProduct), arithmetic(product)),
		skill.MustRoute("Division", intentIs(IntentDivision), arithmetic(division)),
		skill.MustRoute("Help", intentIs(IntentHelp), help),
		skill.MustRoute("CancelAndStop",
			fmt.Sprintf(`request_type == "IntentRequest" && intent in [%q, %q]`, IntentCancel, IntentStop), cancelAndStop),
		skill.MustRoute("SessionEnded", `request_type == "SessionEndedRequest"`, sessionEnded),
	}
}

// Reflector returns the route that echoes any intent name.
func Reflector() *skill.Route {
	return skill.MustRoute(IntentReflectorName, `request_type == "IntentRequest"`, reflectIntent)
}

// routeTable indexes the built-in routes and the reflector by name.
// Routes are immutable and shared.
var routeTable = sync.OnceValue(func() map[string]*skill.Route {
	table := make(map[string]*skill.Route)
	for _, r := range append(Builtin(), Reflector()) {
		table[r.Name()] = r
	}
	return table
})

// Lookup returns the built-in route with the given name.
func Lookup(name string) (*skill.Route, bool) {
	r, ok := routeTable()[name]
	return r, ok
}

// Routes returns the full request handler chain for opts.
func Routes(opts Options) ([]skill.RequestHandler, error) {
	var out []skill.RequestHandler
	for _, a := range opts.Aliases {
		base, ok := Lookup(a.Handler)
		if !ok {
			return nil, fmt.Errorf("alias %q: unknown handler %q", a.Name, a.Handler)
		}
		name := a.Name
		if name == "" {
			name = a.Handler + "Alias"
		}
		r, err := base.Alias(name, a.Match)
		if err != nil {
			return nil, fmt.Errorf("alias %q: %w", name, err)
		}
		out = append(out, r)
	}
	for _, r := range Builtin() {
		out = append(out, r)
	}
	if opts.Reflector {
		out = append(out, Reflector())
	}
	return out, nil
}

// Register adds the handler chain and the error responder to b.
func Register(b *skill.Builder, opts Options) error {
	routes, err := Routes(opts)
	if err != nil {
		return err
	}
	b.AddRequestHandlers(routes...)
	b.AddErrorHandlers(ErrorResponder(opts.Logger))
	return nil
}

// ErrorResponder logs the error and asks the user to rephrase.
func ErrorResponder(log *logging.Logger) skill.ErrorHandler {
	if log == nil {
		log = logging.New(nil)
	}
	log = log.WithComponent("error-responder")
	return skill.CatchAll(ErrorResponderName, func(ctx context.Context, in *skill.Input, err error) (*response.Envelope, error) {
		log.WithRequest(in.Envelope.RequestID(), in.RequestType()).
			WithIntent(in.IntentName()).
			WithError(err).
			WarnContext(ctx, "error handled")
		return in.ResponseBuilder().
			Speak(ErrorSpeech).
			Reprompt(ErrorSpeech).
			GetResponse(), nil
	})
}

func intentIs(name string) string {
	return fmt.Sprintf(`request_type == %q && intent == %q`, envelope.TypeIntent, name)
}

func launch(_ context.Context, in *skill.Input) (*response.Envelope, error) {
	return in.ResponseBuilder().
		Speak(WelcomeSpeech).
		Reprompt(WelcomeReprompt).
		GetResponse(), nil
}

func help(_ context.Context, in *skill.Input) (*response.Envelope, error) {
	return in.ResponseBuilder().
		Speak(HelpSpeech).
		Reprompt(HelpSpeech).
		GetResponse(), nil
}

func cancelAndStop(_ context.Context, in *skill.Input) (*response.Envelope, error) {
	return in.ResponseBuilder().
		Speak(GoodbyeSpeech).
		WithShouldEndSession(true).
		GetResponse(), nil
}

func sessionEnded(_ context.Context, in *skill.Input) (*response.Envelope, error) {
	return in.ResponseBuilder().GetResponse(), nil
}

func reflectIntent(_ context.Context, in *skill.Input) (*response.Envelope, error) {
	return in.ResponseBuilder().
		Speak("You just triggered " + in.IntentName()).
		GetResponse(), nil
}
