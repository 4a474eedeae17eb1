package skill

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gezibash/arc-skill/internal/middleware"
	"github.com/gezibash/arc-skill/pkg/envelope"
	skerrors "github.com/gezibash/arc-skill/pkg/errors"
	"github.com/gezibash/arc-skill/pkg/response"
)

func intentRequest(name string, slots map[string]string) *envelope.RequestEnvelope {
	in := &envelope.Intent{Name: name, Slots: map[string]envelope.Slot{}}
	for k, v := range slots {
		in.Slots[k] = envelope.Slot{Name: k, Value: v}
	}
	return &envelope.RequestEnvelope{
		Version: envelope.Version,
		Session: &envelope.Session{New: true, SessionID: "s1", Application: &envelope.Application{ApplicationID: "amzn1.ask.skill.test"}},
		Request: &envelope.Request{Type: envelope.TypeIntent, RequestID: "r1", Locale: "en-US", Intent: in},
	}
}

func launchRequest() *envelope.RequestEnvelope {
	return &envelope.RequestEnvelope{
		Version: envelope.Version,
		Request: &envelope.Request{Type: envelope.TypeLaunch, RequestID: "r0"},
	}
}

func speak(text string) HandlerFunc {
	return func(_ context.Context, in *Input) (*response.Envelope, error) {
		return in.ResponseBuilder().Speak(text).GetResponse(), nil
	}
}

func fallback() ErrorHandler {
	return CatchAll("Fallback", func(_ context.Context, in *Input, err error) (*response.Envelope, error) {
		return in.ResponseBuilder().Speak("fallback: " + err.Error()).GetResponse(), nil
	})
}

func TestFirstMatchWins(t *testing.T) {
	s := NewBuilder().
		AddRequestHandlers(
			MustRoute("Launch", `request_type == "LaunchRequest"`, speak("launch")),
			MustRoute("Sum", `request_type == "IntentRequest" && intent == "Sum"`, speak("first")),
			MustRoute("SumAgain", `request_type == "IntentRequest" && intent == "Sum"`, speak("second")),
			MustRoute("Any", `request_type == "IntentRequest"`, speak("any")),
		).
		Build()

	tests := []struct {
		name string
		env  *envelope.RequestEnvelope
		want string
	}{
		{"launch", launchRequest(), "launch"},
		{"sum", intentRequest("Sum", nil), "first"},
		{"other intent", intentRequest("Other", nil), "any"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.Invoke(context.Background(), tt.env)
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if resp.Speech() != tt.want {
				t.Errorf("speech = %q, want %q", resp.Speech(), tt.want)
			}
		})
	}
}

func TestSlotPredicate(t *testing.T) {
	s := NewBuilder().
		AddRequestHandlers(MustRoute("HasX", `slots["x"] == "4"`, speak("x is four"))).
		AddErrorHandlers(fallback()).
		Build()

	resp, err := s.Invoke(context.Background(), intentRequest("Sum", map[string]string{"x": "4"}))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Speech() != "x is four" {
		t.Errorf("speech = %q", resp.Speech())
	}
}

func TestErrorPaths(t *testing.T) {
	failing := MustRoute("Failing", `intent == "Fail"`, func(context.Context, *Input) (*response.Envelope, error) {
		return nil, skerrors.ErrInvalidOperand
	})
	panicking := MustRoute("Panicking", `intent == "Panic"`, func(context.Context, *Input) (*response.Envelope, error) {
		panic("boom")
	})

	tests := []struct {
		name   string
		intent string
		want   error
	}{
		{"no handler", "Unknown", skerrors.ErrNoHandler},
		{"handler error", "Fail", skerrors.ErrInvalidOperand},
		{"handler panic", "Panic", skerrors.ErrHandlerPanic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen error
			s := NewBuilder().
				AddRequestHandlers(failing, panicking).
				AddErrorHandlers(CatchAll("Recorder", func(_ context.Context, in *Input, err error) (*response.Envelope, error) {
					seen = err
					return in.ResponseBuilder().Speak("sorry").GetResponse(), nil
				})).
				Build()

			resp, err := s.Invoke(context.Background(), intentRequest(tt.intent, nil))
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if resp.Speech() != "sorry" {
				t.Errorf("speech = %q", resp.Speech())
			}
			if !errors.Is(seen, tt.want) {
				t.Errorf("error handler saw %v, want %v", seen, tt.want)
			}
		})
	}
}

func TestUnhandledError(t *testing.T) {
	s := NewBuilder().Build()

	_, err := s.Invoke(context.Background(), launchRequest())
	if !errors.Is(err, skerrors.ErrUnhandled) {
		t.Fatalf("err = %v, want ErrUnhandled", err)
	}
	if !errors.Is(err, skerrors.ErrNoHandler) {
		t.Errorf("err = %v, want wrapped ErrNoHandler", err)
	}
}

func TestSelectiveErrorHandler(t *testing.T) {
	onlyOperand := &selective{target: skerrors.ErrInvalidOperand}
	s := NewBuilder().
		AddErrorHandlers(onlyOperand, fallback()).
		Build()

	resp, err := s.Invoke(context.Background(), launchRequest())
	if err != nil {
		t.Fatal(err)
	}
	if onlyOperand.called {
		t.Error("selective handler should not have run for ErrNoHandler")
	}
	if resp.Speech() == "" {
		t.Error("fallback should have spoken")
	}
}

type selective struct {
	target error
	called bool
}

func (s *selective) Name() string { return "Selective" }

func (s *selective) CanHandle(_ context.Context, _ *Input, err error) bool {
	return errors.Is(err, s.target)
}

func (s *selective) Handle(_ context.Context, in *Input, _ error) (*response.Envelope, error) {
	s.called = true
	return in.ResponseBuilder().GetResponse(), nil
}

func TestFailingErrorHandler(t *testing.T) {
	s := NewBuilder().
		AddErrorHandlers(CatchAll("Broken", func(context.Context, *Input, error) (*response.Envelope, error) {
			return nil, fmt.Errorf("broken")
		})).
		Build()

	_, err := s.Invoke(context.Background(), launchRequest())
	if !errors.Is(err, skerrors.ErrUnhandled) || !errors.Is(err, skerrors.ErrNoHandler) {
		t.Fatalf("err = %v", err)
	}
}

func TestInterceptorOrderAndOutcome(t *testing.T) {
	var trace []string
	hook := func(name string) middleware.Hook {
		return func(ctx context.Context, info *middleware.CallInfo) (context.Context, error) {
			trace = append(trace, name)
			return ctx, nil
		}
	}
	var final *middleware.CallInfo
	capture := func(ctx context.Context, info *middleware.CallInfo) (context.Context, error) {
		final = info
		return ctx, nil
	}

	s := NewBuilder().
		AddRequestHandlers(MustRoute("Launch", `request_type == "LaunchRequest"`, func(ctx context.Context, in *Input) (*response.Envelope, error) {
			trace = append(trace, "handler")
			return in.ResponseBuilder().Speak("hi").GetResponse(), nil
		})).
		AddErrorHandlers(fallback()).
		AddRequestInterceptors(hook("req1"), hook("req2")).
		AddResponseInterceptors(hook("resp1"), hook("resp2"), capture).
		Build()

	if _, err := s.Invoke(context.Background(), launchRequest()); err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(trace); got != "[req1 req2 handler resp1 resp2]" {
		t.Errorf("trace = %s", got)
	}
	if final.Handler != "Launch" || final.Outcome != middleware.OutcomeHandled || final.Response.Speech() != "hi" {
		t.Errorf("final call info = %+v", final)
	}

	trace = nil
	if _, err := s.Invoke(context.Background(), intentRequest("Nope", nil)); err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(trace); got != "[req1 req2 resp1 resp2]" {
		t.Errorf("error path trace = %s", got)
	}
	if final.Handler != "Fallback" || final.Outcome != middleware.OutcomeRecovered || !errors.Is(final.Err, skerrors.ErrNoHandler) {
		t.Errorf("error path call info = %+v", final)
	}
}

func TestRequestInterceptorErrorSkipsHandlers(t *testing.T) {
	handled := false
	s := NewBuilder().
		AddRequestHandlers(MustRoute("Launch", `true`, func(ctx context.Context, in *Input) (*response.Envelope, error) {
			handled = true
			return nil, nil
		})).
		AddErrorHandlers(fallback()).
		AddRequestInterceptors(func(ctx context.Context, _ *middleware.CallInfo) (context.Context, error) {
			return ctx, fmt.Errorf("denied")
		}).
		Build()

	resp, err := s.Invoke(context.Background(), launchRequest())
	if err != nil {
		t.Fatal(err)
	}
	if handled {
		t.Error("handler ran after interceptor failure")
	}
	if resp.Speech() != "fallback: request interceptor: denied" {
		t.Errorf("speech = %q", resp.Speech())
	}
}

func TestResponseInterceptorError(t *testing.T) {
	s := NewBuilder().
		AddRequestHandlers(MustRoute("Launch", `true`, speak("hi"))).
		AddResponseInterceptors(func(ctx context.Context, _ *middleware.CallInfo) (context.Context, error) {
			return ctx, skerrors.ErrClosed
		}).
		Build()

	if _, err := s.Invoke(context.Background(), launchRequest()); !errors.Is(err, skerrors.ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestSkillIDVerification(t *testing.T) {
	s := NewBuilder().
		WithSkillID("amzn1.ask.skill.test").
		AddRequestHandlers(MustRoute("Any", `true`, speak("ok"))).
		Build()

	if _, err := s.Invoke(context.Background(), intentRequest("X", nil)); err != nil {
		t.Fatalf("matching id: %v", err)
	}

	env := intentRequest("X", nil)
	env.Session.Application.ApplicationID = "amzn1.ask.skill.other"
	if _, err := s.Invoke(context.Background(), env); !errors.Is(err, skerrors.ErrSkillIDMismatch) {
		t.Errorf("err = %v, want ErrSkillIDMismatch", err)
	}
}

func TestNilEnvelope(t *testing.T) {
	s := NewBuilder().Build()
	if _, err := s.Invoke(context.Background(), nil); !errors.Is(err, skerrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := s.Invoke(context.Background(), &envelope.RequestEnvelope{}); !errors.Is(err, skerrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestNilResponseBecomesEmpty(t *testing.T) {
	s := NewBuilder().
		WithUserAgent("ua/1").
		AddRequestHandlers(MustRoute("Quiet", `true`, func(context.Context, *Input) (*response.Envelope, error) {
			return nil, nil
		})).
		Build()

	resp, err := s.Invoke(context.Background(), launchRequest())
	if err != nil {
		t.Fatal(err)
	}
	if resp == nil || resp.Response == nil || resp.UserAgent != "ua/1" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHandlerSeesEnvelopeInContext(t *testing.T) {
	s := NewBuilder().
		AddRequestHandlers(MustRoute("Ctx", `true`, func(ctx context.Context, in *Input) (*response.Envelope, error) {
			env, ok := envelope.FromContext(ctx)
			if !ok || env != in.Envelope {
				t.Error("envelope missing from context")
			}
			return nil, nil
		})).
		Build()

	if _, err := s.Invoke(context.Background(), launchRequest()); err != nil {
		t.Fatal(err)
	}
}

func TestBuilderIsolation(t *testing.T) {
	b := NewBuilder().AddRequestHandlers(MustRoute("A", `true`, speak("a")))
	first := b.Build()
	b.AddRequestHandlers(MustRoute("B", `true`, speak("b")))

	if n := len(first.Handlers()); n != 1 {
		t.Errorf("first skill has %d handlers, want 1", n)
	}
	if n := len(b.Build().Handlers()); n != 2 {
		t.Errorf("second skill has %d handlers, want 2", n)
	}
}

func TestNewRouteErrors(t *testing.T) {
	if _, err := NewRoute("Bad", `request_type ==`, speak("x")); err == nil {
		t.Error("expected compile error")
	}
	if _, err := NewRoute("Nil", `true`, nil); err == nil {
		t.Error("expected nil handler error")
	}
}

func TestRouteAliasAndDescribe(t *testing.T) {
	r := MustRoute("Sum", `intent == "Sum"`, speak("sum"))
	alias, err := r.Alias("Add", `intent == "Add"`)
	if err != nil {
		t.Fatal(err)
	}
	if Describe(alias) != `intent == "Add"` || alias.Name() != "Add" {
		t.Errorf("alias = %s %s", alias.Name(), Describe(alias))
	}

	s := NewBuilder().AddRequestHandlers(alias).Build()
	resp, err := s.Invoke(context.Background(), intentRequest("Add", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Speech() != "sum" {
		t.Errorf("speech = %q", resp.Speech())
	}
}

func TestOnErrorMatchesTarget(t *testing.T) {
	h := OnError("Operands", skerrors.ErrInvalidOperand, func(_ context.Context, in *Input, _ error) (*response.Envelope, error) {
		return in.ResponseBuilder().Speak("bad number").GetResponse(), nil
	})
	in := NewInput(launchRequest(), "")
	if !h.CanHandle(context.Background(), in, fmt.Errorf("handler Sum: %w", skerrors.ErrInvalidOperand)) {
		t.Error("expected wrapped ErrInvalidOperand to match")
	}
	if h.CanHandle(context.Background(), in, skerrors.ErrNoHandler) {
		t.Error("ErrNoHandler should not match")
	}
}
