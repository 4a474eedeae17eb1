// Package skill dispatches request envelopes through an ordered chain of
// handlers, with interceptors around the dispatch and a fallback chain of
// error handlers.
package skill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gezibash/arc-skill/internal/middleware"
	"github.com/gezibash/arc-skill/pkg/envelope"
	skerrors "github.com/gezibash/arc-skill/pkg/errors"
	"github.com/gezibash/arc-skill/pkg/response"
)

// Skill is an immutable, assembled dispatcher. It is safe for concurrent use
// as long as its handlers and hooks are.
type Skill struct {
	id            string
	userAgent     string
	handlers      []RequestHandler
	errorHandlers []ErrorHandler
	chain         middleware.Chain
}

// Builder assembles a Skill.
type Builder struct {
	s Skill
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddRequestHandlers appends handlers. Registration order is match order.
func (b *Builder) AddRequestHandlers(h ...RequestHandler) *Builder {
	b.s.handlers = append(b.s.handlers, h...)
	return b
}

// AddErrorHandlers appends error handlers.
func (b *Builder) AddErrorHandlers(h ...ErrorHandler) *Builder {
	b.s.errorHandlers = append(b.s.errorHandlers, h...)
	return b
}

// AddRequestInterceptors appends hooks run before dispatch.
func (b *Builder) AddRequestInterceptors(h ...middleware.Hook) *Builder {
	b.s.chain.Request = append(b.s.chain.Request, h...)
	return b
}

// AddResponseInterceptors appends hooks run after dispatch.
func (b *Builder) AddResponseInterceptors(h ...middleware.Hook) *Builder {
	b.s.chain.Response = append(b.s.chain.Response, h...)
	return b
}

// WithSkillID rejects requests addressed to any other application id.
// An empty id disables the check.
func (b *Builder) WithSkillID(id string) *Builder {
	b.s.id = id
	return b
}

// WithUserAgent sets the userAgent stamped on responses.
func (b *Builder) WithUserAgent(ua string) *Builder {
	b.s.userAgent = ua
	return b
}

// Build returns the assembled skill. The builder may be reused; later
// changes do not affect skills already built.
func (b *Builder) Build() *Skill {
	s := b.s
	s.handlers = append([]RequestHandler(nil), b.s.handlers...)
	s.errorHandlers = append([]ErrorHandler(nil), b.s.errorHandlers...)
	s.chain = middleware.Chain{
		Request:  append([]middleware.Hook(nil), b.s.chain.Request...),
		Response: append([]middleware.Hook(nil), b.s.chain.Response...),
	}
	return &s
}

// ID returns the configured skill id, if any.
func (s *Skill) ID() string { return s.id }

// Handlers returns the request handlers in match order.
func (s *Skill) Handlers() []RequestHandler {
	return append([]RequestHandler(nil), s.handlers...)
}

// ErrorHandlers returns the error handlers in match order.
func (s *Skill) ErrorHandlers() []ErrorHandler {
	return append([]ErrorHandler(nil), s.errorHandlers...)
}

// Invoke dispatches one request envelope and returns the response envelope.
//
// Request interceptors run first, then the first handler whose CanHandle
// accepts the input. A missing handler, a handler error, a handler panic or
// a request interceptor error is passed to the first error handler that
// accepts it. Response interceptors then run on the final response. If no
// error handler accepts the error, Invoke returns it wrapped in ErrUnhandled.
func (s *Skill) Invoke(ctx context.Context, env *envelope.RequestEnvelope) (*response.Envelope, error) {
	if env == nil || env.Request == nil {
		return nil, fmt.Errorf("%w: nil request envelope", skerrors.ErrInvalidInput)
	}
	if s.id != "" {
		if got := env.ApplicationID(); got != s.id {
			return nil, fmt.Errorf("%w: got %q", skerrors.ErrSkillIDMismatch, got)
		}
	}

	in := NewInput(env, s.userAgent)
	info := &middleware.CallInfo{Request: env, Started: time.Now()}
	ctx = envelope.WithRequest(ctx, env)

	ctx, err := s.chain.RunRequest(ctx, info)
	var resp *response.Envelope
	if err != nil {
		err = fmt.Errorf("%w: %w", skerrors.ErrInterceptor, err)
	} else {
		resp, info.Handler, err = s.dispatch(ctx, in)
	}

	info.Outcome = middleware.OutcomeHandled
	if err != nil {
		info.Err = err
		resp, err = s.handleError(ctx, in, info, err)
	}
	info.Response = resp

	if _, herr := s.chain.RunResponse(ctx, info); herr != nil {
		return nil, herr
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Skill) dispatch(ctx context.Context, in *Input) (*response.Envelope, string, error) {
	for _, h := range s.handlers {
		if !h.CanHandle(ctx, in) {
			continue
		}
		resp, err := safeHandle(func() (*response.Envelope, error) {
			return h.Handle(ctx, in)
		})
		if err != nil {
			return nil, h.Name(), fmt.Errorf("handler %s: %w", h.Name(), err)
		}
		return orEmpty(in, resp), h.Name(), nil
	}
	return nil, "", fmt.Errorf("%w: type=%s intent=%s", skerrors.ErrNoHandler, in.RequestType(), in.IntentName())
}

// handleError runs the first accepting error handler.
func (s *Skill) handleError(ctx context.Context, in *Input, info *middleware.CallInfo, cause error) (*response.Envelope, error) {
	for _, h := range s.errorHandlers {
		if !h.CanHandle(ctx, in, cause) {
			continue
		}
		resp, err := safeHandle(func() (*response.Envelope, error) {
			return h.Handle(ctx, in, cause)
		})
		if err != nil {
			info.Outcome = middleware.OutcomeFailed
			return nil, fmt.Errorf("%w: error handler %s: %w", skerrors.ErrUnhandled, h.Name(), errors.Join(err, cause))
		}
		info.Handler = h.Name()
		info.Outcome = middleware.OutcomeRecovered
		return orEmpty(in, resp), nil
	}
	info.Outcome = middleware.OutcomeFailed
	return nil, fmt.Errorf("%w: %w", skerrors.ErrUnhandled, cause)
}

func safeHandle(fn func() (*response.Envelope, error)) (resp *response.Envelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("%w: %v", skerrors.ErrHandlerPanic, r)
		}
	}()
	return fn()
}

func orEmpty(in *Input, resp *response.Envelope) *response.Envelope {
	if resp == nil {
		return in.ResponseBuilder().GetResponse()
	}
	return resp
}
