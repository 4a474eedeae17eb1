package skill

import (
	"context"
	"errors"
	"fmt"

	"github.com/gezibash/arc-skill/internal/cel"
	"github.com/gezibash/arc-skill/pkg/response"
)

// RequestHandler is one entry of the dispatch chain.
type RequestHandler interface {
	Name() string
	CanHandle(ctx context.Context, in *Input) bool
	Handle(ctx context.Context, in *Input) (*response.Envelope, error)
}

// ErrorHandler turns a dispatch failure into a response.
type ErrorHandler interface {
	Name() string
	CanHandle(ctx context.Context, in *Input, err error) bool
	Handle(ctx context.Context, in *Input, err error) (*response.Envelope, error)
}

// HandlerFunc produces a response for a matched request.
type HandlerFunc func(ctx context.Context, in *Input) (*response.Envelope, error)

// ErrorHandlerFunc produces a response for a failed request.
type ErrorHandlerFunc func(ctx context.Context, in *Input, err error) (*response.Envelope, error)

// Route is a RequestHandler whose predicate is a CEL expression over the
// request attributes.
type Route struct {
	name   string
	filter *cel.Filter
	fn     HandlerFunc
}

// NewRoute compiles match and binds it to fn.
func NewRoute(name, match string, fn HandlerFunc) (*Route, error) {
	if fn == nil {
		return nil, fmt.Errorf("route %s: nil handler", name)
	}
	f, err := cel.Compile(match, PredicateVars)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", name, err)
	}
	return &Route{name: name, filter: f, fn: fn}, nil
}

// MustRoute is like NewRoute but panics on error.
func MustRoute(name, match string, fn HandlerFunc) *Route {
	r, err := NewRoute(name, match, fn)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Route) Name() string { return r.name }

// Match returns the predicate source.
func (r *Route) Match() string { return r.filter.String() }

func (r *Route) CanHandle(_ context.Context, in *Input) bool {
	return r.filter.Match(in.Attributes())
}

func (r *Route) Handle(ctx context.Context, in *Input) (*response.Envelope, error) {
	return r.fn(ctx, in)
}

// Alias returns a route that reuses the action of r under a different
// predicate.
func (r *Route) Alias(name, match string) (*Route, error) {
	return NewRoute(name, match, r.fn)
}

type errorHandler struct {
	name   string
	accept func(error) bool
	fn     ErrorHandlerFunc
}

// CatchAll returns an ErrorHandler that accepts every error.
func CatchAll(name string, fn ErrorHandlerFunc) ErrorHandler {
	return &errorHandler{name: name, fn: fn}
}

// OnError returns an ErrorHandler that accepts errors matching target.
func OnError(name string, target error, fn ErrorHandlerFunc) ErrorHandler {
	return &errorHandler{
		name:   name,
		accept: func(err error) bool { return errors.Is(err, target) },
		fn:     fn,
	}
}

func (e *errorHandler) Name() string { return e.name }

func (e *errorHandler) CanHandle(_ context.Context, _ *Input, err error) bool {
	return e.accept == nil || e.accept(err)
}

func (e *errorHandler) Handle(ctx context.Context, in *Input, err error) (*response.Envelope, error) {
	return e.fn(ctx, in, err)
}

// Describe returns the predicate of h when it has one.
func Describe(h RequestHandler) string {
	if m, ok := h.(interface{ Match() string }); ok {
		return m.Match()
	}
	return ""
}
