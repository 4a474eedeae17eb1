package envelope

import "context"

type ctxKey struct{}

// WithRequest stores the request envelope in the context.
func WithRequest(ctx context.Context, env *RequestEnvelope) context.Context {
	return context.WithValue(ctx, ctxKey{}, env)
}

// FromContext retrieves the request envelope stored by WithRequest.
func FromContext(ctx context.Context) (*RequestEnvelope, bool) {
	env, ok := ctx.Value(ctxKey{}).(*RequestEnvelope)
	return env, ok && env != nil
}
