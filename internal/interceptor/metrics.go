package interceptor

import (
	"context"

	"github.com/gezibash/arc-skill/internal/middleware"
	"github.com/gezibash/arc-skill/internal/observability"
)

// Metrics records invocation counts, durations and error kinds.
func Metrics(m *observability.Metrics) Hooks {
	if m == nil {
		return Hooks{}
	}
	return Hooks{
		Response: func(ctx context.Context, info *middleware.CallInfo) (context.Context, error) {
			rt := info.Request.RequestType()
			outcome := string(info.Outcome)
			m.RequestsTotal.WithLabelValues(rt, handlerLabel(info), outcome).Inc()
			m.RequestDuration.WithLabelValues(rt, outcome).Observe(info.Duration().Seconds())
			if info.Err != nil {
				m.ErrorsTotal.WithLabelValues(ErrorKind(info.Err)).Inc()
			}
			return ctx, nil
		},
	}
}
