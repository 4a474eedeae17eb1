package interceptor

import (
	"context"
	"log/slog"

	"github.com/gezibash/arc-skill/internal/middleware"
	"github.com/gezibash/arc-skill/pkg/envelope"
	"github.com/gezibash/arc-skill/pkg/logging"
)

const maxLoggedPayload = 4096

// Logging logs each request envelope and response envelope as JSON at debug
// level, plus one summary line per invocation at info level.
func Logging(log *logging.Logger) Hooks {
	if log == nil {
		log = logging.New(nil)
	}
	log = log.WithComponent("interceptor")

	return Hooks{
		Request: func(ctx context.Context, info *middleware.CallInfo) (context.Context, error) {
			if log.Slog().Enabled(ctx, slog.LevelDebug) {
				if data, err := envelope.Marshal(info.Request); err == nil {
					log.DebugContext(ctx, "request envelope", "payload", logging.Truncate(string(data), maxLoggedPayload))
				}
			}
			return ctx, nil
		},
		Response: func(ctx context.Context, info *middleware.CallInfo) (context.Context, error) {
			if info.Response != nil && log.Slog().Enabled(ctx, slog.LevelDebug) {
				if data, err := envelope.Marshal(info.Response); err == nil {
					log.DebugContext(ctx, "response envelope", "payload", logging.Truncate(string(data), maxLoggedPayload))
				}
			}

			l := log.WithRequest(info.Request.RequestID(), info.Request.RequestType()).
				WithIntent(info.Request.IntentName())
			args := []any{
				"handler", handlerLabel(info),
				"outcome", string(info.Outcome),
				"duration", info.Duration(),
			}
			if info.Err != nil {
				args = append(args, "error", info.Err.Error(), "kind", ErrorKind(info.Err))
			}
			if info.Outcome == middleware.OutcomeFailed {
				l.WarnContext(ctx, "skill invocation failed", args...)
			} else {
				l.InfoContext(ctx, "skill invoked", args...)
			}
			return ctx, nil
		},
	}
}
