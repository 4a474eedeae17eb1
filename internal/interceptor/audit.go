package interceptor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gezibash/arc-skill/internal/auditlog"
	"github.com/gezibash/arc-skill/internal/middleware"
	"github.com/gezibash/arc-skill/pkg/logging"
)

// Audit stores one record per invocation. Storage failures are logged and
// never fail the call.
func Audit(be auditlog.Backend, log *logging.Logger) Hooks {
	if be == nil {
		return Hooks{}
	}
	if log == nil {
		log = logging.New(nil)
	}
	log = log.WithComponent("audit")

	return Hooks{
		Response: func(ctx context.Context, info *middleware.CallInfo) (context.Context, error) {
			rec := NewRecord(info)
			if err := be.Put(context.WithoutCancel(ctx), rec); err != nil {
				log.WithRequest(rec.RequestID, rec.RequestType).WithError(err).
					WarnContext(ctx, "audit write failed")
			}
			return ctx, nil
		},
	}
}

// NewRecord builds the audit record for a finished call.
func NewRecord(info *middleware.CallInfo) *auditlog.Record {
	started := info.Started
	if started.IsZero() {
		started = time.Now()
	}
	rec := &auditlog.Record{
		ID:          uuid.NewString(),
		RequestID:   info.Request.RequestID(),
		SessionID:   info.Request.SessionID(),
		RequestType: info.Request.RequestType(),
		Intent:      info.Request.IntentName(),
		Handler:     info.Handler,
		Outcome:     string(info.Outcome),
		Speech:      info.Response.Speech(),
		Timestamp:   started.UTC(),
		Duration:    info.Duration(),
	}
	if info.Err != nil {
		rec.Error = info.Err.Error()
	}
	return rec
}
