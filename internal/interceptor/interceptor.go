// Package interceptor provides the built-in request and response hooks:
// logging, metrics, tracing and auditing.
package interceptor

import (
	"errors"

	"github.com/gezibash/arc-skill/internal/middleware"
	"github.com/gezibash/arc-skill/internal/skill"
	skerrors "github.com/gezibash/arc-skill/pkg/errors"
)

// Error kinds reported by ErrorKind.
const (
	KindNoHandler      = "no_handler"
	KindHandlerPanic   = "handler_panic"
	KindInvalidOperand = "invalid_operand"
	KindInterceptor    = "interceptor"
	KindHandler        = "handler"
)

// ErrorKind classifies a dispatch error for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, skerrors.ErrNoHandler):
		return KindNoHandler
	case errors.Is(err, skerrors.ErrHandlerPanic):
		return KindHandlerPanic
	case errors.Is(err, skerrors.ErrInvalidOperand):
		return KindInvalidOperand
	case errors.Is(err, skerrors.ErrInterceptor):
		return KindInterceptor
	default:
		return KindHandler
	}
}

// Hooks is a set of request and response hooks that belong together.
type Hooks struct {
	Request  middleware.Hook
	Response middleware.Hook
}

// Install adds every non-nil hook of each set to the skill builder, in order.
func Install(b *skill.Builder, sets ...Hooks) *skill.Builder {
	for _, s := range sets {
		if s.Request != nil {
			b.AddRequestInterceptors(s.Request)
		}
		if s.Response != nil {
			b.AddResponseInterceptors(s.Response)
		}
	}
	return b
}

func handlerLabel(info *middleware.CallInfo) string {
	if info.Handler == "" {
		return "none"
	}
	return info.Handler
}
