package server

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// UnaryStatusInterceptor converts plain errors returned by handlers into
// gRPC status errors and logs failed calls.
func UnaryStatusInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		err = toStatus(err)
		st, _ := status.FromError(err)
		log.WarnContext(ctx, "grpc call failed", "method", info.FullMethod, "code", st.Code().String(), "error", st.Message())
		return nil, err
	}
}
