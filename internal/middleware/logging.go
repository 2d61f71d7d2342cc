// internal/middleware/logging.go
package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryLoggingInterceptor logs one line per unary call. It must run after the
// request id and camera id interceptors so both ids are in the context.
func UnaryLoggingInterceptor(logger *zap.SugaredLogger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []interface{}{
			"method", info.FullMethod,
			"code", code.String(),
			"request_id", GetRequestID(ctx),
			"camera_id", GetCameraID(ctx),
			"duration", time.Since(start),
		}
		switch code {
		case codes.OK:
			logger.Debugw("request handled", fields...)
		case codes.Internal, codes.Unknown:
			logger.Errorw("request failed", append(fields, "error", err)...)
		default:
			logger.Warnw("request rejected", append(fields, "error", err)...)
		}
		return resp, err
	}
}
