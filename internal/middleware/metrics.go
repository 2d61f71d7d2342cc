// internal/middleware/metrics.go
package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/SyedDaiam9101/tl-detector/internal/metrics"
)

// UnaryMetricsInterceptor tracks in-flight calls and records the handling
// latency of every unary call by method and status code.
func UnaryMetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		inFlight := metrics.GRPCRequestsInFlight.WithLabelValues(info.FullMethod)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		resp, err := handler(ctx, req)

		// Non-status errors count as Unknown
		metrics.RecordGRPCLatency(info.FullMethod, status.Code(err).String(), time.Since(start).Seconds())
		return resp, err
	}
}
