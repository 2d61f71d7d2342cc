// internal/middleware/request_id.go
package middleware

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	// RequestIDHeader is the metadata key for the request ID
	RequestIDHeader = "x-request-id"
	// CameraIDHeader is the metadata key naming the camera a frame came from
	CameraIDHeader = "x-camera-id"
	// DefaultCameraID is used when a caller does not name its camera
	DefaultCameraID = "default"
)

// requestIDKey is the context key for storing the request ID
type requestIDKey struct{}

type cameraIDKey struct{}

// UnaryRequestIDInterceptor extracts x-request-id from incoming metadata or generates
// a new UUID if not present. It injects the request ID into the context and adds it
// to outgoing metadata.
func UnaryRequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		// Try to extract request ID from incoming metadata
		requestID := extractHeader(ctx, RequestIDHeader)

		// Generate a new UUID if not present
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// Add request ID to context
		ctx = WithRequestID(ctx, requestID)

		// Add request ID to outgoing metadata (response headers)
		// Fails outside a real server transport; the request still proceeds
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID))

		// Call the handler
		return handler(ctx, req)
	}
}

// UnaryCameraIDInterceptor stores the caller's x-camera-id in the context,
// falling back to DefaultCameraID.
func UnaryCameraIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		return handler(WithCameraID(ctx, extractHeader(ctx, CameraIDHeader)), req)
	}
}

// WithCameraID returns a context carrying the camera id. An empty id becomes DefaultCameraID.
func WithCameraID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = DefaultCameraID
	}
	return context.WithValue(ctx, cameraIDKey{}, id)
}

// GetCameraID retrieves the camera id from the context, or DefaultCameraID
func GetCameraID(ctx context.Context) string {
	if id, ok := ctx.Value(cameraIDKey{}).(string); ok && id != "" {
		return id
	}
	return DefaultCameraID
}

func extractHeader(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// WithRequestID returns a context carrying the request ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
