// internal/handler/service.go
package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/SyedDaiam9101/tl-detector/internal/middleware"
	"github.com/SyedDaiam9101/tl-detector/internal/signal"
)

const (
	// ServiceName is the fully-qualified gRPC service name
	ServiceName = "tldetector.v1.TrafficLightClassifier"
	// ClassifyMethod is the full method name of Classify
	ClassifyMethod = "/" + ServiceName + "/Classify"
)

// ClassifierServer is the server API for the TrafficLightClassifier service.
// The request carries an encoded JPEG or PNG frame, the response the signal's wire code.
type ClassifierServer interface {
	Classify(context.Context, *wrapperspb.BytesValue) (*wrapperspb.Int32Value, error)
}

func classifyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassifierServer).Classify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ClassifyMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClassifierServer).Classify(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the TrafficLightClassifier service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClassifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Classify",
			Handler:    classifyHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tldetector/v1/classifier.proto",
}

// RegisterClassifierServer registers srv on s
func RegisterClassifierServer(s grpc.ServiceRegistrar, srv ClassifierServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ClassifierClient calls a remote TrafficLightClassifier
type ClassifierClient struct {
	cc grpc.ClientConnInterface
}

// NewClassifierClient creates a client on an existing connection
func NewClassifierClient(cc grpc.ClientConnInterface) *ClassifierClient {
	return &ClassifierClient{cc: cc}
}

// Classify sends an encoded image and returns the remote classification.
// An empty cameraID leaves the server default in place.
func (c *ClassifierClient) Classify(ctx context.Context, image []byte, cameraID string, opts ...grpc.CallOption) (signal.Signal, error) {
	if cameraID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, middleware.CameraIDHeader, cameraID)
	}
	out := new(wrapperspb.Int32Value)
	if err := c.cc.Invoke(ctx, ClassifyMethod, wrapperspb.Bytes(image), out, opts...); err != nil {
		return signal.Unknown, err
	}
	return signal.Signal(out.GetValue()), nil
}
