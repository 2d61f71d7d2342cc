// internal/handler/handler.go
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/SyedDaiam9101/tl-detector/internal/classifier"
	"github.com/SyedDaiam9101/tl-detector/internal/frame"
	"github.com/SyedDaiam9101/tl-detector/internal/metrics"
	"github.com/SyedDaiam9101/tl-detector/internal/middleware"
	"github.com/SyedDaiam9101/tl-detector/internal/signal"
)

// MaxImageBytes bounds the size of an encoded frame accepted over HTTP
const MaxImageBytes = 16 << 20

// SignalClassifier is what the handler needs from a classifier.
// *classifier.Classifier satisfies it.
type SignalClassifier interface {
	Classify(ctx context.Context, f *frame.Frame) (signal.Signal, error)
	Backend() classifier.Kind
}

// Publisher makes the latest signal of a camera available to other consumers.
// *cache.Cache satisfies it.
type Publisher interface {
	PublishSignal(ctx context.Context, cameraID string, sig signal.Signal) error
}

// Handler serves classification over gRPC and HTTP.
// Until a classifier is attached every request fails with FailedPrecondition.
type Handler struct {
	mu     sync.RWMutex
	clf    SignalClassifier
	pub    Publisher
	logger *zap.SugaredLogger
}

// New creates a new Handler. clf and pub may be nil; a nil logger discards output.
func New(clf SignalClassifier, pub Publisher, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{clf: clf, pub: pub, logger: logger}
}

// SetClassifier attaches the classifier once it passed its self-test
func (h *Handler) SetClassifier(clf SignalClassifier) {
	h.mu.Lock()
	h.clf = clf
	h.mu.Unlock()
}

func (h *Handler) classifier() SignalClassifier {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clf
}

// Result is the outcome of one classification
type Result struct {
	State   int32  `json:"state"`
	Signal  string `json:"signal"`
	Backend string `json:"backend"`
}

// Classify handles a single gRPC classification request
func (h *Handler) Classify(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.Int32Value, error) {
	if req == nil {
		return nil, invalidArgumentError("request cannot be nil")
	}
	res, err := h.classifyImage(ctx, req.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Int32(res.State), nil
}

// classifyImage decodes, classifies and publishes. Errors are gRPC status errors.
func (h *Handler) classifyImage(ctx context.Context, image []byte) (*Result, error) {
	start := time.Now()

	requestID := middleware.GetRequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	cameraID := middleware.GetCameraID(ctx)

	if len(image) == 0 {
		return nil, invalidArgumentError("image cannot be empty")
	}

	clf := h.classifier()
	if clf == nil {
		return nil, failedPreconditionError("classifier not initialized")
	}

	f, err := frame.Decode(bytes.NewReader(image))
	if err != nil {
		return nil, grpcError(err)
	}

	sig, err := clf.Classify(ctx, f)
	if err != nil {
		h.logger.Errorw("classification failed",
			"request_id", requestID, "camera_id", cameraID, "error", err)
		return nil, grpcError(err)
	}

	if h.pub != nil {
		if err := h.pub.PublishSignal(ctx, cameraID, sig); err != nil {
			metrics.RecordPublishFailure()
			h.logger.Warnw("publishing signal failed",
				"request_id", requestID, "camera_id", cameraID, "signal", sig, "error", err)
		}
	}

	h.logger.Debugw("frame classified",
		"request_id", requestID,
		"camera_id", cameraID,
		"width", f.Width,
		"height", f.Height,
		"signal", sig,
		"total", time.Since(start))

	return &Result{
		State:   int32(sig),
		Signal:  sig.String(),
		Backend: string(clf.Backend()),
	}, nil
}

// ServeHTTP implements POST /classify. The body is an encoded image; the
// X-Camera-Id and X-Request-Id headers play the role of the gRPC metadata.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxImageBytes))
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}

	requestID := r.Header.Get(middleware.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set(middleware.RequestIDHeader, requestID)

	ctx := middleware.WithRequestID(r.Context(), requestID)
	ctx = middleware.WithCameraID(ctx, r.Header.Get(middleware.CameraIDHeader))

	res, err := h.classifyImage(ctx, image)
	if err != nil {
		st := status.Convert(err)
		writeJSON(w, httpStatus(st.Code()), map[string]string{"error": st.Message()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
