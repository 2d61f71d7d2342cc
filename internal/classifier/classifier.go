// Package classifier determines the state of a traffic light in a camera frame.
//
// A Classifier owns exactly one backend for its lifetime. Construction loads the
// model and runs a self-test on a bundled sample image: one inference whose result
// is only logged, then a second, timed inference that reports steady-state latency.
// The sample shows a green light and was made for the simulator model, so with the
// real-vehicle backend only the successful completion and the timing are meaningful.
package classifier

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SyedDaiam9101/tl-detector/internal/frame"
	"github.com/SyedDaiam9101/tl-detector/internal/inference"
	"github.com/SyedDaiam9101/tl-detector/internal/signal"
)

const tracerName = "github.com/SyedDaiam9101/tl-detector/internal/classifier"

var (
	// ErrNotReady is returned by Classify on a classifier that has not finished its self-test.
	ErrNotReady = errors.New("classifier not ready")
	// ErrSelfTest is returned when the construction-time self-test fails.
	ErrSelfTest = errors.New("self-test failed")
	// ErrClosed is returned by Classify after Close.
	ErrClosed = errors.New("classifier closed")
)

// State is the lifecycle state of a Classifier.
type State int32

const (
	Loading State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "loading"
}

// Logger receives human-readable construction diagnostics. *zap.SugaredLogger satisfies it.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
}

// Observer receives timing and result events.
type Observer interface {
	// SelfTestCompleted reports the sample's signal and the post-warm-up latency.
	SelfTestCompleted(k Kind, sample signal.Signal, latency time.Duration)
	// Classified reports every successful runtime classification.
	Classified(k Kind, s signal.Signal, latency time.Duration)
}

type nopLogger struct{}

func (nopLogger) Infow(string, ...interface{}) {}

type nopObserver struct{}

func (nopObserver) SelfTestCompleted(Kind, signal.Signal, time.Duration) {}
func (nopObserver) Classified(Kind, signal.Signal, time.Duration)        {}

// Config selects the backend and where its artifacts live.
type Config struct {
	Backend  Kind
	ModelDir string
	// SampleImage overrides the self-test image. Defaults to ModelDir/sample.jpg.
	SampleImage string
}

// SamplePath returns the self-test image location.
func (c Config) SamplePath() string {
	if c.SampleImage != "" {
		return c.SampleImage
	}
	return filepath.Join(c.ModelDir, SampleImage)
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithOpener sets how model artifacts are deserialized. The default is inference.ONNXOpener{}.
func WithOpener(o inference.Opener) Option {
	return func(c *Classifier) { c.opener = o }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// WithObserver sets the latency/result observer.
func WithObserver(o Observer) Option {
	return func(c *Classifier) { c.observer = o }
}

// WithClock sets the clock used for latency measurements.
func WithClock(clk clock.Clock) Option {
	return func(c *Classifier) { c.clock = clk }
}

// Classifier maps camera frames to traffic light signals.
type Classifier struct {
	backend  Backend
	opener   inference.Opener
	logger   Logger
	observer Observer
	clock    clock.Clock
	tracer   trace.Tracer

	state        atomic.Int32
	closed       atomic.Bool
	warmup       time.Duration
	sampleSignal signal.Signal
}

// New loads the configured backend and runs the self-test. It returns only a Ready
// classifier; any failure is returned and nothing is left open.
func New(cfg Config, opts ...Option) (*Classifier, error) {
	kind, err := ParseKind(string(cfg.Backend))
	if err != nil {
		return nil, err
	}

	c := &Classifier{
		opener:   inference.ONNXOpener{},
		logger:   nopLogger{},
		observer: nopObserver{},
		clock:    clock.New(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(int32(Loading))

	artifact, _ := ArtifactPath(kind, cfg.ModelDir)
	c.logger.Infow("loading traffic light model", "backend", kind, "artifact", artifact)

	backend, err := Load(kind, cfg.ModelDir, c.opener)
	if err != nil {
		return nil, err
	}
	c.backend = backend

	if err := c.selfTest(cfg.SamplePath()); err != nil {
		if cerr := backend.Close(); cerr != nil {
			c.logger.Infow("closing model after failed self-test", "error", cerr)
		}
		return nil, err
	}

	c.state.Store(int32(Ready))
	c.logger.Infow("traffic light classifier ready", "backend", kind)
	return c, nil
}

func (c *Classifier) selfTest(samplePath string) error {
	kind := c.backend.Kind()

	sample, err := frame.Load(samplePath)
	if err != nil {
		return errors.Wrapf(ErrSelfTest, "%v", err)
	}

	c.logger.Infow("warming up classifier on sample image",
		"sample", samplePath,
		"expected", signal.Green,
		"note", "the sample targets the simulator model; other backends may disagree")

	sig, err := c.classify(sample)
	if err != nil {
		return errors.Wrapf(ErrSelfTest, "warm-up inference: %v", err)
	}
	c.logger.Infow("sample classified", "backend", kind, "signal", sig, "state", int32(sig))

	start := c.clock.Now()
	if _, err := c.classify(sample); err != nil {
		return errors.Wrapf(ErrSelfTest, "timed inference: %v", err)
	}
	latency := c.clock.Since(start)

	c.warmup = latency
	c.sampleSignal = sig
	c.observer.SelfTestCompleted(kind, sig, latency)
	c.logger.Infow("inference latency after warm-up", "backend", kind, "latency", latency)
	return nil
}

func (c *Classifier) classify(f *frame.Frame) (signal.Signal, error) {
	idx, err := c.backend.ClassIndex(f)
	if err != nil {
		return signal.Unknown, err
	}
	return MapIndex(c.backend.Kind(), idx)
}

// Classify determines the traffic light state in a BGR frame. It blocks until
// inference completes. Errors are never turned into a guessed signal.
func (c *Classifier) Classify(ctx context.Context, f *frame.Frame) (signal.Signal, error) {
	if c == nil || State(c.state.Load()) != Ready {
		return signal.Unknown, ErrNotReady
	}
	if c.closed.Load() {
		return signal.Unknown, ErrClosed
	}
	kind := c.backend.Kind()

	_, span := c.tracer.Start(ctx, "classifier.Classify",
		trace.WithAttributes(attribute.String("backend", string(kind))))
	defer span.End()

	start := c.clock.Now()
	sig, err := c.classify(f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return signal.Unknown, err
	}
	latency := c.clock.Since(start)

	span.SetAttributes(attribute.String("signal", sig.String()))
	c.observer.Classified(kind, sig, latency)
	return sig, nil
}

// Backend reports the active backend.
func (c *Classifier) Backend() Kind { return c.backend.Kind() }

// State reports the lifecycle state.
func (c *Classifier) State() State { return State(c.state.Load()) }

// WarmupLatency is the duration of the timed self-test inference.
func (c *Classifier) WarmupLatency() time.Duration { return c.warmup }

// SampleSignal is what the self-test sample was classified as.
func (c *Classifier) SampleSignal() signal.Signal { return c.sampleSignal }

// Closed reports whether Close was called.
func (c *Classifier) Closed() bool { return c.closed.Load() }

// Close releases the model. Later Classify calls fail with ErrClosed; the
// lifecycle state stays Ready. Closing twice is a no-op.
func (c *Classifier) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.backend.Close()
}
