// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/SyedDaiam9101/tl-detector/internal/cache"
	"github.com/SyedDaiam9101/tl-detector/internal/classifier"
	"github.com/SyedDaiam9101/tl-detector/internal/config"
	"github.com/SyedDaiam9101/tl-detector/internal/handler"
	"github.com/SyedDaiam9101/tl-detector/internal/inference"
	"github.com/SyedDaiam9101/tl-detector/internal/logging"
	"github.com/SyedDaiam9101/tl-detector/internal/metrics"
	"github.com/SyedDaiam9101/tl-detector/internal/middleware"
)

const (
	serviceName = "tl-detector"

	// drainDelay gives load balancers time to see NOT_SERVING before connections close
	drainDelay = 2 * time.Second
)

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "gRPC server port (default: 50051)")
	metricsPort := flag.Int("metrics", 0, "HTTP port for metrics, health and /classify (default: 9100)")
	backend := flag.String("backend", "", "Classifier backend: simulator or real-vehicle")
	modelDir := flag.String("models", "", "Directory holding the model artifacts and sample.jpg")
	redisAddr := flag.String("redis", "", "Redis address; empty disables publication")
	configFile := flag.String("config", "", "Path to config file (optional)")
	useMock := flag.Bool("mock", false, "Use mock models (for testing)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override with flags if provided
	if *port > 0 {
		cfg.Port = *port
	}
	if *metricsPort > 0 {
		cfg.MetricsPort = *metricsPort
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *modelDir != "" {
		cfg.ModelDir = *modelDir
	}
	if *redisAddr != "" {
		cfg.Redis = *redisAddr
	}
	if *useMock {
		cfg.UseMockInference = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(serviceName, cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("starting "+serviceName,
		"port", cfg.Port,
		"metrics_port", cfg.MetricsPort,
		"backend", cfg.Backend,
		"model_dir", cfg.ModelDir,
		"redis", cfg.Redis,
		"otel", cfg.OTELEnabled,
		"mock", cfg.UseMockInference)

	// Initialize OpenTelemetry tracer
	var tracerShutdown func(context.Context) error
	if cfg.OTELEnabled {
		tracerShutdown, err = initTracer(cfg.OTELEndpoint, logger)
		if err != nil {
			logger.Warnw("failed to initialize tracer", "error", err)
		} else {
			logger.Infow("OpenTelemetry tracing enabled", "endpoint", cfg.OTELEndpoint)
		}
	}

	// Initialize Redis publication (optional)
	var pub handler.Publisher
	var cacheClient *cache.Cache
	if cfg.Redis != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		cacheClient, err = cache.New(ctx, cfg.Redis, cfg.PublishTTL)
		cancel()
		if err != nil {
			logger.Warnw("failed to connect to Redis, continuing without publication", "error", err)
		} else {
			pub = cacheClient
			logger.Infow("Redis connected", "addr", cfg.Redis, "ttl", cfg.PublishTTL)
		}
	}

	// Health starts NOT_SERVING until the classifier passes its self-test
	healthServer := health.NewServer()
	setServing(healthServer, healthpb.HealthCheckResponse_NOT_SERVING)
	metrics.SetNotReady()

	h := handler.New(nil, pub, logger.Named("handler"))
	httpServer := startHTTPServer(cfg.MetricsPort, healthServer, h, logger)

	var opener inference.Opener = inference.ONNXOpener{LibraryPath: cfg.ONNXLibrary}
	if cfg.UseMockInference {
		logger.Infow("using mock models")
		opener = inference.NewMockOpener()
	}

	clf, err := classifier.New(cfg.ClassifierConfig(),
		classifier.WithOpener(opener),
		classifier.WithLogger(logger.Named("classifier")),
		classifier.WithObserver(metrics.Observer{}),
	)
	if err != nil {
		logger.Fatalw("failed to start classifier", "backend", cfg.Backend, "error", err)
	}
	h.SetClassifier(clf)

	// Build interceptor chain
	grpcServer := grpc.NewServer(serverOptions(cfg.OTELEnabled, logger)...)
	handler.RegisterClassifierServer(grpcServer, h)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	addr := fmt.Sprintf(":%d", cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatalw("failed to listen", "addr", addr, "error", err)
	}

	setServing(healthServer, healthpb.HealthCheckResponse_SERVING)
	metrics.SetReady()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Infow("shutting down gracefully", "signal", sig.String())

		setServing(healthServer, healthpb.HealthCheckResponse_NOT_SERVING)
		metrics.SetNotReady()

		time.Sleep(drainDelay)
		grpcServer.GracefulStop()
	}()

	logger.Infow("gRPC server listening", "addr", addr, "service", handler.ServiceName,
		"backend", clf.Backend(), "warmup_latency", clf.WarmupLatency())

	if err := grpcServer.Serve(lis); err != nil {
		logger.Errorw("gRPC server stopped", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = multierr.Combine(
		httpServer.Shutdown(ctx),
		clf.Close(),
		cacheClient.Close(),
	)
	if !cfg.UseMockInference {
		err = multierr.Append(err, inference.Shutdown())
	}
	if tracerShutdown != nil {
		err = multierr.Append(err, tracerShutdown(ctx))
	}
	for _, e := range multierr.Errors(err) {
		logger.Warnw("shutdown error", "error", e)
	}

	logger.Infow("server shutdown complete")
}

func setServing(hs *health.Server, st healthpb.HealthCheckResponse_ServingStatus) {
	hs.SetServingStatus(serviceName, st)
	hs.SetServingStatus(handler.ServiceName, st)
	hs.SetServingStatus("", st) // Overall health
}

func serverOptions(otelEnabled bool, logger *zap.SugaredLogger) []grpc.ServerOption {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			middleware.UnaryRequestIDInterceptor(),
			middleware.UnaryCameraIDInterceptor(),
			middleware.UnaryLoggingInterceptor(logger.Named("grpc")),
			middleware.UnaryMetricsInterceptor(),
		),
	}
	if otelEnabled {
		opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}
	return opts
}

func startHTTPServer(port int, healthServer *health.Server, classify http.Handler, logger *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Liveness: the process is up and answering
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Readiness follows the gRPC health status
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		resp, err := healthServer.Check(r.Context(), &healthpb.HealthCheckRequest{})
		if err != nil || resp.Status != healthpb.HealthCheckResponse_SERVING {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Not Ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})

	mux.Handle("/classify", classify)

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infow("HTTP server listening", "addr", addr, "endpoints", "/metrics /healthz /readyz /classify")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("HTTP server error", "error", err)
		}
	}()

	return server
}

func initTracer(endpoint string, logger *zap.SugaredLogger) (func(context.Context) error, error) {
	if endpoint != "" {
		// OTLP export needs a collector; spans go to stdout until one is wired
		logger.Infow("using stdout trace exporter", "otlp_endpoint", endpoint)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	// Create resource with service information
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	// Set global tracer provider
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
