package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peerprep/interview/internal/advice"
	"peerprep/interview/internal/config"
	"peerprep/interview/internal/database"
	"peerprep/interview/internal/events"
	"peerprep/interview/internal/gateway"
	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/jobs"
	"peerprep/interview/internal/llm"
	_ "peerprep/interview/internal/llm/gemini"
	"peerprep/interview/internal/metrics"
	authmw "peerprep/interview/internal/middleware"
	"peerprep/interview/internal/observability"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/routers"
	"peerprep/interview/internal/session"
	"peerprep/interview/internal/skills"
	"peerprep/interview/internal/transcripts"
	"peerprep/interview/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const (
	serviceName   = "interview"
	statsCacheTTL = 5 * time.Minute
)

func registerRoutes(router *chi.Mux, cfg *config.Config, interviewHandler *handlers.InterviewHandler, transcriptHandler *handlers.TranscriptHandler, healthHandler *handlers.HealthHandler) {
	routers.HealthRoutes(router, healthHandler)
	routers.InterviewRoutes(router, interviewHandler, transcriptHandler, cfg.OperatorKey)
}

// newRouter builds the mux with the shared middleware chain.
func newRouter(cfg *config.Config, logger *zap.Logger) *chi.Mux {
	router := chi.NewRouter()

	// cors middleware
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", authmw.OperatorKeyHeader},
		AllowCredentials: true,
	}))

	// the gateway timeout bounds generation; leave headroom for the store calls around it
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, middleware.Timeout(cfg.GatewayTimeout+30*time.Second))
	router.Use(observability.Middleware, metrics.Middleware(serviceName))
	router.Use(authmw.Authenticate(cfg.JWTSecret, logger))
	return router
}

// newPublisher connects to Redis when REDIS_ADDR is set. The returned pinger is nil
// when events are not published.
func newPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (events.Publisher, handlers.Pinger, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, interview events will not be published")
		return events.NopPublisher{}, nil, func() {}
	}

	publisher := events.NewRedisPublisher(cfg.RedisAddr, logger)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := publisher.Ping(pingCtx); err != nil {
		// publishing is best effort; readiness reports the broker state
		logger.Warn("Redis unreachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		logger.Info("Publishing interview events", zap.String("addr", cfg.RedisAddr), zap.String("channel", events.Channel))
	}
	return publisher, publisher, func() { _ = publisher.Close() }
}

func main() {
	logger := utils.GetLogger()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("db_driver", cfg.DBDriver),
		zap.Strings("skills", cfg.Skills),
		zap.Bool("require_session", cfg.RequireSession),
		zap.Bool("auth_enabled", cfg.JWTSecret != ""),
		zap.Bool("operator_endpoints", cfg.OperatorKey != ""))

	ctx := context.Background()
	shutdownTracing, err := observability.InitTracing(ctx, logger, observability.TracingConfig{
		ServiceName: "interview-service",
		Enabled:     cfg.OtelEnabled,
	})
	if err != nil {
		logger.Warn("Failed to initialize tracing, continuing without it", zap.Error(err))
	}

	// prompt manager
	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	// AI provider based on configuration
	aiProvider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	publisher, brokerPinger, closePublisher := newPublisher(ctx, cfg, logger)
	defer closePublisher()

	sessionManager := session.NewManager(db, session.Options{
		RequireSession: cfg.RequireSession,
		Publisher:      publisher,
	})
	skillMerger := skills.NewMerger(db, cfg.Skills, publisher)
	gw := gateway.New(aiProvider, promptManager, gateway.Options{
		Timeout: cfg.GatewayTimeout,
		Logger:  logger.Named("gateway"),
	})
	synthesizer := advice.NewSynthesizer(sessionManager, gw, logger.Named("advice"))
	transcriptManager := transcripts.NewManager(db, transcripts.Options{
		Logger:   logger.Named("transcripts"),
		StatsTTL: statsCacheTTL,
	})

	exporterJob := jobs.NewTranscriptExporterJob(transcriptManager, &jobs.ExporterConfig{
		Schedule:      cfg.Export.Schedule,
		ExportDir:     cfg.Export.Dir,
		ExportEnabled: cfg.Export.Enabled,
		MinScore:      cfg.Export.MinScore,
	}, logger.Named("exporter"))
	if err := exporterJob.Start(); err != nil {
		logger.Error("Failed to start transcript exporter job", zap.Error(err))
	}

	interviewHandler := handlers.NewInterviewHandler(sessionManager, skillMerger, gw, synthesizer, logger)
	transcriptHandler := handlers.NewTranscriptHandler(transcriptManager, cfg.Export.MinScore, logger)
	healthHandler := handlers.NewHealthHandler(db, aiProvider, promptManager, brokerPinger)

	router := newRouter(cfg, logger)
	registerRoutes(router, cfg, interviewHandler, transcriptHandler, healthHandler)

	serverAddr := ":" + cfg.Port

	// http server with timeouts; writes wait on generation so they get the gateway budget on top
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GatewayTimeout + 45*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// starting server in a goroutine
	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")

	exporterJob.Stop()

	// graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}

	logger.Info("Interview service exited")
}
