package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/pick-ticket-service/internal/application"
	engineconfig "github.com/wms-platform/pick-ticket-service/internal/config"
	mongoRepo "github.com/wms-platform/pick-ticket-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/pick-ticket-service/pkg/cloudevents"
	"github.com/wms-platform/pick-ticket-service/pkg/idempotency"
	"github.com/wms-platform/pick-ticket-service/pkg/kafka"
	"github.com/wms-platform/pick-ticket-service/pkg/logging"
	"github.com/wms-platform/pick-ticket-service/pkg/metrics"
	"github.com/wms-platform/pick-ticket-service/pkg/middleware"
	"github.com/wms-platform/pick-ticket-service/pkg/mongodb"
	"github.com/wms-platform/pick-ticket-service/pkg/outbox"
	"github.com/wms-platform/pick-ticket-service/pkg/temporal"
	"github.com/wms-platform/pick-ticket-service/pkg/tracing"
)

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting pick-ticket-service API")

	config := loadConfig()
	ctx := context.Background()

	engineCfg, err := engineconfig.Load(config.EngineConfigPath)
	if err != nil {
		logger.WithError(err).Error("Failed to load engine configuration")
		os.Exit(1)
	}

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "false") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		// Runs still work without tracing
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "enabled", tracingConfig.Enabled, "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoClient, err := mongodb.NewProductionClient(ctx, config.MongoDB, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	producer := kafka.NewProductionProducer(config.Kafka, m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourcePickTicket)
	repo := mongoRepo.NewPickTicketRunRepository(mongoClient, eventFactory)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to create indexes")
	}

	outboxPublisher := outbox.NewPublisher(
		repo.OutboxRepository(),
		producer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// The async endpoint answers 503 when Temporal is not reachable
	var starter WorkflowStarter
	temporalClient, err := temporal.NewClient(ctx, config.Temporal)
	if err != nil {
		logger.WithError(err).Warn("Temporal unavailable, async runs disabled")
	} else {
		defer temporalClient.Close()
		starter = temporalClient.WithMetrics(m)
		logger.Info("Connected to Temporal", "hostPort", config.Temporal.HostPort)
	}

	service, err := application.NewPickTicketService(repo, engineCfg, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create pick ticket service")
		os.Exit(1)
	}

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, mongoClient.HealthCheck))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	keyStore := idempotency.NewMongoStore(mongoClient.Database())
	if err := keyStore.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to create idempotency indexes")
	}
	idempotent := idempotency.DefaultConfig(serviceName, keyStore, logger)
	idempotent.Metrics = m

	registerRoutes(router, service, starter, idempotent, logger)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
