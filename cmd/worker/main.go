package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/pick-ticket-service/internal/activities"
	"github.com/wms-platform/pick-ticket-service/internal/application"
	engineconfig "github.com/wms-platform/pick-ticket-service/internal/config"
	mongoRepo "github.com/wms-platform/pick-ticket-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/pick-ticket-service/internal/workflows"
	"github.com/wms-platform/pick-ticket-service/pkg/cloudevents"
	"github.com/wms-platform/pick-ticket-service/pkg/kafka"
	"github.com/wms-platform/pick-ticket-service/pkg/logging"
	"github.com/wms-platform/pick-ticket-service/pkg/metrics"
	"github.com/wms-platform/pick-ticket-service/pkg/mongodb"
	"github.com/wms-platform/pick-ticket-service/pkg/outbox"
	"github.com/wms-platform/pick-ticket-service/pkg/temporal"
	"github.com/wms-platform/pick-ticket-service/pkg/tracing"
)

const serviceName = "pick-ticket-worker"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting pick-ticket-service worker")

	config := loadConfig()
	ctx := context.Background()

	engineCfg, err := engineconfig.Load(config.EngineConfigPath)
	if err != nil {
		logger.WithError(err).Error("Failed to load engine configuration")
		os.Exit(1)
	}

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "false") == "true"
	if tracerProvider, err := tracing.Initialize(ctx, tracingConfig); err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer tracerProvider.Shutdown(context.Background())
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoClient, err := mongodb.NewProductionClient(ctx, config.MongoDB, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourcePickTicket)
	repo := mongoRepo.NewPickTicketRunRepository(mongoClient, eventFactory)

	// The API normally relays the outbox; a worker-only deployment turns it on here
	if config.RelayOutbox {
		producer := kafka.NewProductionProducer(config.Kafka, m, logger)
		defer producer.Close()

		publisher := outbox.NewPublisher(repo.OutboxRepository(), producer, logger, m, outbox.DefaultPublisherConfig())
		if err := publisher.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start outbox publisher")
			os.Exit(1)
		}
		defer publisher.Stop()
		logger.Info("Outbox publisher started", "brokers", config.Kafka.Brokers)
	}

	service, err := application.NewPickTicketService(repo, engineCfg, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create pick ticket service")
		os.Exit(1)
	}

	temporalClient, err := temporal.NewClient(ctx, config.Temporal)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", config.Temporal.HostPort)

	pickTicketActivities := activities.NewPickTicketActivities(service, config.ExportDir, m, logger)

	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(temporal.TaskQueues.PickTicket))

	w.RegisterWorkflowWithOptions(workflows.PickTicketWorkflow, workflow.RegisterOptions{
		Name: temporal.WorkflowNames.PickTicket,
	})
	w.RegisterActivityWithOptions(pickTicketActivities.GeneratePickTicket, activity.RegisterOptions{
		Name: temporal.ActivityNames.GeneratePickTicket,
	})
	w.RegisterActivityWithOptions(pickTicketActivities.ExportPickTicket, activity.RegisterOptions{
		Name: temporal.ActivityNames.ExportPickTicket,
	})
	logger.Info("Registered workflow and activities", "exportDir", config.ExportDir)

	go func() {
		if err := w.Run(nil); err != nil {
			logger.WithError(err).Error("Worker failed")
			os.Exit(1)
		}
	}()
	logger.Info("Worker started", "taskQueue", temporal.TaskQueues.PickTicket)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	w.Stop()
	logger.Info("Worker stopped")
}

// Config holds worker configuration
type Config struct {
	EngineConfigPath string
	ExportDir        string
	RelayOutbox      bool
	MongoDB          *mongodb.Config
	Kafka            *kafka.Config
	Temporal         *temporal.Config
}

func loadConfig() *Config {
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)
	mongoConfig.ConnectTimeout = 10 * time.Second

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	temporalConfig := temporal.DefaultConfig()
	temporalConfig.HostPort = getEnv("TEMPORAL_HOST", temporalConfig.HostPort)
	temporalConfig.Namespace = getEnv("TEMPORAL_NAMESPACE", temporalConfig.Namespace)

	return &Config{
		EngineConfigPath: getEnv("ENGINE_CONFIG", ""),
		ExportDir:        getEnv("EXPORT_DIR", ""),
		RelayOutbox:      getEnv("OUTBOX_RELAY", "false") == "true",
		MongoDB:          mongoConfig,
		Kafka:            kafkaConfig,
		Temporal:         temporalConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
