package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/financial-reconciliation-engine/internal/config"
	"github.com/financial-reconciliation-engine/internal/data/mongo"
	"github.com/financial-reconciliation-engine/internal/engine/components"
	"github.com/financial-reconciliation-engine/internal/engine/consumer"
	"github.com/financial-reconciliation-engine/internal/engine/outbox_poller"
	"github.com/financial-reconciliation-engine/internal/engine/scheduler"
	"github.com/financial-reconciliation-engine/internal/engine/service"
	"github.com/financial-reconciliation-engine/internal/logger"
	"github.com/financial-reconciliation-engine/internal/platform/messaging/consumers"
	"github.com/financial-reconciliation-engine/internal/platform/messaging/producers"
	"github.com/financial-reconciliation-engine/internal/platform/metrics"
	"github.com/financial-reconciliation-engine/internal/platform/persistence"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reconciliation_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciliation Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	eventArchive := mongo.NewEventArchive(log, mongoDB.ArchiveCollection())
	if err := eventArchive.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create event archive indexes", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.NewRegistry())
	repos := components.NewPostgresRepositories(postgresDB, log)
	services, err := components.CreateServices(postgresDB, repos, cfg, m, log)
	if err != nil {
		log.Error("Failed to create engine services", "error", err)
		os.Exit(1)
	}

	// Passes requested over Kafka and by the scheduler share one bounded pool
	reconciliationService := components.CreatePooledReconciliationService(services.Reconciliation, cfg, log)

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// The handler sees a nil interface when no DLQ topic is configured
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	eventProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize financial events Kafka producer", "error", err)
		os.Exit(1)
	}

	requestHandler := consumer.NewReconcileRequestHandler(
		log.With("component", "reconcile_request_handler"),
		reconciliationService,
		deadLetters,
	)

	eventPublisher := outbox_poller.NewEventPublisher(eventProducer, eventArchive, log.With("component", "event_publisher"))
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		repos.Outbox,
		eventPublisher,
		m,
		log.With("component", "outbox_poller"),
	)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.ReconcileTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.ReconcileTopic, cfg.Kafka.ConsumerGroup, requestHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
			return
		}
		<-kafkaConsumer.Done()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(cfg, reconciliationService, services.Health, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("Starting Scheduler",
				"reconcile_interval", cfg.Scheduler.ReconcileInterval.String(),
				"health_interval", cfg.Scheduler.HealthInterval.String(),
			)
			sched.Start(appCtx)
		}()
	}

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Release the pool only once the consumer and scheduler have stopped submitting
	if pooled, ok := reconciliationService.(*service.WorkerPoolReconciliationService); ok {
		log.Info("Shutting down worker pool", "running_workers", pooled.Running())
		pooled.Shutdown()
	}

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing financial events Kafka producer", "error", err)
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Reconciliation Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Reconciliation Worker shutdown completed with errors")
	} else {
		log.Info("Reconciliation Worker shutdown completed successfully")
	}
}
