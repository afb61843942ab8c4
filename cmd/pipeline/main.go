package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"outbound-reply-pipeline/pkg/config"
	"outbound-reply-pipeline/pkg/dispatch"
	"outbound-reply-pipeline/pkg/handlers"
	"outbound-reply-pipeline/pkg/language"
	"outbound-reply-pipeline/pkg/metrics"
	"outbound-reply-pipeline/pkg/pipeline"
	"outbound-reply-pipeline/pkg/policy"
	redisClient "outbound-reply-pipeline/pkg/redis"
	"outbound-reply-pipeline/pkg/repair"
	"outbound-reply-pipeline/pkg/server"
	"outbound-reply-pipeline/pkg/stages"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithField("instance_id", cfg.InstanceID).Info("Starting outbound reply pipeline service")

	// Initialize metrics
	m := metrics.NewMetrics()

	// Connect to Redis
	redisConfig := redisClient.DefaultConnectionConfig()
	redisConfig.URL = cfg.RedisURL

	redis, err := redisClient.NewClient(redisConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	rdb := redis.GetRedisClient()

	// Collaborators
	repairStore := repair.NewRedisStore(rdb, cfg.RepairStateTTL(), logger)
	prefStore := language.NewRedisPreferenceStore(rdb, cfg.RepairStateTTL(), logger)
	detector := language.NewDetector(cfg.BaseLanguage, logger)

	var engine policy.Engine
	if cfg.PolicyEngineURL != "" {
		engine = policy.NewHTTPEngine(cfg.PolicyEngineURL, cfg.PolicyEngineTimeout(), logger)
	} else {
		engine = policy.NewRulesEngine()
	}

	policyTimeout := func(ctx context.Context) (context.Context, context.CancelFunc) {
		return context.WithTimeout(ctx, cfg.PolicyEngineTimeout())
	}

	// Stage list: order is a correctness contract, assembled once at startup.
	orchestrator := pipeline.NewOrchestrator([]pipeline.Stage{
		stages.NewLanguageStage(detector, prefStore, logger),
		stages.NewOptOutStage(m, logger),
		stages.NewRepairStage(repairStore, repair.DefaultCatalog(), m, logger),
		stages.NewComplianceStage(engine, policyTimeout, m, logger),
		stages.NewDisclosureStage(logger),
		stages.NewLengthLimitStage(cfg.SMSMaxLength, m, logger),
	}, m, logger)

	// Outbound dispatch
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var producer *dispatch.StreamProducer
	if cfg.DispatchEnabled {
		producer = dispatch.NewStreamProducer(rdb, m, logger)
		if err := producer.EnsureGroup(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to prepare outbound stream")
		}
	}

	// HTTP server
	handler := handlers.NewHandler(orchestrator, producer, logger)
	srv := server.NewHTTPServer(cfg, handler, logger)

	go func() {
		logger.WithField("port", cfg.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during HTTP server shutdown")
	}

	logger.Info("Pipeline service shutdown complete")
}
