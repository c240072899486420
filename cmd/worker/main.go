package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	mqcontracts "saraban/contracts/mq"
	"saraban/internal/config"
	"saraban/internal/relay"
	"saraban/pkg/logger"
	"saraban/pkg/mq"
	"saraban/pkg/otel"
	"saraban/pkg/redis"
	"saraban/pkg/util"
)

var version = "dev"

const relayQueue = "audit.recorded.relay.q"

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	if !cfg.MQ.Enabled() {
		log.Fatal("MQ URL is required for the worker")
	}
	if cfg.Relay.WebhookURL == "" {
		log.Fatal("relay.webhook_url is required for the worker")
	}

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    "saraban-worker",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Endpoint:       cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
		SampleRatio:    cfg.OTel.SampleRatio,
		Secure:         cfg.OTel.Secure,
	}, log)
	if err != nil {
		log.Fatal("OpenTelemetry init failed", zap.Error(err))
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting relay worker...")

	rdb, err := redis.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Redis connection failed", zap.Error(err))
	}
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, cfg.Relay.DedupTTL, log)
	retryCounter := util.NewRetryCounter(rdb, cfg.Relay.DedupTTL)

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init DLQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	relayHandler := relay.NewHandler(
		relay.NewWebhookClient(cfg.Relay.WebhookURL, cfg.Relay.Timeout, log),
		deduper,
		retryCounter,
		publisher,
		cfg.Relay.MaxRetries,
		log,
	)

	log.Info("Init consumer: " + relayQueue)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, relayQueue, mqcontracts.RoutingKeyAuditRecorded, log)
	if err != nil {
		log.Fatal("Relay consumer init failed", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(relayHandler.Handle)

	log.Info("Worker running")
	if err := consumer.StartConsuming(ctx); err != nil {
		log.Error("Relay consumer stopped", zap.Error(err))
	}
	log.Info("Worker shutdown complete")
}
