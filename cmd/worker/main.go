package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/infra/archive"
	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/infra/config"
	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/infra/ffmpeg"
	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/infra/metrics"
	miniostorage "github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/infra/minio"
	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/infra/rabbitmq"
	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/infra/tracing"
	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/usecase"
	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting lumiere-extractor-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Object storage
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBucket(ctx, cfg.OutputBucket), "ensure output bucket")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn)
	fatalOnErr(err, "create rabbitmq publisher")

	notifier := rabbitmq.NewCompletionNotifier(pub, log)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	extractor := ffmpeg.NewExtractor(log)
	archiver := archive.NewZipArchiver()

	// Use case
	uc := usecase.NewProcessMediaUseCase(
		storage, extractor, archiver,
		notifier, dlqPub,
		log,
		usecase.ProcessMediaConfig{
			TempDir:      cfg.TempDir,
			OutputBucket: cfg.OutputBucket,
			BasePrefix:   cfg.ResultBasePrefix,
			ResultQueue:  cfg.MediaResultQueue,
			Limits:       cfg.Limits(),
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:          cfg.RabbitMQURL,
		RequestQueue: cfg.MediaRequestQueue,
		ResultQueue:  cfg.MediaResultQueue,
		DLQ:          cfg.RabbitMQDLQ,
		Exchange:     cfg.RabbitMQExchange,
		Prefetch:     cfg.RabbitMQPrefetch,
		WorkerCount:  cfg.WorkerCount,
		BaseDelayMs:  cfg.RetryBaseDelayMs,
		MaxAttempts:  cfg.RetryMaxAttempts,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("lumiere-extractor-worker started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("lumiere-extractor-worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
