package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/domain/port"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/config"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/email"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/metrics"
	miniostorage "github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/minio"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/onnx"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/opencv"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/postgres"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/rabbitmq"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/tracing"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/pipeline"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/usecase"
	"github.com/amansingh107/Dance-Movement-Analyzer/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting dance-movement-analyzer worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		OutputBucket: cfg.MinIOOutputBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	repo := postgres.NewJobRepository(pool)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	// Pose pipeline
	var detectors pipeline.DetectorFactory
	switch cfg.DetectorBackend {
	case "onnx":
		detectors = onnx.NewDetectorFactory(cfg.ModelPath, "", log)
	default:
		detectors = opencv.NewDetectorFactory(cfg.ModelPath, log)
	}

	pipeCfg := pipeline.Config{
		Detector: pipeline.DetectorConfig{
			ModelComplexity:        cfg.ModelComplexity,
			MinDetectionConfidence: cfg.MinDetectionConfidence,
			MinTrackingConfidence:  cfg.MinTrackingConfidence,
		},
		VisibilityThreshold: cfg.VisibilityThreshold,
		CodecPreferences:    cfg.CodecPreferences,
		EarlyEndTolerance:   cfg.EarlyEndTolerance,
		MaxFileSizeMB:       cfg.MaxFileSizeMB,
		MaxDurationSec:      cfg.MaxDurationSec,
	}

	var analyzer port.VideoAnalyzer = pipeline.NewRunner(
		pipeline.FileSourceOpener{
			MaxFileSizeMB:  cfg.MaxFileSizeMB,
			MaxDurationSec: cfg.MaxDurationSec,
		},
		pipeline.FileSinkOpener{Log: log},
		detectors,
		pipeline.SkeletonRenderer{Threshold: cfg.VisibilityThreshold},
		pipeCfg,
		log,
	)

	// Use case
	uc := usecase.NewAnalyzeVideoUseCase(
		repo, storage, analyzer,
		statusPub, dlqPub, notifier,
		log,
		usecase.AnalyzeVideoConfig{
			TempDir:         cfg.TempDir,
			MaxRetries:      cfg.MaxRetries,
			AnalyzeAttempts: 2,
			RetryBaseDelay:  time.Second,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQAnalysisQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
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

	log.Info("worker started, consuming analysis requests")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
