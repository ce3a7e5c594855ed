package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/api"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/config"
	miniostorage "github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/minio"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/postgres"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/rabbitmq"
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

	log.Info("starting dance-movement-analyzer api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

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

	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	requestPub := rabbitmq.NewRequestPublisher(pub)

	repo := postgres.NewJobRepository(pool)

	handler := api.NewHandler(repo, storage, requestPub, log, api.HandlerConfig{
		MaxUploadSizeMB: cfg.MaxUploadSizeMB,
		MaxRetries:      cfg.MaxRetries,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := api.Serve(ctx, fmt.Sprintf(":%d", cfg.APIPort), handler, log); err != nil {
		log.Error("api server error", zap.Error(err))
	}

	log.Info("api stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
