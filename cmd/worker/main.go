package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiapx/media-gallery/internal/infra/config"
	"github.com/fiapx/media-gallery/internal/infra/docx"
	"github.com/fiapx/media-gallery/internal/infra/email"
	"github.com/fiapx/media-gallery/internal/infra/ffmpeg"
	"github.com/fiapx/media-gallery/internal/infra/media"
	"github.com/fiapx/media-gallery/internal/infra/metrics"
	miniostorage "github.com/fiapx/media-gallery/internal/infra/minio"
	"github.com/fiapx/media-gallery/internal/infra/postgres"
	"github.com/fiapx/media-gallery/internal/infra/rabbitmq"
	"github.com/fiapx/media-gallery/internal/infra/tracing"
	"github.com/fiapx/media-gallery/internal/usecase"
	"github.com/fiapx/media-gallery/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")
	if !cfg.EventsEnabled() {
		panic("RABBITMQ_URL is required for the worker")
	}

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting media gallery worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	if cfg.TracingEnabled() {
		tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "media-gallery-worker", version)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	var deps usecase.RunReporterDeps

	if cfg.LedgerEnabled() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		fatalOnErr(err, "connect to postgres")
		defer pool.Close()

		repo := postgres.NewRunRepository(pool)
		fatalOnErr(repo.EnsureSchema(ctx), "ensure schema")
		deps.Repo = repo
	}

	if cfg.StorageEnabled() {
		storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
		})
		fatalOnErr(err, "create minio storage")
		fatalOnErr(storage.EnsureBucket(ctx), "ensure minio bucket")
		deps.Storage = storage
	}

	if cfg.NotifyEnabled() {
		deps.Notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)
	}

	// Frame extraction and document writing
	video := ffmpeg.NewVideoDecoder(cfg.FFmpegPath, cfg.FFprobePath, log)
	if !video.Available() {
		log.Warn("ffmpeg not found, video files will be skipped")
	}
	extractor := media.NewExtractor(video, cfg.TempDir, log)

	var handler *usecase.HandleRequestUseCase

	// Consumer (worker pool); publishers share its connection
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQRequestQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		MaxAttempts: cfg.MaxAttempts,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, func(ctx context.Context, body []byte) error {
		return handler.Execute(ctx, body)
	}, log)
	fatalOnErr(err, "create consumer")

	pub, err := rabbitmq.NewPublisher(consumer.Connection(), cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	deps.Publisher = rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	builder := usecase.NewBuildGalleryUseCase(
		extractor, docx.NewWriter(), log,
		usecase.BuildGalleryConfig{},
		usecase.NewRunReporter(deps, log),
	)
	handler = usecase.NewHandleRequestUseCase(builder, dlqPub, log)

	// Metrics server
	var metricsSrv interface {
		Shutdown(context.Context) error
	}
	if cfg.MetricsEnabled() {
		metricsSrv = metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("media gallery worker started, consuming requests",
		zap.String("queue", cfg.RabbitMQRequestQueue),
		zap.Int("workers", cfg.WorkerCount),
	)

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if metricsSrv != nil {
		metricsSrv.Shutdown(shutdownCtx)
	}

	pub.Close()
	consumer.Close()
	log.Info("media gallery worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
