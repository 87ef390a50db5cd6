package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fiapx/media-gallery/internal/domain/entity"
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
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	flag "maunium.net/go/mauflag"
)

var (
	outputPath  = flag.MakeFull("o", "output", "Path of the document to create. Parts are saved as <name>_part<N>.docx.", "").String()
	quiet       = flag.MakeFull("q", "quiet", "Do not print progress.", "false").Bool()
	notify      = flag.MakeFull("n", "notify", "Email address to notify when the gallery is ready.", "").String()
	wantHelp, _ = flag.MakeHelpFlag()
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	flag.SetHelpTitles(
		"gallery - build a picture gallery document from images, animations and videos.",
		"gallery -o OUT.docx [-q] [-n EMAIL] PATH...",
	)
	if err := flag.Parse(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.PrintHelp()
		return 1
	} else if *wantHelp {
		flag.PrintHelp()
		return 0
	}
	if *outputPath == "" || len(flag.Args()) == 0 {
		flag.PrintHelp()
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		return 1
	}

	log, err := logger.NewConsole(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled() {
		tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "gallery", version)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	paths, size, err := media.Expand(flag.Args())
	if err != nil {
		log.Error("cannot read selection", zap.Error(err))
		return 1
	}

	video := ffmpeg.NewVideoDecoder(cfg.FFmpegPath, cfg.FFprobePath, log)
	if !video.Available() {
		log.Warn("ffmpeg not found, video files will be skipped",
			zap.String("ffmpeg", cfg.FFmpegPath),
			zap.String("ffprobe", cfg.FFprobePath),
		)
	}
	extractor := media.NewExtractor(video, cfg.TempDir, log)

	reporter, closeSinks, err := buildReporter(ctx, cfg, log)
	if err != nil {
		log.Error("cannot set up run sinks", zap.Error(err))
		return 1
	}
	defer closeSinks()

	uc := usecase.NewBuildGalleryUseCase(extractor, docx.NewWriter(), log, usecase.BuildGalleryConfig{}, reporter)

	progress := make(chan int, 1)
	type outcome struct {
		res *entity.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer close(progress)
		res, err := uc.Execute(ctx, usecase.RunRequest{
			Paths:       paths,
			OutputPath:  *outputPath,
			NotifyEmail: *notify,
			InputBytes:  size,
			OnProgress: func(p int) {
				// drop stale values; only the latest percentage matters
				select {
				case <-progress:
				default:
				}
				progress <- p
			},
		})
		done <- outcome{res, err}
	}()

	for p := range progress {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "\rProgress: %3d%%", p)
		}
	}
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	out := <-done

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warn("metrics textfile not written", zap.Error(err))
		}
	}

	return report(out.res, out.err, log)
}

func report(res *entity.Result, err error, log *zap.Logger) int {
	if res != nil && res.NoFiles {
		fmt.Println(entity.ErrNoFiles)
		return 0
	}
	if res != nil {
		for _, part := range res.Parts {
			fmt.Println(part)
		}
		for _, s := range res.Skipped {
			if s.Kind != entity.FailureUnsupported {
				fmt.Fprintf(os.Stderr, "skipped %s (%s)\n", s.Path, s.Kind)
			}
		}
	}
	switch {
	case err == nil:
		fmt.Fprintf(os.Stderr, "%d of %d files added to %d document(s)\n", res.Added, res.Total, len(res.Parts))
		return 0
	case errors.Is(err, context.Canceled):
		log.Warn("interrupted, partial gallery saved")
		return 1
	default:
		log.Error("gallery build failed", zap.Error(err))
		return 1
	}
}

// buildReporter wires whichever run sinks are configured in the environment.
func buildReporter(ctx context.Context, cfg *config.Config, log *zap.Logger) (*usecase.RunReporter, func(), error) {
	var deps usecase.RunReporterDeps
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.StorageEnabled() {
		storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
		})
		if err != nil {
			return nil, closeAll, err
		}
		if err := storage.EnsureBucket(ctx); err != nil {
			return nil, closeAll, err
		}
		deps.Storage = storage
	}

	if cfg.LedgerEnabled() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, closeAll, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		repo := postgres.NewRunRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, closeAll, err
		}
		deps.Repo = repo
	}

	if cfg.EventsEnabled() {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return nil, closeAll, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		pub, err := rabbitmq.NewPublisher(conn, cfg.RabbitMQExchange)
		if err != nil {
			return nil, closeAll, err
		}
		deps.Publisher = rabbitmq.NewStatusPublisher(pub)
	}

	if cfg.NotifyEnabled() {
		deps.Notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)
	}

	return usecase.NewRunReporter(deps, log), closeAll, nil
}
