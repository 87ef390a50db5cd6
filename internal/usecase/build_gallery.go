package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"github.com/fiapx/media-gallery/internal/domain/port"
	"github.com/fiapx/media-gallery/internal/infra/media"
	"github.com/fiapx/media-gallery/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SinkTimeout bounds the RunFinished notifications of one run.
const SinkTimeout = 30 * time.Second

// ProgressFunc receives the completion percentage after every input path.
type ProgressFunc func(percent int)

// RunRequest describes one gallery build.
type RunRequest struct {
	ID          uuid.UUID
	RequestID   string
	Paths       []string
	OutputPath  string
	NotifyEmail string
	InputBytes  int64
	OnProgress  ProgressFunc
}

// RunSink is told when a run starts and how it ended. Sinks must not fail the run.
type RunSink interface {
	RunStarted(ctx context.Context, req RunRequest, total int)
	RunFinished(ctx context.Context, req RunRequest, res *entity.Result, runErr error)
}

type BuildGalleryUseCase struct {
	extractor    port.FrameExtractor
	documents    port.DocumentFactory
	sinks        []RunSink
	logger       *zap.Logger
	maxPartBytes int64
}

type BuildGalleryConfig struct {
	MaxPartBytes int64
}

func NewBuildGalleryUseCase(
	extractor port.FrameExtractor,
	documents port.DocumentFactory,
	logger *zap.Logger,
	cfg BuildGalleryConfig,
	sinks ...RunSink,
) *BuildGalleryUseCase {
	if cfg.MaxPartBytes <= 0 {
		cfg.MaxPartBytes = DefaultMaxPartBytes
	}
	return &BuildGalleryUseCase{
		extractor:    extractor,
		documents:    documents,
		sinks:        sinks,
		logger:       logger,
		maxPartBytes: cfg.MaxPartBytes,
	}
}

// Run builds the gallery for paths into outputPath and its _part<N> siblings.
func (uc *BuildGalleryUseCase) Run(ctx context.Context, paths []string, outputPath string, onProgress ProgressFunc) (*entity.Result, error) {
	return uc.Execute(ctx, RunRequest{Paths: paths, OutputPath: outputPath, OnProgress: onProgress})
}

func (uc *BuildGalleryUseCase) Execute(ctx context.Context, req RunRequest) (*entity.Result, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.OnProgress == nil {
		req.OnProgress = func(int) {}
	}

	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "BuildGalleryUseCase.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", req.ID.String()),
		attribute.String("run.output", req.OutputPath),
		attribute.Int("run.total", len(req.Paths)),
	)

	log := uc.logger.With(zap.String("run_id", req.ID.String()), zap.String("output", req.OutputPath))

	res := &entity.Result{
		RunID:      req.ID,
		OutputPath: req.OutputPath,
		Total:      len(req.Paths),
		InputBytes: req.InputBytes,
	}

	for _, s := range uc.sinks {
		s.RunStarted(ctx, req, res.Total)
	}

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	start := time.Now()
	err := uc.build(ctx, req, res, log)
	metrics.StageDuration.WithLabelValues("run").Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("gallery run ended with error", zap.Error(err), zap.Strings("parts", res.Parts))
	} else {
		log.Info("gallery run completed",
			zap.Int("total", res.Total),
			zap.Int("added", res.Added),
			zap.Int("skipped", len(res.Skipped)),
			zap.Strings("parts", res.Parts),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	// sinks still run after cancellation so the ledger and storage see the final state
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SinkTimeout)
	defer cancel()
	for _, s := range uc.sinks {
		s.RunFinished(sinkCtx, req, res, err)
	}
	return res, err
}

func (uc *BuildGalleryUseCase) build(ctx context.Context, req RunRequest, res *entity.Result, log *zap.Logger) error {
	if len(req.Paths) == 0 {
		req.OnProgress(100)
		res.NoFiles = true
		log.Info("no files selected")
		return nil
	}

	paths := append([]string(nil), req.Paths...)
	sort.Strings(paths)

	packer := NewPacker(uc.documents, req.OutputPath, uc.maxPartBytes, log)
	total := len(paths)

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			res.Cancelled = true
			log.Warn("run cancelled, finalizing open part", zap.Int("processed", i))
			if _, ferr := packer.Finalize(ctx); ferr != nil {
				return errors.Join(err, ferr)
			}
			res.Parts = packer.Parts()
			return err
		}

		if err := uc.processItem(ctx, packer, path); err != nil {
			if errors.Is(err, ErrPartNotSaved) {
				res.Parts = packer.Parts()
				return err
			}
			res.Skip(path, err)
			kind := entity.KindOf(err)
			metrics.ItemsTotal.WithLabelValues(string(kind)).Inc()
			if kind == entity.FailureUnsupported {
				log.Debug("skipping unsupported file", zap.String("path", path))
			} else {
				log.Warn("skipping media item", zap.String("path", path), zap.String("kind", string(kind)), zap.Error(err))
			}
		} else {
			res.Added++
			metrics.ItemsTotal.WithLabelValues("added").Inc()
		}

		req.OnProgress(percent(i+1, total))
	}

	if _, err := packer.Finalize(ctx); err != nil {
		res.Parts = packer.Parts()
		return err
	}
	res.Parts = packer.Parts()
	return nil
}

// processItem classifies, extracts and packs one path. A panic anywhere in the
// item is reported as a pack error.
func (uc *BuildGalleryUseCase) processItem(ctx context.Context, packer *Packer, path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = entity.NewMediaError(entity.FailurePackError, path, fmt.Errorf("panic: %v", r))
		}
	}()

	item := media.NewItem(path)
	if item.Kind == entity.MediaKindUnsupported {
		return entity.NewMediaError(entity.FailureUnsupported, path, nil)
	}

	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "process_item", trace.WithAttributes(
		attribute.String("item.path", item.Path),
		attribute.String("item.kind", string(item.Kind)),
	))
	defer span.End()

	exStart := time.Now()
	frame, err := uc.extractor.Extract(ctx, item)
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer frame.Release()

	packStart := time.Now()
	err = packer.Append(ctx, frame)
	metrics.StageDuration.WithLabelValues("pack").Observe(time.Since(packStart).Seconds())
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func percent(done, total int) int {
	return int(math.Round(float64(done) / float64(total) * 100))
}
