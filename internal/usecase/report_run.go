package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"github.com/fiapx/media-gallery/internal/domain/port"
	"github.com/fiapx/media-gallery/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxParallelUploads = 4

// RunReporter forwards run lifecycle events to the ledger, object storage,
// status exchange and mail. Each collaborator is optional.
type RunReporter struct {
	repo      port.RunRepository
	storage   port.PartStorage
	publisher port.StatusPublisher
	notifier  port.CompletionNotifier
	logger    *zap.Logger

	mu   sync.Mutex
	runs map[uuid.UUID]*entity.Run
}

type RunReporterDeps struct {
	Repo      port.RunRepository
	Storage   port.PartStorage
	Publisher port.StatusPublisher
	Notifier  port.CompletionNotifier
}

func NewRunReporter(deps RunReporterDeps, logger *zap.Logger) *RunReporter {
	return &RunReporter{
		repo:      deps.Repo,
		storage:   deps.Storage,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		logger:    logger,
		runs:      make(map[uuid.UUID]*entity.Run),
	}
}

func (r *RunReporter) RunStarted(ctx context.Context, req RunRequest, total int) {
	run := entity.NewRun(req.RequestID, req.OutputPath, total)
	run.ID = req.ID
	run.MarkProcessing()

	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()

	if r.repo == nil {
		return
	}
	if err := r.repo.Create(ctx, run); err != nil {
		r.logger.Error("failed to create run record", zap.String("run_id", run.ID.String()), zap.Error(err))
	}
}

func (r *RunReporter) RunFinished(ctx context.Context, req RunRequest, res *entity.Result, runErr error) {
	r.mu.Lock()
	run, ok := r.runs[req.ID]
	delete(r.runs, req.ID)
	r.mu.Unlock()
	if !ok {
		run = entity.NewRun(req.RequestID, req.OutputPath, res.Total)
		run.ID = req.ID
	}

	log := r.logger.With(zap.String("run_id", run.ID.String()))
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "RunReporter.RunFinished")
	defer span.End()

	if runErr != nil {
		run.MarkFailed(runErr.Error())
		run.Total, run.Added, run.SkippedCount = res.Total, res.Added, len(res.Skipped)
		run.Parts = append([]string(nil), res.Parts...)
	} else {
		run.MarkCompleted(res)
	}

	if r.storage != nil {
		r.uploadParts(ctx, run.ID, res.Parts, log)
	}

	if r.repo != nil {
		if err := r.repo.Update(ctx, run); err != nil {
			log.Error("failed to update run record", zap.Error(err))
		}
		if err := r.repo.RecordSkips(ctx, run.ID, res.Skipped); err != nil {
			log.Error("failed to record skipped items", zap.Error(err))
		}
	}

	status := StatusMessage(run)
	if r.publisher != nil {
		if err := r.publisher.PublishStatus(ctx, status); err != nil {
			log.Error("failed to publish status", zap.Error(err))
		}
	}
	if r.notifier != nil && req.NotifyEmail != "" {
		if err := r.notifier.NotifyCompleted(ctx, req.NotifyEmail, status); err != nil {
			log.Error("failed to send notification", zap.String("email", req.NotifyEmail), zap.Error(err))
		}
	}
}

func (r *RunReporter) uploadParts(ctx context.Context, runID uuid.UUID, parts []string, log *zap.Logger) {
	start := time.Now()
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelUploads)

	for _, part := range parts {
		key := PartObjectKey(runID, part)
		eg.Go(func() error {
			if err := r.uploadPart(gctx, key, part); err != nil {
				return fmt.Errorf("part %s: %w", filepath.Base(part), err)
			}
			log.Info("part uploaded", zap.String("part", part), zap.String("object_key", key))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Error("one or more parts failed to upload", zap.Error(err))
	}
	metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())
}

func (r *RunReporter) uploadPart(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open part: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat part: %w", err)
	}
	return r.storage.UploadPart(ctx, key, f, info.Size())
}

// PartObjectKey is the storage key of a finalized part.
func PartObjectKey(runID uuid.UUID, partPath string) string {
	return fmt.Sprintf("%s/%s", runID, filepath.Base(partPath))
}

func StatusMessage(run *entity.Run) entity.RunStatusMessage {
	return entity.RunStatusMessage{
		RunID:        run.ID,
		RequestID:    run.RequestID,
		Status:       run.Status,
		OutputPath:   run.OutputPath,
		Parts:        run.Parts,
		Total:        run.Total,
		Added:        run.Added,
		Skipped:      run.SkippedCount,
		ErrorMessage: run.ErrorMessage,
	}
}
