package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"github.com/fiapx/media-gallery/internal/domain/port"
	"github.com/fiapx/media-gallery/internal/infra/media"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// HandleRequestUseCase turns a queued GalleryRequest into a gallery run.
type HandleRequestUseCase struct {
	builder *BuildGalleryUseCase
	dlq     port.DLQPublisher
	logger  *zap.Logger
}

func NewHandleRequestUseCase(builder *BuildGalleryUseCase, dlq port.DLQPublisher, logger *zap.Logger) *HandleRequestUseCase {
	return &HandleRequestUseCase{builder: builder, dlq: dlq, logger: logger}
}

// Execute returns an error only when the message should be redelivered.
func (uc *HandleRequestUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "HandleRequestUseCase.Execute")
	defer span.End()

	var req entity.GalleryRequest
	if err := json.Unmarshal(rawMsg, &req); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		uc.parkMessage(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if req.OutputPath == "" {
		uc.parkMessage(ctx, rawMsg, "invalid_request: output_path is required")
		return nil
	}

	span.SetAttributes(attribute.String("request.id", req.RequestID))
	log := uc.logger.With(zap.String("request_id", req.RequestID))

	paths, size, err := media.Expand(req.Paths)
	if err != nil {
		log.Warn("request references unreadable paths", zap.Error(err))
		uc.parkMessage(ctx, rawMsg, "invalid_request: "+err.Error())
		return nil
	}

	res, err := uc.builder.Execute(ctx, RunRequest{
		RequestID:   req.RequestID,
		Paths:       paths,
		OutputPath:  req.OutputPath,
		NotifyEmail: req.NotifyEmail,
		InputBytes:  size,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// shutdown; let the broker hand the request to another worker
		return fmt.Errorf("run %s interrupted: %w", res.RunID, err)
	default:
		return fmt.Errorf("run %s: %w", res.RunID, err)
	}
}

func (uc *HandleRequestUseCase) parkMessage(ctx context.Context, rawMsg []byte, reason string) {
	if uc.dlq == nil {
		return
	}
	if err := uc.dlq.PublishToDLQ(ctx, rawMsg, reason); err != nil {
		uc.logger.Error("failed to publish to DLQ", zap.String("reason", reason), zap.Error(err))
	}
}
