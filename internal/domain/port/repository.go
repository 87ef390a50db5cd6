package port

import (
	"context"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"github.com/google/uuid"
)

type RunRepository interface {
	Create(ctx context.Context, run *entity.Run) error
	Update(ctx context.Context, run *entity.Run) error
	RecordSkips(ctx context.Context, runID uuid.UUID, skips []entity.Skip) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Run, error)
}
