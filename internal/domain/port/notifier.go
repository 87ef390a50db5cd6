package port

import (
	"context"

	"github.com/fiapx/media-gallery/internal/domain/entity"
)

type CompletionNotifier interface {
	NotifyCompleted(ctx context.Context, email string, status entity.RunStatusMessage) error
}
