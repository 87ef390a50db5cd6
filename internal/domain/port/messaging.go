package port

import (
	"context"

	"github.com/fiapx/media-gallery/internal/domain/entity"
)

// StatusPublisher announces the terminal state of a run.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, status entity.RunStatusMessage) error
}

// DLQPublisher parks requests that can never be processed.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, body []byte, reason string) error
}
