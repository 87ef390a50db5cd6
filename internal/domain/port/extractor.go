package port

import (
	"context"
	"image"

	"github.com/fiapx/media-gallery/internal/domain/entity"
)

// FrameExtractor turns a classified media item into a single still frame.
// Failures are reported as *entity.MediaError.
type FrameExtractor interface {
	Extract(ctx context.Context, item entity.MediaItem) (*entity.ExtractedFrame, error)
}

// VideoDecoder gives access to individual frames of a video container.
type VideoDecoder interface {
	// FrameCount opens the container and returns the number of video frames.
	FrameCount(ctx context.Context, path string) (int, error)
	// FrameAt decodes the frame with the given zero-based index.
	FrameAt(ctx context.Context, path string, index int) (image.Image, error)
}
