package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/png"
	"os"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"github.com/fiapx/media-gallery/internal/domain/port"
	"go.uber.org/zap"
)

var errEmptyFrame = errors.New("decoded frame is empty")

type Extractor struct {
	video   port.VideoDecoder
	tempDir string
	logger  *zap.Logger
}

func NewExtractor(video port.VideoDecoder, tempDir string, logger *zap.Logger) *Extractor {
	return &Extractor{video: video, tempDir: tempDir, logger: logger}
}

// Extract produces the representative still frame of item. The returned frame
// owns any temporary payload; callers must Release it.
func (e *Extractor) Extract(ctx context.Context, item entity.MediaItem) (*entity.ExtractedFrame, error) {
	switch item.Kind {
	case entity.MediaKindStillImage:
		if !IsWellFormedImage(item.Path) {
			return nil, entity.NewMediaError(entity.FailureCorrupt, item.Path, nil)
		}
		return entity.NewSourceFrame(item), nil
	case entity.MediaKindAnimatedImage:
		return e.extractFirstFrame(item)
	case entity.MediaKindVideo:
		return e.extractMiddleFrame(ctx, item)
	default:
		return nil, entity.NewMediaError(entity.FailureUnsupported, item.Path, nil)
	}
}

func (e *Extractor) extractFirstFrame(item entity.MediaItem) (frame *entity.ExtractedFrame, err error) {
	defer func() {
		if r := recover(); r != nil {
			frame, err = nil, entity.NewMediaError(entity.FailureDecodeError, item.Path, fmt.Errorf("panic: %v", r))
		}
	}()

	f, err := os.Open(item.Path)
	if err != nil {
		return nil, entity.NewMediaError(entity.FailureDecodeError, item.Path, err)
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, entity.NewMediaError(entity.FailureDecodeError, item.Path, err)
	}
	if len(g.Image) == 0 {
		return nil, entity.NewMediaError(entity.FailureDecodeError, item.Path, errEmptyFrame)
	}

	first := g.Image[0]
	screen := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if screen.Empty() {
		screen = first.Bounds()
	}
	canvas := image.NewRGBA(screen)
	draw.Draw(canvas, first.Bounds(), first, first.Bounds().Min, draw.Src)

	tmp, err := e.writeTempPNG(canvas)
	if err != nil {
		return nil, entity.NewMediaError(entity.FailureDecodeError, item.Path, err)
	}
	return entity.NewTemporaryFrame(item, tmp), nil
}

func (e *Extractor) extractMiddleFrame(ctx context.Context, item entity.MediaItem) (*entity.ExtractedFrame, error) {
	count, err := e.video.FrameCount(ctx, item.Path)
	if err != nil {
		return nil, entity.NewMediaError(entity.FailureUnopenable, item.Path, err)
	}
	index := MiddleFrameIndex(count)

	img, err := e.video.FrameAt(ctx, item.Path, index)
	if err != nil {
		return nil, entity.NewMediaError(entity.FailureNoFrame, item.Path, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, entity.NewMediaError(entity.FailureNoFrame, item.Path, errEmptyFrame)
	}

	tmp, err := e.writeTempPNG(img)
	if err != nil {
		return nil, entity.NewMediaError(entity.FailureNoFrame, item.Path, err)
	}
	e.logger.Debug("video frame extracted",
		zap.String("path", item.Path),
		zap.Int("frame_count", count),
		zap.Int("frame_index", index),
	)
	return entity.NewTemporaryFrame(item, tmp), nil
}

// MiddleFrameIndex is floor(count/2); non-positive counts map to the first frame.
func MiddleFrameIndex(count int) int {
	if count <= 0 {
		return 0
	}
	return count / 2
}

func (e *Extractor) writeTempPNG(img image.Image) (string, error) {
	tmp, err := os.CreateTemp(e.tempDir, "frame-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp frame: %w", err)
	}
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp frame: %w", err)
	}
	return tmp.Name(), nil
}
