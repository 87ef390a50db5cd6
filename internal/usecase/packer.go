package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"github.com/fiapx/media-gallery/internal/domain/port"
	"github.com/fiapx/media-gallery/internal/infra/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultMaxPartBytes is the rollover threshold of a document part.
	DefaultMaxPartBytes int64 = 400 * 1024 * 1024
	PictureWidthMM            = 120.0

	// The first part and later parts are titled differently on purpose; keep both texts.
	firstHeading = "Attachment to the protocol — part %d"
	nextHeading  = "Media gallery — part %d"
)

// ErrPartNotSaved marks a failure to persist a document part. Unlike item
// failures it ends the run.
var ErrPartNotSaved = errors.New("document part not saved")

// PartPath inserts _part<N> before the extension of outputPath.
func PartPath(outputPath string, n int) string {
	ext := filepath.Ext(outputPath)
	return fmt.Sprintf("%s_part%d%s", strings.TrimSuffix(outputPath, ext), n, ext)
}

// Packer owns the open document part and rolls over to a new part once the
// serialized size of the open one reaches maxBytes.
type Packer struct {
	documents  port.DocumentFactory
	outputPath string
	maxBytes   int64
	logger     *zap.Logger

	current port.Document
	counter int
	entries int
	parts   []string
}

func NewPacker(documents port.DocumentFactory, outputPath string, maxBytes int64, logger *zap.Logger) *Packer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPartBytes
	}
	p := &Packer{
		documents:  documents,
		outputPath: outputPath,
		maxBytes:   maxBytes,
		logger:     logger,
		counter:    1,
	}
	p.open(firstHeading)
	return p
}

func (p *Packer) open(heading string) {
	p.current = p.documents.NewDocument(entity.A4Portrait)
	p.current.AddHeading(fmt.Sprintf(heading, p.counter), 1)
	p.entries = 0
}

// Append adds the caption, picture and spacer of frame to the open part,
// rolling over first when the part is already full.
func (p *Packer) Append(ctx context.Context, frame *entity.ExtractedFrame) error {
	measureStart := time.Now()
	size, err := p.current.SerializedSize()
	metrics.StageDuration.WithLabelValues("measure").Observe(time.Since(measureStart).Seconds())
	if err != nil {
		return entity.NewMediaError(entity.FailurePackError, frame.Source, fmt.Errorf("measure part: %w", err))
	}
	metrics.PartSizeBytes.Set(float64(size))

	if size >= p.maxBytes {
		p.logger.Info("document part full, rolling over",
			zap.Int("part", p.counter),
			zap.Int64("size_bytes", size),
			zap.Int("entries", p.entries),
		)
		if _, err := p.save(); err != nil {
			return err
		}
		p.counter++
		p.open(nextHeading)
	}

	pic, err := p.current.LoadPicture(frame.Path)
	if err != nil {
		return entity.NewMediaError(entity.FailurePackError, frame.Source, err)
	}
	p.current.AddParagraph(frame.Source)
	if err := p.current.AddPicture(pic, PictureWidthMM); err != nil {
		return entity.NewMediaError(entity.FailurePackError, frame.Source, err)
	}
	p.current.AddParagraph("")
	p.entries++
	return nil
}

// Finalize saves the open part, empty or not, and returns its path.
func (p *Packer) Finalize(ctx context.Context) (string, error) {
	return p.save()
}

// Parts lists the saved part paths in order.
func (p *Packer) Parts() []string {
	return append([]string(nil), p.parts...)
}

func (p *Packer) save() (string, error) {
	path := PartPath(p.outputPath, p.counter)
	start := time.Now()
	if err := p.current.Save(path); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPartNotSaved, path, err)
	}
	metrics.StageDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	metrics.PartsFinalizedTotal.Inc()

	p.parts = append(p.parts, path)
	p.logger.Info("document part saved",
		zap.String("path", path),
		zap.Int("part", p.counter),
		zap.Int("entries", p.entries),
	)
	return path, nil
}
