package usecase

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"github.com/fiapx/media-gallery/internal/domain/port"
	"github.com/fiapx/media-gallery/internal/infra/docx"
	"github.com/fiapx/media-gallery/internal/infra/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	started     []RunRequest
	finished    []*entity.Result
	errs        []error
	finishedCtx []error
	deadlines   []time.Time
}

func (s *recordingSink) RunStarted(ctx context.Context, req RunRequest, total int) {
	s.started = append(s.started, req)
}

func (s *recordingSink) RunFinished(ctx context.Context, req RunRequest, res *entity.Result, runErr error) {
	s.finished = append(s.finished, res)
	s.errs = append(s.errs, runErr)
	s.finishedCtx = append(s.finishedCtx, ctx.Err())
	deadline, _ := ctx.Deadline()
	s.deadlines = append(s.deadlines, deadline)
}

// brokenPictureDocs produces documents that cannot read any picture.
type brokenPictureDocs struct{}

func (brokenPictureDocs) NewDocument(geometry entity.PageGeometry) port.Document {
	return brokenPictureDoc{docx.New(geometry)}
}

type brokenPictureDoc struct {
	*docx.Document
}

func (brokenPictureDoc) LoadPicture(path string) (port.Picture, error) {
	return nil, errors.New("unreadable picture")
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(ctx context.Context, item entity.MediaItem) (*entity.ExtractedFrame, error) {
	panic("decoder exploded")
}

func newBuilder(t *testing.T, video *fakeVideo, maxBytes int64, sinks ...RunSink) (*BuildGalleryUseCase, string) {
	t.Helper()
	tempDir := t.TempDir()
	if video == nil {
		video = &fakeVideo{}
	}
	extractor := media.NewExtractor(video, tempDir, zap.NewNop())
	uc := NewBuildGalleryUseCase(extractor, docx.NewWriter(), zap.NewNop(), BuildGalleryConfig{MaxPartBytes: maxBytes}, sinks...)
	return uc, tempDir
}

func TestRun_EmptyInput(t *testing.T) {
	sink := &recordingSink{}
	uc, _ := newBuilder(t, nil, 0, sink)
	out := filepath.Join(t.TempDir(), "out.docx")

	var progress []int
	res, err := uc.Run(context.Background(), nil, out, func(p int) { progress = append(progress, p) })
	require.NoError(t, err)

	assert.True(t, res.NoFiles)
	assert.Empty(t, res.Parts)
	assert.Equal(t, []int{100}, progress)
	_, statErr := os.Stat(PartPath(out, 1))
	assert.True(t, os.IsNotExist(statErr))
	require.Len(t, sink.finished, 1)
	assert.Same(t, res, sink.finished[0])
}

func TestRun_SkipsBrokenAndUnsupportedItems(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "a.png", color.White)
	empty := writeFile(t, dir, "b.jpg", nil)
	notes := writeFile(t, dir, "c.txt", []byte("hello"))

	uc, _ := newBuilder(t, nil, 0)
	res, err := uc.Run(context.Background(), []string{notes, empty, good}, filepath.Join(dir, "out.docx"), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Added)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, empty, res.Skipped[0].Path)
	assert.Equal(t, entity.FailureCorrupt, res.Skipped[0].Kind)
	assert.Equal(t, notes, res.Skipped[1].Path)
	assert.Equal(t, entity.FailureUnsupported, res.Skipped[1].Kind)

	require.Len(t, res.Parts, 1)
	content := readDocx(t, res.Parts[0])
	assert.Equal(t, 1, content.media)
	assert.Contains(t, content.document, good)
	assert.NotContains(t, content.document, "b.jpg")
}

func TestRun_ProgressIsMonotonicAndEndsAtHundred(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePNG(t, dir, "1.png", color.White),
		writeFile(t, dir, "2.doc", nil),
		writePNG(t, dir, "3.png", color.Black),
	}

	uc, _ := newBuilder(t, nil, 0)
	var progress []int
	_, err := uc.Run(context.Background(), paths, filepath.Join(dir, "out.docx"), func(p int) { progress = append(progress, p) })
	require.NoError(t, err)
	assert.Equal(t, []int{33, 67, 100}, progress)
}

func TestRun_SortsInputWithoutTouchingCallerSlice(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", color.White)
	b := writePNG(t, dir, "b.png", color.Black)
	input := []string{b, a}

	uc, _ := newBuilder(t, nil, 0)
	res, err := uc.Run(context.Background(), input, filepath.Join(dir, "out.docx"), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{b, a}, input)
	doc := readDocx(t, res.Parts[0]).document
	assert.Less(t, strings.Index(doc, a), strings.Index(doc, b))
}

func TestRun_VideoUsesMiddleFrameAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	clip := writeFile(t, dir, "clip.mp4", []byte("stub"))
	video := &fakeVideo{count: 9, img: image.NewRGBA(image.Rect(0, 0, 8, 6))}

	uc, tempDir := newBuilder(t, video, 0)
	res, err := uc.Run(context.Background(), []string{clip}, filepath.Join(dir, "out.docx"), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Added)
	assert.Equal(t, []int{4}, video.asked)
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary frames must be released")
}

func TestRun_TemporaryFrameReleasedWhenAppendFails(t *testing.T) {
	dir := t.TempDir()
	clip := writeFile(t, dir, "clip.mp4", []byte("stub"))
	video := &fakeVideo{count: 3, img: image.NewRGBA(image.Rect(0, 0, 8, 6))}

	tempDir := t.TempDir()
	extractor := media.NewExtractor(video, tempDir, zap.NewNop())
	uc := NewBuildGalleryUseCase(extractor, brokenPictureDocs{}, zap.NewNop(), BuildGalleryConfig{})

	res, err := uc.Run(context.Background(), []string{clip}, filepath.Join(dir, "out.docx"), nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, video.asked)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, entity.FailurePackError, res.Skipped[0].Kind)
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary frames must be released after a failed append")
}

func TestRun_TemporaryFrameReleasedWhenRolloverSaveFails(t *testing.T) {
	dir := t.TempDir()
	clip := writeFile(t, dir, "clip.mp4", []byte("stub"))
	video := &fakeVideo{count: 2, img: image.NewRGBA(image.Rect(0, 0, 8, 6))}

	// a 1 byte threshold forces a rollover save before the first entry
	uc, tempDir := newBuilder(t, video, 1)
	res, err := uc.Run(context.Background(), []string{clip}, filepath.Join(dir, "missing", "out.docx"), nil)
	require.ErrorIs(t, err, ErrPartNotSaved)

	assert.Zero(t, res.Added)
	assert.Equal(t, []int{1}, video.asked)
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary frames must be released when the part cannot be saved")
}

func TestRun_RollsOverIntoNumberedParts(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		paths = append(paths, writePNG(t, dir, name, color.White))
	}

	uc, _ := newBuilder(t, nil, emptyPartSize(t)+1)
	res, err := uc.Run(context.Background(), paths, filepath.Join(dir, "gallery.docx"), nil)
	require.NoError(t, err)

	require.Len(t, res.Parts, 3)
	for i, part := range res.Parts {
		assert.Equal(t, PartPath(filepath.Join(dir, "gallery.docx"), i+1), part)
		assert.Equal(t, 1, readDocx(t, part).media)
	}
}

func TestRun_Deterministic(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePNG(t, dir, "a.png", color.White),
		writePNG(t, dir, "b.png", color.Black),
	}

	uc, _ := newBuilder(t, nil, 0)
	first, err := uc.Run(context.Background(), paths, filepath.Join(dir, "one.docx"), nil)
	require.NoError(t, err)
	second, err := uc.Run(context.Background(), paths, filepath.Join(dir, "two.docx"), nil)
	require.NoError(t, err)

	a, err := os.ReadFile(first.Parts[0])
	require.NoError(t, err)
	b, err := os.ReadFile(second.Parts[0])
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestRun_PanicBecomesPackError(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "a.png", color.White)

	uc := NewBuildGalleryUseCase(panickingExtractor{}, docx.NewWriter(), zap.NewNop(), BuildGalleryConfig{})
	res, err := uc.Run(context.Background(), []string{img}, filepath.Join(dir, "out.docx"), nil)
	require.NoError(t, err)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, entity.FailurePackError, res.Skipped[0].Kind)
	assert.Len(t, res.Parts, 1)
}

func TestRun_CancelledFinalizesOpenPart(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "a.png", color.White)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	uc, _ := newBuilder(t, nil, 0, sink)
	var progress []int
	res, err := uc.Run(ctx, []string{img}, filepath.Join(dir, "out.docx"), func(p int) { progress = append(progress, p) })
	require.ErrorIs(t, err, context.Canceled)

	assert.True(t, res.Cancelled)
	assert.Zero(t, res.Added)
	assert.Empty(t, progress)
	require.Len(t, res.Parts, 1)
	assert.FileExists(t, res.Parts[0])
	require.Len(t, sink.errs, 1)
	assert.ErrorIs(t, sink.errs[0], context.Canceled)
}

func TestRun_SinksSeeLiveContextAfterCancel(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "a.png", color.White)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	uc, _ := newBuilder(t, nil, 0, sink)
	before := time.Now()
	_, err := uc.Run(ctx, []string{img}, filepath.Join(dir, "out.docx"), nil)
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, sink.finishedCtx, 1)
	assert.NoError(t, sink.finishedCtx[0])
	assert.False(t, sink.deadlines[0].IsZero(), "sink context must be bounded")
	assert.WithinDuration(t, before.Add(SinkTimeout), sink.deadlines[0], 5*time.Second)
}

func TestRun_SaveFailureEndsRun(t *testing.T) {
	dir := t.TempDir()
	img := writePNG(t, dir, "a.png", color.White)

	uc, _ := newBuilder(t, nil, 0)
	res, err := uc.Run(context.Background(), []string{img}, filepath.Join(dir, "nope", "out.docx"), nil)
	require.ErrorIs(t, err, ErrPartNotSaved)
	assert.Empty(t, res.Parts)
}
