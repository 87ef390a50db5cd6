package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVideo struct {
	count     int
	countErr  error
	frameErr  error
	frame     image.Image
	requested []int
}

func (f *fakeVideo) FrameCount(_ context.Context, _ string) (int, error) {
	return f.count, f.countErr
}

func (f *fakeVideo) FrameAt(_ context.Context, _ string, index int) (image.Image, error) {
	f.requested = append(f.requested, index)
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	return f.frame, nil
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestExtract_StillImageUsesSourceFile(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "photo.jpg", solid(4, 4, color.White))
	ex := NewExtractor(&fakeVideo{}, dir, zap.NewNop())

	frame, err := ex.Extract(context.Background(), NewItem(path))
	require.NoError(t, err)

	assert.Equal(t, path, frame.Path)
	assert.Equal(t, path, frame.Source)
	assert.False(t, frame.Temporary)
	require.NoError(t, frame.Release())
	assert.FileExists(t, path)
}

func TestExtract_CorruptStillImage(t *testing.T) {
	dir := t.TempDir()
	path := writeBytes(t, dir, "broken.jpg", nil)
	ex := NewExtractor(&fakeVideo{}, dir, zap.NewNop())

	frame, err := ex.Extract(context.Background(), NewItem(path))

	assert.Nil(t, frame)
	assert.Equal(t, entity.FailureCorrupt, entity.KindOf(err))
}

func TestExtract_AnimatedImageTakesFirstFrame(t *testing.T) {
	dir := t.TempDir()
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	path := writeGIF(t, dir, "anim.gif", red, blue)
	tmpDir := t.TempDir()
	ex := NewExtractor(&fakeVideo{}, tmpDir, zap.NewNop())

	frame, err := ex.Extract(context.Background(), NewItem(path))
	require.NoError(t, err)

	assert.True(t, frame.Temporary)
	assert.Equal(t, tmpDir, filepath.Dir(frame.Path))
	img := decodePNG(t, frame.Path)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, b})

	require.NoError(t, frame.Release())
	assert.NoFileExists(t, frame.Path)
	require.NoError(t, frame.Release())
}

func TestExtract_AnimatedImageDecodeError(t *testing.T) {
	dir := t.TempDir()
	path := writeBytes(t, dir, "bad.gif", []byte("GIF89a-garbage"))
	ex := NewExtractor(&fakeVideo{}, dir, zap.NewNop())

	_, err := ex.Extract(context.Background(), NewItem(path))

	assert.Equal(t, entity.FailureDecodeError, entity.KindOf(err))
}

func TestExtract_VideoMiddleFrameIndex(t *testing.T) {
	for count, want := range map[int]int{0: 0, 1: 0, 2: 1, 3: 1, 10: 5, 11: 5, 250: 125} {
		video := &fakeVideo{count: count, frame: solid(2, 2, color.White)}
		ex := NewExtractor(video, t.TempDir(), zap.NewNop())

		frame, err := ex.Extract(context.Background(), NewItem("clip.mp4"))
		require.NoError(t, err)
		require.NoError(t, frame.Release())

		assert.Equal(t, []int{want}, video.requested, "frame count %d", count)
	}
}

func TestExtract_VideoKeepsChannelOrder(t *testing.T) {
	video := &fakeVideo{count: 4, frame: solid(3, 3, color.RGBA{R: 250, G: 20, B: 5, A: 255})}
	ex := NewExtractor(video, t.TempDir(), zap.NewNop())

	frame, err := ex.Extract(context.Background(), NewItem("clip.mov"))
	require.NoError(t, err)
	defer frame.Release()

	r, g, b, _ := decodePNG(t, frame.Path).At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{250, 20, 5}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestExtract_VideoFailures(t *testing.T) {
	ex := NewExtractor(&fakeVideo{countErr: errors.New("moov atom not found")}, t.TempDir(), zap.NewNop())
	_, err := ex.Extract(context.Background(), NewItem("broken.mkv"))
	assert.Equal(t, entity.FailureUnopenable, entity.KindOf(err))

	ex = NewExtractor(&fakeVideo{count: 8, frameErr: errors.New("no output")}, t.TempDir(), zap.NewNop())
	_, err = ex.Extract(context.Background(), NewItem("empty.avi"))
	assert.Equal(t, entity.FailureNoFrame, entity.KindOf(err))

	ex = NewExtractor(&fakeVideo{count: 8}, t.TempDir(), zap.NewNop())
	_, err = ex.Extract(context.Background(), NewItem("nil.avi"))
	assert.Equal(t, entity.FailureNoFrame, entity.KindOf(err))
}

func TestExtract_Unsupported(t *testing.T) {
	ex := NewExtractor(&fakeVideo{}, t.TempDir(), zap.NewNop())

	_, err := ex.Extract(context.Background(), NewItem("notes.txt"))

	var me *entity.MediaError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, entity.FailureUnsupported, me.Kind)
}
