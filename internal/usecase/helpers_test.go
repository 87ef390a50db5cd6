package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return writeFile(t, dir, name, buf.Bytes())
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

type docxContent struct {
	document string
	media    int
}

func readDocx(t *testing.T, path string) docxContent {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var out docxContent
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "word/media/") {
			out.media++
		}
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out.document = string(data)
	}
	return out
}

type fakeVideo struct {
	count int
	img   image.Image
	err   error
	asked []int
}

func (f *fakeVideo) FrameCount(ctx context.Context, path string) (int, error) {
	return f.count, f.err
}

func (f *fakeVideo) FrameAt(ctx context.Context, path string, index int) (image.Image, error) {
	f.asked = append(f.asked, index)
	return f.img, nil
}
