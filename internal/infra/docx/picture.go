package docx

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"os"

	// formats accepted by LoadPicture
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// embeddable maps decoder format names to the package extension and content type.
var embeddable = map[string]struct{ ext, contentType string }{
	"jpeg": {"jpeg", "image/jpeg"},
	"png":  {"png", "image/png"},
	"gif":  {"gif", "image/gif"},
	"bmp":  {"bmp", "image/bmp"},
	"tiff": {"tiff", "image/tiff"},
}

// Picture is an image read into memory and ready to be embedded.
type Picture struct {
	data        []byte
	ext         string
	contentType string
	width       int
	height      int
	crc         uint32
}

func (p *Picture) Dimensions() (int, int) {
	return p.width, p.height
}

// LoadPicture reads path and prepares it for embedding. Formats Word cannot
// display (webp) are transcoded to PNG.
func LoadPicture(path string) (*Picture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read picture: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode picture header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("picture has no pixels: %dx%d", cfg.Width, cfg.Height)
	}

	kind, ok := embeddable[format]
	if !ok {
		data, err = transcodePNG(data)
		if err != nil {
			return nil, fmt.Errorf("transcode %s picture: %w", format, err)
		}
		kind = embeddable["png"]
	}

	return &Picture{
		data:        data,
		ext:         kind.ext,
		contentType: kind.contentType,
		width:       cfg.Width,
		height:      cfg.Height,
		crc:         crc32.ChecksumIEEE(data),
	}, nil
}

func transcodePNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
