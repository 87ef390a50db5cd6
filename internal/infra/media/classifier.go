package media

import (
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	// decoders used by IsWellFormedImage and image.Decode callers
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/fiapx/media-gallery/internal/domain/entity"
)

var imageExts = map[string]entity.MediaKind{
	"jpg":  entity.MediaKindStillImage,
	"jpeg": entity.MediaKindStillImage,
	"png":  entity.MediaKindStillImage,
	"bmp":  entity.MediaKindStillImage,
	"tiff": entity.MediaKindStillImage,
	"tif":  entity.MediaKindStillImage,
	"webp": entity.MediaKindStillImage,
	"gif":  entity.MediaKindAnimatedImage,
}

var videoExts = map[string]bool{
	"mp4": true,
	"mov": true,
	"avi": true,
	"mkv": true,
	"wmv": true,
	"flv": true,
}

// Classify maps the extension of path to a media kind. It never touches the filesystem.
func Classify(path string) entity.MediaKind {
	ext := entity.ExtOf(path)
	if kind, ok := imageExts[ext]; ok {
		return kind
	}
	if videoExts[ext] {
		return entity.MediaKindVideo
	}
	return entity.MediaKindUnsupported
}

// IsRecognized reports whether path has one of the recognized image or video extensions.
func IsRecognized(path string) bool {
	return Classify(path) != entity.MediaKindUnsupported
}

func NewItem(path string) entity.MediaItem {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return entity.MediaItem{Path: abs, Ext: entity.ExtOf(path), Kind: Classify(path)}
}

// IsWellFormedImage fully decodes the image at path. Any failure, including a
// decoder panic on hostile input, yields false.
func IsWellFormedImage(path string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil || img == nil {
		return false
	}
	b := img.Bounds()
	return b.Dx() > 0 && b.Dy() > 0
}

// EnumerateMediaUnder walks folder recursively and returns every file with a
// recognized extension. The order follows filepath.WalkDir; callers sort.
func EnumerateMediaUnder(folder string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsRecognized(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", folder, err)
	}
	return paths, nil
}

// Expand resolves user selections: folders are enumerated, files are kept as given.
// The returned size is the sum of all resulting file sizes in bytes.
func Expand(selections []string) ([]string, int64, error) {
	var (
		paths []string
		total int64
	)
	for _, sel := range selections {
		info, err := os.Stat(sel)
		if err != nil {
			return nil, 0, fmt.Errorf("stat %s: %w", sel, err)
		}
		if !info.IsDir() {
			paths = append(paths, sel)
			total += info.Size()
			continue
		}
		found, err := EnumerateMediaUnder(sel)
		if err != nil {
			return nil, 0, err
		}
		for _, p := range found {
			if fi, err := os.Stat(p); err == nil {
				total += fi.Size()
			}
		}
		paths = append(paths, found...)
	}
	return paths, total, nil
}
