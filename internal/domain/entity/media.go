package entity

import (
	"path/filepath"
	"strings"
)

type MediaKind string

const (
	MediaKindStillImage    MediaKind = "still_image"
	MediaKindAnimatedImage MediaKind = "animated_image"
	MediaKindVideo         MediaKind = "video"
	MediaKindUnsupported   MediaKind = "unsupported"
)

// MediaItem is a classified input path. It is immutable once built.
type MediaItem struct {
	Path string
	Ext  string
	Kind MediaKind
}

// NormalizeExt lower-cases an extension and strips the leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ExtOf returns the normalized extension of path.
func ExtOf(path string) string {
	return NormalizeExt(filepath.Ext(path))
}
