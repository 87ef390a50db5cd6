package entity

import (
	"errors"
	"io/fs"
	"os"
)

// ExtractedFrame is the still image that represents one media item in a document.
// When Temporary is set the payload at Path belongs to the frame and is removed by Release.
type ExtractedFrame struct {
	Source    string
	Path      string
	Temporary bool
	released  bool
}

func NewSourceFrame(item MediaItem) *ExtractedFrame {
	return &ExtractedFrame{Source: item.Path, Path: item.Path}
}

func NewTemporaryFrame(item MediaItem, payloadPath string) *ExtractedFrame {
	return &ExtractedFrame{Source: item.Path, Path: payloadPath, Temporary: true}
}

// Release deletes the temporary payload. Safe to call more than once; source files are never touched.
func (f *ExtractedFrame) Release() error {
	if f == nil || f.released {
		return nil
	}
	f.released = true
	if !f.Temporary {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
