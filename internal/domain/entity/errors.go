package entity

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	FailureCorrupt     FailureKind = "corrupt"
	FailureDecodeError FailureKind = "decode_error"
	FailureUnopenable  FailureKind = "unopenable"
	FailureNoFrame     FailureKind = "no_frame"
	FailureUnsupported FailureKind = "unsupported"
	FailurePackError   FailureKind = "pack_error"
)

var ErrNoFiles = errors.New("no files selected for processing")

// MediaError reports why a single media item was left out of the gallery.
type MediaError struct {
	Kind  FailureKind
	Path  string
	Cause error
}

func NewMediaError(kind FailureKind, path string, cause error) *MediaError {
	return &MediaError{Kind: kind, Path: path, Cause: cause}
}

func (e *MediaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

func (e *MediaError) Unwrap() error {
	return e.Cause
}

// KindOf returns the failure kind carried by err, or FailurePackError for foreign errors.
func KindOf(err error) FailureKind {
	var me *MediaError
	if errors.As(err, &me) {
		return me.Kind
	}
	return FailurePackError
}
