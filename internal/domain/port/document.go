package port

import "github.com/fiapx/media-gallery/internal/domain/entity"

// Picture is an image that has been read and validated by a Document.
type Picture interface {
	Dimensions() (width, height int)
}

// Document is an append-only paginated document.
type Document interface {
	AddHeading(text string, level int)
	AddParagraph(text string)
	LoadPicture(path string) (Picture, error)
	AddPicture(pic Picture, widthMM float64) error
	// SerializedSize serializes the whole document and returns its length in bytes.
	SerializedSize() (int64, error)
	Save(path string) error
}

type DocumentFactory interface {
	NewDocument(geometry entity.PageGeometry) Document
}
