package port

import (
	"context"
	"io"
)

type PartStorage interface {
	UploadPart(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}
