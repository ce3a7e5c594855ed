package port

import (
	"context"
	"io"
)

// VideoStorage moves videos between object storage and the local work dir.
type VideoStorage interface {
	UploadVideo(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	DownloadVideo(ctx context.Context, objectKey string, destPath string) error
	UploadAnnotated(ctx context.Context, objectKey string, srcPath string) error
	// OpenAnnotated streams an annotated video for download; the caller must
	// close the reader.
	OpenAnnotated(ctx context.Context, objectKey string) (io.ReadCloser, int64, error)
	DeleteUpload(ctx context.Context, objectKey string) error
	DeleteAnnotated(ctx context.Context, objectKey string) error
}
