package relay

import (
	"context"
	"log"
	"time"

	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/adapter"
)

var _ adapter.Uploader = (*NoopUploader)(nil)

// NoopUploader implements adapter.Uploader for local/dev runs. It logs the
// call and reports success without moving any files.
type NoopUploader struct{}

func NewNoopUploader() *NoopUploader {
	return &NoopUploader{}
}

func (u *NoopUploader) Relay(ctx context.Context, subdirectory string) (model.UploadStatus, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return model.UploadError, ctx.Err()
	}
	log.Printf("[noop-relay] relayed staged files under %s\n", subdirectory)
	return model.UploadCompleted, nil
}
