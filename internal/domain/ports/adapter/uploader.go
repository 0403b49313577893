package adapter

import (
	"context"

	"telegram-media-relay/internal/domain/model"
)

// Uploader relays staged content to the destination storage.
type Uploader interface {
	// Relay transfers the staged files under subdirectory and returns the
	// resulting upload status. Collaborator failures come back as an error.
	Relay(ctx context.Context, subdirectory string) (model.UploadStatus, error)
}
