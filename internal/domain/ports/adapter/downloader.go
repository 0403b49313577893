package adapter

import (
	"context"

	"telegram-media-relay/internal/domain/model"
)

// FetchResult is the outcome of one content fetch. Status carries the
// dispatch decision for the scheduler; Owner is the account the content
// belongs to, used as the relay subdirectory.
type FetchResult struct {
	Status model.DownloadStatus
	Owner  string
}

// AccountItem is one post discovered while walking an account.
type AccountItem struct {
	PostID  string
	PostURL string
}

// Downloader fetches content from the supplier into local staging.
type Downloader interface {
	// Fetch downloads the content identified by postID. Collaborator
	// failures come back as an error; source-side outcomes (not found,
	// unsupported type) come back as a FetchResult status.
	Fetch(ctx context.Context, postID string) (FetchResult, error)

	// ListAccountItems pages through the posts of an account. An empty
	// returned cursor means the listing is complete.
	ListAccountItems(ctx context.Context, accountID, cursor string) ([]AccountItem, string, error)
}
