package fetch

import (
	"context"
	"log"
	"time"

	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/adapter"
)

var _ adapter.Downloader = (*NoopDownloader)(nil)

// NoopDownloader implements adapter.Downloader for local/dev runs. It logs
// the call and reports every fetch as completed so the state machine can be
// exercised end to end without a supplier account.
type NoopDownloader struct{}

func NewNoopDownloader() *NoopDownloader {
	return &NoopDownloader{}
}

func (d *NoopDownloader) Fetch(ctx context.Context, postID string) (adapter.FetchResult, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return adapter.FetchResult{}, ctx.Err()
	}
	log.Printf("[noop-fetch] fetched post %s\n", postID)
	return adapter.FetchResult{Status: model.DownloadCompleted, Owner: "noop"}, nil
}

func (d *NoopDownloader) ListAccountItems(ctx context.Context, accountID, cursor string) ([]adapter.AccountItem, string, error) {
	log.Printf("[noop-fetch] listing account %s (cursor %q)\n", accountID, cursor)
	return nil, "", nil
}
