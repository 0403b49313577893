//go:build !integration

package model_test

import (
	"errors"
	"testing"
	"time"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/domain/model"
)

func TestNewJob(t *testing.T) {
	scheduled := time.Now().Add(time.Hour)

	t.Run("valid job starts waiting", func(t *testing.T) {
		job, err := model.NewJob(42, "ABC123def45", "https://www.instagram.com/p/ABC123def45/", model.LinkTypePost, 7, 42, scheduled)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if job.ID == "" {
			t.Error("job must get an id")
		}
		if job.State != model.JobStateWaiting {
			t.Errorf("expected waiting state, got %s", job.State)
		}
		if job.DownloadStatus != model.DownloadNotStarted || job.UploadStatus != model.UploadNotStarted {
			t.Errorf("step statuses must start not_started, got %s/%s", job.DownloadStatus, job.UploadStatus)
		}
		if job.PostOwner != "undefined" {
			t.Errorf("owner must default to undefined, got %q", job.PostOwner)
		}
	})

	t.Run("required fields are validated", func(t *testing.T) {
		cases := []struct {
			name     string
			userID   int64
			postID   string
			postURL  string
			linkType model.LinkType
			chatID   int64
			when     time.Time
		}{
			{"zero user", 0, "ABC123def45", "https://example.com", model.LinkTypePost, 42, scheduled},
			{"zero chat", 42, "ABC123def45", "https://example.com", model.LinkTypePost, 0, scheduled},
			{"empty post id", 42, "", "https://example.com", model.LinkTypePost, 42, scheduled},
			{"empty url", 42, "ABC123def45", "", model.LinkTypePost, 42, scheduled},
			{"bad link type", 42, "ABC123def45", "https://example.com", model.LinkType("story"), 42, scheduled},
			{"zero schedule", 42, "ABC123def45", "https://example.com", model.LinkTypePost, 42, time.Time{}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := model.NewJob(tc.userID, tc.postID, tc.postURL, tc.linkType, 7, tc.chatID, tc.when)
				if !errors.Is(err, domain.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
			})
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		a, _ := model.NewJob(42, "ABC123def45", "https://example.com", model.LinkTypePost, 7, 42, scheduled)
		b, _ := model.NewJob(42, "ABC123def45", "https://example.com", model.LinkTypePost, 7, 42, scheduled)
		if a.ID == b.ID {
			t.Error("two jobs must not share an id")
		}
	})
}

func TestJobStateIsTerminal(t *testing.T) {
	terminal := []model.JobState{model.JobStateProcessed, model.JobStateNotSupported}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
	active := []model.JobState{model.JobStateWaiting, model.JobStateProcessing, model.JobStateError}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}

func TestDownloadStatusIsTerminal(t *testing.T) {
	if model.DownloadError.IsTerminal() {
		t.Error("download_error must stay retryable")
	}
	if !model.DownloadSourceNotFound.IsTerminal() {
		t.Error("source_not_found must not be retried")
	}
	if !model.DownloadCompleted.IsTerminal() {
		t.Error("completed must not be retried")
	}
}

func TestSnapshot(t *testing.T) {
	job, err := model.NewJob(42, "ABC123def45", "https://www.instagram.com/p/ABC123def45/", model.LinkTypePost, 7, 42, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	job.DownloadStatus = model.DownloadCompleted
	job.UploadStatus = model.UploadCompleted

	at := time.Now()
	rec := job.Snapshot(model.JobStateProcessed, at)
	if rec.ID == job.ID {
		t.Error("snapshot must get its own id")
	}
	if rec.PostID != job.PostID || rec.UserID != job.UserID || rec.ChatID != job.ChatID {
		t.Error("snapshot must carry the job identity fields")
	}
	if rec.State != model.JobStateProcessed {
		t.Errorf("expected processed, got %s", rec.State)
	}
	if !rec.Timestamp.Equal(at) {
		t.Errorf("expected timestamp %v, got %v", at, rec.Timestamp)
	}
}

func TestContentHash(t *testing.T) {
	a := model.ContentHash("digest body")
	b := model.ContentHash("digest body")
	c := model.ContentHash("digest body changed")
	if a != b {
		t.Error("same content must hash the same")
	}
	if a == c {
		t.Error("different content must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}
