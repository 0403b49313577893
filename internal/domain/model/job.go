package model

import (
	"time"

	"github.com/oklog/ulid/v2"

	"telegram-media-relay/internal/domain"
)

type JobState string

const (
	JobStateWaiting      JobState = "waiting"
	JobStateProcessing   JobState = "processing"
	JobStateProcessed    JobState = "processed"
	JobStateError        JobState = "error"
	JobStateNotSupported JobState = "not_supported"
)

// IsTerminal reports whether no further automatic transition happens from s.
func (s JobState) IsTerminal() bool {
	return s == JobStateProcessed || s == JobStateNotSupported
}

type DownloadStatus string

const (
	DownloadNotStarted     DownloadStatus = "not_started"
	DownloadCompleted      DownloadStatus = "completed"
	DownloadSourceNotFound DownloadStatus = "source_not_found"
	DownloadNotSupported   DownloadStatus = "not_supported"
	DownloadError          DownloadStatus = "download_error"
)

// IsTerminal reports whether the download step must not run again for this status.
func (s DownloadStatus) IsTerminal() bool {
	return s == DownloadCompleted || s == DownloadSourceNotFound || s == DownloadNotSupported
}

type UploadStatus string

const (
	UploadNotStarted UploadStatus = "not_started"
	UploadCompleted  UploadStatus = "completed"
	UploadError      UploadStatus = "upload_error"
)

type LinkType string

const (
	LinkTypePost    LinkType = "post"
	LinkTypeAccount LinkType = "account"
)

// Job is one piece of content to fetch and relay, tracked from waiting
// through a terminal state. It lives in the queue table until terminal,
// then moves to the processed table.
type Job struct {
	ID             string
	UserID         int64
	PostID         string
	PostURL        string
	PostOwner      string
	LinkType       LinkType
	MessageID      int
	ChatID         int64
	ScheduledTime  time.Time
	DownloadStatus DownloadStatus
	UploadStatus   UploadStatus
	State          JobState
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewJob builds a waiting job and validates required fields up front.
func NewJob(userID int64, postID, postURL string, linkType LinkType, messageID int, chatID int64, scheduledTime time.Time) (*Job, error) {
	if userID == 0 || chatID == 0 {
		return nil, domain.ErrInvalidArgument
	}
	if postID == "" || postURL == "" {
		return nil, domain.ErrInvalidArgument
	}
	if linkType != LinkTypePost && linkType != LinkTypeAccount {
		return nil, domain.ErrInvalidArgument
	}
	if scheduledTime.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Job{
		ID:             ulid.Make().String(),
		UserID:         userID,
		PostID:         postID,
		PostURL:        postURL,
		PostOwner:      "undefined",
		LinkType:       linkType,
		MessageID:      messageID,
		ChatID:         chatID,
		ScheduledTime:  scheduledTime,
		DownloadStatus: DownloadNotStarted,
		UploadStatus:   UploadNotStarted,
		State:          JobStateWaiting,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ProcessedRecord is an immutable snapshot of a job at its terminal state.
type ProcessedRecord struct {
	ID             string
	UserID         int64
	PostID         string
	PostURL        string
	PostOwner      string
	LinkType       LinkType
	MessageID      int
	ChatID         int64
	DownloadStatus DownloadStatus
	UploadStatus   UploadStatus
	State          JobState
	Timestamp      time.Time
}

// Snapshot copies the job into a processed record with the given terminal state.
func (j *Job) Snapshot(state JobState, at time.Time) *ProcessedRecord {
	return &ProcessedRecord{
		ID:             ulid.Make().String(),
		UserID:         j.UserID,
		PostID:         j.PostID,
		PostURL:        j.PostURL,
		PostOwner:      j.PostOwner,
		LinkType:       j.LinkType,
		MessageID:      j.MessageID,
		ChatID:         j.ChatID,
		DownloadStatus: j.DownloadStatus,
		UploadStatus:   j.UploadStatus,
		State:          state,
		Timestamp:      at,
	}
}
