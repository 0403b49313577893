package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/adapter"
	"telegram-media-relay/internal/domain/ports/repository"
	"telegram-media-relay/internal/infra/metrics"
)

// Compile-time check
var _ ProcessUseCase = (*processUC)(nil)

type ProcessUseCase interface {
	// ProcessNext drives the earliest due job one step through the state
	// machine: download, outcome dispatch, upload, final classification.
	// Returns domain.ErrNotFound when nothing is due. Collaborator failures
	// are absorbed into the job's error state, not returned; store failures
	// propagate so the caller skips the rest of the cycle.
	ProcessNext(ctx context.Context, now time.Time) (*model.Job, error)
}

type processUC struct {
	queue       repository.QueueRepository
	downloader  adapter.Downloader
	uploader    adapter.Uploader
	callTimeout time.Duration
	log         *zerolog.Logger
}

func NewProcessUseCase(
	queue repository.QueueRepository,
	downloader adapter.Downloader,
	uploader adapter.Uploader,
	callTimeout time.Duration,
	logger *zerolog.Logger,
) *processUC {
	compLog := logger.With().Str("component", "ProcessUseCase").Logger()
	return &processUC{
		queue:       queue,
		downloader:  downloader,
		uploader:    uploader,
		callTimeout: callTimeout,
		log:         &compLog,
	}
}

func (u *processUC) ProcessNext(ctx context.Context, now time.Time) (*model.Job, error) {
	job, err := u.queue.DequeueDue(ctx, now)
	if err != nil {
		return nil, err
	}

	if !job.DownloadStatus.IsTerminal() {
		if err := u.downloadStep(ctx, job); err != nil {
			return job, err
		}
		if job.State == model.JobStateError {
			// Collaborator failure: the job sits in error state and is
			// retried on its next due cycle. No upload attempt this cycle.
			return job, nil
		}
	}

	switch job.DownloadStatus {
	case model.DownloadCompleted:
		// continue to the upload step
	case model.DownloadSourceNotFound:
		// Nothing to relay; the job is done.
		if err := u.transition(ctx, job, model.JobStateProcessed); err != nil {
			return job, err
		}
		metrics.IncJob(string(model.JobStateProcessed))
		u.log.Info().Str("post_id", job.PostID).Msg("source not found, job closed without upload")
		return job, nil
	case model.DownloadNotSupported:
		if err := u.transition(ctx, job, model.JobStateNotSupported); err != nil {
			return job, err
		}
		metrics.IncJob(string(model.JobStateNotSupported))
		u.log.Info().Str("post_id", job.PostID).Msg("content type not supported, job closed")
		return job, nil
	default:
		// download_error or an unknown status: leave the job for the next cycle.
		return job, nil
	}

	if job.UploadStatus != model.UploadCompleted {
		if err := u.uploadStep(ctx, job); err != nil {
			return job, err
		}
		if job.State == model.JobStateError {
			return job, nil
		}
	}

	return job, u.classify(ctx, job)
}

// downloadStep fetches the content and persists the outcome. A fetch failure
// is absorbed into the job's error state; only a store failure is returned.
func (u *processUC) downloadStep(ctx context.Context, job *model.Job) error {
	callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	res, err := u.downloader.Fetch(callCtx, job.PostID)
	if err != nil {
		u.log.Warn().Err(err).Str("post_id", job.PostID).Int64("user_id", job.UserID).
			Msg("download failed, job moved to error state")
		ds := model.DownloadError
		if terr := u.queue.Transition(ctx, job.PostID, job.UserID, model.JobStateError,
			repository.StatusUpdate{DownloadStatus: &ds}); terr != nil {
			u.log.Error().Err(terr).Str("post_id", job.PostID).Msg("transition to error state not persisted")
		}
		job.State = model.JobStateError
		job.DownloadStatus = ds
		metrics.IncJob(string(model.JobStateError))
		return nil
	}

	job.DownloadStatus = res.Status
	upd := repository.StatusUpdate{DownloadStatus: &res.Status}
	if res.Owner != "" {
		job.PostOwner = res.Owner
		upd.PostOwner = &res.Owner
	}
	if err := u.queue.Transition(ctx, job.PostID, job.UserID, model.JobStateProcessing, upd); err != nil {
		u.log.Error().Err(err).Str("post_id", job.PostID).Int64("user_id", job.UserID).
			Msg("download result not persisted")
		return err
	}
	job.State = model.JobStateProcessing
	return nil
}

// uploadStep relays the content and persists the outcome. A relay failure is
// absorbed into the job's error state; only a store failure is returned.
func (u *processUC) uploadStep(ctx context.Context, job *model.Job) error {
	callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	status, err := u.uploader.Relay(callCtx, job.PostOwner)
	if err != nil || status == model.UploadError {
		if err != nil {
			u.log.Warn().Err(err).Str("post_id", job.PostID).Int64("user_id", job.UserID).
				Msg("upload failed, job moved to error state")
		}
		us := model.UploadError
		if terr := u.queue.Transition(ctx, job.PostID, job.UserID, model.JobStateError,
			repository.StatusUpdate{UploadStatus: &us}); terr != nil {
			u.log.Error().Err(terr).Str("post_id", job.PostID).Msg("transition to error state not persisted")
		}
		job.State = model.JobStateError
		job.UploadStatus = us
		metrics.IncJob(string(model.JobStateError))
		return nil
	}

	job.UploadStatus = status
	if err := u.queue.Transition(ctx, job.PostID, job.UserID, model.JobStateProcessing,
		repository.StatusUpdate{UploadStatus: &status}); err != nil {
		u.log.Error().Err(err).Str("post_id", job.PostID).Int64("user_id", job.UserID).
			Msg("upload result not persisted")
		return err
	}
	job.State = model.JobStateProcessing
	return nil
}

// classify applies the final rule: both statuses completed means processed,
// anything else stays for a later cycle.
func (u *processUC) classify(ctx context.Context, job *model.Job) error {
	if job.DownloadStatus == model.DownloadCompleted && job.UploadStatus == model.UploadCompleted {
		if err := u.transition(ctx, job, model.JobStateProcessed); err != nil {
			return err
		}
		metrics.IncJob(string(model.JobStateProcessed))
		u.log.Info().Str("post_id", job.PostID).Int64("user_id", job.UserID).Msg("job processed")
		return nil
	}
	u.log.Warn().Str("post_id", job.PostID).
		Str("download_status", string(job.DownloadStatus)).
		Str("upload_status", string(job.UploadStatus)).
		Msg("job not finished this cycle")
	return nil
}

func (u *processUC) transition(ctx context.Context, job *model.Job, state model.JobState) error {
	err := u.queue.Transition(ctx, job.PostID, job.UserID, state, repository.StatusUpdate{
		DownloadStatus: &job.DownloadStatus,
		UploadStatus:   &job.UploadStatus,
	})
	if err != nil {
		u.log.Error().Err(err).Str("post_id", job.PostID).Str("state", string(state)).
			Msg("terminal transition not persisted")
		return err
	}
	job.State = state
	return nil
}
