//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/repository"
)

func TestStatusRecordRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewStatusRecordRepo(testPool)
	ctx := context.Background()

	t.Run("insert then find", func(t *testing.T) {
		cleanup(t)

		rec := &model.StatusRecord{
			MessageID:   500,
			ChatID:      42,
			MessageType: model.StatusMessageType,
			ContentHash: model.ContentHash("digest body"),
			Producer:    "bot",
		}
		if err := repo.Insert(ctx, repository.NoTX, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		found, err := repo.Find(ctx, repository.NoTX, 42, model.StatusMessageType)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if found.MessageID != 500 || found.ContentHash != rec.ContentHash {
			t.Errorf("unexpected record: %+v", found)
		}
		if found.SyncState != model.SyncStateAdded {
			t.Errorf("fresh record must be 'added', got %s", found.SyncState)
		}
	})

	t.Run("missing record returns not found", func(t *testing.T) {
		cleanup(t)

		if _, err := repo.Find(ctx, repository.NoTX, 42, model.StatusMessageType); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("second insert for the chat is rejected", func(t *testing.T) {
		cleanup(t)

		rec := &model.StatusRecord{MessageID: 500, ChatID: 42, MessageType: model.StatusMessageType, ContentHash: "h", Producer: "bot"}
		if err := repo.Insert(ctx, repository.NoTX, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		dup := &model.StatusRecord{MessageID: 501, ChatID: 42, MessageType: model.StatusMessageType, ContentHash: "h2", Producer: "bot"}
		if err := repo.Insert(ctx, repository.NoTX, dup); !errors.Is(err, domain.ErrStatusClaimHeld) {
			t.Errorf("expected ErrStatusClaimHeld, got %v", err)
		}
	})

	t.Run("claim is exclusive until released", func(t *testing.T) {
		cleanup(t)

		rec := &model.StatusRecord{MessageID: 500, ChatID: 42, MessageType: model.StatusMessageType, ContentHash: "h", Producer: "bot"}
		if err := repo.Insert(ctx, repository.NoTX, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		if err := repo.Claim(ctx, 42, model.StatusMessageType, 5*time.Minute); err != nil {
			t.Fatalf("first Claim failed: %v", err)
		}
		if err := repo.Claim(ctx, 42, model.StatusMessageType, 5*time.Minute); !errors.Is(err, domain.ErrStatusClaimHeld) {
			t.Errorf("expected ErrStatusClaimHeld on second claim, got %v", err)
		}

		if err := repo.Release(ctx, repository.NoTX, 42, model.StatusMessageType, 500, "h2", false); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		found, err := repo.Find(ctx, repository.NoTX, 42, model.StatusMessageType)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if found.SyncState != model.SyncStateUpdated || found.ContentHash != "h2" {
			t.Errorf("release must store the new hash and state, got %+v", found)
		}

		if err := repo.Claim(ctx, 42, model.StatusMessageType, 5*time.Minute); err != nil {
			t.Errorf("claim after release must succeed: %v", err)
		}
	})

	t.Run("abandoned claim is taken over past the staleness cutoff", func(t *testing.T) {
		cleanup(t)

		rec := &model.StatusRecord{MessageID: 500, ChatID: 42, MessageType: model.StatusMessageType, ContentHash: "h", Producer: "bot"}
		if err := repo.Insert(ctx, repository.NoTX, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if err := repo.Claim(ctx, 42, model.StatusMessageType, 5*time.Minute); err != nil {
			t.Fatalf("Claim failed: %v", err)
		}

		// Simulate a holder that died mid-sync: the row stays in updating
		// and its updated_at stops moving.
		if _, err := testPool.Exec(ctx, `UPDATE status_records SET updated_at = now() - interval '10 minutes' WHERE chat_id = 42;`); err != nil {
			t.Fatalf("could not age the claim: %v", err)
		}

		if err := repo.Claim(ctx, 42, model.StatusMessageType, 15*time.Minute); !errors.Is(err, domain.ErrStatusClaimHeld) {
			t.Errorf("claim inside the cutoff must still be held, got %v", err)
		}
		if err := repo.Claim(ctx, 42, model.StatusMessageType, 5*time.Minute); err != nil {
			t.Errorf("stale claim must be taken over: %v", err)
		}
	})

	t.Run("recreated release resets created_at", func(t *testing.T) {
		cleanup(t)

		rec := &model.StatusRecord{MessageID: 500, ChatID: 42, MessageType: model.StatusMessageType, ContentHash: "h", Producer: "bot"}
		if err := repo.Insert(ctx, repository.NoTX, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		// Age the row so the reset is observable.
		if _, err := testPool.Exec(ctx, `UPDATE status_records SET created_at = now() - interval '30 hours' WHERE chat_id = 42;`); err != nil {
			t.Fatalf("could not age the record: %v", err)
		}
		aged, err := repo.Find(ctx, repository.NoTX, 42, model.StatusMessageType)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}

		if err := repo.Release(ctx, repository.NoTX, 42, model.StatusMessageType, 600, "h2", true); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		fresh, err := repo.Find(ctx, repository.NoTX, 42, model.StatusMessageType)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if fresh.MessageID != 600 {
			t.Errorf("expected new message id 600, got %d", fresh.MessageID)
		}
		if !fresh.CreatedAt.After(aged.CreatedAt) {
			t.Errorf("created_at must reset on recreate: aged=%v fresh=%v", aged.CreatedAt, fresh.CreatedAt)
		}
	})

	t.Run("release of a missing record fails", func(t *testing.T) {
		cleanup(t)

		if err := repo.Release(ctx, repository.NoTX, 42, model.StatusMessageType, 500, "h", false); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
