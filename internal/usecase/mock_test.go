//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-media-relay/internal/domain"
	"telegram-media-relay/internal/domain/model"
	"telegram-media-relay/internal/domain/ports/adapter"
	"telegram-media-relay/internal/domain/ports/repository"
)

// -----------------------------
// Utilities
// -----------------------------

func now() time.Time { return time.Now().Truncate(time.Millisecond) }

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Transaction manager
// =============================

// MockTxManager runs the function directly; the in-memory repositories have
// no transactional semantics to enforce.
type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Repositories
// =============================

// ---- Queue ----

// MockQueueRepo keeps jobs in memory and mirrors the real repository's
// semantics: dedup across queue and processed, earliest-due dequeue, and the
// move-to-processed side of terminal transitions.
type MockQueueRepo struct {
	mu        sync.Mutex
	jobs      map[string]*model.Job
	processed *MockProcessedRepo // consulted for dedup and terminal moves

	EnqueueFunc                func(ctx context.Context, tx repository.Tx, job *model.Job) error
	DequeueDueFunc             func(ctx context.Context, now time.Time) (*model.Job, error)
	TransitionFunc             func(ctx context.Context, postID string, userID int64, newState model.JobState, upd repository.StatusUpdate) error
	RescheduleFunc             func(ctx context.Context, tx repository.Tx, postID string, userID int64, newTime time.Time) error
	UserQueueFunc              func(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.Job, error)
	CountByStateFunc           func(ctx context.Context, tx repository.Tx) (map[model.JobState]int, error)
	CountByUserFunc            func(ctx context.Context, tx repository.Tx, userID int64) (int, error)
	IsUniqueFunc               func(ctx context.Context, tx repository.Tx, postID string, userID int64) (bool, error)
	ListUserIDsWithBacklogFunc func(ctx context.Context, tx repository.Tx) ([]int64, error)
}

var _ repository.QueueRepository = (*MockQueueRepo)(nil)

func NewMockQueueRepo(processed *MockProcessedRepo) *MockQueueRepo {
	return &MockQueueRepo{jobs: make(map[string]*model.Job), processed: processed}
}

func (m *MockQueueRepo) key(postID string, userID int64) string {
	return postID + "|" + strconv.FormatInt(userID, 10)
}

func (m *MockQueueRepo) Enqueue(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, tx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(job.PostID, job.UserID)
	if _, exists := m.jobs[k]; exists {
		return domain.ErrDuplicateRequest
	}
	if m.processed != nil && m.processed.has(job.PostID, job.UserID) {
		return domain.ErrDuplicateRequest
	}
	cp := *job
	m.jobs[k] = &cp
	return nil
}

func (m *MockQueueRepo) DequeueDue(ctx context.Context, at time.Time) (*model.Job, error) {
	if m.DequeueDueFunc != nil {
		return m.DequeueDueFunc(ctx, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.Job
	for _, j := range m.jobs {
		if j.ScheduledTime.After(at) {
			continue
		}
		if j.State.IsTerminal() {
			continue
		}
		if best == nil || j.ScheduledTime.Before(best.ScheduledTime) {
			best = j
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *MockQueueRepo) Transition(ctx context.Context, postID string, userID int64, newState model.JobState, upd repository.StatusUpdate) error {
	if m.TransitionFunc != nil {
		return m.TransitionFunc(ctx, postID, userID, newState, upd)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, j := range m.jobs {
		if j.PostID != postID || j.UserID != userID {
			continue
		}
		if upd.DownloadStatus != nil {
			j.DownloadStatus = *upd.DownloadStatus
		}
		if upd.UploadStatus != nil {
			j.UploadStatus = *upd.UploadStatus
		}
		if upd.PostOwner != nil {
			j.PostOwner = *upd.PostOwner
		}
		j.State = newState
		if newState.IsTerminal() && newState != model.JobStateError {
			if m.processed != nil {
				m.processed.add(j.Snapshot(newState, time.Now()))
			}
			delete(m.jobs, k)
		}
		return nil
	}
	return domain.ErrNotFound
}

func (m *MockQueueRepo) Reschedule(ctx context.Context, tx repository.Tx, postID string, userID int64, newTime time.Time) error {
	if m.RescheduleFunc != nil {
		return m.RescheduleFunc(ctx, tx, postID, userID, newTime)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[m.key(postID, userID)]
	if !ok {
		return domain.ErrNotFound
	}
	j.ScheduledTime = newTime
	return nil
}

func (m *MockQueueRepo) UserQueue(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.Job, error) {
	if m.UserQueueFunc != nil {
		return m.UserQueueFunc(ctx, tx, userID, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.jobs {
		if j.UserID == userID {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ScheduledTime.Before(out[k].ScheduledTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockQueueRepo) CountByState(ctx context.Context, tx repository.Tx) (map[model.JobState]int, error) {
	if m.CountByStateFunc != nil {
		return m.CountByStateFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.JobState]int)
	for _, j := range m.jobs {
		out[j.State]++
	}
	return out, nil
}

func (m *MockQueueRepo) CountByUser(ctx context.Context, tx repository.Tx, userID int64) (int, error) {
	if m.CountByUserFunc != nil {
		return m.CountByUserFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *MockQueueRepo) IsUnique(ctx context.Context, tx repository.Tx, postID string, userID int64) (bool, error) {
	if m.IsUniqueFunc != nil {
		return m.IsUniqueFunc(ctx, tx, postID, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[m.key(postID, userID)]; exists {
		return false, nil
	}
	if m.processed != nil && m.processed.has(postID, userID) {
		return false, nil
	}
	return true, nil
}

func (m *MockQueueRepo) ListUserIDsWithBacklog(ctx context.Context, tx repository.Tx) ([]int64, error) {
	if m.ListUserIDsWithBacklogFunc != nil {
		return m.ListUserIDsWithBacklogFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[int64]struct{})
	var out []int64
	for _, j := range m.jobs {
		if _, ok := seen[j.UserID]; !ok {
			seen[j.UserID] = struct{}{}
			out = append(out, j.UserID)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i] < out[k] })
	return out, nil
}

// len reports the number of queued jobs, for assertions.
func (m *MockQueueRepo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// get returns a copy of the stored job, for assertions.
func (m *MockQueueRepo) get(postID string, userID int64) (*model.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[m.key(postID, userID)]
	if !ok {
		return nil, false
	}
	cp := *j
	return &cp, true
}

// ---- Processed ----

type MockProcessedRepo struct {
	mu   sync.Mutex
	recs []*model.ProcessedRecord

	InsertFunc        func(ctx context.Context, tx repository.Tx, rec *model.ProcessedRecord) error
	UserProcessedFunc func(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.ProcessedRecord, error)
	CountByUserFunc   func(ctx context.Context, tx repository.Tx, userID int64) (int, error)
	CountFunc         func(ctx context.Context, tx repository.Tx) (int, error)
}

var _ repository.ProcessedRepository = (*MockProcessedRepo)(nil)

func NewMockProcessedRepo() *MockProcessedRepo { return &MockProcessedRepo{} }

func (m *MockProcessedRepo) add(rec *model.ProcessedRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.recs = append(m.recs, &cp)
}

func (m *MockProcessedRepo) has(postID string, userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.PostID == postID && r.UserID == userID {
			return true
		}
	}
	return false
}

func (m *MockProcessedRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.ProcessedRecord) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, rec)
	}
	m.add(rec)
	return nil
}

func (m *MockProcessedRepo) UserProcessed(ctx context.Context, tx repository.Tx, userID int64, limit int) ([]*model.ProcessedRecord, error) {
	if m.UserProcessedFunc != nil {
		return m.UserProcessedFunc(ctx, tx, userID, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ProcessedRecord
	for i := len(m.recs) - 1; i >= 0; i-- { // newest first
		if m.recs[i].UserID == userID {
			cp := *m.recs[i]
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockProcessedRepo) CountByUser(ctx context.Context, tx repository.Tx, userID int64) (int, error) {
	if m.CountByUserFunc != nil {
		return m.CountByUserFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.recs {
		if r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *MockProcessedRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs), nil
}

// ---- Status records ----

type MockStatusRecordRepo struct {
	mu   sync.Mutex
	recs map[string]*model.StatusRecord

	FindFunc    func(ctx context.Context, tx repository.Tx, chatID int64, messageType string) (*model.StatusRecord, error)
	InsertFunc  func(ctx context.Context, tx repository.Tx, rec *model.StatusRecord) error
	ClaimFunc   func(ctx context.Context, chatID int64, messageType string, staleAfter time.Duration) error
	ReleaseFunc func(ctx context.Context, tx repository.Tx, chatID int64, messageType string, messageID int, contentHash string, recreated bool) error
}

var _ repository.StatusRecordRepository = (*MockStatusRecordRepo)(nil)

func NewMockStatusRecordRepo() *MockStatusRecordRepo {
	return &MockStatusRecordRepo{recs: make(map[string]*model.StatusRecord)}
}

func statusKey(chatID int64, messageType string) string {
	return messageType + "@" + strconv.FormatInt(chatID, 10)
}

func (m *MockStatusRecordRepo) Find(ctx context.Context, tx repository.Tx, chatID int64, messageType string) (*model.StatusRecord, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, tx, chatID, messageType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[statusKey(chatID, messageType)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockStatusRecordRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.StatusRecord) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := statusKey(rec.ChatID, rec.MessageType)
	if _, exists := m.recs[k]; exists {
		return domain.ErrStatusClaimHeld
	}
	cp := *rec
	cp.SyncState = model.SyncStateAdded
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	m.recs[k] = &cp
	return nil
}

func (m *MockStatusRecordRepo) Claim(ctx context.Context, chatID int64, messageType string, staleAfter time.Duration) error {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, chatID, messageType, staleAfter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[statusKey(chatID, messageType)]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.SyncState == model.SyncStateUpdating {
		stale := staleAfter > 0 && time.Since(rec.UpdatedAt) > staleAfter
		if !stale {
			return domain.ErrStatusClaimHeld
		}
	}
	rec.SyncState = model.SyncStateUpdating
	rec.UpdatedAt = time.Now()
	return nil
}

func (m *MockStatusRecordRepo) Release(ctx context.Context, tx repository.Tx, chatID int64, messageType string, messageID int, contentHash string, recreated bool) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, tx, chatID, messageType, messageID, contentHash, recreated)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[statusKey(chatID, messageType)]
	if !ok {
		return domain.ErrNotFound
	}
	rec.MessageID = messageID
	rec.ContentHash = contentHash
	rec.SyncState = model.SyncStateUpdated
	rec.UpdatedAt = time.Now()
	if recreated {
		rec.CreatedAt = time.Now()
	}
	return nil
}

// put seeds a record for tests.
func (m *MockStatusRecordRepo) put(rec *model.StatusRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.recs[statusKey(rec.ChatID, rec.MessageType)] = &cp
}

// snapshot returns a copy of the stored record, for assertions.
func (m *MockStatusRecordRepo) snapshot(chatID int64, messageType string) (*model.StatusRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[statusKey(chatID, messageType)]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

// ---- Users ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[int64]*model.User

	SaveFunc     func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, userID int64) (*model.User, error)
	ListFunc     func(ctx context.Context, tx repository.Tx, limit int) ([]*model.User, error)
	CountFunc    func(ctx context.Context, tx repository.Tx) (int, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo { return &MockUserRepo{users: make(map[int64]*model.User)} }

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.UserID]; exists {
		return nil
	}
	cp := *u
	m.users[u.UserID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, userID int64) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, tx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].UserID < out[k].UserID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockUserRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

// =============================
// Adapters
// =============================

// ---- Downloader ----

type MockDownloader struct {
	mu      sync.Mutex
	Fetched []string

	FetchFunc            func(ctx context.Context, postID string) (adapter.FetchResult, error)
	ListAccountItemsFunc func(ctx context.Context, accountID, cursor string) ([]adapter.AccountItem, string, error)
}

var _ adapter.Downloader = (*MockDownloader)(nil)

func (m *MockDownloader) Fetch(ctx context.Context, postID string) (adapter.FetchResult, error) {
	m.mu.Lock()
	m.Fetched = append(m.Fetched, postID)
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, postID)
	}
	return adapter.FetchResult{Status: model.DownloadCompleted, Owner: "owner"}, nil
}

func (m *MockDownloader) ListAccountItems(ctx context.Context, accountID, cursor string) ([]adapter.AccountItem, string, error) {
	if m.ListAccountItemsFunc != nil {
		return m.ListAccountItemsFunc(ctx, accountID, cursor)
	}
	return nil, "", nil
}

// ---- Uploader ----

type MockUploader struct {
	mu      sync.Mutex
	Relayed []string

	RelayFunc func(ctx context.Context, subdirectory string) (model.UploadStatus, error)
}

var _ adapter.Uploader = (*MockUploader)(nil)

func (m *MockUploader) Relay(ctx context.Context, subdirectory string) (model.UploadStatus, error) {
	m.mu.Lock()
	m.Relayed = append(m.Relayed, subdirectory)
	m.mu.Unlock()
	if m.RelayFunc != nil {
		return m.RelayFunc(ctx, subdirectory)
	}
	return model.UploadCompleted, nil
}

// ---- Telegram bot ----

type sentMessage struct {
	ChatID int64
	Text   string
}

type MockTelegramBot struct {
	mu     sync.Mutex
	nextID int
	Sent   []sentMessage
	Edited []int
	Pinned []int
	Gone   []int

	SendMessageFunc   func(ctx context.Context, chatID int64, text string) (int, error)
	EditMessageFunc   func(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteMessageFunc func(ctx context.Context, chatID int64, messageID int) error
	PinMessageFunc    func(ctx context.Context, chatID int64, messageID int) error
}

var _ adapter.TelegramBotAdapter = (*MockTelegramBot)(nil)

func (m *MockTelegramBot) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, chatID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.Sent = append(m.Sent, sentMessage{ChatID: chatID, Text: text})
	return m.nextID, nil
}

func (m *MockTelegramBot) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if m.EditMessageFunc != nil {
		return m.EditMessageFunc(ctx, chatID, messageID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edited = append(m.Edited, messageID)
	return nil
}

func (m *MockTelegramBot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if m.DeleteMessageFunc != nil {
		return m.DeleteMessageFunc(ctx, chatID, messageID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gone = append(m.Gone, messageID)
	return nil
}

func (m *MockTelegramBot) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	if m.PinMessageFunc != nil {
		return m.PinMessageFunc(ctx, chatID, messageID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pinned = append(m.Pinned, messageID)
	return nil
}

// ---- Pacer ----

// MockPacer hands out slots spaced a fixed interval apart, starting at base.
type MockPacer struct {
	mu      sync.Mutex
	base    time.Time
	spacing time.Duration
	calls   int

	NextSlotFunc func(ctx context.Context, userID int64, now time.Time) (time.Time, error)
}

func NewMockPacer(base time.Time, spacing time.Duration) *MockPacer {
	return &MockPacer{base: base, spacing: spacing}
}

func (m *MockPacer) NextSlot(ctx context.Context, userID int64, at time.Time) (time.Time, error) {
	if m.NextSlotFunc != nil {
		return m.NextSlotFunc(ctx, userID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := m.base.Add(time.Duration(m.calls) * m.spacing)
	m.calls++
	return slot, nil
}
