package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coachlens/coachlens-backend/internal/domain"
	"github.com/coachlens/coachlens-backend/internal/platform/dbctx"
	"github.com/coachlens/coachlens-backend/internal/platform/gcp"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
	"github.com/coachlens/coachlens-backend/internal/realtime"
	"github.com/coachlens/coachlens-backend/internal/uploads"
)

type fakeSessionRepo struct {
	sessions map[uuid.UUID]*types.Session
}

func (r *fakeSessionRepo) Create(dbc dbctx.Context, sessions []*types.Session) ([]*types.Session, error) {
	for _, s := range sessions {
		r.sessions[s.ID] = s
	}
	return sessions, nil
}

func (r *fakeSessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*types.Session, error) {
	return nil, nil
}

func (r *fakeSessionRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	return nil
}

func (r *fakeSessionRepo) UpdateDetails(dbc dbctx.Context, id uuid.UUID, title, description string) error {
	return nil
}

func (r *fakeSessionRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error { return nil }

type fakeSessionFileRepo struct {
	mu    sync.Mutex
	files map[uuid.UUID]*types.SessionFile
}

func (r *fakeSessionFileRepo) Create(dbc dbctx.Context, files []*types.SessionFile) ([]*types.SessionFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range files {
		cp := *f
		r.files[f.ID] = &cp
	}
	return files, nil
}

func (r *fakeSessionFileRepo) GetByIDs(dbc dbctx.Context, fileIDs []uuid.UUID) ([]*types.SessionFile, error) {
	return nil, nil
}

func (r *fakeSessionFileRepo) GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SessionFile, error) {
	return nil, nil
}

func (r *fakeSessionFileRepo) MarkUploaded(dbc dbctx.Context, fileID uuid.UUID, storageKey, fileURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[fileID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.Status = types.FileStatusUploaded
	f.StorageKey = storageKey
	f.FileURL = fileURL
	return nil
}

func (r *fakeSessionFileRepo) MarkFailed(dbc dbctx.Context, fileID uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[fileID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.Status = types.FileStatusUploadFailed
	f.FailReason = reason
	return nil
}

func (r *fakeSessionFileRepo) UpdateStatus(dbc dbctx.Context, fileID uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.files[fileID]; ok {
		f.Status = status
	}
	return nil
}

func (r *fakeSessionFileRepo) SoftDeleteBySessionIDs(dbc dbctx.Context, sessionIDs []uuid.UUID) error {
	return nil
}

// fakeBucket reports two progress ticks per file and fails uploads
// whose file name appears in failNames.
type fakeBucket struct {
	mu        sync.Mutex
	uploaded  []string
	failNames map[string]bool
}

var _ gcp.BucketService = (*fakeBucket)(nil)

func (b *fakeBucket) UploadFile(ctx context.Context, key string, file io.Reader) error {
	return b.UploadFileWithProgress(ctx, key, file, 0, nil)
}

func (b *fakeBucket) UploadFileWithProgress(ctx context.Context, key string, file io.Reader, sizeBytes int64, onProgress gcp.ProgressFunc) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	name := string(data)
	if onProgress != nil {
		onProgress(50)
	}
	if b.failNames[name] {
		return fmt.Errorf("simulated upload failure for %s", name)
	}
	if onProgress != nil {
		onProgress(100)
	}
	b.mu.Lock()
	b.uploaded = append(b.uploaded, key)
	b.mu.Unlock()
	return nil
}

func (b *fakeBucket) DeleteFile(ctx context.Context, key string) error { return nil }

func (b *fakeBucket) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *fakeBucket) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func candidate(name, mime string, size int64) *uploads.File {
	return &uploads.File{
		Name:      name,
		MimeType:  mime,
		SizeBytes: size,
		// the fake bucket reads the body to learn the file name
		Reader: strings.NewReader(name),
	}
}

type uploadFixture struct {
	svc       UploadService
	sessionID uuid.UUID
	fileRepo  *fakeSessionFileRepo
	bucket    *fakeBucket
	events    *[]realtime.SSEMessage
}

func newUploadFixture(t *testing.T, failNames ...string) *uploadFixture {
	t.Helper()

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	sessionID := uuid.New()
	sessionRepo := &fakeSessionRepo{sessions: map[uuid.UUID]*types.Session{
		sessionID: {ID: sessionID, Title: "U12 passing drills"},
	}}
	fileRepo := &fakeSessionFileRepo{files: map[uuid.UUID]*types.SessionFile{}}

	fail := map[string]bool{}
	for _, n := range failNames {
		fail[n] = true
	}
	bucket := &fakeBucket{failNames: fail}

	var mu sync.Mutex
	events := []realtime.SSEMessage{}
	emit := func(ctx context.Context, msg realtime.SSEMessage) {
		mu.Lock()
		events = append(events, msg)
		mu.Unlock()
	}

	svc := NewUploadService(nil, log, uploads.DefaultPolicy(), bucket, sessionRepo, fileRepo, emit)
	return &uploadFixture{
		svc:       svc,
		sessionID: sessionID,
		fileRepo:  fileRepo,
		bucket:    bucket,
		events:    &events,
	}
}

func (f *uploadFixture) dbc() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}

func TestUploadSessionFiles_PartialFailure(t *testing.T) {
	fx := newUploadFixture(t, "b.mp4")

	outcome, err := fx.svc.UploadSessionFiles(fx.dbc(), fx.sessionID, []*uploads.File{
		candidate("a.mp3", "audio/mpeg", 1024),
		candidate("b.mp4", "video/mp4", 2048),
		candidate("c.wav", "audio/wav", 512),
	})
	if err != nil {
		t.Fatalf("partial failure should not be a batch error, got %v", err)
	}
	if outcome.Summary.Succeeded != 2 || outcome.Summary.Failed != 1 {
		t.Fatalf("got succeeded=%d failed=%d, want 2/1", outcome.Summary.Succeeded, outcome.Summary.Failed)
	}

	byName := map[string]*types.SessionFile{}
	for _, row := range fx.fileRepo.files {
		byName[row.OriginalName] = row
	}
	if byName["a.mp3"].Status != types.FileStatusUploaded {
		t.Fatalf("a.mp3 status = %q, want uploaded", byName["a.mp3"].Status)
	}
	if byName["b.mp4"].Status != types.FileStatusUploadFailed || byName["b.mp4"].FailReason == "" {
		t.Fatalf("b.mp4 status = %q fail_reason = %q", byName["b.mp4"].Status, byName["b.mp4"].FailReason)
	}
	if byName["c.wav"].StorageKey == "" || byName["c.wav"].FileURL == "" {
		t.Fatalf("c.wav missing storage key or url: %+v", byName["c.wav"])
	}
}

func TestUploadSessionFiles_ProgressEvents(t *testing.T) {
	fx := newUploadFixture(t)

	_, err := fx.svc.UploadSessionFiles(fx.dbc(), fx.sessionID, []*uploads.File{
		candidate("a.mp3", "audio/mpeg", 1024),
		candidate("b.mp4", "video/mp4", 2048),
	})
	if err != nil {
		t.Fatalf("UploadSessionFiles: %v", err)
	}

	wantChannel := realtime.SessionChannel(fx.sessionID.String())
	var started, finished bool
	lastOverall := -1
	for _, ev := range *fx.events {
		if ev.Channel != wantChannel {
			t.Fatalf("event on channel %q, want %q", ev.Channel, wantChannel)
		}
		switch ev.Event {
		case realtime.SSEEventUploadStarted:
			started = true
		case realtime.SSEEventUploadFinished:
			finished = true
		case realtime.SSEEventUploadProgress:
			p, ok := ev.Data.(uploads.Progress)
			if !ok {
				t.Fatalf("progress data has type %T", ev.Data)
			}
			if p.Overall < lastOverall {
				t.Fatalf("overall progress went backwards: %d after %d", p.Overall, lastOverall)
			}
			lastOverall = p.Overall
		}
	}
	if !started || !finished {
		t.Fatalf("started=%v finished=%v, want both", started, finished)
	}
	if lastOverall != 100 {
		t.Fatalf("final overall = %d, want 100", lastOverall)
	}
}

func TestUploadSessionFiles_AllFailed(t *testing.T) {
	fx := newUploadFixture(t, "a.mp3", "b.mp4")

	outcome, err := fx.svc.UploadSessionFiles(fx.dbc(), fx.sessionID, []*uploads.File{
		candidate("a.mp3", "audio/mpeg", 1024),
		candidate("b.mp4", "video/mp4", 2048),
	})
	if !errors.Is(err, uploads.ErrAllUploadsFailed) {
		t.Fatalf("got err %v, want ErrAllUploadsFailed", err)
	}
	if outcome == nil || outcome.Summary.Failed != 2 {
		t.Fatalf("summary should still report the run: %+v", outcome)
	}
}

func TestUploadSessionFiles_RejectedNotPersisted(t *testing.T) {
	fx := newUploadFixture(t)

	outcome, err := fx.svc.UploadSessionFiles(fx.dbc(), fx.sessionID, []*uploads.File{
		candidate("notes.pdf", "application/pdf", 1024),
		candidate("a.mp3", "audio/mpeg", 1024),
	})
	if err != nil {
		t.Fatalf("UploadSessionFiles: %v", err)
	}
	if outcome.Selection.Accepted != 1 || len(outcome.Selection.Rejected) != 1 {
		t.Fatalf("selection = %+v", outcome.Selection)
	}
	if len(fx.fileRepo.files) != 1 {
		t.Fatalf("persisted %d rows, want 1", len(fx.fileRepo.files))
	}
}

func TestUploadSessionFiles_NoAcceptedFiles(t *testing.T) {
	fx := newUploadFixture(t)

	outcome, err := fx.svc.UploadSessionFiles(fx.dbc(), fx.sessionID, []*uploads.File{
		candidate("notes.pdf", "application/pdf", 1024),
	})
	if err != nil {
		t.Fatalf("an all-rejected selection is not a run failure, got %v", err)
	}
	if outcome.Summary.Total != 0 {
		t.Fatalf("summary total = %d, want 0", outcome.Summary.Total)
	}
}

func TestUploadSessionFiles_UnknownSession(t *testing.T) {
	fx := newUploadFixture(t)

	_, err := fx.svc.UploadSessionFiles(fx.dbc(), uuid.New(), []*uploads.File{
		candidate("a.mp3", "audio/mpeg", 1024),
	})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("got err %v, want gorm.ErrRecordNotFound", err)
	}
}
