package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	sessionrepo "github.com/coachlens/coachlens-backend/internal/data/repos/sessions"
	types "github.com/coachlens/coachlens-backend/internal/domain"
	"github.com/coachlens/coachlens-backend/internal/platform/apierr"
	"github.com/coachlens/coachlens-backend/internal/platform/dbctx"
	"github.com/coachlens/coachlens-backend/internal/platform/gcp"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
	"github.com/coachlens/coachlens-backend/internal/realtime"
	"github.com/coachlens/coachlens-backend/internal/uploads"
)

// UploadOutcome is the terminal report of one session upload batch:
// which candidates were refused at selection time, the per-file run
// results, and the created file rows in upload order.
type UploadOutcome struct {
	Selection uploads.Selection    `json:"selection"`
	Summary   *uploads.Summary     `json:"summary"`
	Files     []*types.SessionFile `json:"files"`
}

type UploadService interface {
	UploadSessionFiles(dbc dbctx.Context, sessionID uuid.UUID, candidates []*uploads.File) (*UploadOutcome, error)
}

// Emitter publishes a progress event for a session. Wired to the SSE
// bus in production; tests substitute a recorder.
type Emitter func(ctx context.Context, msg realtime.SSEMessage)

type uploadService struct {
	db              *gorm.DB
	log             *logger.Logger
	policy          uploads.Policy
	bucketService   gcp.BucketService
	sessionRepo     sessionrepo.SessionRepo
	sessionFileRepo sessionrepo.SessionFileRepo
	emit            Emitter
}

func NewUploadService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policy uploads.Policy,
	bucketService gcp.BucketService,
	sessionRepo sessionrepo.SessionRepo,
	sessionFileRepo sessionrepo.SessionFileRepo,
	emit Emitter,
) UploadService {
	serviceLog := baseLog.With("service", "UploadService")
	if emit == nil {
		emit = func(context.Context, realtime.SSEMessage) {}
	}
	return &uploadService{
		db:              db,
		log:             serviceLog,
		policy:          policy,
		bucketService:   bucketService,
		sessionRepo:     sessionRepo,
		sessionFileRepo: sessionFileRepo,
		emit:            emit,
	}
}

// UploadSessionFiles validates the candidates, persists a row per
// accepted file and runs the batch strictly one file at a time.
// A partial failure is a normal outcome; only a batch where every file
// failed surfaces uploads.ErrAllUploadsFailed.
func (us *uploadService) UploadSessionFiles(dbc dbctx.Context, sessionID uuid.UUID, candidates []*uploads.File) (*UploadOutcome, error) {
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := us.sessionRepo.GetByID(dbc, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusNotFound, "session_not_found", err)
		}
		return nil, err
	}

	channel := realtime.SessionChannel(session.ID.String())
	batch := uploads.NewBatch(us.log, us.policy, func(p uploads.Progress) {
		us.emit(ctx, realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventUploadProgress,
			Data:    p,
		})
	})

	selection := batch.SelectFiles(candidates)
	accepted := batch.Files()

	rows := make([]*types.SessionFile, 0, len(accepted))
	for _, f := range accepted {
		rows = append(rows, &types.SessionFile{
			ID:           uuid.New(),
			SessionID:    session.ID,
			OriginalName: f.Name,
			MimeType:     f.MimeType,
			SizeBytes:    f.SizeBytes,
			Status:       types.FileStatusPending,
		})
	}
	if len(rows) > 0 {
		if _, err := us.sessionFileRepo.Create(dbc, rows); err != nil {
			return nil, fmt.Errorf("UploadSessionFiles: failed to create file rows: %w", err)
		}
	}

	us.emit(ctx, realtime.SSEMessage{
		Channel: channel,
		Event:   realtime.SSEEventUploadStarted,
		Data: map[string]any{
			"session_id": session.ID,
			"total":      selection.Accepted,
			"rejected":   selection.Rejected,
			"truncated":  selection.Truncated,
		},
	})

	outcome := &UploadOutcome{Selection: selection, Files: rows}
	if len(rows) == 0 {
		outcome.Summary = &uploads.Summary{Results: []uploads.FileResult{}}
		us.emit(ctx, realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventUploadFinished,
			Data:    outcome.Summary,
		})
		return outcome, nil
	}

	uploader := uploads.UploaderFunc(func(ctx context.Context, index int, f *uploads.File, onProgress func(pct int)) error {
		row := rows[index]
		if err := us.sessionFileRepo.UpdateStatus(dbc, row.ID, types.FileStatusUploading); err != nil {
			us.log.Warn("failed to mark file uploading", "error", err, "file_id", row.ID)
		}

		key := fmt.Sprintf("sessions/%s/%s", session.ID, row.ID)
		if err := us.bucketService.UploadFileWithProgress(ctx, key, f.Reader, f.SizeBytes, onProgress); err != nil {
			if mErr := us.sessionFileRepo.MarkFailed(dbc, row.ID, err.Error()); mErr != nil {
				us.log.Error("failed to mark file upload_failed", "error", mErr, "file_id", row.ID)
			}
			us.emitFileDone(ctx, channel, index, row, types.FileStatusUploadFailed)
			return err
		}

		fileURL := us.bucketService.GetPublicURL(key)
		if err := us.sessionFileRepo.MarkUploaded(dbc, row.ID, key, fileURL); err != nil {
			us.log.Error("failed to mark file uploaded", "error", err, "file_id", row.ID)
		}
		row.StorageKey = key
		row.FileURL = fileURL
		row.Status = types.FileStatusUploaded
		us.emitFileDone(ctx, channel, index, row, types.FileStatusUploaded)
		return nil
	})

	summary, runErr := batch.Run(ctx, uploader)
	outcome.Summary = summary

	us.emit(ctx, realtime.SSEMessage{
		Channel: channel,
		Event:   realtime.SSEEventUploadFinished,
		Data:    summary,
	})

	if runErr != nil {
		return outcome, runErr
	}
	return outcome, nil
}

func (us *uploadService) emitFileDone(ctx context.Context, channel string, index int, row *types.SessionFile, status string) {
	us.emit(ctx, realtime.SSEMessage{
		Channel: channel,
		Event:   realtime.SSEEventUploadFileDone,
		Data: map[string]any{
			"index":   index,
			"file_id": row.ID,
			"name":    row.OriginalName,
			"status":  status,
		},
	})
}
