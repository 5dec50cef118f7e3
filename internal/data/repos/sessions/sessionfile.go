package sessions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coachlens/coachlens-backend/internal/domain"
	"github.com/coachlens/coachlens-backend/internal/platform/dbctx"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
)

type SessionFileRepo interface {
	Create(dbc dbctx.Context, files []*types.SessionFile) ([]*types.SessionFile, error)
	GetByIDs(dbc dbctx.Context, fileIDs []uuid.UUID) ([]*types.SessionFile, error)
	GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SessionFile, error)
	MarkUploaded(dbc dbctx.Context, fileID uuid.UUID, storageKey, fileURL string) error
	MarkFailed(dbc dbctx.Context, fileID uuid.UUID, reason string) error
	UpdateStatus(dbc dbctx.Context, fileID uuid.UUID, status string) error
	SoftDeleteBySessionIDs(dbc dbctx.Context, sessionIDs []uuid.UUID) error
}

type sessionFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionFileRepo(db *gorm.DB, baseLog *logger.Logger) SessionFileRepo {
	return &sessionFileRepo{db: db, log: baseLog.With("repo", "SessionFileRepo")}
}

func (r *sessionFileRepo) Create(dbc dbctx.Context, files []*types.SessionFile) ([]*types.SessionFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(files) == 0 {
		return []*types.SessionFile{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *sessionFileRepo) GetByIDs(dbc dbctx.Context, fileIDs []uuid.UUID) ([]*types.SessionFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SessionFile
	if len(fileIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", fileIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sessionFileRepo) GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SessionFile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SessionFile
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sessionFileRepo) MarkUploaded(dbc dbctx.Context, fileID uuid.UUID, storageKey, fileURL string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.SessionFile{}).
		Where("id = ?", fileID).
		Updates(map[string]interface{}{
			"status":      types.FileStatusUploaded,
			"storage_key": storageKey,
			"file_url":    fileURL,
			"fail_reason": "",
			"updated_at":  time.Now(),
		}).Error
}

func (r *sessionFileRepo) MarkFailed(dbc dbctx.Context, fileID uuid.UUID, reason string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.SessionFile{}).
		Where("id = ?", fileID).
		Updates(map[string]interface{}{
			"status":      types.FileStatusUploadFailed,
			"fail_reason": reason,
			"updated_at":  time.Now(),
		}).Error
}

func (r *sessionFileRepo) UpdateStatus(dbc dbctx.Context, fileID uuid.UUID, status string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.SessionFile{}).
		Where("id = ?", fileID).
		Update("status", status).Error
}

func (r *sessionFileRepo) SoftDeleteBySessionIDs(dbc dbctx.Context, sessionIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(sessionIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("session_id IN ?", sessionIDs).
		Delete(&types.SessionFile{}).Error
}
