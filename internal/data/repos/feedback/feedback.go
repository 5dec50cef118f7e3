package feedback

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/coachlens/coachlens-backend/internal/domain"
	"github.com/coachlens/coachlens-backend/internal/platform/dbctx"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
)

type FeedbackRepo interface {
	Create(dbc dbctx.Context, records []*types.FeedbackRecord) ([]*types.FeedbackRecord, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.FeedbackRecord, error)
	GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.FeedbackRecord, error)
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{db: db, log: baseLog.With("repo", "FeedbackRepo")}
}

func (r *feedbackRepo) Create(dbc dbctx.Context, records []*types.FeedbackRecord) ([]*types.FeedbackRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(records) == 0 {
		return []*types.FeedbackRecord{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *feedbackRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.FeedbackRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.FeedbackRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *feedbackRepo) GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.FeedbackRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.FeedbackRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *feedbackRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.FeedbackRecord{}).Error
}
