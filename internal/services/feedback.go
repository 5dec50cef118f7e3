package services

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coachlens/coachlens-backend/internal/analysis"
	feedbackrepo "github.com/coachlens/coachlens-backend/internal/data/repos/feedback"
	"github.com/coachlens/coachlens-backend/internal/platform/apierr"
	"github.com/coachlens/coachlens-backend/internal/platform/dbctx"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
)

type FeedbackService interface {
	GetFeedbackView(dbc dbctx.Context, feedbackID uuid.UUID) (*analysis.FeedbackView, error)
	GetSessionFeedbackViews(dbc dbctx.Context, sessionID uuid.UUID) ([]*analysis.FeedbackView, error)
}

type feedbackService struct {
	db           *gorm.DB
	log          *logger.Logger
	feedbackRepo feedbackrepo.FeedbackRepo
}

func NewFeedbackService(
	db *gorm.DB,
	baseLog *logger.Logger,
	feedbackRepo feedbackrepo.FeedbackRepo,
) FeedbackService {
	serviceLog := baseLog.With("service", "FeedbackService")
	return &feedbackService{
		db:           db,
		log:          serviceLog,
		feedbackRepo: feedbackRepo,
	}
}

// GetFeedbackView fetches the raw record and normalizes it. The stored
// multi-provider analysis column is re-parsed on every fetch; nothing
// derived is persisted.
func (fs *feedbackService) GetFeedbackView(dbc dbctx.Context, feedbackID uuid.UUID) (*analysis.FeedbackView, error) {
	rec, err := fs.feedbackRepo.GetByID(dbc, feedbackID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusNotFound, "feedback_not_found", err)
		}
		return nil, err
	}
	return analysis.ViewFromRecord(rec, fs.log), nil
}

func (fs *feedbackService) GetSessionFeedbackViews(dbc dbctx.Context, sessionID uuid.UUID) ([]*analysis.FeedbackView, error) {
	records, err := fs.feedbackRepo.GetBySessionID(dbc, sessionID)
	if err != nil {
		return nil, err
	}
	views := make([]*analysis.FeedbackView, 0, len(records))
	for _, rec := range records {
		views = append(views, analysis.ViewFromRecord(rec, fs.log))
	}
	return views, nil
}
