package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coachlens/coachlens-backend/internal/http/response"
	"github.com/coachlens/coachlens-backend/internal/platform/dbctx"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
	"github.com/coachlens/coachlens-backend/internal/services"
)

type FeedbackHandler struct {
	log      *logger.Logger
	feedback services.FeedbackService
}

func NewFeedbackHandler(log *logger.Logger, feedback services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{
		log:      log.With("handler", "FeedbackHandler"),
		feedback: feedback,
	}
}

// GetFeedback returns the normalized feedback view. A malformed stored
// AI payload degrades to the base fields; only a missing record is an
// error.
func (h *FeedbackHandler) GetFeedback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_feedback_id", err)
		return
	}

	view, err := h.feedback.GetFeedbackView(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		h.log.Warn("GetFeedbackView failed", "error", err, "feedback_id", id)
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// ListSessionFeedback returns every normalized feedback view for a
// session, newest first.
func (h *FeedbackHandler) ListSessionFeedback(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}

	views, err := h.feedback.GetSessionFeedbackViews(dbctx.Context{Ctx: c.Request.Context()}, sessionID)
	if err != nil {
		h.log.Error("GetSessionFeedbackViews failed", "error", err, "session_id", sessionID)
		response.RespondError(c, http.StatusInternalServerError, "feedback_fetch_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"feedback": views})
}
