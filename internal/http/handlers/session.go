package handlers

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	sessionrepo "github.com/coachlens/coachlens-backend/internal/data/repos/sessions"
	types "github.com/coachlens/coachlens-backend/internal/domain"
	"github.com/coachlens/coachlens-backend/internal/http/response"
	"github.com/coachlens/coachlens-backend/internal/platform/dbctx"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
	"github.com/coachlens/coachlens-backend/internal/services"
	"github.com/coachlens/coachlens-backend/internal/uploads"
)

// Metadata fields of the multipart form stay small; file parts stream
// from disk past this threshold.
const multipartMemoryLimit = 32 << 20

type SessionHandler struct {
	log          *logger.Logger
	uploadSvc    services.UploadService
	sessionRepo  sessionrepo.SessionRepo
	sessionFiles sessionrepo.SessionFileRepo
}

func NewSessionHandler(
	log *logger.Logger,
	uploadSvc services.UploadService,
	sessionRepo sessionrepo.SessionRepo,
	sessionFiles sessionrepo.SessionFileRepo,
) *SessionHandler {
	return &SessionHandler{
		log:          log.With("handler", "SessionHandler"),
		uploadSvc:    uploadSvc,
		sessionRepo:  sessionRepo,
		sessionFiles: sessionFiles,
	}
}

type createSessionRequest struct {
	UserID      uuid.UUID `json:"user_id" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_request", err)
		return
	}

	session := &types.Session{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Status:      "created",
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if _, err := h.sessionRepo.Create(dbc, []*types.Session{session}); err != nil {
		h.log.Error("CreateSession failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "session_create_failed", err)
		return
	}
	response.RespondOK(c, session)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	session, err := h.sessionRepo.GetByID(dbc, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.RespondError(c, http.StatusNotFound, "session_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "session_fetch_failed", err)
		return
	}
	files, err := h.sessionFiles.GetBySessionID(dbc, id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "session_fetch_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"session": session, "files": files})
}

// UploadFiles accepts a multipart batch for one session. Candidates are
// validated file by file; the accepted ones upload strictly in order.
// A partial failure still returns 200 with per-file outcomes.
func (h *SessionHandler) UploadFiles(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}

	if err := c.Request.ParseMultipartForm(multipartMemoryLimit); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	form := c.Request.MultipartForm
	if form == nil || len(form.File["files"]) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_files", nil)
		return
	}
	fileHeaders := form.File["files"]

	dbc := dbctx.Context{Ctx: c.Request.Context()}

	// Optional metadata alongside the files.
	title := strings.TrimSpace(formValue(form, "title"))
	description := strings.TrimSpace(formValue(form, "description"))
	if title != "" || description != "" {
		if err := h.sessionRepo.UpdateDetails(dbc, sessionID, title, description); err != nil {
			h.log.Warn("failed to update session details", "error", err, "session_id", sessionID)
		}
	}

	candidates := make([]*uploads.File, 0, len(fileHeaders))
	var opened []multipart.File
	defer func() {
		for _, rc := range opened {
			_ = rc.Close()
		}
	}()
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "unreadable_file_part", err)
			return
		}
		opened = append(opened, f)
		candidates = append(candidates, &uploads.File{
			Name:      fh.Filename,
			MimeType:  partContentType(fh),
			SizeBytes: fh.Size,
			Reader:    f,
		})
	}

	outcome, err := h.uploadSvc.UploadSessionFiles(dbc, sessionID, candidates)
	if err != nil {
		if errors.Is(err, uploads.ErrAllUploadsFailed) {
			// Batch-level failure still carries the per-file outcomes.
			h.log.Error("all uploads failed", "error", err, "session_id", sessionID)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   response.APIError{Message: err.Error(), Code: "all_uploads_failed"},
				"outcome": outcome,
			})
			return
		}
		h.log.Error("UploadSessionFiles failed", "error", err, "session_id", sessionID)
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, outcome)
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// partContentType prefers the part's declared type and falls back to
// the filename extension.
func partContentType(fh *multipart.FileHeader) string {
	if ct := strings.TrimSpace(fh.Header.Get("Content-Type")); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ext := filepath.Ext(fh.Filename); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return strings.TrimSpace(fh.Header.Get("Content-Type"))
}
