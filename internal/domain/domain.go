package domain

import (
	"github.com/coachlens/coachlens-backend/internal/domain/feedback"
	"github.com/coachlens/coachlens-backend/internal/domain/sessions"
)

type (
	Session        = sessions.Session
	SessionFile    = sessions.SessionFile
	FeedbackRecord = feedback.FeedbackRecord
)

const (
	FileStatusPending      = sessions.FileStatusPending
	FileStatusUploading    = sessions.FileStatusUploading
	FileStatusUploaded     = sessions.FileStatusUploaded
	FileStatusUploadFailed = sessions.FileStatusUploadFailed
)
