package sessions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FileStatusPending      = "pending"
	FileStatusUploading    = "uploading"
	FileStatusUploaded     = "uploaded"
	FileStatusUploadFailed = "upload_failed"
)

type SessionFile struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	Session   *Session  `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"session,omitempty"`

	OriginalName string `gorm:"column:original_name;not null" json:"original_name"`
	MimeType     string `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes    int64  `gorm:"column:size_bytes" json:"size_bytes"`
	StorageKey   string `gorm:"column:storage_key" json:"storage_key"`
	FileURL      string `gorm:"column:file_url" json:"file_url"`
	Status       string `gorm:"column:status;not null;default:'pending'" json:"status"`
	FailReason   string `gorm:"column:fail_reason" json:"fail_reason,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SessionFile) TableName() string { return "session_file" }
