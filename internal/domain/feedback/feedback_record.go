package feedback

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FeedbackRecord holds an analysis result exactly as the analysis
// pipeline wrote it. Topic blocks and list fields are stored as raw
// JSONB because older provider versions serialized them inconsistently
// (arrays, JSON-encoded strings, plain strings); normalization happens
// at read time, never at write time.
type FeedbackRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`

	Title string `gorm:"column:title" json:"title"`

	OverallScore       *float64 `gorm:"column:overall_score" json:"overall_score,omitempty"`
	CommunicationScore *float64 `gorm:"column:communication_score" json:"communication_score,omitempty"`

	KeyInfo          datatypes.JSON `gorm:"column:key_info;type:jsonb" json:"key_info"`
	Questioning      datatypes.JSON `gorm:"column:questioning;type:jsonb" json:"questioning"`
	Language         datatypes.JSON `gorm:"column:language;type:jsonb" json:"language"`
	CoachBehaviours  datatypes.JSON `gorm:"column:coach_behaviours;type:jsonb" json:"coach_behaviours"`
	PlayerEngagement datatypes.JSON `gorm:"column:player_engagement;type:jsonb" json:"player_engagement"`
	IntendedOutcomes datatypes.JSON `gorm:"column:intended_outcomes;type:jsonb" json:"intended_outcomes"`

	Strengths    datatypes.JSON `gorm:"column:strengths;type:jsonb" json:"strengths"`
	Improvements datatypes.JSON `gorm:"column:improvements;type:jsonb" json:"improvements"`
	Summary      string         `gorm:"column:summary" json:"summary"`

	// MultiAiAnalysis may be a JSON object or a doubly-encoded JSON
	// string depending on which pipeline version produced the row.
	MultiAiAnalysis datatypes.JSON `gorm:"column:multi_ai_analysis;type:jsonb" json:"multi_ai_analysis"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (FeedbackRecord) TableName() string { return "feedback_record" }
