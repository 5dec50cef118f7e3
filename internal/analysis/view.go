package analysis

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/coachlens/coachlens-backend/internal/domain/feedback"
	"github.com/coachlens/coachlens-backend/internal/platform/logger"
)

// FeedbackView is the single normalized shape the dashboard consumes.
// It is rebuilt from the raw record on every fetch and is immutable
// once built; edits go back through the API, never through this model.
type FeedbackView struct {
	FeedbackID uuid.UUID `json:"feedback_id"`
	SessionID  uuid.UUID `json:"session_id"`
	Title      string    `json:"title"`

	OverallScore       float64 `json:"overall_score"`
	CommunicationScore float64 `json:"communication_score"`

	KeyInfo          Block `json:"key_info"`
	Questioning      Block `json:"questioning"`
	Language         Block `json:"language"`
	CoachBehaviours  Block `json:"coach_behaviours"`
	PlayerEngagement Block `json:"player_engagement"`
	IntendedOutcomes Block `json:"intended_outcomes"`

	Strengths    []Entry `json:"strengths"`
	Improvements []Entry `json:"improvements"`

	// Synthesized carries the provider-agnostic summary block from a
	// current-shape payload as-is (key strengths, priority development
	// areas). Like the per-topic annotations it is additive context,
	// not a replacement for the primary fields above.
	Synthesized Block `json:"synthesized_insights"`

	Summary string `json:"summary"`
}

// BuildView composes the parsed provider payload with a raw feedback
// record into the normalized view. It is a pure function: no I/O, no
// mutation of its inputs, and the same inputs always yield a
// structurally equal view.
func BuildView(rec *feedback.FeedbackRecord, p ParsedPayload) *FeedbackView {
	if rec == nil {
		rec = &feedback.FeedbackRecord{}
	}

	view := &FeedbackView{
		FeedbackID: rec.ID,
		SessionID:  rec.SessionID,
		Title:      rec.Title,
		Summary:    rec.Summary,

		OverallScore: ResolveOverallScore(p, rec.OverallScore),

		KeyInfo:          MergeTopic(decodeBlock(rec.KeyInfo), p, TopicKeyInfo),
		Questioning:      MergeTopic(decodeBlock(rec.Questioning), p, TopicQuestioning),
		Language:         MergeTopic(decodeBlock(rec.Language), p, TopicLanguage),
		CoachBehaviours:  MergeTopic(decodeBlock(rec.CoachBehaviours), p, TopicCoachBehaviours),
		PlayerEngagement: MergeTopic(decodeBlock(rec.PlayerEngagement), p, TopicPlayerEngagement),
		IntendedOutcomes: MergeTopic(decodeBlock(rec.IntendedOutcomes), p, TopicIntendedOutcomes),

		Synthesized: p.Synthesized,
	}

	if rec.CommunicationScore != nil {
		view.CommunicationScore = *rec.CommunicationScore
	}

	view.Strengths = WithSummaryFallback(
		StringList(decodeRaw(rec.Strengths)), rec.Summary, strengthToken, genericStrength)
	view.Improvements = WithSummaryFallback(
		StringList(decodeRaw(rec.Improvements)), rec.Summary, improvementToken, genericImprovement)

	return view
}

// ViewFromRecord parses the record's multi-provider analysis column and
// builds the normalized view from it.
func ViewFromRecord(rec *feedback.FeedbackRecord, log *logger.Logger) *FeedbackView {
	var raw any
	if rec != nil {
		raw = decodeRaw(rec.MultiAiAnalysis)
	}
	return BuildView(rec, ParsePayload(raw, log))
}

// decodeBlock reads a JSONB topic column into a Block, degrading any
// malformed or non-object content to an empty block.
func decodeBlock(raw datatypes.JSON) Block {
	if len(raw) == 0 {
		return Block{}
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return Block{}
	}
	return Block(obj)
}

// decodeRaw unwraps a JSONB column into a plain Go value for the list
// coercion step, falling back to the raw text when it is not JSON.
func decodeRaw(raw datatypes.JSON) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
