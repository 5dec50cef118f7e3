package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/coachlens/coachlens-backend/internal/domain"
)

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.Session {
	tb.Helper()
	s := &types.Session{
		ID:     uuid.New(),
		UserID: userID,
		Title:  "session",
		Status: "created",
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedSessionFile(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, name string) *types.SessionFile {
	tb.Helper()
	f := &types.SessionFile{
		ID:           uuid.New(),
		SessionID:    sessionID,
		OriginalName: name,
		MimeType:     "audio/mpeg",
		SizeBytes:    1024,
		Status:       types.FileStatusPending,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed session file: %v", err)
	}
	return f
}

func SeedFeedbackRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, multiAI string) *types.FeedbackRecord {
	tb.Helper()
	score := 50.0
	rec := &types.FeedbackRecord{
		ID:           uuid.New(),
		SessionID:    sessionID,
		Title:        "feedback",
		OverallScore: &score,
		Questioning:  datatypes.JSON(`{"score":6}`),
		Strengths:    datatypes.JSON(`["clear instructions"]`),
		Summary:      "summary",
	}
	if multiAI != "" {
		rec.MultiAiAnalysis = datatypes.JSON(multiAI)
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed feedback record: %v", err)
	}
	return rec
}
