package db

import (
	types "github.com/coachlens/coachlens-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Sessions (uploads)
		&types.Session{},
		&types.SessionFile{},

		// Analysis results
		&types.FeedbackRecord{},
	)
}
