package db

import (
	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations(db *DB) error {
	if err := db.AutoMigrate(&PendingIntent{}, &SessionValue{}); err != nil {
		return err
	}

	// Create additional indexes if not exists
	if err := createIndexes(db.DB); err != nil {
		return err
	}

	return nil
}

func createIndexes(db *gorm.DB) error {
	// Partial indexes are understood by both sqlite and PostgreSQL.
	indexes := []string{
		// At most one open intent per idempotency key
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_intents_pending_key ON pending_intents(idempotency_key) WHERE status = 'pending'`,

		// Replay order
		`CREATE INDEX IF NOT EXISTS idx_intents_pending_created ON pending_intents(created_at, id) WHERE status = 'pending'`,
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}
