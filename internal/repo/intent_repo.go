package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookstore/storefront/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrIntentNotFound is returned when an intent id is unknown
	ErrIntentNotFound = errors.New("intent not found")

	// ErrIntentClosed is returned when marking an intent that already left the pending state
	ErrIntentClosed = errors.New("intent is not pending")
)

// IntentStats counts intents per status
type IntentStats struct {
	Pending int64 `json:"pending"`
	Applied int64 `json:"applied"`
	Failed  int64 `json:"failed"`
}

// IntentRepository persists guest intents and session values
type IntentRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewIntentRepository creates a new intent repository
func NewIntentRepository(database *db.DB, logger *zap.Logger) *IntentRepository {
	return &IntentRepository{
		db:  database,
		log: logger,
	}
}

// IdempotencyKey identifies an intent: the same action on the same target and quantity.
// The target is the book id for additions and the entry id otherwise.
func IdempotencyKey(t db.IntentType, target int64, quantity int) string {
	return fmt.Sprintf("%s:%d:%d", t, target, quantity)
}

// Enqueue records intent unless an identical one is still pending. It returns the
// stored intent and whether a new row was created.
func (r *IntentRepository) Enqueue(ctx context.Context, intent *db.PendingIntent) (*db.PendingIntent, bool, error) {
	if intent.Quantity < 1 {
		intent.Quantity = 1
	}
	if intent.IdempotencyKey == "" {
		intent.IdempotencyKey = IdempotencyKey(intent.Type, intent.Type.Target(intent.BookID, intent.ItemID), intent.Quantity)
	}
	intent.Status = db.IntentPending

	var (
		stored  *db.PendingIntent
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []db.PendingIntent
		if err := tx.Where("idempotency_key = ? AND status = ?", intent.IdempotencyKey, db.IntentPending).
			Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			stored = &existing[0]
			return nil
		}
		if err := tx.Create(intent).Error; err != nil {
			return err
		}
		stored = intent
		created = true
		return nil
	})
	if err != nil {
		r.log.Error("Failed to enqueue intent",
			zap.String("type", string(intent.Type)),
			zap.Int64("book_id", intent.BookID),
			zap.Int64("item_id", intent.ItemID),
			zap.Error(err),
		)
		return nil, false, err
	}

	if created {
		r.log.Info("Intent enqueued",
			zap.Uint64("intent_id", stored.ID),
			zap.String("type", string(stored.Type)),
			zap.Int64("book_id", stored.BookID),
		)
	}
	return stored, created, nil
}

// ListPending returns pending intents in the order they were recorded
func (r *IntentRepository) ListPending(ctx context.Context) ([]db.PendingIntent, error) {
	return r.List(ctx, db.IntentPending, 0)
}

// List returns intents with status (all when empty), oldest first. A positive limit caps the result.
func (r *IntentRepository) List(ctx context.Context, status db.IntentStatus, limit int) ([]db.PendingIntent, error) {
	query := r.db.WithContext(ctx).Model(&db.PendingIntent{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	intents := []db.PendingIntent{}
	if err := query.Order("created_at ASC, id ASC").Find(&intents).Error; err != nil {
		r.log.Error("Failed to list intents", zap.String("status", string(status)), zap.Error(err))
		return nil, err
	}
	return intents, nil
}

// MarkApplied closes a pending intent as applied
func (r *IntentRepository) MarkApplied(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.close(ctx, id, map[string]interface{}{
		"status":     db.IntentApplied,
		"error":      "",
		"applied_at": &now,
	})
}

// MarkFailed closes a pending intent as failed with reason
func (r *IntentRepository) MarkFailed(ctx context.Context, id uint64, reason string) error {
	return r.close(ctx, id, map[string]interface{}{
		"status": db.IntentFailed,
		"error":  reason,
	})
}

func (r *IntentRepository) close(ctx context.Context, id uint64, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&db.PendingIntent{}).
		Where("id = ? AND status = ?", id, db.IntentPending).
		Updates(updates)
	if result.Error != nil {
		r.log.Error("Failed to update intent", zap.Uint64("intent_id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&db.PendingIntent{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrIntentNotFound
	}
	return ErrIntentClosed
}

// PurgeApplied deletes applied intents recorded before cutoff
func (r *IntentRepository) PurgeApplied(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", db.IntentApplied, cutoff).
		Delete(&db.PendingIntent{})
	if result.Error != nil {
		r.log.Error("Failed to purge intents", zap.Error(result.Error))
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		r.log.Info("Applied intents purged", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// SetValue stores value under key, replacing any previous value
func (r *IntentRepository) SetValue(ctx context.Context, key, value string) error {
	v := &db.SessionValue{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(v).Error
	if err != nil {
		r.log.Error("Failed to set session value", zap.String("key", key), zap.Error(err))
	}
	return err
}

// GetValue returns the value stored under key and whether it exists
func (r *IntentRepository) GetValue(ctx context.Context, key string) (string, bool, error) {
	var values []db.SessionValue
	if err := r.db.WithContext(ctx).Where("key = ?", key).Limit(1).Find(&values).Error; err != nil {
		r.log.Error("Failed to get session value", zap.String("key", key), zap.Error(err))
		return "", false, err
	}
	if len(values) == 0 {
		return "", false, nil
	}
	return values[0].Value, true, nil
}

// DeleteValue removes key. Deleting a missing key is not an error.
func (r *IntentRepository) DeleteValue(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&db.SessionValue{}).Error; err != nil {
		r.log.Error("Failed to delete session value", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Stats returns intent counts for metrics
func (r *IntentRepository) Stats(ctx context.Context) (IntentStats, error) {
	var rows []struct {
		Status db.IntentStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&db.PendingIntent{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return IntentStats{}, fmt.Errorf("failed to count intents: %w", err)
	}

	var stats IntentStats
	for _, row := range rows {
		switch row.Status {
		case db.IntentPending:
			stats.Pending = row.Count
		case db.IntentApplied:
			stats.Applied = row.Count
		case db.IntentFailed:
			stats.Failed = row.Count
		}
	}
	return stats, nil
}
