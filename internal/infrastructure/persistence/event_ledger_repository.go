package persistence

import (
	"context"
	"time"

	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEventLedger stores processed event fingerprints in
// eca_processed_events. Expired rows are overwritten on the next mark.
type GormEventLedger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormEventLedger creates a new GormEventLedger
func NewGormEventLedger(db *gorm.DB) *GormEventLedger {
	return &GormEventLedger{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// MarkProcessed inserts eventID, or revives it if the stored entry expired.
// Returns false when an unexpired entry already exists.
func (l *GormEventLedger) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	now := l.now()
	model := &models.ProcessedEventModel{
		EventID:   eventID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "expires_at"}, Value: gorm.Expr("EXCLUDED.expires_at")},
				{Column: clause.Column{Name: "created_at"}, Value: gorm.Expr("EXCLUDED.created_at")},
			},
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "eca_processed_events.expires_at <= ?", Vars: []any{now}},
			}},
		}).
		Create(model)
	if result.Error != nil {
		return false, shared.NewStorageError("mark event processed", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// IsProcessed reports whether an unexpired entry exists
func (l *GormEventLedger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&models.ProcessedEventModel{}).
		Where("event_id = ? AND expires_at > ?", eventID, l.now()).
		Count(&count).Error
	if err != nil {
		return false, shared.NewStorageError("look up event", err)
	}
	return count > 0, nil
}

// Purge deletes expired entries and returns how many were removed
func (l *GormEventLedger) Purge(ctx context.Context) (int64, error) {
	result := l.db.WithContext(ctx).
		Where("expires_at <= ?", l.now()).
		Delete(&models.ProcessedEventModel{})
	if result.Error != nil {
		return 0, shared.NewStorageError("purge event ledger", result.Error)
	}
	return result.RowsAffected, nil
}

// Close is a no-op; the database handle is owned by the caller
func (l *GormEventLedger) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*GormEventLedger)(nil)
