package persistence

import (
	"context"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/erp/eca/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditSink appends audit records to eca_audit_log
type GormAuditSink struct {
	db *gorm.DB
}

// NewGormAuditSink creates a new GormAuditSink
func NewGormAuditSink(db *gorm.DB) *GormAuditSink {
	return &GormAuditSink{db: db}
}

// Record inserts one audit row
func (s *GormAuditSink) Record(ctx context.Context, rec *eca.AuditRecord) error {
	if err := s.db.WithContext(ctx).Create(models.AuditLogModelFromDomain(rec)).Error; err != nil {
		return shared.NewStorageError("write audit record", err)
	}
	return nil
}

// FindByEventUUID lists the audit trail of one event, oldest first
func (s *GormAuditSink) FindByEventUUID(ctx context.Context, eventUUID uuid.UUID) ([]eca.AuditRecord, error) {
	var rows []models.AuditLogModel
	if err := s.db.WithContext(ctx).
		Where("event_uuid = ?", eventUUID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, shared.NewStorageError("find audit records", err)
	}
	out := make([]eca.AuditRecord, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

var _ eca.AuditSink = (*GormAuditSink)(nil)
