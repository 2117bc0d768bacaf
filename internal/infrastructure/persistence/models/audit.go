package models

import (
	"encoding/json"
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/google/uuid"
)

// AuditLogModel is one row of eca_audit_log. Organization and event uuid are
// nullable because payloads that fail envelope validation are audited too.
type AuditLogModel struct {
	ID               uuid.UUID          `gorm:"type:uuid;primary_key"`
	OrganizationID   *uuid.UUID         `gorm:"type:uuid;index"`
	Action           string             `gorm:"type:varchar(50);not null"`
	EventUUID        *uuid.UUID         `gorm:"type:uuid;index"`
	Success          bool               `gorm:"not null"`
	ErrorCode        string             `gorm:"type:varchar(50)"`
	ErrorMessage     string             `gorm:"type:text"`
	TransactionID    *uuid.UUID         `gorm:"type:uuid"`
	RecordsProcessed int                `gorm:"not null"`
	RecordsSucceeded int                `gorm:"column:records_successful;not null"`
	RecordsFailed    int                `gorm:"not null"`
	StateFrom        *eca.BusinessState `gorm:"type:varchar(50)"`
	StateTo          *eca.BusinessState `gorm:"type:varchar(50)"`
	ProcessingTimeMS int64              `gorm:"column:processing_time_ms;not null"`
	Payload          *string            `gorm:"type:jsonb"`
	CreatedAt        time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "eca_audit_log"
}

// AuditLogModelFromDomain creates a persistence model from an audit record.
// A payload that is not valid JSON is dropped.
func AuditLogModelFromDomain(rec *eca.AuditRecord) *AuditLogModel {
	m := &AuditLogModel{
		ID:               rec.ID,
		Action:           rec.Action,
		Success:          rec.Success,
		ErrorCode:        rec.ErrorCode,
		ErrorMessage:     rec.ErrorMessage,
		TransactionID:    rec.TransactionID,
		RecordsProcessed: rec.RecordsProcessed,
		RecordsSucceeded: rec.RecordsSucceeded,
		RecordsFailed:    rec.RecordsFailed,
		StateFrom:        rec.StateFrom,
		StateTo:          rec.StateTo,
		ProcessingTimeMS: rec.ProcessingTimeMS,
		CreatedAt:        rec.CreatedAt,
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if rec.OrganizationID != uuid.Nil {
		id := rec.OrganizationID
		m.OrganizationID = &id
	}
	if rec.EventUUID != uuid.Nil {
		id := rec.EventUUID
		m.EventUUID = &id
	}
	if len(rec.Payload) > 0 && json.Valid(rec.Payload) {
		s := string(rec.Payload)
		m.Payload = &s
	}
	return m
}

// ToDomain converts the persistence model to an audit record
func (m *AuditLogModel) ToDomain() *eca.AuditRecord {
	rec := &eca.AuditRecord{
		ID:               m.ID,
		Action:           m.Action,
		Success:          m.Success,
		ErrorCode:        m.ErrorCode,
		ErrorMessage:     m.ErrorMessage,
		TransactionID:    m.TransactionID,
		RecordsProcessed: m.RecordsProcessed,
		RecordsSucceeded: m.RecordsSucceeded,
		RecordsFailed:    m.RecordsFailed,
		StateFrom:        m.StateFrom,
		StateTo:          m.StateTo,
		ProcessingTimeMS: m.ProcessingTimeMS,
		CreatedAt:        m.CreatedAt,
	}
	if m.OrganizationID != nil {
		rec.OrganizationID = *m.OrganizationID
	}
	if m.EventUUID != nil {
		rec.EventUUID = *m.EventUUID
	}
	if m.Payload != nil {
		rec.Payload = json.RawMessage(*m.Payload)
	}
	return rec
}

// ProcessedEventModel is one entry of the database event ledger
type ProcessedEventModel struct {
	EventID   string    `gorm:"type:varchar(255);primary_key"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProcessedEventModel) TableName() string {
	return "eca_processed_events"
}
