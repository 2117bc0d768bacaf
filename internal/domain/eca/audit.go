package eca

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is the append-only trail entry emitted once per invocation
type AuditRecord struct {
	ID               uuid.UUID       `json:"id"`
	OrganizationID   uuid.UUID       `json:"organization_id"`
	Action           string          `json:"action"`
	EventUUID        uuid.UUID       `json:"event_uuid"`
	Success          bool            `json:"success"`
	ErrorCode        string          `json:"error_code,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	TransactionID    *uuid.UUID      `json:"transaction_id,omitempty"`
	RecordsProcessed int             `json:"records_processed"`
	RecordsSucceeded int             `json:"records_successful"`
	RecordsFailed    int             `json:"records_failed"`
	StateFrom        *BusinessState  `json:"state_from,omitempty"`
	StateTo          *BusinessState  `json:"state_to,omitempty"`
	ProcessingTimeMS int64           `json:"processing_time_ms"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// AuditSink receives audit records. Record must not block the caller for
// longer than its context allows.
type AuditSink interface {
	Record(ctx context.Context, rec *AuditRecord) error
}

// AuditSinkFunc adapts a function to AuditSink
type AuditSinkFunc func(ctx context.Context, rec *AuditRecord) error

// Record calls f
func (f AuditSinkFunc) Record(ctx context.Context, rec *AuditRecord) error {
	return f(ctx, rec)
}
