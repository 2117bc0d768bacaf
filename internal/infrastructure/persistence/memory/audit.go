package memory

import (
	"context"
	"sync"

	"github.com/erp/eca/internal/domain/eca"
)

// AuditLog collects audit records in memory
type AuditLog struct {
	mu      sync.Mutex
	records []eca.AuditRecord
}

// NewAuditLog creates an empty audit log
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Record appends rec
func (l *AuditLog) Record(_ context.Context, rec *eca.AuditRecord) error {
	l.mu.Lock()
	l.records = append(l.records, *rec)
	l.mu.Unlock()
	return nil
}

// Records returns a snapshot of the collected records
func (l *AuditLog) Records() []eca.AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]eca.AuditRecord, len(l.records))
	copy(out, l.records)
	return out
}
