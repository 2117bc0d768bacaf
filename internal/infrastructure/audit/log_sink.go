// Package audit provides AuditSink implementations that publish the audit
// trail to the log, to Kafka, and to several sinks at once.
package audit

import (
	"context"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogSink writes one structured log line per audit record
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(base *zap.Logger) *LogSink {
	return &LogSink{logger: base.Named("audit")}
}

// Record logs rec. Failed invocations log at warn level.
func (s *LogSink) Record(ctx context.Context, rec *eca.AuditRecord) error {
	fields := []zap.Field{
		zap.String("audit_id", rec.ID.String()),
		zap.String("action", rec.Action),
		zap.String("organization_id", rec.OrganizationID.String()),
		zap.String("event_uuid", rec.EventUUID.String()),
		zap.Bool("success", rec.Success),
		zap.Int("records_processed", rec.RecordsProcessed),
		zap.Int("records_successful", rec.RecordsSucceeded),
		zap.Int("records_failed", rec.RecordsFailed),
		zap.Int64("processing_time_ms", rec.ProcessingTimeMS),
	}
	if rec.TransactionID != nil {
		fields = append(fields, zap.String("transaction_id", rec.TransactionID.String()))
	}
	if rec.StateFrom != nil {
		fields = append(fields, zap.String("state_from", string(*rec.StateFrom)))
	}
	if rec.StateTo != nil {
		fields = append(fields, zap.String("state_to", string(*rec.StateTo)))
	}

	l := logger.WithLogger(ctx, s.logger)
	if !rec.Success {
		l.Warn("eca audit", append(fields,
			zap.String("error_code", rec.ErrorCode),
			zap.String("error_message", rec.ErrorMessage))...)
		return nil
	}
	l.Info("eca audit", fields...)
	return nil
}

var _ eca.AuditSink = (*LogSink)(nil)
