package audit

import (
	"context"
	"errors"

	"github.com/erp/eca/internal/domain/eca"
)

// MultiSink fans a record out to every sink in order. A failing sink does
// not stop the others; their errors are joined.
type MultiSink struct {
	sinks []eca.AuditSink
}

// NewMultiSink creates a MultiSink, skipping nil sinks
func NewMultiSink(sinks ...eca.AuditSink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of sinks
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

func (m *MultiSink) Record(ctx context.Context, rec *eca.AuditRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ eca.AuditSink = (*MultiSink)(nil)
