package eca

import (
	"time"

	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/google/uuid"
)

// ECAWebhookResponse is the uniform result of processing one payload.
// Every outcome, including total failure, is reported in this shape.
type ECAWebhookResponse struct {
	Success         bool               `json:"success"`
	Action          string             `json:"action"`
	TransactionID   *uuid.UUID         `json:"transaction_id"`
	EntityIDs       []uuid.UUID        `json:"entity_ids"`
	RelationshipIDs []uuid.UUID        `json:"relationship_ids"`
	StateTransition *StateTransition   `json:"state_transition"`
	Attributes      ResponseAttributes `json:"attributes"`
	Metadata        ResponseMetadata   `json:"metadata"`
	Error           *ResponseError     `json:"error"`
}

// StateTransition is the status change performed by one invocation.
// From is nil when the transaction was created by it.
type StateTransition struct {
	From *eca.BusinessState `json:"from"`
	To   eca.BusinessState  `json:"to"`
}

// ResponseAttributes carries the processing summary
type ResponseAttributes struct {
	Success     bool                    `json:"success"`
	Summary     Summary                 `json:"summary"`
	Compensated *CompensatedTransaction `json:"compensated,omitempty"`
}

// Summary counts the line items of the payload
type Summary struct {
	Message           string          `json:"message"`
	RecordsProcessed  int             `json:"records_processed"`
	RecordsSuccessful int             `json:"records_successful"`
	RecordsFailed     int             `json:"records_failed"`
	RecordErrors      []ResponseError `json:"record_errors,omitempty"`
}

// ResponseMetadata describes the invocation
type ResponseMetadata struct {
	ProcessedAt      time.Time `json:"processed_at"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	OrganizationID   string    `json:"organization_id"`
	Action           string    `json:"action"`
	EventUUID        string    `json:"event_uuid"`
	Replayed         bool      `json:"replayed,omitempty"`
}

// ResponseError is the structured error object
type ResponseError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func newResponseError(err *shared.DomainError) *ResponseError {
	details := err.Details
	if details == nil {
		details = map[string]any{}
	}
	return &ResponseError{Code: err.Code, Message: err.Message, Details: details}
}

// ErrorResponse builds the failure response for a request that never
// reached the processor, such as an oversized or panicking request
func ErrorResponse(action string, err *shared.DomainError, now time.Time) *ECAWebhookResponse {
	return &ECAWebhookResponse{
		Success:         false,
		Action:          action,
		EntityIDs:       []uuid.UUID{},
		RelationshipIDs: []uuid.UUID{},
		Attributes: ResponseAttributes{
			Summary: Summary{Message: err.Message},
		},
		Metadata: ResponseMetadata{ProcessedAt: now, Action: action},
		Error:    newResponseError(err),
	}
}

// idSet collects ids in first-seen order without duplicates
type idSet struct {
	seen map[uuid.UUID]struct{}
	ids  []uuid.UUID
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[uuid.UUID]struct{})}
}

func (s *idSet) add(id uuid.UUID) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}

func (s *idSet) list() []uuid.UUID {
	out := make([]uuid.UUID, len(s.ids))
	copy(out, s.ids)
	return out
}
