package eca

import (
	"context"

	"github.com/erp/eca/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionStore guards every status change of a BusinessTransaction
// behind the state machine. Illegal transitions never reach the repository.
type TransactionStore struct {
	repo TransactionRepository
	sm   *StateMachine
}

// NewTransactionStore creates a TransactionStore
func NewTransactionStore(repo TransactionRepository, sm *StateMachine) *TransactionStore {
	if sm == nil {
		sm = DefaultStateMachine()
	}
	return &TransactionStore{repo: repo, sm: sm}
}

// StateMachine returns the transition table the store enforces
func (s *TransactionStore) StateMachine() *StateMachine {
	return s.sm
}

// CreateTransaction creates a transaction at the initial state of txType,
// or returns the existing live transaction with the same natural key.
// initialStatus may be empty; any other state than the initial one is
// rejected, later states are reached through TransitionTransaction.
func (s *TransactionStore) CreateTransaction(ctx context.Context, orgID uuid.UUID, txType TransactionType, externalID *string, initialStatus BusinessState, attrs Attributes) (*BusinessTransaction, bool, error) {
	initial, ok := s.sm.InitialState(txType)
	if !ok {
		return nil, false, shared.NewDomainError(shared.CodeValidation, "Unknown transaction type: "+string(txType))
	}
	if initialStatus == "" {
		initialStatus = initial
	}
	if !s.sm.IsValidState(txType, initialStatus) {
		return nil, false, shared.NewDomainError(shared.CodeValidation, "Unknown status for "+string(txType)+": "+string(initialStatus))
	}
	if initialStatus != initial {
		return nil, false, NewInvalidTransitionError(txType, initial, initialStatus)
	}
	tx, err := NewBusinessTransaction(orgID, txType, externalID, initialStatus, attrs)
	if err != nil {
		return nil, false, err
	}
	return s.repo.CreateTransaction(ctx, tx)
}

// FindTransactionByExternalID returns nil, nil when absent
func (s *TransactionStore) FindTransactionByExternalID(ctx context.Context, orgID uuid.UUID, txType TransactionType, externalID string) (*BusinessTransaction, error) {
	return s.repo.FindTransactionByExternalID(ctx, orgID, txType, externalID)
}

// FindTransactionByID returns nil, nil when absent
func (s *TransactionStore) FindTransactionByID(ctx context.Context, orgID, id uuid.UUID) (*BusinessTransaction, error) {
	return s.repo.FindTransactionByID(ctx, orgID, id)
}

// TransitionTransaction moves the transaction to newStatus along a regular
// edge and merges additional into its attributes
func (s *TransactionStore) TransitionTransaction(ctx context.Context, orgID, id uuid.UUID, newStatus BusinessState, additional Attributes) (*BusinessTransaction, error) {
	return s.transition(ctx, orgID, id, newStatus, additional, false)
}

// Compensate moves the transaction along a compensation edge, e.g. a
// closed purchase to returned. Regular edges are also accepted.
func (s *TransactionStore) Compensate(ctx context.Context, orgID, id uuid.UUID, newStatus BusinessState, additional Attributes) (*BusinessTransaction, error) {
	return s.transition(ctx, orgID, id, newStatus, additional, true)
}

func (s *TransactionStore) transition(ctx context.Context, orgID, id uuid.UUID, to BusinessState, additional Attributes, compensating bool) (*BusinessTransaction, error) {
	current, err := s.repo.FindTransactionByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, shared.ErrNotFound
	}
	from := current.Status
	if err := s.sm.Validate(current.TransactionType, from, to, compensating); err != nil {
		return nil, err
	}

	ok, err := s.repo.CompareAndSetStatus(ctx, orgID, id, from, to, additional)
	if err != nil {
		return nil, err
	}
	if ok {
		current.Status = to
		current.Attributes = current.Attributes.Merge(additional)
		return current, nil
	}

	// Another writer moved the row between read and write
	latest, err := s.repo.FindTransactionByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, shared.ErrNotFound
	}
	if latest.Status == to {
		return latest, nil
	}
	if verr := s.sm.Validate(latest.TransactionType, latest.Status, to, compensating); verr != nil {
		return nil, verr
	}
	return nil, shared.ErrConcurrencyConflict.WithDetails(map[string]any{
		"transaction_id": id.String(),
		"expected":       string(from),
		"actual":         string(latest.Status),
	})
}
