package eca

import (
	"fmt"
	"slices"

	"github.com/erp/eca/internal/domain/shared"
)

// StateDefinition describes the lifecycle of one transaction type
type StateDefinition struct {
	Initial     BusinessState
	States      []BusinessState
	Transitions map[BusinessState][]BusinessState
	// Compensations are edges only a compensating action may take,
	// such as a return reversing a closed purchase
	Compensations map[BusinessState][]BusinessState
}

// StateMachine is the immutable per-transaction-type transition table.
// It is safe for concurrent use.
type StateMachine struct {
	defs map[TransactionType]StateDefinition
}

// NewStateMachine builds a state machine from definitions, validating that
// every edge references a declared state
func NewStateMachine(defs map[TransactionType]StateDefinition) (*StateMachine, error) {
	sm := &StateMachine{defs: make(map[TransactionType]StateDefinition, len(defs))}
	for txType, def := range defs {
		if !slices.Contains(def.States, def.Initial) {
			return nil, fmt.Errorf("state machine %s: initial state %q not declared", txType, def.Initial)
		}
		for _, edges := range []map[BusinessState][]BusinessState{def.Transitions, def.Compensations} {
			for from, tos := range edges {
				if !slices.Contains(def.States, from) {
					return nil, fmt.Errorf("state machine %s: state %q not declared", txType, from)
				}
				for _, to := range tos {
					if !slices.Contains(def.States, to) {
						return nil, fmt.Errorf("state machine %s: state %q not declared", txType, to)
					}
				}
			}
		}
		sm.defs[txType] = copyDefinition(def)
	}
	return sm, nil
}

var defaultStateMachine = mustStateMachine(map[TransactionType]StateDefinition{
	TransactionInventoryAdjustment: {
		Initial: StatePending,
		States:  []BusinessState{StatePending, StateProcessed, StateFailed},
		Transitions: map[BusinessState][]BusinessState{
			StatePending: {StateProcessed, StateFailed},
		},
	},
	TransactionPurchase: {
		Initial: StateDraft,
		States:  []BusinessState{StateDraft, StateConfirmed, StateReceived, StateClosed, StateCancelled, StateReturned},
		Transitions: map[BusinessState][]BusinessState{
			StateDraft:     {StateConfirmed, StateCancelled},
			StateConfirmed: {StateReceived, StateCancelled},
			StateReceived:  {StateClosed, StateCancelled},
		},
		Compensations: map[BusinessState][]BusinessState{
			StateClosed: {StateReturned},
		},
	},
	TransactionSale: {
		Initial: StatePending,
		States:  []BusinessState{StatePending, StateConfirmed, StateShipped, StateDelivered, StateCancelled, StateReturned},
		Transitions: map[BusinessState][]BusinessState{
			StatePending:   {StateConfirmed, StateCancelled},
			StateConfirmed: {StateShipped, StateCancelled},
			StateShipped:   {StateDelivered},
		},
		Compensations: map[BusinessState][]BusinessState{
			StateDelivered: {StateReturned},
		},
	},
	TransactionTransfer: {
		Initial: StatePending,
		States:  []BusinessState{StatePending, StateInTransit, StateCompleted, StateCancelled},
		Transitions: map[BusinessState][]BusinessState{
			StatePending:   {StateInTransit, StateCancelled},
			StateInTransit: {StateCompleted, StateCancelled},
		},
	},
	TransactionReturn: {
		Initial: StateRequested,
		States:  []BusinessState{StateRequested, StateApproved, StateReceived, StateRefunded, StateRejected},
		Transitions: map[BusinessState][]BusinessState{
			StateRequested: {StateApproved, StateRejected},
			StateApproved:  {StateReceived},
			StateReceived:  {StateRefunded},
		},
	},
})

// DefaultStateMachine returns the shared built-in transition table
func DefaultStateMachine() *StateMachine {
	return defaultStateMachine
}

func mustStateMachine(defs map[TransactionType]StateDefinition) *StateMachine {
	sm, err := NewStateMachine(defs)
	if err != nil {
		panic(err)
	}
	return sm
}

// Types returns the transaction types the machine knows, in stable order
func (m *StateMachine) Types() []TransactionType {
	out := make([]TransactionType, 0, len(m.defs))
	for _, t := range AllTransactionTypes() {
		if _, ok := m.defs[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// InitialState returns the state a new transaction of txType starts in
func (m *StateMachine) InitialState(txType TransactionType) (BusinessState, bool) {
	def, ok := m.defs[txType]
	if !ok {
		return "", false
	}
	return def.Initial, true
}

// States returns the declared states of txType
func (m *StateMachine) States(txType TransactionType) []BusinessState {
	return slices.Clone(m.defs[txType].States)
}

// IsValidState reports whether state is declared for txType
func (m *StateMachine) IsValidState(txType TransactionType, state BusinessState) bool {
	def, ok := m.defs[txType]
	return ok && slices.Contains(def.States, state)
}

// CanTransition reports whether from -> to is a regular edge for txType
func (m *StateMachine) CanTransition(txType TransactionType, from, to BusinessState) bool {
	def, ok := m.defs[txType]
	if !ok {
		return false
	}
	return slices.Contains(def.Transitions[from], to)
}

// CanCompensate reports whether from -> to is a compensation edge for txType
func (m *StateMachine) CanCompensate(txType TransactionType, from, to BusinessState) bool {
	def, ok := m.defs[txType]
	if !ok {
		return false
	}
	return slices.Contains(def.Compensations[from], to)
}

// NextStates returns the regular successors of from
func (m *StateMachine) NextStates(txType TransactionType, from BusinessState) []BusinessState {
	def, ok := m.defs[txType]
	if !ok {
		return nil
	}
	return slices.Clone(def.Transitions[from])
}

// CompensationStates returns the compensation successors of from
func (m *StateMachine) CompensationStates(txType TransactionType, from BusinessState) []BusinessState {
	def, ok := m.defs[txType]
	if !ok {
		return nil
	}
	return slices.Clone(def.Compensations[from])
}

// IsTerminal reports whether state has no regular outbound edges
func (m *StateMachine) IsTerminal(txType TransactionType, state BusinessState) bool {
	return m.IsValidState(txType, state) && len(m.defs[txType].Transitions[state]) == 0
}

// Validate returns nil if from -> to is allowed, otherwise an
// INVALID_STATE_TRANSITION error naming the edge. Compensation edges are
// only accepted when compensating is true.
func (m *StateMachine) Validate(txType TransactionType, from, to BusinessState, compensating bool) error {
	if m.CanTransition(txType, from, to) {
		return nil
	}
	if compensating && m.CanCompensate(txType, from, to) {
		return nil
	}
	return NewInvalidTransitionError(txType, from, to)
}

// NewInvalidTransitionError builds the INVALID_STATE_TRANSITION error
func NewInvalidTransitionError(txType TransactionType, from, to BusinessState) *shared.DomainError {
	return shared.NewDomainError(
		shared.CodeInvalidTransition,
		fmt.Sprintf("Cannot transition %s from %s to %s", txType, from, to),
	).WithDetails(map[string]any{
		"transaction_type": string(txType),
		"from":             string(from),
		"to":               string(to),
	})
}

func copyDefinition(def StateDefinition) StateDefinition {
	out := StateDefinition{
		Initial:       def.Initial,
		States:        slices.Clone(def.States),
		Transitions:   make(map[BusinessState][]BusinessState, len(def.Transitions)),
		Compensations: make(map[BusinessState][]BusinessState, len(def.Compensations)),
	}
	for k, v := range def.Transitions {
		out.Transitions[k] = slices.Clone(v)
	}
	for k, v := range def.Compensations {
		out.Compensations[k] = slices.Clone(v)
	}
	return out
}
