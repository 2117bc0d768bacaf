package eca

import (
	"testing"

	"github.com/erp/eca/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_InitialState(t *testing.T) {
	sm := DefaultStateMachine()
	tests := []struct {
		txType  TransactionType
		initial BusinessState
	}{
		{TransactionInventoryAdjustment, StatePending},
		{TransactionPurchase, StateDraft},
		{TransactionSale, StatePending},
		{TransactionTransfer, StatePending},
		{TransactionReturn, StateRequested},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			got, ok := sm.InitialState(tt.txType)
			require.True(t, ok)
			assert.Equal(t, tt.initial, got)
		})
	}

	_, ok := sm.InitialState(TransactionType("unknown"))
	assert.False(t, ok)
}

func TestStateMachine_CanTransition(t *testing.T) {
	sm := DefaultStateMachine()
	tests := []struct {
		txType   TransactionType
		from     BusinessState
		to       BusinessState
		canTrans bool
	}{
		{TransactionPurchase, StateDraft, StateConfirmed, true},
		{TransactionPurchase, StateConfirmed, StateReceived, true},
		{TransactionPurchase, StateReceived, StateClosed, true},
		{TransactionPurchase, StateDraft, StateCancelled, true},
		{TransactionPurchase, StateReceived, StateCancelled, true},
		{TransactionPurchase, StateClosed, StateDraft, false},
		{TransactionPurchase, StateClosed, StateReturned, false},
		{TransactionPurchase, StateDraft, StateReceived, false},
		{TransactionPurchase, StateCancelled, StateConfirmed, false},

		{TransactionSale, StatePending, StateConfirmed, true},
		{TransactionSale, StateShipped, StateDelivered, true},
		{TransactionSale, StateShipped, StateCancelled, false},
		{TransactionSale, StateDelivered, StatePending, false},

		{TransactionTransfer, StatePending, StateInTransit, true},
		{TransactionTransfer, StateInTransit, StateCompleted, true},
		{TransactionTransfer, StateCompleted, StateInTransit, false},

		{TransactionInventoryAdjustment, StatePending, StateProcessed, true},
		{TransactionInventoryAdjustment, StatePending, StateFailed, true},
		{TransactionInventoryAdjustment, StateProcessed, StateFailed, false},

		{TransactionReturn, StateRequested, StateApproved, true},
		{TransactionReturn, StateRequested, StateRejected, true},
		{TransactionReturn, StateApproved, StateRejected, false},
		{TransactionReturn, StateReceived, StateRefunded, true},

		{TransactionType("unknown"), StatePending, StateProcessed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType)+"_"+string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, sm.CanTransition(tt.txType, tt.from, tt.to))
		})
	}
}

func TestStateMachine_NoSelfLoopsOrUndeclaredEdges(t *testing.T) {
	sm := DefaultStateMachine()
	for _, txType := range sm.Types() {
		for _, from := range sm.States(txType) {
			for _, to := range sm.NextStates(txType, from) {
				assert.NotEqual(t, from, to, "%s has self loop on %s", txType, from)
				assert.True(t, sm.IsValidState(txType, to))
			}
		}
	}
}

func TestStateMachine_IsTerminal(t *testing.T) {
	sm := DefaultStateMachine()
	assert.True(t, sm.IsTerminal(TransactionPurchase, StateClosed))
	assert.True(t, sm.IsTerminal(TransactionPurchase, StateCancelled))
	assert.True(t, sm.IsTerminal(TransactionSale, StateDelivered))
	assert.True(t, sm.IsTerminal(TransactionInventoryAdjustment, StateProcessed))
	assert.False(t, sm.IsTerminal(TransactionPurchase, StateDraft))
	assert.False(t, sm.IsTerminal(TransactionPurchase, BusinessState("bogus")))
}

func TestStateMachine_Validate(t *testing.T) {
	sm := DefaultStateMachine()

	t.Run("regular edge", func(t *testing.T) {
		assert.NoError(t, sm.Validate(TransactionPurchase, StateDraft, StateConfirmed, false))
	})

	t.Run("illegal edge names from, to and type", func(t *testing.T) {
		err := sm.Validate(TransactionPurchase, StateClosed, StateDraft, false)
		require.Error(t, err)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeInvalidTransition, de.Code)
		assert.Equal(t, "closed", de.Details["from"])
		assert.Equal(t, "draft", de.Details["to"])
		assert.Equal(t, "purchase", de.Details["transaction_type"])
	})

	t.Run("compensation edge requires compensating action", func(t *testing.T) {
		assert.Error(t, sm.Validate(TransactionPurchase, StateClosed, StateReturned, false))
		assert.NoError(t, sm.Validate(TransactionPurchase, StateClosed, StateReturned, true))
		assert.NoError(t, sm.Validate(TransactionSale, StateDelivered, StateReturned, true))
	})
}

func TestStateMachine_Compensation(t *testing.T) {
	sm := DefaultStateMachine()

	assert.True(t, sm.CanCompensate(TransactionPurchase, StateClosed, StateReturned))
	assert.True(t, sm.CanCompensate(TransactionSale, StateDelivered, StateReturned))
	assert.False(t, sm.CanCompensate(TransactionSale, StatePending, StateReturned))
	assert.False(t, sm.CanCompensate(TransactionTransfer, StateCompleted, StateReturned))
	assert.False(t, sm.CanTransition(TransactionPurchase, StateClosed, StateReturned), "compensation edges are not regular transitions")

	assert.Equal(t, []BusinessState{StateReturned}, sm.CompensationStates(TransactionPurchase, StateClosed))
	assert.Empty(t, sm.CompensationStates(TransactionPurchase, StateDraft))
	assert.Nil(t, sm.CompensationStates(TransactionType("unknown"), StateDraft))
}

func TestStateMachine_ReturnsCopies(t *testing.T) {
	sm := DefaultStateMachine()
	next := sm.NextStates(TransactionPurchase, StateDraft)
	require.NotEmpty(t, next)
	next[0] = StateClosed

	assert.Equal(t, StateConfirmed, sm.NextStates(TransactionPurchase, StateDraft)[0])
}

func TestNewStateMachine_RejectsUndeclaredStates(t *testing.T) {
	_, err := NewStateMachine(map[TransactionType]StateDefinition{
		TransactionPurchase: {
			Initial: StateDraft,
			States:  []BusinessState{StateDraft},
			Transitions: map[BusinessState][]BusinessState{
				StateDraft: {StateConfirmed},
			},
		},
	})
	assert.Error(t, err)

	_, err = NewStateMachine(map[TransactionType]StateDefinition{
		TransactionPurchase: {Initial: StateClosed, States: []BusinessState{StateDraft}},
	})
	assert.Error(t, err)
}
