package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextTransactionState(t *testing.T) {
	tests := []struct {
		from       TransactionState
		transition TransactionTransition
		want       TransactionState
		wantErr    bool
	}{
		{TransactionStateOpen, TransactionTransitionAuthorize, TransactionStateAuthorized, false},
		{TransactionStateOpen, TransactionTransitionPaid, TransactionStatePaid, false},
		{TransactionStateAuthorized, TransactionTransitionPaid, TransactionStatePaid, false},
		{TransactionStatePaid, TransactionTransitionRefund, TransactionStateRefunded, false},
		{TransactionStateAuthorized, TransactionTransitionCancel, TransactionStateCancelled, false},
		{TransactionStateOpen, TransactionTransitionFail, TransactionStateFailed, false},
		{TransactionStateAuthorized, TransactionTransitionRefund, "", true},
		{TransactionStatePaid, TransactionTransitionCancel, "", true},
		{TransactionStateRefunded, TransactionTransitionPaid, "", true},
		{TransactionStateOpen, TransactionTransition("reopen"), "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.transition), func(t *testing.T) {
			got, err := NextTransactionState(tt.from, tt.transition)
			if tt.wantErr {
				assert.True(t, IsErrorCode(err, ErrCodeInvalidTransition))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextOrderState(t *testing.T) {
	got, err := NextOrderState(OrderStateOpen, OrderTransitionProcess)
	require.NoError(t, err)
	assert.Equal(t, OrderStateInProgress, got)

	got, err = NextOrderState(OrderStateInProgress, OrderTransitionComplete)
	require.NoError(t, err)
	assert.Equal(t, OrderStateCompleted, got)

	_, err = NextOrderState(OrderStateCompleted, OrderTransitionCancel)
	assert.Error(t, err)
}

func TestAmountString(t *testing.T) {
	tests := []struct {
		currency string
		value    string
		want     string
	}{
		{"EUR", "100", "100.00"},
		{"eur", "19.9", "19.90"},
		{"JPY", "1500", "1500"},
		{"KWD", "12.5", "12.500"},
		{"DKK", "0.1", "0.10"},
	}

	for _, tt := range tests {
		a := NewAmount(tt.currency, decimal.RequireFromString(tt.value))
		assert.Equal(t, tt.want, a.String(), tt.currency)
	}
}

func TestOrderTransactions(t *testing.T) {
	now := time.Now()
	o := &Order{
		Transactions: []*OrderTransaction{
			{ID: "b", CreatedAt: now},
			{ID: "a", CreatedAt: now.Add(-time.Hour)},
		},
	}

	assert.Equal(t, "a", o.FirstTransaction().ID)
	assert.Equal(t, "b", o.LastTransaction().ID)
	assert.Equal(t, "", o.IntentID())

	tx, ok := o.Transaction("b")
	require.True(t, ok)
	assert.Equal(t, now, tx.CreatedAt)

	empty := &Order{}
	assert.Nil(t, empty.LastTransaction())
}

func TestLookupPaymentMethod(t *testing.T) {
	pm, ok := LookupPaymentMethod("1a9bc76a3c244278a51a2e90c1e6f040")
	require.True(t, ok)
	assert.Equal(t, PaymentMethodCodeCard, pm.Code)

	_, ok = LookupPaymentMethod("invoice")
	assert.False(t, ok)
}
