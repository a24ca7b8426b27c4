package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Action is a remote operation recorded in the ledger.
type Action string

const (
	ActionAuthorize Action = "authorize"
	ActionCapture   Action = "capture"
	ActionRefund    Action = "refund"
	ActionCancel    Action = "cancel"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionAuthorize, ActionCapture, ActionRefund, ActionCancel:
		return true
	}
	return false
}

func (a Action) String() string {
	return string(a)
}

// LedgerEntry records one remote action taken against one order.
// Entries are append-only: at most one exists per order and action.
type LedgerEntry struct {
	ID                uuid.UUID
	OrderID           string
	OrderNumber       string
	TransactionID     string
	Action            Action
	Currency          string
	OrderAmount       decimal.Decimal
	TransactionAmount decimal.Decimal
	PaymentMethod     string
	CreatedAt         time.Time
}

// NewLedgerEntry builds an entry for a remote action against order.
func NewLedgerEntry(order *Order, tx *OrderTransaction, remoteID string, action Action, methodCode string) *LedgerEntry {
	return &LedgerEntry{
		ID:                uuid.New(),
		OrderID:           order.ID,
		OrderNumber:       order.Number,
		TransactionID:     remoteID,
		Action:            action,
		Currency:          order.Currency,
		OrderAmount:       order.AmountTotal,
		TransactionAmount: tx.Amount,
		PaymentMethod:     methodCode,
		CreatedAt:         time.Now().UTC(),
	}
}
