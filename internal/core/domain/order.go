package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// IntentIDKey is the order metadata key holding the remote payment intent id.
const IntentIDKey = "_lunar_intent_id"

type OrderState string

const (
	OrderStateOpen       OrderState = "open"
	OrderStateInProgress OrderState = "in_progress"
	OrderStateCompleted  OrderState = "completed"
	OrderStateCancelled  OrderState = "cancelled"
)

type TransactionState string

const (
	TransactionStateOpen       TransactionState = "open"
	TransactionStateAuthorized TransactionState = "authorized"
	TransactionStatePaid       TransactionState = "paid"
	TransactionStateRefunded   TransactionState = "refunded"
	TransactionStateCancelled  TransactionState = "cancelled"
	TransactionStateFailed     TransactionState = "failed"
)

// IsFinalized reports whether checkout for the transaction has already completed.
func (s TransactionState) IsFinalized() bool {
	return s == TransactionStateAuthorized || s == TransactionStatePaid
}

type Address struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	CountryName string `json:"country_name"`
	CountryISO  string `json:"country_iso"`
}

type Customer struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone,omitempty"`
	RemoteAddress  string  `json:"remote_address"`
	BillingAddress Address `json:"billing_address"`
}

func (c *Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

type LineItem struct {
	ID       int    `json:"id"`
	Label    string `json:"label"`
	Quantity int    `json:"quantity"`
}

type OrderTransaction struct {
	ID              string
	OrderID         string
	PaymentMethodID string
	State           TransactionState
	Amount          decimal.Decimal
	CreatedAt       time.Time
}

type Order struct {
	ID             string
	Number         string
	SalesChannelID string
	Currency       string
	AmountTotal    decimal.Decimal
	State          OrderState
	Metadata       map[string]string
	Customer       *Customer
	LineItems      []LineItem
	Transactions   []*OrderTransaction
	CreatedAt      time.Time
}

// IntentID returns the stored remote payment intent id, or "" if none.
func (o *Order) IntentID() string {
	if o.Metadata == nil {
		return ""
	}
	return o.Metadata[IntentIDKey]
}

// Transaction returns the order transaction with the given id.
func (o *Order) Transaction(id string) (*OrderTransaction, bool) {
	for _, tx := range o.Transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return nil, false
}

// FirstTransaction returns the oldest transaction attached to the order.
func (o *Order) FirstTransaction() *OrderTransaction {
	txs := o.sortedTransactions()
	if len(txs) == 0 {
		return nil
	}
	return txs[0]
}

// LastTransaction returns the most recent transaction attached to the order.
func (o *Order) LastTransaction() *OrderTransaction {
	txs := o.sortedTransactions()
	if len(txs) == 0 {
		return nil
	}
	return txs[len(txs)-1]
}

func (o *Order) sortedTransactions() []*OrderTransaction {
	txs := make([]*OrderTransaction, len(o.Transactions))
	copy(txs, o.Transactions)
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
	return txs
}
