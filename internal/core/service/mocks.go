package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
)

// MockOrderRepository
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	FindOrderFn        func(ctx context.Context, id string) (*domain.Order, error)
	FindTransactionFn  func(ctx context.Context, id string) (*domain.OrderTransaction, error)
	SetOrderMetadataFn func(ctx context.Context, orderID, key, value string) error
	FindUnpaidOrdersFn func(ctx context.Context, since time.Time, methodIDs []string, limit int) ([]*domain.Order, error)
}

func NewMockOrderRepository(orders ...*domain.Order) *MockOrderRepository {
	m := &MockOrderRepository{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *MockOrderRepository) Add(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

func (m *MockOrderRepository) FindOrder(ctx context.Context, id string) (*domain.Order, error) {
	if m.FindOrderFn != nil {
		return m.FindOrderFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, domain.NewOrderNotFoundError(id)
}

func (m *MockOrderRepository) FindTransaction(ctx context.Context, id string) (*domain.OrderTransaction, error) {
	if m.FindTransactionFn != nil {
		return m.FindTransactionFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if tx, ok := o.Transaction(id); ok {
			return tx, nil
		}
	}
	return nil, domain.NewTransactionNotFoundError(id)
}

func (m *MockOrderRepository) SetOrderMetadata(ctx context.Context, orderID, key, value string) error {
	if m.SetOrderMetadataFn != nil {
		return m.SetOrderMetadataFn(ctx, orderID, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.NewOrderNotFoundError(orderID)
	}
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	o.Metadata[key] = value
	return nil
}

func (m *MockOrderRepository) FindUnpaidOrders(ctx context.Context, since time.Time, methodIDs []string, limit int) ([]*domain.Order, error) {
	if m.FindUnpaidOrdersFn != nil {
		return m.FindUnpaidOrdersFn(ctx, since, methodIDs, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Order
	for _, o := range m.orders {
		tx := o.FirstTransaction()
		if tx == nil || tx.State != domain.TransactionStateOpen || !o.CreatedAt.After(since) {
			continue
		}
		for _, id := range methodIDs {
			if tx.PaymentMethodID == id {
				out = append(out, o)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MockLedgerRepository enforces one entry per order and action, like the unique index.
type MockLedgerRepository struct {
	mu      sync.RWMutex
	entries []*domain.LedgerEntry

	CreateFn      func(ctx context.Context, entry *domain.LedgerEntry) error
	ListByOrderFn func(ctx context.Context, orderID string) ([]*domain.LedgerEntry, error)
}

func NewMockLedgerRepository(entries ...*domain.LedgerEntry) *MockLedgerRepository {
	return &MockLedgerRepository{entries: entries}
}

func (m *MockLedgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.OrderID == entry.OrderID && e.Action == entry.Action {
			return domain.NewDuplicateActionError(entry.OrderID, entry.Action)
		}
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockLedgerRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.LedgerEntry, error) {
	if m.ListByOrderFn != nil {
		return m.ListByOrderFn(ctx, orderID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockLedgerRepository) FindByOrderAndActions(ctx context.Context, orderID string, actions ...domain.Action) (*domain.LedgerEntry, error) {
	entries, err := m.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		for _, a := range actions {
			if e.Action == a {
				return e, nil
			}
		}
	}
	return nil, nil
}

// Entries returns the entries recorded for orderID with the given action.
func (m *MockLedgerRepository) Entries(orderID string, action domain.Action) []*domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.OrderID == orderID && e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockLedgerRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// MockStateMachine applies transitions to the orders held by Orders, when set.
type MockStateMachine struct {
	mu     sync.Mutex
	Orders *MockOrderRepository

	OrderTransitions       []domain.OrderTransition
	TransactionTransitions []domain.TransactionTransition

	TransitionOrderFn       func(ctx context.Context, orderID string, transition domain.OrderTransition) error
	TransitionTransactionFn func(ctx context.Context, transactionID string, transition domain.TransactionTransition) error
}

func (m *MockStateMachine) TransitionOrder(ctx context.Context, orderID string, transition domain.OrderTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TransitionOrderFn != nil {
		return m.TransitionOrderFn(ctx, orderID, transition)
	}
	if m.Orders != nil {
		o, err := m.Orders.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}
		next, err := domain.NextOrderState(o.State, transition)
		if err != nil {
			return err
		}
		o.State = next
	}
	m.OrderTransitions = append(m.OrderTransitions, transition)
	return nil
}

func (m *MockStateMachine) TransitionTransaction(ctx context.Context, transactionID string, transition domain.TransactionTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TransitionTransactionFn != nil {
		return m.TransitionTransactionFn(ctx, transactionID, transition)
	}
	if m.Orders != nil {
		tx, err := m.Orders.FindTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		next, err := domain.NextTransactionState(tx.State, transition)
		if err != nil {
			return err
		}
		tx.State = next
	}
	m.TransactionTransitions = append(m.TransactionTransitions, transition)
	return nil
}

// MockSettingsStore serves settings from a flat key map regardless of scope.
type MockSettingsStore struct {
	Values map[string]string
	GetFn  func(ctx context.Context, key string, scope ports.Scope) (string, error)
}

func NewMockSettingsStore(values map[string]string) *MockSettingsStore {
	return &MockSettingsStore{Values: values}
}

func (m *MockSettingsStore) Get(ctx context.Context, key string, scope ports.Scope) (string, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key, scope)
	}
	return m.Values[key], nil
}

// MockGateway returns Client for every app key and remembers the keys asked for.
type MockGateway struct {
	mu     sync.Mutex
	Client *MockPaymentsClient
	Keys   []string
}

func (m *MockGateway) Payments(appKey string) ports.PaymentsClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, appKey)
	return m.Client
}

// MockPaymentsClient
type MockPaymentsClient struct {
	mu sync.Mutex

	CreateFn  func(ctx context.Context, req domain.IntentRequest) (string, error)
	FetchFn   func(ctx context.Context, intentID string) (*domain.RemoteTransaction, error)
	CaptureFn func(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error)
	RefundFn  func(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error)
	CancelFn  func(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error)

	CreateCalls  int
	FetchCalls   int
	CaptureCalls int
	RefundCalls  int
	CancelCalls  int

	// Targets records the intent id passed to each mutating call, in order.
	Targets []string
}

func (m *MockPaymentsClient) inc(counter *int, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++
	if target != "" {
		m.Targets = append(m.Targets, target)
	}
}

func (m *MockPaymentsClient) Create(ctx context.Context, req domain.IntentRequest) (string, error) {
	m.inc(&m.CreateCalls, "")
	if m.CreateFn != nil {
		return m.CreateFn(ctx, req)
	}
	return "pi_default", nil
}

func (m *MockPaymentsClient) Fetch(ctx context.Context, intentID string) (*domain.RemoteTransaction, error) {
	m.inc(&m.FetchCalls, "")
	if m.FetchFn != nil {
		return m.FetchFn(ctx, intentID)
	}
	return &domain.RemoteTransaction{ID: intentID}, nil
}

func (m *MockPaymentsClient) Capture(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error) {
	m.inc(&m.CaptureCalls, intentID)
	if m.CaptureFn != nil {
		return m.CaptureFn(ctx, intentID, amount)
	}
	return &domain.ActionResult{CaptureState: domain.RemoteStateCompleted}, nil
}

func (m *MockPaymentsClient) Refund(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error) {
	m.inc(&m.RefundCalls, intentID)
	if m.RefundFn != nil {
		return m.RefundFn(ctx, intentID, amount)
	}
	return &domain.ActionResult{RefundState: domain.RemoteStateCompleted}, nil
}

func (m *MockPaymentsClient) Cancel(ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error) {
	m.inc(&m.CancelCalls, intentID)
	if m.CancelFn != nil {
		return m.CancelFn(ctx, intentID, amount)
	}
	return &domain.ActionResult{CancelState: domain.RemoteStateCompleted}, nil
}

// MockLocker hands out per-order mutexes and counts acquisitions.
type MockLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	Calls int
}

func (m *MockLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[string]*sync.Mutex)
	}
	l, ok := m.locks[orderID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[orderID] = l
	}
	m.Calls++
	m.mu.Unlock()

	l.Lock()
	return l.Unlock, nil
}

// MockPublisher
type MockPublisher struct {
	mu        sync.Mutex
	Published []*domain.LedgerEntry
	PublishFn func(ctx context.Context, entry *domain.LedgerEntry) error
}

func (m *MockPublisher) Publish(ctx context.Context, entry *domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishFn != nil {
		return m.PublishFn(ctx, entry)
	}
	m.Published = append(m.Published, entry)
	return nil
}
