package domain

type OrderTransition string

const (
	OrderTransitionProcess  OrderTransition = "process"
	OrderTransitionComplete OrderTransition = "complete"
	OrderTransitionCancel   OrderTransition = "cancel"
)

type TransactionTransition string

const (
	TransactionTransitionAuthorize TransactionTransition = "authorize"
	TransactionTransitionPaid      TransactionTransition = "paid"
	TransactionTransitionRefund    TransactionTransition = "refund"
	TransactionTransitionCancel    TransactionTransition = "cancel"
	TransactionTransitionFail      TransactionTransition = "fail"
)

type orderEdge struct {
	from []OrderState
	to   OrderState
}

type transactionEdge struct {
	from []TransactionState
	to   TransactionState
}

var orderTransitions = map[OrderTransition]orderEdge{
	OrderTransitionProcess:  {from: []OrderState{OrderStateOpen}, to: OrderStateInProgress},
	OrderTransitionComplete: {from: []OrderState{OrderStateInProgress}, to: OrderStateCompleted},
	OrderTransitionCancel:   {from: []OrderState{OrderStateOpen, OrderStateInProgress}, to: OrderStateCancelled},
}

var transactionTransitions = map[TransactionTransition]transactionEdge{
	TransactionTransitionAuthorize: {from: []TransactionState{TransactionStateOpen}, to: TransactionStateAuthorized},
	TransactionTransitionPaid:      {from: []TransactionState{TransactionStateOpen, TransactionStateAuthorized}, to: TransactionStatePaid},
	TransactionTransitionRefund:    {from: []TransactionState{TransactionStatePaid}, to: TransactionStateRefunded},
	TransactionTransitionCancel:    {from: []TransactionState{TransactionStateOpen, TransactionStateAuthorized}, to: TransactionStateCancelled},
	TransactionTransitionFail:      {from: []TransactionState{TransactionStateOpen, TransactionStateAuthorized}, to: TransactionStateFailed},
}

// NextOrderState validates transition against current and returns the resulting state.
func NextOrderState(current OrderState, transition OrderTransition) (OrderState, error) {
	edge, ok := orderTransitions[transition]
	if !ok {
		return "", NewInvalidTransitionError(string(current), string(transition))
	}
	for _, from := range edge.from {
		if from == current {
			return edge.to, nil
		}
	}
	return "", NewInvalidTransitionError(string(current), string(transition))
}

// NextTransactionState validates transition against current and returns the resulting state.
func NextTransactionState(current TransactionState, transition TransactionTransition) (TransactionState, error) {
	edge, ok := transactionTransitions[transition]
	if !ok {
		return "", NewInvalidTransitionError(string(current), string(transition))
	}
	for _, from := range edge.from {
		if from == current {
			return edge.to, nil
		}
	}
	return "", NewInvalidTransitionError(string(current), string(transition))
}

// OrderTransitionFor maps a completed remote action to the order workflow step that follows it.
func OrderTransitionFor(action Action) (OrderTransition, bool) {
	switch action {
	case ActionCapture:
		return OrderTransitionProcess, true
	case ActionRefund:
		return OrderTransitionComplete, true
	case ActionCancel:
		return OrderTransitionCancel, true
	}
	return "", false
}

// TransactionTransitionFor maps an admin-requested action to the local transaction transition.
func TransactionTransitionFor(action Action) (TransactionTransition, bool) {
	switch action {
	case ActionCapture:
		return TransactionTransitionPaid, true
	case ActionRefund:
		return TransactionTransitionRefund, true
	case ActionCancel:
		return TransactionTransitionCancel, true
	}
	return "", false
}
