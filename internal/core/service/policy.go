package service

import (
	"context"
	"fmt"

	"github.com/lunar/payments-plugin-shopware/internal/core/domain"
	"github.com/lunar/payments-plugin-shopware/internal/core/ports"
)

// Decision is the outcome of Policy.Decide.
type Decision struct {
	Proceed bool
	// Anchor is the ledger entry whose remote id the action must target.
	// It is nil for authorize.
	Anchor *domain.LedgerEntry
	Reason string
}

// AnchorID returns the remote transaction id to act on.
func (d Decision) AnchorID() string {
	if d.Anchor == nil {
		return ""
	}
	return d.Anchor.TransactionID
}

type precondition struct {
	requires domain.Action
}

var preconditions = map[domain.Action]precondition{
	domain.ActionCapture: {requires: domain.ActionAuthorize},
	domain.ActionRefund:  {requires: domain.ActionCapture},
	domain.ActionCancel:  {requires: domain.ActionAuthorize},
}

type remoteCall func(c ports.PaymentsClient, ctx context.Context, intentID string, amount domain.Amount) (*domain.ActionResult, error)

type remoteAction struct {
	call  remoteCall
	state func(*domain.ActionResult) string
}

var remoteActions = map[domain.Action]remoteAction{
	domain.ActionCapture: {
		call:  ports.PaymentsClient.Capture,
		state: func(r *domain.ActionResult) string { return r.CaptureState },
	},
	domain.ActionRefund: {
		call:  ports.PaymentsClient.Refund,
		state: func(r *domain.ActionResult) string { return r.RefundState },
	},
	domain.ActionCancel: {
		call:  ports.PaymentsClient.Cancel,
		state: func(r *domain.ActionResult) string { return r.CancelState },
	},
}

// Policy decides whether a remote action may run for an order and executes it.
type Policy struct {
	ledger ports.LedgerRepository
}

func NewPolicy(ledger ports.LedgerRepository) *Policy {
	return &Policy{ledger: ledger}
}

// Decide checks the order's ledger history against the preconditions for action.
// A false Proceed is a duplicate guard and must be treated as a skip.
func (p *Policy) Decide(ctx context.Context, orderID string, action domain.Action) (Decision, error) {
	entries, err := p.ledger.ListByOrder(ctx, orderID)
	if err != nil {
		return Decision{}, fmt.Errorf("load ledger for order %s: %w", orderID, err)
	}
	return decide(entries, action), nil
}

func decide(entries []*domain.LedgerEntry, action domain.Action) Decision {
	recorded := make(map[domain.Action]*domain.LedgerEntry, len(entries))
	for _, e := range entries {
		if _, ok := recorded[e.Action]; !ok {
			recorded[e.Action] = e
		}
	}

	if action == domain.ActionAuthorize {
		if len(entries) > 0 {
			return Decision{Reason: "order already has ledger entries"}
		}
		return Decision{Proceed: true}
	}

	pre, ok := preconditions[action]
	if !ok {
		return Decision{Reason: fmt.Sprintf("unsupported action %q", action)}
	}

	anchor, ok := recorded[pre.requires]
	if !ok {
		return Decision{Reason: fmt.Sprintf("no %s entry to %s against", pre.requires, action)}
	}
	if _, done := recorded[action]; done {
		return Decision{Reason: fmt.Sprintf("%s already recorded", action)}
	}

	return Decision{Proceed: true, Anchor: anchor}
}

// Execute issues action against the remote intent anchorID and checks the
// gateway reported it completed.
func (p *Policy) Execute(ctx context.Context, client ports.PaymentsClient, anchorID string, action domain.Action, amount domain.Amount) (*domain.ActionResult, error) {
	ra, ok := remoteActions[action]
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("action %q has no remote call", action))
	}

	result, err := ra.call(client, ctx, anchorID, amount)
	if err != nil {
		return nil, domain.NewGatewayError(action.String(), err)
	}

	var state string
	if result != nil {
		state = ra.state(result)
	}
	if state != domain.RemoteStateCompleted {
		return nil, domain.NewStateTransitionError(action, state)
	}

	return result, nil
}
