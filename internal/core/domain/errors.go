package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeGateway             = "GATEWAY_ERROR"
	ErrCodeVerification        = "VERIFICATION_FAILED"
	ErrCodeDuplicateAction     = "DUPLICATE_ACTION"
	ErrCodeStateTransition     = "STATE_TRANSITION_FAILED"
	ErrCodeIntentCreation      = "INTENT_CREATION_FAILED"
	ErrCodeTransactionSetup    = "TRANSACTION_SETUP_FAILED"
	ErrCodeMissingIntent       = "MISSING_INTENT"
	ErrCodeCapture             = "CAPTURE_FAILED"
	ErrCodePaymentProcess      = "PAYMENT_PROCESS_FAILED"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeSettings            = "SETTINGS_ERROR"
)

func NewValidationError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// NewGatewayError wraps a failure raised by the remote payment API.
func NewGatewayError(operation string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeGateway,
		Message: fmt.Sprintf("gateway %s failed", operation),
		Err:     err,
	}
}

func NewVerificationError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeVerification,
		Message: "remote transaction verification failed: " + reason,
	}
}

func NewDuplicateActionError(orderID string, action Action) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateAction,
		Message: fmt.Sprintf("%s already recorded for order %s", action, orderID),
	}
}

// NewStateTransitionError is returned when the gateway answers an action with
// anything other than the completed sentinel.
func NewStateTransitionError(action Action, state string) *DomainError {
	return &DomainError{
		Code:    ErrCodeStateTransition,
		Message: fmt.Sprintf("gateway %s ended in state %q", action, state),
	}
}

func NewIntentCreationError(orderID string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeIntentCreation,
		Message: "no payment intent returned for order " + orderID,
		Err:     err,
	}
}

func NewTransactionSetupError(orderID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransactionSetup,
		Message: "order transaction could not be resolved for order " + orderID,
	}
}

func NewMissingIntentError(orderID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingIntent,
		Message: "no payment intent stored on order " + orderID,
	}
}

func NewCaptureError(orderID string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeCapture,
		Message: "instant capture failed for order " + orderID,
		Err:     err,
	}
}

// NewPaymentProcessError is the failure surfaced to the checkout caller.
func NewPaymentProcessError(transactionID string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentProcess,
		Message: "payment process failed for transaction " + transactionID,
		Err:     err,
	}
}

func NewOrderNotFoundError(orderID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderNotFound,
		Message: "order not found: " + orderID,
	}
}

func NewTransactionNotFoundError(transactionID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransactionNotFound,
		Message: "order transaction not found: " + transactionID,
	}
}

func NewInvalidTransitionError(from, transition string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("transition %q not allowed from state %q", transition, from),
	}
}

func NewSettingsError(key, methodCode string) *DomainError {
	return &DomainError{
		Code:    ErrCodeSettings,
		Message: fmt.Sprintf("setting %s is not configured for payment method %s", key, methodCode),
	}
}

// IsErrorCode reports whether err carries a DomainError with the given code.
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
