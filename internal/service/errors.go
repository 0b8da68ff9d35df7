package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sentinel errors returned by the core. Handlers map them to HTTP statuses
// with errors.Is; typed errors below wrap one of these.
var (
	ErrValidation                = errors.New("validation failed")
	ErrNotFound                  = errors.New("not found")
	ErrCreditLimitExceeded       = errors.New("credit limit exceeded")
	ErrCreditCustomerRequired    = errors.New("credit sale requires a customer")
	ErrPaymentExceedsDebt        = errors.New("payment exceeds outstanding debt")
	ErrIllegalStateTransition    = errors.New("illegal state transition")
	ErrNoItemsSelected           = errors.New("no items selected")
	ErrInsufficientStock         = errors.New("insufficient stock")
	ErrInsufficientLoyaltyPoints = errors.New("insufficient loyalty points")
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// CreditLimitError is recoverable: the caller may resubmit with the override flag.
type CreditLimitError struct {
	Limit       decimal.Decimal
	CurrentDebt decimal.Decimal
	WouldBeDebt decimal.Decimal
	Excess      decimal.Decimal
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("credit limit exceeded by %s (limit %s, debt would be %s)",
		e.Excess.StringFixed(2), e.Limit.StringFixed(2), e.WouldBeDebt.StringFixed(2))
}

func (e *CreditLimitError) Unwrap() error { return ErrCreditLimitExceeded }

// TransitionError reports an action that the record's status does not allow.
type TransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in status %q", e.Action, e.Entity, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalStateTransition }

// StockError is returned when non-negative stock is enforced.
type StockError struct {
	ProductID uuid.UUID
	Product   string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.Product, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// lookupErr translates a missing row into NotFoundError and wraps anything else.
func lookupErr(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity, ID: id.String()}
	}
	return fmt.Errorf("load %s: %w", entity, err)
}

// parseID parses a client-supplied uuid into a ValidationError on failure.
func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid(field, "invalid id %q", raw)
	}
	return id, nil
}
