package apperr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// -- Business rules (surfaced verbatim, never retried) --
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidationFailed  = errors.New("validation failed")

	// -- Access --
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// -- Infrastructure --
	ErrUnavailable = errors.New("service unavailable")

	// A charge succeeded but the order could not be committed.
	ErrReconciliationNeeded = errors.New("payment captured but order not committed: reconciliation needed")
)

// StockShortage describes one line that cannot be satisfied by current stock.
type StockShortage struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Message     string `json:"message"`
}

// StockError carries per-line detail and matches ErrInsufficientStock.
type StockError struct {
	Items []StockShortage
}

func NewStockError(items ...StockShortage) *StockError {
	return &StockError{Items: items}
}

func (e *StockError) Error() string {
	if len(e.Items) == 0 {
		return ErrInsufficientStock.Error()
	}
	msgs := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		msgs = append(msgs, it.Message)
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ReconciliationError is returned when money moved but the order did not land.
type ReconciliationError struct {
	OrderID          string
	PaymentReference string
	Cause            error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s (order %s, payment %s): %v",
		ErrReconciliationNeeded.Error(), e.OrderID, e.PaymentReference, e.Cause)
}

func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliationNeeded
}

func (e *ReconciliationError) Unwrap() error {
	return e.Cause
}

// Unavailable wraps err so that it matches ErrUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// FromInfra classifies transient infrastructure failures as ErrUnavailable.
// Anything already classified, or not recognisably transient, is returned as is.
func FromInfra(op string, err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	if isTransient(err) {
		return Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isClassified(err error) bool {
	for _, kind := range []error{
		ErrNotFound, ErrInsufficientStock, ErrPaymentDeclined, ErrInvalidTransition,
		ErrValidationFailed, ErrUnauthorized, ErrForbidden, ErrUnavailable, ErrReconciliationNeeded,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsRetryable reports whether a caller may safely resubmit the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrReconciliationNeeded)
}

// HTTPStatus maps an error kind to the status code returned to clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrReconciliationNeeded):
		return http.StatusBadGateway
	case errors.Is(err, ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine readable code for the error kind.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrReconciliationNeeded):
		return "reconciliation_needed"
	case errors.Is(err, ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}

// Validation builds an ErrValidationFailed with a message.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, msg)
}
