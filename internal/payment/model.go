package payment

import (
	"fmt"
	"time"

	"florashop-be/internal/apperr"
)

type Method string

const (
	MethodCard           Method = "card"
	MethodTransfer       Method = "transfer"
	MethodCashOnDelivery Method = "cash_on_delivery"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodCard, MethodTransfer, MethodCashOnDelivery:
		return m, nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown payment method %q", s))
}

// ChargesAtCheckout reports whether the method is charged while the order is
// being created. Cash on delivery is settled later by staff.
func (m Method) ChargesAtCheckout() bool {
	return m == MethodCard || m == MethodTransfer
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusCompleted, StatusFailed:
		return st, nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown payment status %q", s))
}

// CanTransition allows pending to settle once, either way.
func CanTransition(from, to Status) bool {
	return from == StatusPending && (to == StatusCompleted || to == StatusFailed)
}

type ChargeRequest struct {
	OrderID        string
	UserID         string
	Email          string
	Amount         int64
	Method         Method
	IdempotencyKey string
}

// ChargeResult is returned for every answer the gateway gives. A decline is a
// result, not an error.
type ChargeResult struct {
	Reference     string
	Approved      bool
	DeclineReason string
}

// Reconciliation records money that was captured without a committed order.
type Reconciliation struct {
	ID               string     `json:"id"`
	OrderID          string     `json:"orderId"`
	UserID           string     `json:"userId"`
	PaymentReference string     `json:"paymentReference"`
	Amount           int64      `json:"amount"`
	Method           Method     `json:"method"`
	Reason           string     `json:"reason"`
	Resolved         bool       `json:"resolved"`
	ResolvedBy       string     `json:"resolvedBy,omitempty"`
	ResolvedAt       *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}
