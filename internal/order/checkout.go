package order

import (
	"strings"

	"florashop-be/internal/apperr"
	"florashop-be/internal/payment"
	"florashop-be/internal/utils"
)

const maxIdempotencyKeyLen = 128

// CheckoutData is what the shopper submits at checkout. The order lines
// always come from the server-side cart.
type CheckoutData struct {
	Customer        Customer       `json:"customer"`
	ShippingAddress Address        `json:"shippingAddress"`
	PaymentMethod   payment.Method `json:"paymentMethod" validate:"required,oneof=card transfer cash_on_delivery"`
	IdempotencyKey  string         `json:"-"`
}

func (d *CheckoutData) Normalize() {
	d.Customer.FirstName = strings.TrimSpace(d.Customer.FirstName)
	d.Customer.LastName = strings.TrimSpace(d.Customer.LastName)
	d.Customer.Email = strings.ToLower(strings.TrimSpace(d.Customer.Email))
	d.Customer.Phone = strings.TrimSpace(d.Customer.Phone)
	d.ShippingAddress.Street = strings.TrimSpace(d.ShippingAddress.Street)
	d.ShippingAddress.City = strings.TrimSpace(d.ShippingAddress.City)
	d.ShippingAddress.State = strings.TrimSpace(d.ShippingAddress.State)
	d.ShippingAddress.ZipCode = strings.TrimSpace(d.ShippingAddress.ZipCode)
	d.ShippingAddress.Country = strings.TrimSpace(d.ShippingAddress.Country)
	d.IdempotencyKey = strings.TrimSpace(d.IdempotencyKey)
}

func (d CheckoutData) Validate() error {
	if len(d.IdempotencyKey) > maxIdempotencyKeyLen {
		return apperr.Validation("Idempotency-Key is too long")
	}
	return utils.ValidateStruct(d)
}
