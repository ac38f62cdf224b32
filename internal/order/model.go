package order

import (
	"time"

	"florashop-be/internal/payment"
)

// Order is immutable after creation except for Status, PaymentStatus and
// UpdatedAt. Items and Total are a snapshot of the cart at checkout.
type Order struct {
	ID               string         `json:"id"`
	OrderNumber      string         `json:"orderNumber"`
	UserID           string         `json:"userId"`
	Items            []OrderItem    `json:"items"`
	Total            int64          `json:"total"`
	Status           Status         `json:"status"`
	PaymentMethod    payment.Method `json:"paymentMethod"`
	PaymentStatus    payment.Status `json:"paymentStatus"`
	PaymentReference string         `json:"paymentReference,omitempty"`
	ShippingAddress  Address        `json:"shippingAddress"`
	Customer         Customer       `json:"customer"`
	IdempotencyKey   string         `json:"-"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type OrderItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`

	// cartLineID is the cart line this item was taken from.
	cartLineID string
}

func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

type Address struct {
	Street  string `json:"street" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	ZipCode string `json:"zipCode" validate:"required,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

type Customer struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,min=7,max=20"`
}
