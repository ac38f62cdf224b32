package httpapi

import (
	"net/http"

	"florashop-be/internal/order"
	"florashop-be/internal/payment"

	"github.com/go-chi/chi/v5"
)

const idempotencyHeader = "Idempotency-Key"

type OrderHandler struct {
	orders order.Service
}

func NewOrderHandler(orders order.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type updateStatusRequest struct {
	Status order.Status `json:"status" validate:"required"`
}

type updatePaymentRequest struct {
	PaymentStatus payment.Status `json:"paymentStatus" validate:"required"`
}

// POST /api/orders
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var data order.CheckoutData
	if err := readJSON(w, r, &data); err != nil {
		respondError(w, r, err)
		return
	}
	data.IdempotencyKey = r.Header.Get(idempotencyHeader)

	o, err := h.orders.CreateOrder(r.Context(), currentUser(r), data)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

// GET /api/orders/mine
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	orders, p, err := h.orders.ListOrdersForUser(r.Context(), currentUser(r), page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Data: orders, Pagination: p})
}

// GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// GET /api/admin/orders
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	orders, p, err := h.orders.ListAllOrders(r.Context(), page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Data: orders, Pagination: p})
}

// PUT /api/admin/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	o, err := h.orders.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// PUT /api/admin/orders/{id}/payment
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	o, err := h.orders.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "id"), req.PaymentStatus)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
