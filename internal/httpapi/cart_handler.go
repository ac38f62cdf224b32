package httpapi

import (
	"net/http"

	"florashop-be/internal/cart"
	"florashop-be/internal/order"

	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	carts  cart.Service
	orders order.Service
}

func NewCartHandler(carts cart.Service, orders order.Service) *CartHandler {
	return &CartHandler{carts: carts, orders: orders}
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetCart(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// POST /api/cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.carts.AddItem(r.Context(), currentUser(r), req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// PUT /api/cart/{itemId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.carts.UpdateQuantity(r.Context(), currentUser(r), chi.URLParam(r, "itemId"), *req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DELETE /api/cart/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), currentUser(r), chi.URLParam(r, "itemId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Clear(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// POST /api/cart/check-stock
func (h *CartHandler) CheckStock(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetCart(r.Context(), currentUser(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.orders.ValidateStock(r.Context(), c)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
