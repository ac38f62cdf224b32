package httpapi

import (
	"net/http"
	"strconv"

	"florashop-be/internal/product"

	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	products product.Service
}

func NewProductHandler(products product.Service) *ProductHandler {
	return &ProductHandler{products: products}
}

type setStockRequest struct {
	Stock *int `json:"stock" validate:"required"`
}

// GET /api/admin/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	q := r.URL.Query()
	includeInactive, _ := strconv.ParseBool(q.Get("includeInactive"))

	products, p, err := h.products.ListProducts(r.Context(), product.ListOptions{
		Page:            page,
		Limit:           limit,
		Category:        q.Get("category"),
		Search:          q.Get("search"),
		IncludeInactive: includeInactive,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Data: products, Pagination: p})
}

// GET /api/admin/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// POST /api/admin/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in product.CreateInput
	if err := readJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.products.CreateProduct(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// PUT /api/admin/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in product.UpdateInput
	if err := readJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.products.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DELETE /api/admin/products/{id}
func (h *ProductHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.products.DeactivateProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PUT /api/admin/products/{id}/stock
func (h *ProductHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req setStockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.products.SetStock(r.Context(), chi.URLParam(r, "id"), *req.Stock)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
