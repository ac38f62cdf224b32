package httpapi

import (
	"net/http"

	"florashop-be/internal/payment"
	"florashop-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type ReconciliationHandler struct {
	recs payment.ReconciliationService
}

func NewReconciliationHandler(recs payment.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{recs: recs}
}

// GET /api/admin/reconciliations
func (h *ReconciliationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	recs, p, err := h.recs.ListOpen(r.Context(), page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Data: recs, Pagination: p})
}

// POST /api/admin/reconciliations/{id}/resolve
func (h *ReconciliationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	by := utils.GetUserEmailFromContext(r.Context())
	if by == "" {
		by = currentUser(r)
	}
	if err := h.recs.Resolve(r.Context(), chi.URLParam(r, "id"), by); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
