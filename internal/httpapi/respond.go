package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"florashop-be/internal/apperr"
	"florashop-be/internal/logger"
	"florashop-be/internal/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Code  string                 `json:"code"`
	Error string                 `json:"error"`
	Items []apperr.StockShortage `json:"items,omitempty"`
}

type listResponse struct {
	Data       any              `json:"data"`
	Pagination utils.Pagination `json:"pagination"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps err to its status and stable code. Internal errors are
// logged and never echoed to the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := errorResponse{Code: apperr.Code(err), Error: err.Error()}

	var se *apperr.StockError
	if errors.As(err, &se) {
		body.Items = se.Items
	}

	log := logger.FromCtx(r.Context()).With(zap.Int("status", status))
	switch {
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		log.Warn("dependency unavailable", zap.Error(err))
	case status >= http.StatusInternalServerError:
		log.Error("request failed", zap.Error(err))
		if status == http.StatusInternalServerError {
			body.Error = http.StatusText(status)
		}
	}

	respondJSON(w, status, body)
}

// decodeJSON reads a bounded body and runs struct validation on it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := readJSON(w, r, v); err != nil {
		return err
	}
	return utils.ValidateStruct(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid request body: " + err.Error())
	}
	return nil
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return utils.NormalizePage(page, limit)
}

func currentUser(r *http.Request) string {
	id, _ := utils.GetUserIDFromContext(r.Context())
	return id
}
