package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"florashop-be/internal/apperr"
	"florashop-be/internal/logger"

	"go.uber.org/zap"
)

// HTTPGateway talks to a card/transfer processor over a JSON API.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	if apiKey == "" {
		logger.L().Warn("payment API key is empty")
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chargeRequestBody struct {
	ReferenceID string `json:"reference_id"`
	Amount      int64  `json:"amount"`
	Method      string `json:"method"`
	Email       string `json:"email,omitempty"`
}

type chargeResponseBody struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

const (
	providerSucceeded = "SUCCEEDED"
	providerDeclined  = "DECLINED"
)

func (h *HTTPGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_id", req.OrderID),
		zap.Int64("amount", req.Amount),
		zap.String("method", string(req.Method)),
	)

	body, err := json.Marshal(chargeRequestBody{
		ReferenceID: req.OrderID,
		Amount:      req.Amount,
		Method:      string(req.Method),
		Email:       req.Email,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	h.authorize(httpReq)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	log.Info("sending charge request")

	status, respBody, err := h.do(httpReq)
	if err != nil {
		log.Error("charge request failed", zap.Error(err))
		return nil, apperr.Unavailable("payment.Charge", err)
	}

	switch {
	case status >= http.StatusInternalServerError || status == http.StatusTooManyRequests:
		log.Error("payment provider unavailable",
			zap.Int("status", status),
			zap.ByteString("response", respBody),
		)
		return nil, apperr.Unavailable("payment.Charge", fmt.Errorf("provider status %d", status))
	case status == http.StatusPaymentRequired:
		var res chargeResponseBody
		_ = json.Unmarshal(respBody, &res)
		log.Info("charge declined", zap.String("reason", res.FailureReason))
		return &ChargeResult{Reference: res.ID, Approved: false, DeclineReason: res.FailureReason}, nil
	case status != http.StatusOK && status != http.StatusCreated:
		log.Error("payment provider rejected request",
			zap.Int("status", status),
			zap.ByteString("response", respBody),
		)
		return nil, fmt.Errorf("payment provider error %d: %s", status, string(respBody))
	}

	var res chargeResponseBody
	if err := json.Unmarshal(respBody, &res); err != nil {
		log.Error("failed decoding charge response", zap.Error(err))
		return nil, fmt.Errorf("decode charge response: %w", err)
	}

	if res.Status != providerSucceeded {
		log.Info("charge not approved",
			zap.String("status", res.Status),
			zap.String("reason", res.FailureReason),
		)
		return &ChargeResult{Reference: res.ID, Approved: false, DeclineReason: res.FailureReason}, nil
	}

	log.Info("charge approved", zap.String("payment_reference", res.ID))
	return &ChargeResult{Reference: res.ID, Approved: true}, nil
}

func (h *HTTPGateway) Refund(ctx context.Context, reference string, amount int64) error {
	log := logger.FromCtx(ctx).With(zap.String("payment_reference", reference))

	body, err := json.Marshal(map[string]int64{"amount": amount})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/charges/%s/refunds", h.baseURL, reference), bytes.NewReader(body))
	if err != nil {
		return err
	}
	h.authorize(httpReq)
	// one refund per charge
	httpReq.Header.Set("Idempotency-Key", "refund-"+reference)

	status, respBody, err := h.do(httpReq)
	if err != nil {
		log.Error("refund request failed", zap.Error(err))
		return apperr.Unavailable("payment.Refund", err)
	}
	if status >= http.StatusInternalServerError {
		return apperr.Unavailable("payment.Refund", fmt.Errorf("provider status %d", status))
	}
	if status != http.StatusOK && status != http.StatusCreated {
		log.Error("refund rejected",
			zap.Int("status", status),
			zap.ByteString("response", respBody),
		)
		return fmt.Errorf("payment provider refund error %d: %s", status, string(respBody))
	}

	log.Info("refund issued", zap.Int64("amount", amount))
	return nil
}

func (h *HTTPGateway) authorize(req *http.Request) {
	req.SetBasicAuth(h.apiKey, "")
	req.Header.Set("Content-Type", "application/json")
}

func (h *HTTPGateway) do(req *http.Request) (int, []byte, error) {
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read provider response: %w", err)
	}
	return resp.StatusCode, b, nil
}
