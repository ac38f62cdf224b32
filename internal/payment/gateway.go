package payment

import (
	"context"
	"fmt"
	"sync"

	"florashop-be/internal/breaker"
	"florashop-be/internal/logger"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, reference string, amount int64) error
}

// SimulatedGateway approves every charge up to declineOver. It is used when
// no payment provider is configured. Like a real provider, a repeated
// idempotency key returns the original charge.
type SimulatedGateway struct {
	declineOver int64

	mu      sync.Mutex
	charges map[string]int64
	keys    map[string]string
}

func NewSimulatedGateway(declineOver int64) *SimulatedGateway {
	return &SimulatedGateway{
		declineOver: declineOver,
		charges:     make(map[string]int64),
		keys:        make(map[string]string),
	}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if g.declineOver > 0 && req.Amount > g.declineOver {
		logger.FromCtx(ctx).Info("simulated charge declined",
			zap.String("order_id", req.OrderID),
			zap.Int64("amount", req.Amount),
		)
		return &ChargeResult{Approved: false, DeclineReason: "amount exceeds limit"}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if ref, ok := g.keys[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return &ChargeResult{Reference: ref, Approved: true}, nil
	}

	ref := "sim_" + uuid.NewString()
	g.charges[ref] = req.Amount
	if req.IdempotencyKey != "" {
		g.keys[req.IdempotencyKey] = ref
	}

	return &ChargeResult{Reference: ref, Approved: true}, nil
}

func (g *SimulatedGateway) Refund(ctx context.Context, reference string, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	charged, ok := g.charges[reference]
	if !ok {
		return fmt.Errorf("refund: unknown charge %s", reference)
	}
	if amount > charged {
		return fmt.Errorf("refund: amount %d exceeds charge %d", amount, charged)
	}
	g.charges[reference] = charged - amount
	return nil
}

// Charged reports the amount still captured for reference.
func (g *SimulatedGateway) Charged(reference string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.charges[reference]
}

type guardedGateway struct {
	next    Gateway
	charges *gobreaker.CircuitBreaker[*ChargeResult]
	refunds *gobreaker.CircuitBreaker[struct{}]
}

// WithBreaker makes gateway outages fail fast as Unavailable. Declines do
// not count against the circuit.
func WithBreaker(gw Gateway, s breaker.Settings) Gateway {
	if s.Name == "" {
		s.Name = "payment"
	}
	refundSettings := s
	refundSettings.Name = s.Name + "-refund"
	return &guardedGateway{
		next:    gw,
		charges: breaker.New[*ChargeResult](s),
		refunds: breaker.New[struct{}](refundSettings),
	}
}

func (g *guardedGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	res, err := g.charges.Execute(func() (*ChargeResult, error) {
		return g.next.Charge(ctx, req)
	})
	return res, breaker.Classify("payment.Charge", err)
}

func (g *guardedGateway) Refund(ctx context.Context, reference string, amount int64) error {
	_, err := g.refunds.Execute(func() (struct{}, error) {
		return struct{}{}, g.next.Refund(ctx, reference, amount)
	})
	return breaker.Classify("payment.Refund", err)
}
