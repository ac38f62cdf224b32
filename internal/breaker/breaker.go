package breaker

import (
	"errors"
	"time"

	"florashop-be/internal/apperr"
	"florashop-be/internal/logger"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Settings are shared by every dependency guarded in this service: trip after
// five consecutive infrastructure failures, probe again after Timeout.
type Settings struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	return s
}

// New builds a breaker that only counts infrastructure failures. Business
// outcomes (not found, declined, out of stock) keep the circuit closed.
func New[T any](s Settings) *gobreaker.CircuitBreaker[T] {
	s = s.withDefaults()
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isInfraFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func isInfraFailure(err error) bool {
	if errors.Is(err, apperr.ErrUnavailable) {
		return true
	}
	for _, kind := range []error{
		apperr.ErrNotFound, apperr.ErrInsufficientStock, apperr.ErrPaymentDeclined,
		apperr.ErrValidationFailed, apperr.ErrInvalidTransition,
	} {
		if errors.Is(err, kind) {
			return false
		}
	}
	return true
}

// Classify turns the breaker's own rejections into Unavailable so callers can
// treat them like any other outage.
func Classify(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperr.Unavailable(op, err)
	}
	return err
}
