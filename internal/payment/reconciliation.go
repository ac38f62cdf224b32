package payment

import (
	"context"

	"florashop-be/internal/logger"
	"florashop-be/internal/metrics"
	"florashop-be/internal/utils"

	"go.uber.org/zap"
)

type ReconciliationService interface {
	Record(ctx context.Context, rec *Reconciliation) error
	ListOpen(ctx context.Context, page, limit int) ([]*Reconciliation, utils.Pagination, error)
	Resolve(ctx context.Context, id, resolvedBy string) error
}

type reconciliationService struct {
	repo    ReconciliationRepository
	metrics *metrics.Metrics
}

func NewReconciliationService(repo ReconciliationRepository, m *metrics.Metrics) ReconciliationService {
	return &reconciliationService{repo: repo, metrics: m}
}

// Record persists the record and always logs it at error level, so the
// charge is traceable even when the write itself fails.
func (s *reconciliationService) Record(ctx context.Context, rec *Reconciliation) error {
	log := logger.FromCtx(ctx).With(
		zap.String("order_id", rec.OrderID),
		zap.String("payment_reference", rec.PaymentReference),
		zap.Int64("amount", rec.Amount),
		zap.String("reason", rec.Reason),
	)
	s.metrics.ReconciliationRecorded()

	if err := s.repo.Create(ctx, rec); err != nil {
		log.Error("payment captured without order; failed to record reconciliation", zap.Error(err))
		return err
	}
	log.Error("payment captured without order; reconciliation recorded",
		zap.String("reconciliation_id", rec.ID),
	)
	return nil
}

func (s *reconciliationService) ListOpen(ctx context.Context, page, limit int) ([]*Reconciliation, utils.Pagination, error) {
	page, limit = utils.NormalizePage(page, limit)
	recs, total, err := s.repo.ListUnresolved(ctx, limit, utils.Offset(page, limit))
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return recs, utils.NewPagination(page, limit, total), nil
}

func (s *reconciliationService) Resolve(ctx context.Context, id, resolvedBy string) error {
	if err := s.repo.Resolve(ctx, id, resolvedBy); err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("reconciliation resolved",
		zap.String("reconciliation_id", id),
		zap.String("resolved_by", resolvedBy),
	)
	return nil
}
