package payment

import (
	"context"
	"fmt"

	"florashop-be/internal/apperr"
	"florashop-be/internal/db"

	"github.com/google/uuid"
)

var ErrReconciliationNotFound = fmt.Errorf("reconciliation %w", apperr.ErrNotFound)

// ReconciliationRepository stores charges that need manual follow-up.
type ReconciliationRepository interface {
	Create(ctx context.Context, rec *Reconciliation) error
	ListUnresolved(ctx context.Context, limit, offset int) ([]*Reconciliation, int, error)
	Resolve(ctx context.Context, id, resolvedBy string) error
}

type repository struct {
	db db.DBTX
}

func NewReconciliationRepository(conn db.DBTX) ReconciliationRepository {
	return &repository{db: conn}
}

func (r *repository) Create(ctx context.Context, rec *Reconciliation) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payment_reconciliations (id, order_id, user_id, payment_reference, amount, method, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`,
		rec.ID, rec.OrderID, rec.UserID, rec.PaymentReference, rec.Amount, string(rec.Method), rec.Reason,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return apperr.FromInfra("payment.CreateReconciliation", err)
	}
	return nil
}

func (r *repository) ListUnresolved(ctx context.Context, limit, offset int) ([]*Reconciliation, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_reconciliations WHERE resolved_at IS NULL`,
	).Scan(&total); err != nil {
		return nil, 0, apperr.FromInfra("payment.ListReconciliations", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, user_id, payment_reference, amount, method, reason, created_at
		FROM payment_reconciliations
		WHERE resolved_at IS NULL
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromInfra("payment.ListReconciliations", err)
	}
	defer rows.Close()

	recs := []*Reconciliation{}
	for rows.Next() {
		var rec Reconciliation
		var method string
		if err := rows.Scan(
			&rec.ID, &rec.OrderID, &rec.UserID, &rec.PaymentReference,
			&rec.Amount, &method, &rec.Reason, &rec.CreatedAt,
		); err != nil {
			return nil, 0, apperr.FromInfra("payment.ListReconciliations", err)
		}
		rec.Method = Method(method)
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.FromInfra("payment.ListReconciliations", err)
	}
	return recs, total, nil
}

func (r *repository) Resolve(ctx context.Context, id, resolvedBy string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_reconciliations
		SET resolved_at = NOW(), resolved_by = $2
		WHERE id = $1 AND resolved_at IS NULL
	`, id, resolvedBy)
	if err != nil {
		return apperr.FromInfra("payment.ResolveReconciliation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.FromInfra("payment.ResolveReconciliation", err)
	}
	if n == 0 {
		return ErrReconciliationNotFound
	}
	return nil
}
