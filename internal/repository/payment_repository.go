package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/segyhp/dues-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// rangeArgs turns zero bounds into NULL so the query leaves them open.
func rangeArgs(r domain.DateRange) (interface{}, interface{}) {
	var from, to interface{}
	if !r.From.IsZero() {
		from = r.From
	}
	if !r.To.IsZero() {
		to = r.To
	}
	return from, to
}

func (r *paymentRepository) ListByObligationID(ctx context.Context, obligationID int64) ([]*domain.PaymentRecord, error) {
	query := `
		SELECT id, obligation_id, amount, payment_date, notes, recorded_at
		FROM payments
		WHERE obligation_id = $1
		ORDER BY payment_date DESC, id DESC
	`

	payments := []*domain.PaymentRecord{}
	err := r.db.SelectContext(ctx, &payments, query, obligationID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) SumPayments(ctx context.Context, dr domain.DateRange) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE ($1::date IS NULL OR payment_date >= $1::date)
		  AND ($2::date IS NULL OR payment_date <= $2::date)
	`

	from, to := rangeArgs(dr)
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, from, to); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (r *paymentRepository) SumPaymentsByKind(ctx context.Context, dr domain.DateRange) (map[domain.ObligationKind]decimal.Decimal, error) {
	query := `
		SELECT o.kind, COALESCE(SUM(p.amount), 0) AS total
		FROM payments p
		JOIN obligations o ON o.id = p.obligation_id
		WHERE ($1::date IS NULL OR p.payment_date >= $1::date)
		  AND ($2::date IS NULL OR p.payment_date <= $2::date)
		GROUP BY o.kind
	`

	var rows []struct {
		Kind  domain.ObligationKind `db:"kind"`
		Total decimal.Decimal       `db:"total"`
	}

	from, to := rangeArgs(dr)
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, err
	}

	totals := map[domain.ObligationKind]decimal.Decimal{
		domain.KindMembership: decimal.Zero,
		domain.KindLocker:     decimal.Zero,
	}
	for _, row := range rows {
		totals[row.Kind] = row.Total
	}

	return totals, nil
}

func (r *paymentRepository) ListRecent(ctx context.Context, limit int) ([]*domain.RecentPayment, error) {
	query := `
		SELECT p.id, p.obligation_id, p.amount, p.payment_date, p.notes, p.recorded_at,
		       o.kind, o.label, m.name AS holder_name
		FROM payments p
		JOIN obligations o ON o.id = p.obligation_id
		JOIN members m ON m.id = o.member_id
		ORDER BY p.recorded_at DESC, p.id DESC
		LIMIT $1
	`

	payments := []*domain.RecentPayment{}
	err := r.db.SelectContext(ctx, &payments, query, limit)
	if err != nil {
		return nil, err
	}

	return payments, nil
}
