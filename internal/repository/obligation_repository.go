package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/segyhp/dues-engine/internal/domain"
	customError "github.com/segyhp/dues-engine/pkg/errors"
)

const obligationColumns = `
		o.id, o.member_id, o.kind, o.label, o.amount, o.frequency, o.start_date, o.anchor_day,
		o.last_paid_date, o.next_due_date, o.status, o.version,
		m.name AS holder_name, m.phone AS holder_phone, o.created_at, o.updated_at
	`

const obligationFrom = `
		FROM obligations o
		JOIN members m ON m.id = o.member_id
	`

type obligationRepository struct {
	db *sqlx.DB
}

func NewObligationRepository(db *sqlx.DB) ObligationRepository {
	return &obligationRepository{db: db}
}

func insertObligation(ctx context.Context, q sqlx.QueryerContext, o *domain.Obligation) error {
	query := `
		INSERT INTO obligations (member_id, kind, label, amount, frequency, start_date, anchor_day,
		                         last_paid_date, next_due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, version, created_at, updated_at
	`

	row := q.QueryRowxContext(ctx, query,
		o.MemberID,
		o.Kind,
		o.Label,
		o.Amount,
		o.Frequency,
		o.StartDate,
		o.AnchorDay,
		o.LastPaidDate,
		o.NextDueDate,
		o.Status,
	)
	return row.Scan(&o.ID, &o.Version, &o.CreatedAt, &o.UpdatedAt)
}

func insertPayment(ctx context.Context, q sqlx.QueryerContext, p *domain.PaymentRecord) error {
	query := `
		INSERT INTO payments (obligation_id, amount, payment_date, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, recorded_at
	`

	return q.QueryRowxContext(ctx, query, p.ObligationID, p.Amount, p.PaymentDate, p.Notes).
		Scan(&p.ID, &p.RecordedAt)
}

func saveObligation(ctx context.Context, q sqlx.QueryerContext, o *domain.Obligation) error {
	query := `
		UPDATE obligations
		SET frequency = $3, anchor_day = $4, last_paid_date = $5, next_due_date = $6, status = $7,
		    version = version + 1, updated_at = $8
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	err := q.QueryRowxContext(ctx, query,
		o.ID,
		o.Version,
		o.Frequency,
		o.AnchorDay,
		o.LastPaidDate,
		o.NextDueDate,
		o.Status,
		time.Now().UTC(),
	).Scan(&o.Version, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return customError.WrapConcurrentUpdate(o.ID)
	}
	return err
}

func (r *obligationRepository) Create(ctx context.Context, o *domain.Obligation) error {
	return insertObligation(ctx, r.db, o)
}

func (r *obligationRepository) CreateWithPayment(ctx context.Context, o *domain.Obligation, payment *domain.PaymentRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertObligation(ctx, tx, o); err != nil {
		return err
	}

	payment.ObligationID = o.ID
	if err := insertPayment(ctx, tx, payment); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *obligationRepository) GetByID(ctx context.Context, id int64) (*domain.Obligation, error) {
	query := `SELECT` + obligationColumns + obligationFrom + `WHERE o.id = $1`

	var o domain.Obligation
	err := r.db.GetContext(ctx, &o, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapObligationNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *obligationRepository) ListActive(ctx context.Context) ([]*domain.Obligation, error) {
	query := `SELECT` + obligationColumns + obligationFrom + `
		WHERE o.status = $1
		ORDER BY o.next_due_date NULLS FIRST, o.id
	`

	var obligations []*domain.Obligation
	err := r.db.SelectContext(ctx, &obligations, query, domain.ObligationStatusActive)
	if err != nil {
		return nil, err
	}

	return obligations, nil
}

func (r *obligationRepository) ListByDueDateRange(ctx context.Context, from, to time.Time) ([]*domain.Obligation, error) {
	query := `SELECT` + obligationColumns + obligationFrom + `
		WHERE o.status = $1 AND o.next_due_date BETWEEN $2 AND $3
		ORDER BY o.next_due_date, o.id
	`

	var obligations []*domain.Obligation
	err := r.db.SelectContext(ctx, &obligations, query, domain.ObligationStatusActive, from, to)
	if err != nil {
		return nil, err
	}

	return obligations, nil
}

func (r *obligationRepository) Save(ctx context.Context, o *domain.Obligation) error {
	return saveObligation(ctx, r.db, o)
}

func (r *obligationRepository) ApplyPayment(ctx context.Context, o *domain.Obligation, payment *domain.PaymentRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	payment.ObligationID = o.ID
	if err := insertPayment(ctx, tx, payment); err != nil {
		return err
	}

	if err := saveObligation(ctx, tx, o); err != nil {
		return err
	}

	return tx.Commit()
}
