package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/segyhp/dues-engine/internal/domain"
	customError "github.com/segyhp/dues-engine/pkg/errors"
)

type memberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) CreateWithObligation(ctx context.Context, m *domain.Member, o *domain.Obligation) error {
	query := `
		INSERT INTO members (name, email, phone, join_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, query, m.Name, m.Email, m.Phone, m.JoinDate, m.Status).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return err
	}

	o.MemberID = m.ID
	if err := insertObligation(ctx, tx, o); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	o.HolderName = m.Name
	o.HolderPhone = m.Phone
	return nil
}

func (r *memberRepository) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	query := `
		SELECT id, name, email, phone, join_date, status, created_at
		FROM members
		WHERE id = $1
	`

	var m domain.Member
	err := r.db.GetContext(ctx, &m, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapMemberNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}
