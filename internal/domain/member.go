package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

// Member owns membership and locker obligations.
type Member struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	JoinDate  time.Time `json:"join_date" db:"join_date"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CreateMemberRequest struct {
	Name           string          `json:"name" validate:"required,max=200"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Phone          string          `json:"phone" validate:"max=30"`
	JoinDate       string          `json:"join_date" validate:"required,datetime=2006-01-02"`
	MembershipType string          `json:"membership_type" validate:"max=100"`
	FeeAmount      decimal.Decimal `json:"fee_amount" validate:"decimal_positive"`
	Frequency      Frequency       `json:"frequency" validate:"required"`
}

type CreateMemberResponse struct {
	Member     *Member     `json:"member"`
	Obligation *Obligation `json:"obligation"`
}
