package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ObligationStatusActive   = "active"
	ObligationStatusInactive = "inactive"
)

// ObligationKind is the category of the entity owning a schedule.
type ObligationKind string

const (
	KindMembership ObligationKind = "membership"
	KindLocker     ObligationKind = "locker"
)

// Obligation is a recurring billing schedule (membership fee or locker rental).
type Obligation struct {
	ID           int64           `json:"id" db:"id"`
	MemberID     int64           `json:"member_id" db:"member_id"`
	Kind         ObligationKind  `json:"kind" db:"kind"`
	Label        string          `json:"label" db:"label"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Frequency    Frequency       `json:"frequency" db:"frequency"`
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	AnchorDay    int             `json:"anchor_day" db:"anchor_day"`
	LastPaidDate *time.Time      `json:"last_paid_date,omitempty" db:"last_paid_date"`
	NextDueDate  *time.Time      `json:"next_due_date,omitempty" db:"next_due_date"`
	Status       string          `json:"status" db:"status"`
	Version      int64           `json:"version" db:"version"`
	HolderName   string          `json:"holder_name" db:"holder_name"`
	HolderPhone  string          `json:"holder_phone" db:"holder_phone"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the obligation takes part in billing.
func (o *Obligation) IsActive() bool {
	return o.Status == ObligationStatusActive
}

// Clone returns a copy that shares no date pointers with o.
func (o *Obligation) Clone() *Obligation {
	c := *o
	if o.LastPaidDate != nil {
		d := *o.LastPaidDate
		c.LastPaidDate = &d
	}
	if o.NextDueDate != nil {
		d := *o.NextDueDate
		c.NextDueDate = &d
	}
	return &c
}

// DTOs for requests and responses

type CreateObligationRequest struct {
	MemberID       int64           `json:"member_id" validate:"required,gt=0"`
	Kind           ObligationKind  `json:"kind" validate:"required,oneof=membership locker"`
	Label          string          `json:"label" validate:"max=100"`
	Amount         decimal.Decimal `json:"amount" validate:"decimal_positive"`
	Frequency      Frequency       `json:"frequency" validate:"required"`
	StartDate      string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	CollectInitial bool            `json:"collect_initial"`
}

type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"decimal_positive"`
	PaymentDate string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Notes       string          `json:"notes" validate:"max=500"`
}

type ChangeFrequencyRequest struct {
	Frequency Frequency `json:"frequency" validate:"required"`
}

type RecordPaymentResponse struct {
	Payment    *PaymentRecord  `json:"payment"`
	Obligation *Obligation     `json:"obligation"`
	View       *ObligationView `json:"view"`
}

type ObligationResponse struct {
	Obligation *Obligation     `json:"obligation"`
	View       *ObligationView `json:"view"`
}
