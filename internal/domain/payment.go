package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecord is an immutable entry in an obligation's payment history.
type PaymentRecord struct {
	ID           int64           `json:"id" db:"id"`
	ObligationID int64           `json:"obligation_id" db:"obligation_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate  time.Time       `json:"payment_date" db:"payment_date"`
	Notes        string          `json:"notes" db:"notes"`
	RecordedAt   time.Time       `json:"recorded_at" db:"recorded_at"`
}

// RecentPayment is a payment joined with its obligation and holder, for
// dashboard feeds.
type RecentPayment struct {
	PaymentRecord
	Kind       ObligationKind `json:"kind" db:"kind"`
	Label      string         `json:"label" db:"label"`
	HolderName string         `json:"holder_name" db:"holder_name"`
}
