package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ObligationView is the per-obligation computed state consumed by presentation.
type ObligationView struct {
	ObligationID int64      `json:"obligation_id"`
	NextDueDate  *time.Time `json:"next_due_date,omitempty"`
	LastPaidDate *time.Time `json:"last_paid_date,omitempty"`
	IsOverdue    bool       `json:"is_overdue"`
	DaysOverdue  int        `json:"days_overdue"`
	DaysUntilDue int        `json:"days_until_due"`
}

// Classification partitions active obligations relative to a day.
type Classification struct {
	Today   time.Time     `json:"today"`
	Overdue []*Obligation `json:"overdue"`
	DueSoon []*Obligation `json:"due_soon"`
	Current []*Obligation `json:"current"`
}

// AlertsResponse is the classifier output with computed views.
type AlertsResponse struct {
	Today   string            `json:"today"`
	Overdue []*ObligationView `json:"overdue"`
	DueSoon []*ObligationView `json:"due_soon"`
	Current int               `json:"current"`
}

// ReminderContact is what the messaging collaborator needs for one obligation.
type ReminderContact struct {
	ObligationID int64           `json:"obligation_id"`
	Kind         ObligationKind  `json:"kind"`
	Label        string          `json:"label"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	Amount       decimal.Decimal `json:"amount"`
	NextDueDate  time.Time       `json:"next_due_date"`
	DaysOverdue  int             `json:"days_overdue,omitempty"`
	DaysUntilDue int             `json:"days_until_due,omitempty"`
}

// ReminderDigest groups contacts by urgency.
type ReminderDigest struct {
	Today   time.Time          `json:"today"`
	Overdue []*ReminderContact `json:"overdue"`
	DueSoon []*ReminderContact `json:"due_soon"`
}

// RepairResult reports the outcome of one consistency sweep.
type RepairResult struct {
	SweepID   string `json:"sweep_id"`
	Scanned   int    `json:"scanned"`
	Corrected int    `json:"corrected"`
	Failed    int    `json:"failed"`
	Completed bool   `json:"completed"`
}
