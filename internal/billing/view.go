package billing

import (
	"time"

	"github.com/segyhp/dues-engine/internal/domain"
	customError "github.com/segyhp/dues-engine/pkg/errors"
)

// ComputeView derives the presentation fields of o as of today.
func ComputeView(o *domain.Obligation, today time.Time) *domain.ObligationView {
	view := &domain.ObligationView{
		ObligationID: o.ID,
		LastPaidDate: o.LastPaidDate,
		NextDueDate:  o.NextDueDate,
	}
	if o.NextDueDate == nil {
		return view
	}

	days := DaysBetween(today, *o.NextDueDate)
	if days < 0 {
		view.IsOverdue = true
		view.DaysOverdue = -days
	} else {
		view.DaysUntilDue = days
	}
	return view
}

// ComputeViews maps ComputeView over obligations.
func ComputeViews(obligations []*domain.Obligation, today time.Time) []*domain.ObligationView {
	views := make([]*domain.ObligationView, 0, len(obligations))
	for _, o := range obligations {
		views = append(views, ComputeView(o, today))
	}
	return views
}

func errUninitialized(o *domain.Obligation) error {
	return customError.WrapUninitializedCycle(o.ID)
}
