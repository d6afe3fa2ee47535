package billing

import (
	"time"

	"github.com/segyhp/dues-engine/internal/domain"
	customError "github.com/segyhp/dues-engine/pkg/errors"
	"github.com/shopspring/decimal"
)

// InitialSchedule computes the first due date of a schedule starting on
// start, and the anchor day the cycle is billed on.
func InitialSchedule(start time.Time, f domain.Frequency) (time.Time, int, error) {
	next, err := AddCycle(start, f)
	if err != nil {
		return time.Time{}, 0, err
	}
	return next, DateOf(start).Day(), nil
}

// NewObligation builds an active obligation with its initial schedule.
// When paidAtStart is set the first cycle is treated as collected on start.
func NewObligation(memberID int64, kind domain.ObligationKind, label string, amount decimal.Decimal, f domain.Frequency, start time.Time, paidAtStart bool) (*domain.Obligation, error) {
	next, anchorDay, err := InitialSchedule(start, f)
	if err != nil {
		return nil, err
	}

	start = DateOf(start)
	o := &domain.Obligation{
		MemberID:    memberID,
		Kind:        kind,
		Label:       label,
		Amount:      amount,
		Frequency:   f,
		StartDate:   start,
		AnchorDay:   anchorDay,
		NextDueDate: &next,
		Status:      domain.ObligationStatusActive,
	}
	if paidAtStart {
		o.LastPaidDate = &start
	}
	return o, nil
}

// ApplyPayment returns the obligation as it stands after a payment made on
// paymentDate. Daily schedules restart from the payment itself; every other
// frequency advances from the due date being settled, so paying early or
// late never shifts the billing day. A payment made after several missed
// cycles moves the due date to the first cycle after the payment. The input
// obligation is not modified.
func ApplyPayment(o *domain.Obligation, paymentDate, today time.Time) (*domain.Obligation, error) {
	paymentDate = DateOf(paymentDate)
	today = DateOf(today)

	if paymentDate.After(today) {
		return nil, customError.WrapFuturePayment(paymentDate, today)
	}

	var anchor time.Time
	if o.Frequency == domain.FrequencyDaily {
		anchor = paymentDate
	} else {
		if o.NextDueDate == nil {
			return nil, customError.WrapUninitializedCycle(o.ID)
		}
		anchor = *o.NextDueDate
	}

	// Cycles missed entirely are stepped over on the same billing day.
	next := anchor
	for {
		var err error
		next, err = AddCycle(next, o.Frequency)
		if err != nil {
			return nil, err
		}
		if next.After(paymentDate) {
			break
		}
	}

	updated := o.Clone()
	updated.LastPaidDate = &paymentDate
	updated.NextDueDate = &next
	return updated, nil
}

// RescheduleBasis returns the date a frequency change is computed from: the
// schedule start when known, otherwise the current due date.
func RescheduleBasis(o *domain.Obligation) (time.Time, error) {
	if !o.StartDate.IsZero() {
		return DateOf(o.StartDate), nil
	}
	if o.NextDueDate != nil {
		return DateOf(*o.NextDueDate), nil
	}
	return time.Time{}, customError.WrapUninitializedCycle(o.ID)
}

// Reschedule computes the due date after switching o to newFrequency from
// basis. LastPaidDate is never touched.
func Reschedule(o *domain.Obligation, newFrequency domain.Frequency, basis time.Time) (*domain.Obligation, error) {
	next, err := AddCycle(basis, newFrequency)
	if err != nil {
		return nil, err
	}

	updated := o.Clone()
	updated.Frequency = newFrequency
	updated.NextDueDate = &next
	return updated, nil
}
