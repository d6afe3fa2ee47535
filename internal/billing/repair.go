package billing

import (
	"time"

	"github.com/segyhp/dues-engine/internal/domain"
)

// NeedsRepair reports whether the last paid / next due pair of o has
// drifted: the due date does not follow the last payment, or the gap is
// too short for the frequency. Obligations missing either date are left
// alone.
func NeedsRepair(o *domain.Obligation, policy Policy) bool {
	if o.LastPaidDate == nil || o.NextDueDate == nil {
		return false
	}
	return gapDrifted(o.Frequency, DateOf(*o.LastPaidDate), DateOf(*o.NextDueDate), policy)
}

func gapDrifted(f domain.Frequency, lastPaid, nextDue time.Time, policy Policy) bool {
	if !nextDue.After(lastPaid) {
		return true
	}

	gap := DaysBetween(lastPaid, nextDue)
	if f == domain.FrequencyDaily {
		return gap != DailyCycleGap
	}

	minGap, ok := policy.MinCycleGap(f)
	if !ok {
		return false
	}
	return gap < minGap
}

// CorrectedDueDate recomputes the next due date of a drifted obligation from
// its last payment. Daily schedules are due the day after; month based ones
// land on the anchor day of the following cycle, clamped to the month end.
// The result always satisfies NeedsRepair == false, which keeps the sweep
// idempotent. Obligations never paid fall back to their initial schedule.
func CorrectedDueDate(o *domain.Obligation, policy Policy) (time.Time, error) {
	if o.LastPaidDate == nil {
		if !o.StartDate.IsZero() {
			next, _, err := InitialSchedule(o.StartDate, o.Frequency)
			return next, err
		}
		if o.NextDueDate != nil {
			return DateOf(*o.NextDueDate), nil
		}
		return time.Time{}, errUninitialized(o)
	}

	lastPaid := DateOf(*o.LastPaidDate)
	months, err := CycleMonths(o.Frequency)
	if err != nil {
		return time.Time{}, err
	}

	if months == 0 {
		return lastPaid.AddDate(0, 0, 1), nil
	}

	anchorDay := o.AnchorDay
	if anchorDay < 1 || anchorDay > 31 {
		anchorDay = lastPaid.Day()
	}

	candidate := ClampedDate(lastPaid.Year(), lastPaid.Month()+time.Month(months), anchorDay)
	for gapDrifted(o.Frequency, lastPaid, candidate, policy) {
		candidate, err = AddCycle(candidate, o.Frequency)
		if err != nil {
			return time.Time{}, err
		}
	}
	return candidate, nil
}

// Repair returns a corrected copy of o and true when o has drifted or has
// lost its due date, or o itself and false when it is consistent.
func Repair(o *domain.Obligation, policy Policy) (*domain.Obligation, bool, error) {
	if o.NextDueDate != nil && !NeedsRepair(o, policy) {
		return o, false, nil
	}

	next, err := CorrectedDueDate(o, policy)
	if err != nil {
		return nil, false, err
	}

	fixed := o.Clone()
	fixed.NextDueDate = &next
	return fixed, true, nil
}
