package billing

import (
	"sort"
	"time"

	"github.com/segyhp/dues-engine/internal/domain"
)

// Classify partitions the active obligations into overdue, due soon and
// current relative to today. Inactive obligations are dropped. When
// windowOverride is non-nil it replaces every frequency's reminder window.
//
// Active obligations without a due date cannot be overdue or due soon and
// are reported as current; the repair sweep is what reinitializes them.
func Classify(obligations []*domain.Obligation, today time.Time, policy Policy, windowOverride *int) *domain.Classification {
	today = DateOf(today)
	result := &domain.Classification{
		Today:   today,
		Overdue: []*domain.Obligation{},
		DueSoon: []*domain.Obligation{},
		Current: []*domain.Obligation{},
	}

	for _, o := range obligations {
		if o == nil || !o.IsActive() {
			continue
		}
		if o.NextDueDate == nil {
			result.Current = append(result.Current, o)
			continue
		}

		window := policy.ReminderWindow(o.Frequency)
		if windowOverride != nil {
			window = *windowOverride
		}

		due := DateOf(*o.NextDueDate)
		switch {
		case due.Before(today):
			result.Overdue = append(result.Overdue, o)
		case DaysBetween(today, due) <= window:
			result.DueSoon = append(result.DueSoon, o)
		default:
			result.Current = append(result.Current, o)
		}
	}

	sortByDueDate(result.Overdue)
	sortByDueDate(result.DueSoon)
	return result
}

// sortByDueDate orders by next due date ascending, then by ID.
func sortByDueDate(obligations []*domain.Obligation) {
	sort.SliceStable(obligations, func(i, j int) bool {
		a, b := obligations[i].NextDueDate, obligations[j].NextDueDate
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return obligations[i].ID < obligations[j].ID
	})
}
