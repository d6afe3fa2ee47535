package billing

import "github.com/segyhp/dues-engine/internal/domain"

// Default reminder windows in days. Frequencies without an entry fall back
// to DefaultFallbackWindow.
var DefaultReminderWindows = map[domain.Frequency]int{
	domain.FrequencyDaily:     0,
	domain.FrequencyMonthly:   7,
	domain.FrequencyQuarterly: 14,
	domain.FrequencyYearly:    30,
}

const DefaultFallbackWindow = 7

// DailyCycleGap is the only consistent gap, in days, between the last
// payment and the next due date of a daily schedule.
const DailyCycleGap = 1

// Default minimum gaps, in days, between the last payment and the next due
// date of month based schedules.
var DefaultMinCycleGaps = map[domain.Frequency]int{
	domain.FrequencyMonthly:    25,
	domain.FrequencyQuarterly:  80,
	domain.FrequencySemiAnnual: 150,
	domain.FrequencyYearly:     300,
}

// Policy carries the tunable thresholds of the classifier and repair sweep.
type Policy struct {
	ReminderWindows map[domain.Frequency]int
	FallbackWindow  int
	MinCycleGaps    map[domain.Frequency]int
}

// DefaultPolicy returns a Policy populated with the default tables.
func DefaultPolicy() Policy {
	p := Policy{
		ReminderWindows: make(map[domain.Frequency]int, len(DefaultReminderWindows)),
		FallbackWindow:  DefaultFallbackWindow,
		MinCycleGaps:    make(map[domain.Frequency]int, len(DefaultMinCycleGaps)),
	}
	for f, days := range DefaultReminderWindows {
		p.ReminderWindows[f] = days
	}
	for f, days := range DefaultMinCycleGaps {
		p.MinCycleGaps[f] = days
	}
	return p
}

// ReminderWindow returns the due-soon window for f.
func (p Policy) ReminderWindow(f domain.Frequency) int {
	if days, ok := p.ReminderWindows[f]; ok {
		return days
	}
	return p.FallbackWindow
}

// MinCycleGap returns the minimum plausible gap for a month based f, and
// false when f has no threshold configured. Daily schedules always use
// DailyCycleGap.
func (p Policy) MinCycleGap(f domain.Frequency) (int, bool) {
	days, ok := p.MinCycleGaps[f]
	return days, ok
}
